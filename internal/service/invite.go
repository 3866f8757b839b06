package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cradoe/puddle/internal/metrics"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/repository"
	"github.com/cradoe/puddle/internal/validator"
)

// RetryPolicy waits BaseDelay * 2^(n-1) after the n-th failed attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}

// WithDefaults fills in the attempt count and base delay when unset.
func (p RetryPolicy) WithDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultInviteMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultInviteBaseDelay
	}
	return p
}

// TotalDelay is the longest time spent sleeping between attempts.
func (p RetryPolicy) TotalDelay() time.Duration {
	var total time.Duration
	for attempt := 1; attempt < p.MaxAttempts; attempt++ {
		total += p.Delay(attempt)
	}
	return total
}

// permanentInviteError reports failures that a retry cannot fix.
func permanentInviteError(err error) bool {
	return errors.Is(err, ErrMembershipFull) ||
		errors.Is(err, ErrAlreadyMember) ||
		errors.Is(err, ErrSelfInvite) ||
		errors.Is(err, ErrPiggyBankNotFound)
}

type InviteResult struct {
	Partner  *models.User
	Pending  bool
	Attempts int
	Err      error
}

type InvitePartnerInput struct {
	PiggyBankID    string
	PartnerAddress string
}

// InvitePartner adds partnerAddress to a piggy bank the caller belongs to.
// When every attempt fails the invite is parked for the reconciler and the
// result reports Pending.
func (s *Service) InvitePartner(ctx context.Context, inviter *models.User, input InvitePartnerInput) (*InviteResult, error) {
	v := validator.Validator{}
	v.Check(validator.NotBlank(input.PartnerAddress), "partner_address must be provided")
	if validator.NotBlank(input.PartnerAddress) {
		v.Check(validator.IsAddress(input.PartnerAddress), "partner_address must be a valid wallet address")
	}
	if v.HasErrors() {
		return nil, newValidationError(v.Errors...)
	}

	if !validator.IsUUID(input.PiggyBankID) {
		return nil, ErrPiggyBankNotFound
	}

	pb, err := s.getPiggyBank(ctx, input.PiggyBankID)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireMember(ctx, pb.ID, inviter.ID); err != nil {
		return nil, err
	}

	if strings.EqualFold(input.PartnerAddress, inviter.WalletAddress.String) {
		return nil, newValidationError(ErrSelfInvite.Error())
	}

	count, err := s.db.Member().Count(ctx, pb.ID)
	if err != nil {
		return nil, err
	}
	if count >= models.MaxMembers {
		return nil, newValidationError(ErrMembershipFull.Error())
	}

	result := s.inviteWithRetry(ctx, pb, inviter, input.PartnerAddress)
	if result.Err != nil && !result.Pending {
		if errors.Is(result.Err, ErrMembershipFull) || errors.Is(result.Err, ErrAlreadyMember) {
			return nil, newValidationError(result.Err.Error())
		}
		return nil, result.Err
	}

	return result, nil
}

// inviteWithRetry runs the invite under the retry policy. Transient failures
// that outlast the policy are written to pending_invites.
func (s *Service) inviteWithRetry(ctx context.Context, pb *models.PiggyBank, inviter *models.User, partnerAddress string) *InviteResult {
	partnerAddress = strings.ToLower(partnerAddress)
	logger := s.logger.With("piggy_bank_id", pb.ID, "partner_address", partnerAddress)

	var err error
	attempt := 0

	for attempt < s.invitePolicy.MaxAttempts {
		attempt++
		metrics.InviteAttempts.Inc()

		var partner *models.User
		partner, err = s.inviteOnce(ctx, pb, inviter, partnerAddress)
		if err == nil {
			metrics.Outcome(metrics.WorkflowInvite, "success")
			return &InviteResult{Partner: partner, Attempts: attempt}
		}

		if permanentInviteError(err) {
			metrics.Outcome(metrics.WorkflowInvite, "rejected")
			logger.Warn("partner invite rejected", "attempt", attempt, "error", err)
			return &InviteResult{Attempts: attempt, Err: err}
		}

		logger.Warn("partner invite failed", "attempt", attempt, "error", err)

		if attempt < s.invitePolicy.MaxAttempts {
			if sleepErr := s.sleep(ctx, s.invitePolicy.Delay(attempt)); sleepErr != nil {
				break
			}
		}
	}

	metrics.Outcome(metrics.WorkflowInvite, "pending")

	invite := &models.PendingInvite{
		PiggyBankID:    pb.ID,
		InviterID:      inviter.ID,
		PartnerAddress: partnerAddress,
		Attempts:       attempt,
		LastError:      err.Error(),
	}

	// the request context may already be done; the record must still land
	recordCtx := context.WithoutCancel(ctx)
	if _, recordErr := s.db.Reconciliation().InsertPendingInvite(recordCtx, invite); recordErr != nil {
		logger.Error("record pending invite", "attempt", attempt, "error", recordErr, "invite_error", err)
	} else {
		logger.Error("partner invite parked for reconciliation", "pending_invite_id", invite.ID, "attempt", attempt, "error", err)
	}

	return &InviteResult{Pending: true, Attempts: attempt, Err: err}
}

// inviteOnce resolves or creates the partner's user row and adds the
// membership. The membership insert enforces the two member cap.
func (s *Service) inviteOnce(ctx context.Context, pb *models.PiggyBank, inviter *models.User, partnerAddress string) (*models.User, error) {
	partner, err := s.partnerUser(ctx, partnerAddress)
	if err != nil {
		return nil, err
	}

	if partner.ID == inviter.ID {
		return nil, ErrSelfInvite
	}

	_, err = s.db.Member().Insert(ctx, pb.ID, partner.ID, models.MemberRolePartner)
	switch {
	case errors.Is(err, repository.ErrMembershipFull):
		return nil, ErrMembershipFull
	case errors.Is(err, repository.ErrDuplicateMember):
		return nil, ErrAlreadyMember
	case errors.Is(err, repository.ErrRecordNotFound):
		return nil, ErrPiggyBankNotFound
	case err != nil:
		return nil, err
	}

	s.invalidate(ctx, pb.ID)
	s.publish(ctx, models.Event{
		Type:          models.EventPartnerInvited,
		PiggyBankID:   pb.ID,
		PiggyBankName: pb.Name,
		ActorID:       inviter.ID,
		ActorAddress:  inviter.WalletAddress.String,
	})

	return partner, nil
}

func (s *Service) partnerUser(ctx context.Context, partnerAddress string) (*models.User, error) {
	user, found, err := s.db.User().GetByWalletAddress(ctx, partnerAddress)
	if err != nil {
		return nil, err
	}
	if found {
		return user, nil
	}

	user = &models.User{
		IdentityKey:   models.PlaceholderIdentityKey(partnerAddress),
		WalletAddress: sql.NullString{String: partnerAddress, Valid: true},
	}

	if _, err := s.db.User().Insert(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicateUser) {
			return nil, err
		}

		existing, found, err := s.db.User().GetByIdentityKey(ctx, user.IdentityKey)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, repository.ErrRecordNotFound
		}
		return existing, nil
	}

	return user, nil
}
