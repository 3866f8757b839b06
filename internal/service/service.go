package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/cradoe/puddle/internal/cache"
	"github.com/cradoe/puddle/internal/chain"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/repository"
)

// Chain is the on-chain capability the workflows need.
type Chain interface {
	DeployPiggyBank(ctx context.Context, req chain.DeployRequest) (*chain.Deployment, error)
	DeploymentAddress(ctx context.Context, txHash string) (string, error)
	ReceiptStatus(ctx context.Context, txHash string) (chain.ReceiptStatus, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

type DetailCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	DefaultInviteMaxAttempts = 3
	DefaultInviteBaseDelay   = time.Second
)

type Options struct {
	DB        repository.Database
	Chain     Chain
	Publisher Publisher
	Cache     DetailCache
	Logger    *slog.Logger

	InviteMaxAttempts int
	InviteBaseDelay   time.Duration
}

type Service struct {
	db        repository.Database
	chain     Chain
	publisher Publisher
	cache     DetailCache
	logger    *slog.Logger

	invitePolicy RetryPolicy

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds the service. Chain may be nil; Publisher and Cache fall back to
// no-ops when nil.
func New(opts Options) *Service {
	s := &Service{
		db:        opts.DB,
		chain:     opts.Chain,
		publisher: opts.Publisher,
		cache:     opts.Cache,
		logger:    opts.Logger,
		invitePolicy: RetryPolicy{
			MaxAttempts: opts.InviteMaxAttempts,
			BaseDelay:   opts.InviteBaseDelay,
		}.WithDefaults(),
		now:   time.Now,
		sleep: sleepContext,
	}

	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	if s.cache == nil {
		s.cache = nopCache{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// publish is fire and forget: a failure is logged and never reaches the
// caller.
func (s *Service) publish(ctx context.Context, event models.Event) {
	event.OccurredAt = s.now()

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encode event", "type", event.Type, "error", err)
		return
	}

	if err := s.publisher.Publish(ctx, models.EventsTopic, event.PiggyBankID, data); err != nil {
		s.logger.Warn("publish event", "type", event.Type, "piggy_bank_id", event.PiggyBankID, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, piggyBankID string) {
	if err := s.cache.Delete(ctx, cache.PiggyBankDetailKey(piggyBankID)); err != nil {
		s.logger.Warn("invalidate piggy bank cache", "piggy_bank_id", piggyBankID, "error", err)
	}
}

// requireMember returns the caller's role or ErrNotMember.
func (s *Service) requireMember(ctx context.Context, piggyBankID, userID string) (string, error) {
	role, found, err := s.db.Member().GetRole(ctx, piggyBankID, userID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotMember
	}

	return role, nil
}

func (s *Service) getPiggyBank(ctx context.Context, id string) (*models.PiggyBank, error) {
	pb, found, err := s.db.PiggyBank().GetOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrPiggyBankNotFound
	}

	return pb, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, []byte) error { return nil }

type nopCache struct{}

func (nopCache) GetJSON(context.Context, string, any) (bool, error) { return false, nil }

func (nopCache) SetJSON(context.Context, string, any) error { return nil }

func (nopCache) Delete(context.Context, ...string) error { return nil }
