package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/cradoe/puddle/internal/auth"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/repository"
)

// FindUser returns the user bound to identity without creating one.
func (s *Service) FindUser(ctx context.Context, identity *auth.Identity) (*models.User, error) {
	user, found, err := s.db.User().GetByIdentityKey(ctx, identity.Key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// ResolveUser gets or creates the user for identity. A placeholder created
// when someone invited this wallet is claimed instead of creating a second
// row, so earlier invitations carry over.
func (s *Service) ResolveUser(ctx context.Context, identity *auth.Identity) (*models.User, error) {
	user, found, err := s.db.User().GetByIdentityKey(ctx, identity.Key)
	if err != nil {
		return nil, err
	}
	if found {
		return user, nil
	}

	wallet := strings.ToLower(identity.WalletAddress)
	email := sql.NullString{String: identity.Email, Valid: identity.Email != ""}

	if wallet != "" {
		placeholder, found, err := s.db.User().GetByWalletAddress(ctx, wallet)
		if err != nil {
			return nil, err
		}

		if found && placeholder.IsPlaceholder() {
			claimed, err := s.db.User().ClaimPlaceholder(ctx, placeholder.ID, identity.Key, email)
			switch {
			case err == nil:
				s.logger.Info("placeholder user claimed", "user_id", claimed.ID, "wallet_address", wallet)
				return claimed, nil
			case errors.Is(err, repository.ErrDuplicateUser):
				// a concurrent request for the same identity got there first
				return s.FindUser(ctx, identity)
			case !errors.Is(err, repository.ErrRecordNotFound):
				return nil, err
			}
		}
	}

	user = &models.User{
		IdentityKey:   identity.Key,
		WalletAddress: sql.NullString{String: wallet, Valid: wallet != ""},
		Email:         email,
	}

	if _, err := s.db.User().Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return s.FindUser(ctx, identity)
		}
		return nil, err
	}

	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}
