package models

import (
	"database/sql"
	"strings"
	"time"
)

// PlaceholderIdentityPrefix marks users created by an invite before the
// invitee has ever authenticated.
const PlaceholderIdentityPrefix = "pending_"

type User struct {
	ID            string         `db:"id"`
	IdentityKey   string         `db:"identity_key"`
	WalletAddress sql.NullString `db:"wallet_address"`
	Email         sql.NullString `db:"email"`
	CreatedAt     time.Time      `db:"created_at"`
}

func PlaceholderIdentityKey(walletAddress string) string {
	return PlaceholderIdentityPrefix + strings.ToLower(walletAddress)
}

func (u *User) IsPlaceholder() bool {
	return strings.HasPrefix(u.IdentityKey, PlaceholderIdentityPrefix)
}
