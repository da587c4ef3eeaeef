package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
// Implementations must enforce a unique constraint on account email and on
// session token; CreateAccount reports ErrAlreadyExists when the email is
// taken so that concurrent registrations race safely.
type Store interface {
	CreateAccount(ctx context.Context, account *Account) error
	FindAccount(ctx context.Context, id string) (*Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]*Account, int, error)
	UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (*Account, error)
	DeleteAccount(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	CreateSession(ctx context.Context, session *Session) error

	// ResolveSession returns the identity owning the token iff the session
	// has not expired as of now and the owning account is active. Any other
	// state (unknown token, expired, owner missing or inactive) reports
	// ErrNotFound; callers must not be able to tell those apart.
	ResolveSession(ctx context.Context, token string, now time.Time) (*Identity, error)

	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}
