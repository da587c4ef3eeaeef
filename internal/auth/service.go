package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultSessionTTL = 24 * time.Hour
	minPasswordLength = 8
)

// Service provides credential verification, session issuance and
// validation, and role enforcement. All persistent state lives in the
// Store; the service itself is safe for concurrent use.
type Service struct {
	store Store
	now   func() time.Time
	ttl   time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithSessionTTL overrides the session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service over the given store.
func NewService(store Store, opts ...ServiceOption) *Service {
	svc := &Service{
		store: store,
		now:   time.Now,
		ttl:   defaultSessionTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SessionTTL returns the configured session lifetime.
func (s *Service) SessionTTL() time.Duration { return s.ttl }

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   *Account  `json:"account"`
}

// Register creates a new account with the default user role. It never
// issues a session; login is a separate operation.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, minPasswordLength)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &Account{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		FullName:     strings.TrimSpace(fullName),
		Active:       true,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if err == ErrAlreadyExists {
			return nil, fmt.Errorf("%w: account with this email already exists", ErrAlreadyExists)
		}
		return nil, err
	}
	return account, nil
}

// Login verifies credentials and issues a fresh session. A missing
// account, a deactivated account and a wrong password all fail with the
// same message so that the caller cannot enumerate accounts.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidArgument)
	}

	account, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return nil, errInvalidCredentials()
		}
		return nil, err
	}
	if !account.Active {
		return nil, errInvalidCredentials()
	}
	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		return nil, errInvalidCredentials()
	}

	session, err := s.issueSession(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	// Last-login is only recorded once the session exists; a failed session
	// create must not leave a login trace.
	if err := s.store.TouchLastLogin(ctx, account.ID, session.CreatedAt); err != nil {
		return nil, err
	}
	ts := session.CreatedAt
	account.LastLogin = &ts

	return &LoginResult{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Account:   account,
	}, nil
}

func (s *Service) issueSession(ctx context.Context, accountID string) (*Session, error) {
	token, err := NewSessionToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	session := &Session{
		Token:     token,
		AccountID: accountID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Authenticate resolves a bearer token into an identity. Unknown, expired
// and owner-inactive tokens fail with one identical message: the caller
// must not learn which check rejected it.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	identity, err := s.store.ResolveSession(ctx, token, s.now())
	if err != nil {
		if err == ErrNotFound {
			return Identity{}, errInvalidToken()
		}
		return Identity{}, err
	}
	return *identity, nil
}

// Logout deletes the session addressed by the token. It is idempotent:
// an unknown, expired or empty token still reports success, and sibling
// sessions of the same account are untouched.
func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, token)
}

// RequireRole enforces that an already-resolved identity holds the given
// role. The failure is PermissionDenied, distinct from Unauthenticated:
// the identity itself was valid.
func (s *Service) RequireRole(identity Identity, role string) error {
	if identity.Role != role {
		return fmt.Errorf("%w: insufficient privileges", ErrPermissionDenied)
	}
	return nil
}

// RequireAdmin is RequireRole for the admin tier.
func (s *Service) RequireAdmin(identity Identity) error {
	return s.RequireRole(identity, RoleAdmin)
}

// CreateAccount is the admin-created-user flow: unlike Register the role is
// selectable.
func (s *Service) CreateAccount(ctx context.Context, email, password, fullName, role string) (*Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, minPasswordLength)
	}
	if role == "" {
		role = RoleUser
	}
	if err := validateRole(role); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &Account{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FullName:     strings.TrimSpace(fullName),
		Active:       true,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if err == ErrAlreadyExists {
			return nil, fmt.Errorf("%w: account with this email already exists", ErrAlreadyExists)
		}
		return nil, err
	}
	return account, nil
}

// ListAccounts returns a page of accounts plus the overall count.
func (s *Service) ListAccounts(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListAccounts(ctx, limit, offset)
}

// GetAccount looks up a single account by id.
func (s *Service) GetAccount(ctx context.Context, id string) (*Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidArgument)
	}
	return s.store.FindAccount(ctx, id)
}

// UpdateAccount applies a partial mutation to an account. Supplying no
// fields at all is a caller error.
func (s *Service) UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (*Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidArgument)
	}
	if upd.Email == nil && upd.FullName == nil && upd.Role == nil && upd.Active == nil {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidArgument)
	}
	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email)
		if err != nil {
			return nil, err
		}
		upd.Email = &email
	}
	if upd.Role != nil {
		if err := validateRole(*upd.Role); err != nil {
			return nil, err
		}
	}
	return s.store.UpdateAccount(ctx, id, upd)
}

// DeleteAccount removes an account. The acting admin cannot delete their
// own account; active sessions of the deleted account become invalid on
// their next validation because the owner lookup fails.
func (s *Service) DeleteAccount(ctx context.Context, actor Identity, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidArgument)
	}
	if id == actor.AccountID {
		return fmt.Errorf("%w: cannot delete your own account", ErrInvalidArgument)
	}
	return s.store.DeleteAccount(ctx, id)
}

// Sweep deletes sessions that are already expired. Lazy expiry keeps the
// validator correct without it; this exists for storage hygiene only.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}

func errInvalidCredentials() error {
	return fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
}

func errInvalidToken() error {
	return fmt.Errorf("%w: invalid token", ErrUnauthenticated)
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidArgument)
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", fmt.Errorf("%w: email is malformed", ErrInvalidArgument)
	}
	return email, nil
}

func validateRole(role string) error {
	switch role {
	case RoleAdmin, RoleUser:
		return nil
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}
}
