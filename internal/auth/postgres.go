package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"herdbook.org/internal/ids"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CreateAccount(ctx context.Context, account *Account) error {
	if account.ID == "" {
		account.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into accounts(id, email, password_hash, role, full_name, active)
		values($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, account.ID, account.Email, account.PasswordHash, account.Role, account.FullName, account.Active)
	if err := row.Scan(&account.CreatedAt, &account.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *PGStore) FindAccount(ctx context.Context, id string) (*Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, `
		select id, email, password_hash, role, full_name, active, created_at, updated_at, last_login
		from accounts where id = $1
	`, id))
}

func (s *PGStore) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, `
		select id, email, password_hash, role, full_name, active, created_at, updated_at, last_login
		from accounts where lower(email) = lower($1)
	`, email))
}

func (s *PGStore) scanAccount(row *sql.Row) (*Account, error) {
	var (
		acc       Account
		lastLogin sql.NullTime
	)
	err := row.Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Role, &acc.FullName,
		&acc.Active, &acc.CreatedAt, &acc.UpdatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		ts := lastLogin.Time
		acc.LastLogin = &ts
	}
	return &acc, nil
}

func (s *PGStore) ListAccounts(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from accounts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select id, email, password_hash, role, full_name, active, created_at, updated_at, last_login
		from accounts order by created_at desc, id limit $1 offset $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		var (
			acc       Account
			lastLogin sql.NullTime
		)
		if err := rows.Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Role, &acc.FullName,
			&acc.Active, &acc.CreatedAt, &acc.UpdatedAt, &lastLogin); err != nil {
			return nil, 0, err
		}
		if lastLogin.Valid {
			ts := lastLogin.Time
			acc.LastLogin = &ts
		}
		accounts = append(accounts, &acc)
	}
	return accounts, total, rows.Err()
}

func (s *PGStore) UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (*Account, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.FullName != nil {
		sets = append(sets, fmt.Sprintf("full_name = $%d", idx))
		args = append(args, *upd.FullName)
		idx++
	}
	if upd.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", idx))
		args = append(args, *upd.Role)
		idx++
	}
	if upd.Active != nil {
		sets = append(sets, fmt.Sprintf("active = $%d", idx))
		args = append(args, *upd.Active)
		idx++
	}
	if len(sets) == 0 {
		return nil, ErrInvalidArgument
	}
	sets = append(sets, "updated_at = now()")
	query := fmt.Sprintf(`update accounts set %s where id = $%d`, strings.Join(sets, ", "), idx)
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if aff == 0 {
		return nil, ErrNotFound
	}
	return s.FindAccount(ctx, id)
}

func (s *PGStore) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from accounts where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update accounts set last_login = $2 where id = $1`, id, at.UTC())
	return err
}

func (s *PGStore) CreateSession(ctx context.Context, session *Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into sessions(token, account_id, expires_at, created_at)
		values($1, $2, $3, $4)
	`, session.Token, session.AccountID, session.ExpiresAt.UTC(), session.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return ErrAlreadyExists
			case pgErrForeignKeyViolation:
				return ErrNotFound
			}
		}
		return err
	}
	return nil
}

// ResolveSession performs the session check as a single query so there is no
// window between the session lookup and the owner active-flag check.
func (s *PGStore) ResolveSession(ctx context.Context, token string, now time.Time) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		select a.id, a.email, a.role, a.full_name
		from sessions s
		join accounts a on a.id = s.account_id
		where s.token = $1 and s.expires_at > $2 and a.active
	`, token, now.UTC())

	var identity Identity
	if err := row.Scan(&identity.AccountID, &identity.Email, &identity.Role, &identity.FullName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &identity, nil
}

func (s *PGStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where token = $1`, token)
	return err
}

func (s *PGStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from sessions where expires_at <= $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
