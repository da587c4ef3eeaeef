package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewPGStore(db), mock
}

func TestPGCreateAccount(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`insert into accounts`).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "hash", RoleUser, "Alice", true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	account := &Account{Email: "alice@example.com", PasswordHash: "hash", Role: RoleUser, FullName: "Alice", Active: true}
	if err := store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if account.ID == "" {
		t.Fatal("expected generated account id")
	}
	if !account.CreatedAt.Equal(now) {
		t.Fatalf("created_at not populated: %v", account.CreatedAt)
	}
}

func TestPGCreateAccountUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`insert into accounts`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_unique"})

	err := store.CreateAccount(context.Background(), &Account{Email: "alice@example.com"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPGFindAccountNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`from accounts where id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.FindAccount(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGResolveSession(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`from sessions s\s+join accounts a`).
		WithArgs("tok-1", now.UTC()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "full_name"}).
			AddRow("acct-1", "alice@example.com", RoleUser, "Alice"))

	identity, err := store.ResolveSession(context.Background(), "tok-1", now)
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if identity.AccountID != "acct-1" || identity.Role != RoleUser {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestPGResolveSessionMiss(t *testing.T) {
	// Unknown, expired and owner-inactive tokens all produce zero rows from
	// the join; the store cannot and must not tell them apart.
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`from sessions s\s+join accounts a`).
		WithArgs("tok-gone", now.UTC()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "full_name"}))

	_, err := store.ResolveSession(context.Background(), "tok-gone", now)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGUpdateAccountBuildsPartialSet(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	name := "New Name"
	active := false

	mock.ExpectExec(`update accounts set full_name = \$1, active = \$2, updated_at = now\(\) where id = \$3`).
		WithArgs(name, active, "acct-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`from accounts where id = \$1`).
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "role", "full_name", "active", "created_at", "updated_at", "last_login",
		}).AddRow("acct-1", "alice@example.com", "hash", RoleUser, name, active, now, now, nil))

	account, err := store.UpdateAccount(context.Background(), "acct-1", AccountUpdate{FullName: &name, Active: &active})
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if account.FullName != name || account.Active {
		t.Fatalf("unexpected account: %+v", account)
	}
	if account.LastLogin != nil {
		t.Fatal("null last_login must stay nil")
	}
}

func TestPGUpdateAccountNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	name := "Whoever"

	mock.ExpectExec(`update accounts set`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateAccount(context.Background(), "missing", AccountUpdate{FullName: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGCreateSessionForeignKeyViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`insert into sessions`).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "sessions_account_id_fkey"})

	err := store.CreateSession(context.Background(), &Session{
		Token:     "tok-1",
		AccountID: "no-such-account",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGDeleteAccountNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`delete from accounts where id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteAccount(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGDeleteExpiredSessions(t *testing.T) {
	store, mock := newMockStore(t)
	cutoff := time.Now()

	mock.ExpectExec(`delete from sessions where expires_at <= \$1`).
		WithArgs(cutoff.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := store.DeleteExpiredSessions(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
}
