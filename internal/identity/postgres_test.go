package identity

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

func userRows(u *User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "federated_id", "name", "phone", "address",
		"role", "status", "verified_by", "review_reason", "created_at", "updated_at",
	}).AddRow(
		u.ID, u.Email, u.PasswordHash, u.FederatedID, u.Name, u.Phone, u.Address,
		string(u.Role), string(u.Status), []byte(`{"goxe_admin":"user-goxe"}`), u.ReviewReason,
		time.Now().UTC(), time.Now().UTC(),
	)
}

func TestPGCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_uniq"})

	err := store.Create(context.Background(), &User{
		Email:        "Abebe@Example.com",
		PasswordHash: "hash",
		Role:         RoleResident,
		Status:       StatusPending,
	})
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("got %v, want ErrDuplicateIdentity", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGFindByEmailNormalizes(t *testing.T) {
	store, mock := newMockStore(t)

	want := &User{
		ID:     "user-1",
		Email:  "abebe@example.com",
		Role:   RoleResident,
		Status: StatusApproved,
	}
	mock.ExpectQuery("select .* from users where email=").
		WithArgs("abebe@example.com").
		WillReturnRows(userRows(want))

	got, err := store.FindByEmail(context.Background(), "  Abebe@Example.com ")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if got.ID != want.ID || got.Role != RoleResident || got.Status != StatusApproved {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.VerifiedBy[RoleGoxeAdmin] != "user-goxe" {
		t.Fatalf("verified_by not decoded: %+v", got.VerifiedBy)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGTransitionDistinguishesRaceFromMissing(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	// Zero rows on the guarded update plus an existing row means the
	// precondition was lost, not the user.
	mock.ExpectQuery("update users set").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("select .* from users where id=").
		WithArgs("user-1").
		WillReturnRows(userRows(&User{ID: "user-1", Email: "a@b.c", Role: RoleResident, Status: StatusApproved}))

	_, err := store.Transition(ctx, "user-1", StatusPending, StatusApproved, RoleGoxeAdmin, "user-goxe", "")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("lost precondition: got %v, want ErrInvalidStatus", err)
	}

	mock.ExpectQuery("update users set").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("select .* from users where id=").
		WithArgs("user-missing").
		WillReturnError(sql.ErrNoRows)

	_, err = store.Transition(ctx, "user-missing", StatusPending, StatusApproved, RoleGoxeAdmin, "user-goxe", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGDeleteMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from users").
		WithArgs("user-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), "user-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
