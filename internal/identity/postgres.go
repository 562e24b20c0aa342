package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"kebeleportal.org/internal/ids"
)

var _ UserStore = (*PGStore)(nil)

// PGStore implements UserStore on PostgreSQL. The unique index on email
// serializes concurrent registrations; status transitions carry their
// precondition into the UPDATE so a stale review cannot double-apply.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `id, email, password_hash, federated_id, name, phone, address, role, status, verified_by, review_reason, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	touch(u, now)
	verifiedBy, _ := json.Marshal(u.VerifiedBy)
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, federated_id, name, phone, address, role, status, verified_by, review_reason, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		u.ID, strings.ToLower(u.Email), u.PasswordHash, u.FederatedID, u.Name, u.Phone, u.Address,
		string(u.Role), string(u.Status), verifiedBy, u.ReviewReason, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateIdentity
	}
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where email=$1`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func (s *PGStore) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`update users set
			name          = coalesce($2, name),
			phone         = coalesce($3, phone),
			address       = coalesce($4, address),
			password_hash = coalesce($5, password_hash),
			federated_id  = coalesce($6, federated_id),
			updated_at    = now()
		 where id=$1
		 returning `+userColumns,
		id, upd.Name, upd.Phone, upd.Address, upd.PasswordHash, upd.FederatedID,
	)
	return scanUser(row)
}

func (s *PGStore) Transition(ctx context.Context, id string, from, to Status, reviewedBy Role, reviewerID, reason string) (*User, error) {
	// The from-status rides in the WHERE clause: zero rows affected means
	// the precondition no longer held at write time.
	row := s.db.QueryRowContext(ctx,
		`update users set
			status        = $3,
			verified_by   = case when $4 <> '' and $3 = 'approved'
			                     then coalesce(verified_by, '{}'::jsonb) || jsonb_build_object($5::text, $4::text)
			                     else verified_by end,
			review_reason = case when $6 <> '' then $6 else review_reason end,
			updated_at    = now()
		 where id=$1 and status=$2
		 returning `+userColumns,
		id, string(from), string(to), reviewerID, string(reviewedBy), reason,
	)
	user, err := scanUser(row)
	if errors.Is(err, ErrNotFound) {
		// Distinguish a missing row from a lost transition race.
		if _, findErr := s.Find(ctx, id); findErr == nil {
			return nil, ErrInvalidStatus
		}
		return nil, ErrNotFound
	}
	return user, err
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, user)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u          User
		role       string
		status     string
		verifiedBy []byte
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FederatedID, &u.Name, &u.Phone, &u.Address,
		&role, &status, &verifiedBy, &u.ReviewReason, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = Role(role)
	u.Status = Status(status)
	if len(verifiedBy) > 0 {
		_ = json.Unmarshal(verifiedBy, &u.VerifiedBy)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
