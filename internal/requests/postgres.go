package requests

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"kebeleportal.org/internal/identity"
	"kebeleportal.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const requestColumns = `id, owner_id, type, documents, previous_id, status, priority, estimated_days, receipt, review_note, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, r *ServiceRequest) error {
	if r.ID == "" {
		r.ID = ids.New()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	docs, _ := json.Marshal(r.Documents)
	var prev []byte
	if r.PreviousID != nil {
		prev, _ = json.Marshal(r.PreviousID)
	}
	_, err := s.db.ExecContext(ctx,
		`insert into service_requests(id, owner_id, type, documents, previous_id, status, priority, estimated_days, receipt, review_note, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.ID, r.OwnerID, string(r.Type), docs, prev, string(r.Status), string(r.Priority),
		r.EstimatedDays, r.Receipt, r.ReviewNote, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*ServiceRequest, error) {
	row := s.db.QueryRowContext(ctx, `select `+requestColumns+` from service_requests where id=$1`, id)
	return scanRequest(row)
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID string) ([]*ServiceRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+requestColumns+` from service_requests where owner_id=$1 order by created_at asc`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (s *PGStore) List(ctx context.Context) ([]*ServiceRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+requestColumns+` from service_requests order by created_at asc`)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (s *PGStore) ListOpen(ctx context.Context) ([]*ServiceRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+requestColumns+` from service_requests where status in ('Queued','InReview') order by created_at asc`)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (s *PGStore) Transition(ctx context.Context, id string, from, to Status, note string) (*ServiceRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`update service_requests set
			status      = $3,
			review_note = case when $4 <> '' then $4 else review_note end,
			updated_at  = now()
		 where id=$1 and status=$2
		 returning `+requestColumns,
		id, string(from), string(to), note,
	)
	req, err := scanRequest(row)
	if errors.Is(err, identity.ErrNotFound) {
		if _, findErr := s.Find(ctx, id); findErr == nil {
			return nil, identity.ErrInvalidStatus
		}
		return nil, identity.ErrNotFound
	}
	return req, err
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from service_requests where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func collectRequests(rows *sql.Rows) ([]*ServiceRequest, error) {
	defer rows.Close()
	var res []*ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, req)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*ServiceRequest, error) {
	var (
		r        ServiceRequest
		reqType  string
		status   string
		priority string
		docs     []byte
		prev     []byte
	)
	err := row.Scan(&r.ID, &r.OwnerID, &reqType, &docs, &prev, &status, &priority,
		&r.EstimatedDays, &r.Receipt, &r.ReviewNote, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrNotFound
		}
		return nil, err
	}
	r.Type = Type(reqType)
	r.Status = Status(status)
	r.Priority = Priority(priority)
	if len(docs) > 0 {
		_ = json.Unmarshal(docs, &r.Documents)
	}
	if len(prev) > 0 {
		_ = json.Unmarshal(prev, &r.PreviousID)
	}
	return &r, nil
}
