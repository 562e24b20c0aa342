package documents

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

const documentColumns = `id, owner_id, type, title, status, link, number, review_note, issued_at, expires_at, metadata, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, d *Document) error {
	if d.ID == "" {
		d.ID = ids.New()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	meta, _ := json.Marshal(d.Metadata)
	_, err := s.db.ExecContext(ctx,
		`insert into documents(id, owner_id, type, title, status, link, number, review_note, issued_at, expires_at, metadata, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		d.ID, d.OwnerID, d.Type, d.Title, string(d.Status), d.Link, d.Number, d.ReviewNote,
		d.IssuedAt, d.ExpiresAt, meta, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `select `+documentColumns+` from documents where id=$1`, id)
	return scanDocument(row)
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+documentColumns+` from documents where owner_id=$1 order by created_at asc`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

func (s *PGStore) List(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+documentColumns+` from documents order by created_at asc`)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

func (s *PGStore) Update(ctx context.Context, id string, upd Update) (*Document, error) {
	var meta []byte
	if upd.Metadata != nil {
		meta, _ = json.Marshal(upd.Metadata)
	}
	row := s.db.QueryRowContext(ctx,
		`update documents set
			title      = coalesce($2, title),
			link       = coalesce($3, link),
			number     = coalesce($4, number),
			metadata   = coalesce($5, metadata),
			updated_at = now()
		 where id=$1
		 returning `+documentColumns,
		id, upd.Title, upd.Link, upd.Number, meta,
	)
	return scanDocument(row)
}

func (s *PGStore) Transition(ctx context.Context, id string, from, to Status, note string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`update documents set
			status      = $3,
			review_note = case when $4 <> '' then $4 else review_note end,
			updated_at  = now()
		 where id=$1 and status=$2
		 returning `+documentColumns,
		id, string(from), string(to), note,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, identity.ErrNotFound) {
		if _, findErr := s.Find(ctx, id); findErr == nil {
			return nil, identity.ErrInvalidStatus
		}
		return nil, identity.ErrNotFound
	}
	return doc, err
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from documents where id=$1`, id)
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

func collectDocuments(rows *sql.Rows) ([]*Document, error) {
	defer rows.Close()
	var res []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, doc)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		d      Document
		status string
		meta   []byte
	)
	err := row.Scan(&d.ID, &d.OwnerID, &d.Type, &d.Title, &status, &d.Link, &d.Number,
		&d.ReviewNote, &d.IssuedAt, &d.ExpiresAt, &meta, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrNotFound
		}
		return nil, err
	}
	d.Status = Status(status)
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &d.Metadata)
	}
	return &d, nil
}
