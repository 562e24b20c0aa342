package notify

import (
	"context"
	"database/sql"
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

const notificationColumns = `id, user_id, message, channel, read, created_at`

func (s *PGStore) Create(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = ids.New()
	}
	n.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`insert into notifications(id, user_id, message, channel, read, created_at)
		 values($1,$2,$3,$4,$5,$6)`,
		n.ID, n.UserID, n.Message, n.Channel, n.Read, n.CreatedAt,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Notification, error) {
	row := s.db.QueryRowContext(ctx, `select `+notificationColumns+` from notifications where id=$1`, id)
	return scanNotification(row)
}

func (s *PGStore) ListByUser(ctx context.Context, userID string) ([]*Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+notificationColumns+` from notifications where user_id=$1 order by created_at desc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (s *PGStore) MarkRead(ctx context.Context, id string) (*Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`update notifications set read=true where id=$1 returning `+notificationColumns, id)
	return scanNotification(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Channel, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}
