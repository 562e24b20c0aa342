package requests

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"kebeleportal.org/internal/identity"
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

func TestPGFindDecodesJSONColumns(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "type", "documents", "previous_id", "status", "priority",
		"estimated_days", "receipt", "review_note", "created_at", "updated_at",
	}).AddRow(
		"req-1", "user-1", "Renewal",
		[]byte(`[{"name":"photo","url":"https://files.example/photo.jpg"}]`),
		[]byte(`{"number":"ID-4821","authority":"Kebele 04"}`),
		"Queued", "High", 3, "REQ-1724800000-ABCD", "",
		time.Now().UTC(), time.Now().UTC(),
	)
	mock.ExpectQuery("select .* from service_requests where id=").
		WithArgs("req-1").
		WillReturnRows(rows)

	req, err := store.Find(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if req.Type != TypeRenewal || req.Priority != PriorityHigh {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(req.Documents) != 1 || req.Documents[0].Name != "photo" {
		t.Fatalf("documents not decoded: %+v", req.Documents)
	}
	if req.PreviousID == nil || req.PreviousID.Number != "ID-4821" {
		t.Fatalf("previous ID not decoded: %+v", req.PreviousID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGTransitionGuardsFromStatus(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("update service_requests set").WillReturnError(sql.ErrNoRows)
	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "type", "documents", "previous_id", "status", "priority",
		"estimated_days", "receipt", "review_note", "created_at", "updated_at",
	}).AddRow(
		"req-1", "user-1", "NewID", []byte(`[]`), nil,
		"Approved", "Medium", 3, "REQ-1", "",
		time.Now().UTC(), time.Now().UTC(),
	)
	mock.ExpectQuery("select .* from service_requests where id=").
		WithArgs("req-1").
		WillReturnRows(rows)

	if _, err := store.Transition(ctx, "req-1", StatusInReview, StatusApproved, ""); !errors.Is(err, identity.ErrInvalidStatus) {
		t.Fatalf("lost precondition: got %v, want ErrInvalidStatus", err)
	}

	mock.ExpectQuery("update service_requests set").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("select .* from service_requests where id=").
		WithArgs("req-missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Transition(ctx, "req-missing", StatusQueued, StatusInReview, ""); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("missing request: got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
