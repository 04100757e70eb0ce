//go:build integration

package orders

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Requires PARTSBOT_TEST_POSTGRES_DSN pointing at a database migrated with
// the postgres migration set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PARTSBOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PARTSBOT_TEST_POSTGRES_DSN not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `DELETE FROM orders WHERE customer_id = 424242`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	s := NewSQLStore(db)
	defer s.Close()

	if err := s.Append(ctx, newOrder(424242, "pg000001")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.SetStatus(ctx, 424242, "pg000001", StatusUpdate{Status: StatusInProgress, By: 1}); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := s.SetStatus(ctx, 424242, "missing0", StatusUpdate{Status: StatusInProgress}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	list, err := s.List(ctx, 424242)
	if err != nil || len(list) != 1 || list[0].Status != StatusInProgress {
		t.Fatalf("List = %+v, %v", list, err)
	}
}
