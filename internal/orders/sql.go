package orders

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/partsbot/core/logger"
)

//go:embed migrations
var migrations embed.FS

// Migrations returns the migration set for a database driver ("postgres" or "sqlite").
func Migrations(driver string) (fs.FS, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("orders: no migrations for driver %q", driver)
	}
	return fs.Sub(migrations, "migrations/"+driver)
}

const timeLayout = time.RFC3339Nano

type row struct {
	Seq          int64          `db:"seq"`
	CustomerID   int64          `db:"customer_id"`
	RequestID    string         `db:"request_id"`
	Car          string         `db:"car"`
	Parts        string         `db:"parts"`
	PhotoKind    string         `db:"photo_kind"`
	PhotoValue   string         `db:"photo_value"`
	PhotoCaption string         `db:"photo_caption"`
	Contact      string         `db:"contact"`
	City         string         `db:"city"`
	Status       string         `db:"status"`
	CreatedAt    string         `db:"created_at"`
	ClaimedBy    sql.NullInt64  `db:"claimed_by"`
	ClaimedAt    sql.NullString `db:"claimed_at"`
}

func (r row) order() (Order, error) {
	created, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("orders: created_at %q: %w", r.CreatedAt, err)
	}
	o := Order{
		RequestID:  r.RequestID,
		CustomerID: r.CustomerID,
		Car:        r.Car,
		Parts:      r.Parts,
		PhotoOrVIN: Attachment{Kind: AttachmentKind(r.PhotoKind), Value: r.PhotoValue, Caption: r.PhotoCaption},
		Contact:    r.Contact,
		City:       r.City,
		Status:     Status(r.Status),
		CreatedAt:  created,
	}
	if r.ClaimedBy.Valid {
		o.ClaimedBy = r.ClaimedBy.Int64
	}
	if r.ClaimedAt.Valid {
		at, err := time.Parse(timeLayout, r.ClaimedAt.String)
		if err != nil {
			return Order{}, fmt.Errorf("orders: claimed_at %q: %w", r.ClaimedAt.String, err)
		}
		o.ClaimedAt = at
	}
	return o, nil
}

const selectColumns = `SELECT seq, customer_id, request_id, car, parts, photo_kind, photo_value,
	photo_caption, contact, city, status, created_at, claimed_by, claimed_at FROM orders`

// SQLStore keeps orders in a relational table managed by golang-migrate.
// Orders the database refuses are held in memory, listed alongside stored
// rows, and written in arrival order ahead of the next mutation.
type SQLStore struct {
	db *sqlx.DB

	mu      sync.Mutex
	pending []Order
}

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Append(ctx context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if HasRequest(s.pendingFor(o.CustomerID), o.RequestID) {
		return s.persistErr(ctx, "append", fmt.Errorf("request %s already held", o.RequestID))
	}
	s.flushLocked(ctx)
	if len(s.pending) > 0 {
		s.pending = append(s.pending, o)
		return s.persistErr(ctx, "append", fmt.Errorf("database behind, %d orders held in memory", len(s.pending)))
	}
	err := s.insert(ctx, o)
	if err == nil {
		return nil
	}
	if dup, qErr := s.exists(ctx, o.CustomerID, o.RequestID); qErr != nil || !dup {
		s.pending = append(s.pending, o)
	}
	return s.persistErr(ctx, "append", err)
}

func (s *SQLStore) List(ctx context.Context, customerID int64) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []row
	q := s.db.Rebind(selectColumns + ` WHERE customer_id = ? ORDER BY seq`)
	if err := s.db.SelectContext(ctx, &rows, q, customerID); err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	out := make([]Order, 0, len(rows))
	for _, r := range rows {
		o, err := r.order()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return append(out, s.pendingFor(customerID)...), nil
}

func (s *SQLStore) SetStatus(ctx context.Context, customerID int64, requestID string, upd StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked(ctx)
	for i := range s.pending {
		o := &s.pending[i]
		if o.CustomerID != customerID || o.RequestID != requestID {
			continue
		}
		o.Status, o.ClaimedBy, o.ClaimedAt = upd.Status, upd.By, upd.At
		s.flushLocked(ctx)
		if HasRequest(s.pendingFor(customerID), requestID) {
			return s.persistErr(ctx, "set_status", fmt.Errorf("order %s held in memory", requestID))
		}
		return nil
	}

	var claimedAt sql.NullString
	if !upd.At.IsZero() {
		claimedAt = sql.NullString{String: upd.At.UTC().Format(timeLayout), Valid: true}
	}
	var claimedBy sql.NullInt64
	if upd.By != 0 {
		claimedBy = sql.NullInt64{Int64: upd.By, Valid: true}
	}
	const q = `UPDATE orders SET status = ?, claimed_by = ?, claimed_at = ?
		WHERE customer_id = ? AND request_id = ?`
	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), string(upd.Status), claimedBy, claimedAt, customerID, requestID)
	if err != nil {
		return s.persistErr(ctx, "set_status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.persistErr(ctx, "set_status", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, selectColumns+` ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("orders: snapshot: %w", err)
	}
	out := Snapshot{}
	for _, r := range rows {
		o, err := r.order()
		if err != nil {
			return nil, err
		}
		out[o.CustomerID] = append(out[o.CustomerID], o)
	}
	for _, o := range s.pending {
		out[o.CustomerID] = append(out[o.CustomerID], o)
	}
	return out, nil
}

// Pending reports how many orders are waiting for the database.
func (s *SQLStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *SQLStore) insert(ctx context.Context, o Order) error {
	var claimedAt sql.NullString
	if !o.ClaimedAt.IsZero() {
		claimedAt = sql.NullString{String: o.ClaimedAt.UTC().Format(timeLayout), Valid: true}
	}
	var claimedBy sql.NullInt64
	if o.ClaimedBy != 0 {
		claimedBy = sql.NullInt64{Int64: o.ClaimedBy, Valid: true}
	}
	const q = `INSERT INTO orders (customer_id, request_id, car, parts, photo_kind, photo_value,
		photo_caption, contact, city, status, created_at, claimed_by, claimed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(q),
		o.CustomerID, o.RequestID, o.Car, o.Parts,
		string(o.PhotoOrVIN.Kind), o.PhotoOrVIN.Value, o.PhotoOrVIN.Caption,
		o.Contact, o.City, string(o.Status), o.CreatedAt.UTC().Format(timeLayout),
		claimedBy, claimedAt,
	)
	return err
}

func (s *SQLStore) exists(ctx context.Context, customerID int64, requestID string) (bool, error) {
	var n int
	q := s.db.Rebind(`SELECT COUNT(*) FROM orders WHERE customer_id = ? AND request_id = ?`)
	if err := s.db.GetContext(ctx, &n, q, customerID, requestID); err != nil {
		return false, err
	}
	return n > 0, nil
}

// flushLocked writes held orders oldest first and stops at the first
// failure. A held order whose id the table already has is dropped.
// Caller holds s.mu.
func (s *SQLStore) flushLocked(ctx context.Context) {
	for len(s.pending) > 0 {
		o := s.pending[0]
		if err := s.insert(ctx, o); err != nil {
			dup, qErr := s.exists(ctx, o.CustomerID, o.RequestID)
			if qErr != nil || !dup {
				return
			}
			logger.Error(ctx, "store.orders", "store.pending_dropped",
				slog.Int64("customer_id", o.CustomerID),
				slog.String("request_id", o.RequestID),
				logger.Err(err),
			)
		} else {
			logger.Info(ctx, "store.orders", "store.pending_flushed",
				slog.Int64("customer_id", o.CustomerID),
				slog.String("request_id", o.RequestID),
			)
		}
		s.pending = s.pending[1:]
	}
	s.pending = nil
}

func (s *SQLStore) pendingFor(customerID int64) []Order {
	var out []Order
	for _, o := range s.pending {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) persistErr(ctx context.Context, op string, err error) error {
	logger.Error(ctx, "store.orders", "store.persist_failed",
		slog.String("op", op),
		slog.String("driver", s.db.DriverName()),
		logger.Err(err),
	)
	return fmt.Errorf("%w: %s: %v", ErrPersist, op, err)
}
