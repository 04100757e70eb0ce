package orders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/m3rciful/partsbot/core/logger"
)

// ErrReadOnly is returned by mutations on a store opened with ReadFile.
var ErrReadOnly = errors.New("orders: store is read-only")

// FileStore keeps every order in memory and rewrites a JSON document on each
// mutation. The memory copy is the source of truth; a failed write is
// reported as ErrPersist and retried implicitly by the next mutation.
type FileStore struct {
	mu     sync.Mutex
	path   string
	orders Snapshot
	// hold, when set, refuses every write and names the reason.
	hold error
}

// OpenFile loads the document at path for the running bot. Load problems
// never fail the open: a missing file yields an empty store, a corrupt one is
// moved aside to "<path>.corrupt-<unix>" and the store starts empty. When the
// document cannot be read or moved aside the store also starts empty but
// keeps orders in memory only, so the unreadable file is never overwritten.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("orders: empty document path")
	}
	ctx := context.Background()
	s := &FileStore{path: path, orders: Snapshot{}}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info(ctx, "store.orders", "store.opened",
			slog.String("path", path),
			slog.Int("orders", 0),
		)
		return s, nil
	case err != nil:
		s.hold = fmt.Errorf("document %s unreadable: %w", path, err)
		logger.Error(ctx, "store.orders", "store.load_failed",
			slog.String("path", path),
			slog.String("mode", "memory_only"),
			logger.Err(err),
		)
		return s, nil
	}

	snap, err := Decode(bytes.NewReader(data))
	if err != nil {
		aside := path + ".corrupt-" + strconv.FormatInt(time.Now().Unix(), 10)
		if mvErr := os.Rename(path, aside); mvErr != nil {
			s.hold = fmt.Errorf("corrupt document %s left in place: %w", path, mvErr)
			logger.Error(ctx, "store.orders", "store.load_failed",
				slog.String("path", path),
				slog.String("mode", "memory_only"),
				logger.Err(err),
				slog.String("quarantine_err", mvErr.Error()),
			)
			return s, nil
		}
		logger.Warn(ctx, "store.orders", "store.quarantined",
			slog.String("path", path),
			slog.String("moved_to", aside),
			logger.Err(err),
		)
		return s, nil
	}
	s.orders = snap
	logger.Info(ctx, "store.orders", "store.opened",
		slog.String("path", path),
		slog.Int("customers", len(snap)),
		slog.Int("orders", snap.Count()),
	)
	return s, nil
}

// ReadFile loads the document at path for inspection. Unlike OpenFile it
// reports every load problem, never moves the file, and refuses mutations
// with ErrReadOnly. A missing file yields an empty store.
func ReadFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, orders: Snapshot{}, hold: ErrReadOnly}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("orders: read %s: %w", path, err)
	}
	snap, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("orders: %s: %w", path, err)
	}
	s.orders = snap
	return s, nil
}

// Path returns the backing document path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Append(ctx context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold == ErrReadOnly {
		return ErrReadOnly
	}
	s.orders[o.CustomerID] = append(s.orders[o.CustomerID], o)
	return s.persistLocked(ctx)
}

func (s *FileStore) List(_ context.Context, customerID int64) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Order(nil), s.orders[customerID]...), nil
}

func (s *FileStore) SetStatus(ctx context.Context, customerID int64, requestID string, upd StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold == ErrReadOnly {
		return ErrReadOnly
	}
	list := s.orders[customerID]
	for i := range list {
		if list[i].RequestID != requestID {
			continue
		}
		list[i].Status = upd.Status
		list[i].ClaimedBy = upd.By
		list[i].ClaimedAt = upd.At
		return s.persistLocked(ctx)
	}
	return ErrNotFound
}

func (s *FileStore) Snapshot(_ context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Snapshot, len(s.orders))
	for id, list := range s.orders {
		out[id] = append([]Order(nil), list...)
	}
	return out, nil
}

// Close is a no-op; every mutation is already on disk.
func (s *FileStore) Close() error { return nil }

// persistLocked writes the whole document to a temp file in the target
// directory and renames it over the old one. Caller holds s.mu.
func (s *FileStore) persistLocked(ctx context.Context) error {
	if s.hold != nil {
		logger.Warn(ctx, "store.orders", "store.persist_skipped",
			slog.String("path", s.path),
			logger.Err(s.hold),
		)
		return fmt.Errorf("%w: %v", ErrPersist, s.hold)
	}
	start := time.Now()
	if err := writeAtomic(s.path, s.orders); err != nil {
		logger.Error(ctx, "store.orders", "store.persist_failed",
			slog.String("path", s.path),
			logger.Err(err),
		)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	logger.Debug(ctx, "store.orders", "store.persisted",
		slog.String("path", s.path),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

func writeAtomic(path string, snap Snapshot) error {
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
