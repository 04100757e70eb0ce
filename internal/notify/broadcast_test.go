package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestBroadcastCollectsAllFailures(t *testing.T) {
	var (
		mu      sync.Mutex
		reached []int64
	)
	err := Broadcast(context.Background(), []int64{1, 2, 3, 4}, func(_ context.Context, to int64) error {
		mu.Lock()
		reached = append(reached, to)
		mu.Unlock()
		if to%2 == 0 {
			return errors.New("blocked")
		}
		return nil
	})
	if len(reached) != 4 {
		t.Fatalf("reached %d recipients, want 4", len(reached))
	}
	if Failed(err) != 2 {
		t.Fatalf("Failed = %d, want 2 (err = %v)", Failed(err), err)
	}
}

func TestBroadcastSuccessIsNil(t *testing.T) {
	err := Broadcast(context.Background(), []int64{1, 2}, func(context.Context, int64) error { return nil })
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if err := Broadcast(context.Background(), nil, nil); err != nil {
		t.Fatalf("empty broadcast err = %v", err)
	}
}

func TestBroadcastRunsConcurrently(t *testing.T) {
	// every send waits for all others to start; sequential delivery would deadlock
	const n = 3
	var started sync.WaitGroup
	started.Add(n)
	err := Broadcast(context.Background(), []int64{1, 2, 3}, func(context.Context, int64) error {
		started.Done()
		started.Wait()
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.FailFor(9, errors.New("blocked"))
	ctx := context.Background()
	_ = r.SendText(ctx, 1, "hi", Markup{})
	_ = r.SendMedia(ctx, 1, "file-id", "caption", Markup{Actions: []Action{{Label: "Take", Unique: "claim", Payload: "1|ab"}}})
	if err := r.SendText(ctx, 9, "nope", Markup{}); err == nil {
		t.Error("FailFor recipient should error")
	}
	got := r.To(1)
	if len(got) != 2 || got[0].IsMedia() || !got[1].IsMedia() {
		t.Fatalf("recorded = %+v", got)
	}
	if len(r.Sent()) != 2 {
		t.Errorf("failed delivery should not be recorded")
	}
	r.Reset()
	if len(r.Sent()) != 0 {
		t.Error("Reset did not clear")
	}
}
