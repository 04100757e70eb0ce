package state

import (
	"sync"
	"testing"
	"time"
)

type draft struct {
	Name string
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore[draft]()
	if s.InProgress(1) {
		t.Fatal("empty store should not report progress")
	}
	if _, ok := s.Get(1); ok {
		t.Fatal("Get on empty store should miss")
	}

	s.Put(1, StateIdle, draft{})
	if s.InProgress(1) {
		t.Error("idle session should not be in progress")
	}

	s.Put(1, "asking", draft{})
	changed := s.Update(1, func(sess *Session[draft]) bool {
		sess.Data.Name = "bolt"
		sess.State = "done"
		return true
	})
	if !changed {
		t.Fatal("Update on existing session should report change")
	}
	got, ok := s.Get(1)
	if !ok || got.State != "done" || got.Data.Name != "bolt" {
		t.Fatalf("Get = %+v, %v", got, ok)
	}

	if s.Update(2, func(*Session[draft]) bool { return true }) {
		t.Error("Update on missing session should return false")
	}

	s.Delete(1)
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore[draft]()
	s.Put(1, "asking", draft{Name: "a"})
	got, _ := s.Get(1)
	got.Data.Name = "mutated"
	again, _ := s.Get(1)
	if again.Data.Name != "a" {
		t.Errorf("Data.Name = %q, want %q", again.Data.Name, "a")
	}
}

func TestStoreSweep(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	s := NewStore[draft]().WithClock(func() time.Time { return now })
	s.Put(1, "asking", draft{})
	now = now.Add(30 * time.Minute)
	s.Put(2, "asking", draft{})
	now = now.Add(10 * time.Minute)

	if n := s.Sweep(0); n != 0 {
		t.Errorf("Sweep(0) = %d, want 0", n)
	}
	if n := s.Sweep(20 * time.Minute); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
	if _, ok := s.Get(1); ok {
		t.Error("stale session should be evicted")
	}
	if _, ok := s.Get(2); !ok {
		t.Error("fresh session should survive")
	}
}

func TestStoreConcurrentUpdates(t *testing.T) {
	s := NewStore[int]()
	s.Put(7, "counting", 0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(7, func(sess *Session[int]) bool {
				sess.Data++
				return true
			})
		}()
	}
	wg.Wait()
	got, _ := s.Get(7)
	if got.Data != 50 {
		t.Errorf("Data = %d, want 50", got.Data)
	}
}

func TestScheduleSweep(t *testing.T) {
	c, err := ScheduleSweep("", 0, NewStore[int]())
	if err != nil || c != nil {
		t.Fatalf("disabled sweep = %v, %v; want nil, nil", c, err)
	}
	if _, err := ScheduleSweep("not a schedule", time.Minute, NewStore[int]()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	c, err = ScheduleSweep("@every 1h", time.Minute, NewStore[int]())
	if err != nil {
		t.Fatalf("ScheduleSweep: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Errorf("entries = %d, want 1", len(c.Entries()))
	}
	c.Stop()
}
