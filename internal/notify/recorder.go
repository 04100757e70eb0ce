package notify

import (
	"context"
	"sync"
)

// Sent is one message captured by Recorder.
type Sent struct {
	To       int64
	Text     string
	MediaRef string
	Markup   Markup
}

// IsMedia reports whether the message was sent with SendMedia.
func (s Sent) IsMedia() bool { return s.MediaRef != "" }

// Recorder is an in-memory Router for tests. It records every delivery, can
// fail chosen recipients, and can run a hook before recording.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	fail map[int64]error
	// Before, when set, runs before each delivery is recorded. It may block.
	Before func(Sent)
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{fail: map[int64]error{}}
}

// FailFor makes every delivery to id return err.
func (r *Recorder) FailFor(id int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[id] = err
}

func (r *Recorder) SendText(ctx context.Context, to int64, text string, m Markup) error {
	return r.record(Sent{To: to, Text: text, Markup: m})
}

func (r *Recorder) SendMedia(ctx context.Context, to int64, mediaRef, caption string, m Markup) error {
	return r.record(Sent{To: to, Text: caption, MediaRef: mediaRef, Markup: m})
}

func (r *Recorder) record(s Sent) error {
	if r.Before != nil {
		r.Before(s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[s.To]; err != nil {
		return err
	}
	r.sent = append(r.sent, s)
	return nil
}

// Sent returns a copy of all recorded deliveries.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// To returns deliveries addressed to id, in send order.
func (r *Recorder) To(id int64) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.sent {
		if s.To == id {
			out = append(out, s)
		}
	}
	return out
}

// Reset forgets recorded deliveries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
