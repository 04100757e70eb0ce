package logger

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestHandler(format logFormat, out, errOut io.Writer) (*structuredHandler, func()) {
	aw := newAsyncWriter([]io.Writer{out}, 1024)
	var ew *asyncWriter
	if errOut != nil {
		ew = newAsyncWriter([]io.Writer{errOut}, 1024)
	}
	h := newStructuredHandler(handlerConfig{
		level:     slog.LevelInfo,
		writer:    aw,
		errWriter: ew,
		format:    format,
	})
	closeAll := func() {
		_ = aw.Close()
		if ew != nil {
			_ = ew.Close()
		}
	}
	return h, closeAll
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	h, done := newTestHandler(formatKV, buf, nil)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, slog.New(h).With("component", "app"), slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)
	done()

	line := strings.TrimSpace(buf.String())
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	h, done := newTestHandler(formatJSON, buf, nil)
	ctx := WithRID(Background(), "rid-json")

	LogEvent(ctx, slog.New(h).With("component", "service.claims"), slog.LevelError, "claim.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.Int64("customer_id", 5),
	)
	done()

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"service.claims"`, `"event":"claim.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"customer_id":5`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	buf := &bytes.Buffer{}
	h, done := newTestHandler(formatKV, buf, nil)
	rawRID := "123:456:789"
	LogEvent(WithRID(Background(), rawRID), slog.New(h), slog.LevelInfo, "rid.test")
	done()

	line := buf.String()
	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
	if !strings.Contains(line, "component=app") {
		t.Fatalf("expected default component, got %s", line)
	}
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	h, done := newTestHandler(formatJSON, buf, nil)
	rawRID := "12:34:56"
	LogEvent(WithRID(Background(), rawRID), slog.New(h), slog.LevelInfo, "rid.test")
	done()

	line := buf.String()
	if !strings.Contains(line, `"rid":"`+CompactRID(rawRID)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", line)
	}
}

func TestStructuredHandlerErrorsSink(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	h, done := newTestHandler(formatKV, buf, errBuf)
	log := slog.New(h)
	LogEvent(Background(), log, slog.LevelInfo, "order.created")
	LogEvent(Background(), log, slog.LevelWarn, "store.persist_failed")
	done()

	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Fatalf("main sink lines = %d, want 2", got)
	}
	errLines := strings.TrimSpace(errBuf.String())
	if strings.Contains(errLines, "order.created") || !strings.Contains(errLines, "store.persist_failed") {
		t.Fatalf("errors sink = %q, want only the warning", errLines)
	}
}

func TestStructuredHandlerDurationAndOutcome(t *testing.T) {
	buf := &bytes.Buffer{}
	h, done := newTestHandler(formatKV, buf, nil)
	LogEvent(Background(), slog.New(h), slog.LevelInfo, "handler.handled",
		slog.Duration("duration", 1500000),
		slog.String("outcome", "bogus"),
	)
	done()

	line := buf.String()
	if !strings.Contains(line, "duration_ms=2") {
		t.Fatalf("expected duration_ms=2, got %s", line)
	}
	if strings.Contains(line, "outcome=") {
		t.Fatalf("unknown outcome should be dropped, got %s", line)
	}
}

func TestCompactRID(t *testing.T) {
	if got := CompactRID("35:36:37"); got != "z.10.11" {
		t.Errorf("CompactRID = %q, want %q", got, "z.10.11")
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Errorf("CompactRID = %q, want input unchanged", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var allowed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("allowed = %d, want 3", allowed)
	}

	s.Set(0, 0)
	if !s.Allow() {
		t.Error("disabled sampler should allow every event")
	}
	if n, d := parseRatioSpec("2/5"); n != 2 || d != 5 {
		t.Errorf("parseRatioSpec(2/5) = %d/%d", n, d)
	}
	if n, d := parseRatioSpec("10"); n != 1 || d != 10 {
		t.Errorf("parseRatioSpec(10) = %d/%d", n, d)
	}
}
