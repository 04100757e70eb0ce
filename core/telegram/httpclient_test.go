package telegram

import (
	"errors"
	"net"
	"net/http"
	"testing"
	"time"
)

type scriptedTransport struct {
	errs  []error
	calls int
}

func (s *scriptedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func dialErr() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: timeoutErr{}}
}

func TestRetryTransportRetriesDialFailures(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialErr(), dialErr()}}
	rt := &retryTransport{base: base, maxRetries: 3}
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", http.NoBody)

	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()
	if base.calls != 3 {
		t.Errorf("calls = %d, want 3", base.calls)
	}
}

func TestRetryTransportKeepsReadTimeouts(t *testing.T) {
	readTimeout := &net.OpError{Op: "read", Net: "tcp", Err: timeoutErr{}}
	base := &scriptedTransport{errs: []error{readTimeout}}
	rt := &retryTransport{base: base, maxRetries: 3}
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", http.NoBody)

	if _, err := rt.RoundTrip(req); !errors.Is(err, readTimeout) {
		t.Fatalf("err = %v, want the read timeout", err)
	}
	if base.calls != 1 {
		t.Errorf("calls = %d, want 1", base.calls)
	}
}

func TestBuildHTTPClientOutlastsLongPoll(t *testing.T) {
	c := BuildHTTPClient(30 * time.Second)
	if c.Timeout <= 30*time.Second {
		t.Errorf("client timeout %v must exceed the poll wait", c.Timeout)
	}
	tr := c.Transport.(*retryTransport).base.(*http.Transport)
	if tr.ResponseHeaderTimeout <= 30*time.Second {
		t.Errorf("header timeout %v must exceed the poll wait", tr.ResponseHeaderTimeout)
	}
	if d := BuildHTTPClient(0).Timeout; d != 10*time.Second+clientGrace {
		t.Errorf("default timeout = %v", d)
	}
}
