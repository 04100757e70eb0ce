package helpers

import (
	"errors"
	"testing"

	"github.com/m3rciful/partsbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	upd   tele.Update
	store map[string]any
	sent  []string
	fail  error
}

func newFakeContext() *fakeContext {
	msg := &tele.Message{
		Sender: &tele.User{ID: 42},
		Chat:   &tele.Chat{ID: 42},
	}
	return &fakeContext{upd: tele.Update{ID: 7, Message: msg}, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update { return f.upd }
func (f *fakeContext) Sender() *tele.User { return f.upd.Message.Sender }
func (f *fakeContext) Chat() *tele.Chat { return f.upd.Message.Chat }
func (f *fakeContext) Get(k string) any { return f.store[k] }
func (f *fakeContext) Set(k string, v any) { f.store[k] = v }
func (f *fakeContext) Send(what any, _ ...any) error {
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, what.(string))
	return nil
}

func TestBuildContextCaches(t *testing.T) {
	c := newFakeContext()
	ctx := BuildContext(c)
	if logger.UserIDFrom(ctx) != 42 || logger.UpdateIDFrom(ctx) != 7 {
		t.Fatalf("meta not propagated: user=%d update=%d", logger.UserIDFrom(ctx), logger.UpdateIDFrom(ctx))
	}
	if logger.RIDFrom(ctx) == "" {
		t.Error("rid should be generated")
	}
	if again := BuildContext(c); again != ctx {
		t.Error("second BuildContext should return the cached context")
	}

	withHandler := WithHandler(c, "claim")
	if logger.HandlerFrom(withHandler) != "claim" {
		t.Errorf("handler = %q", logger.HandlerFrom(withHandler))
	}
}

func TestSendTextWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	c := newFakeContext()
	if err := SendText(c, "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if len(c.sent) != 1 || c.sent[0] != "hello" {
		t.Errorf("sent = %v", c.sent)
	}

	c.fail = errors.New("blocked")
	if err := SendText(c, "again"); err == nil {
		t.Error("synchronous send should surface the error")
	}
}
