package telegram

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type replyContext struct {
	tele.Context
	chat  *tele.Chat
	store map[string]any
	sent  []any
}

func (r *replyContext) Update() tele.Update { return tele.Update{ID: 1} }
func (r *replyContext) Sender() *tele.User { return &tele.User{ID: 5} }
func (r *replyContext) Chat() *tele.Chat { return r.chat }
func (r *replyContext) Get(k string) any { return r.store[k] }
func (r *replyContext) Set(k string, v any) { r.store[k] = v }
func (r *replyContext) Send(what any, _ ...any) error {
	r.sent = append(r.sent, what)
	return nil
}

func TestErrorReplierApologises(t *testing.T) {
	c := &replyContext{chat: &tele.Chat{ID: 5}, store: map[string]any{}}
	errorReplier("")(errors.New("boom"), c)
	if len(c.sent) != 1 || c.sent[0] != DefaultErrorReply {
		t.Fatalf("sent = %v", c.sent)
	}

	custom := &replyContext{chat: &tele.Chat{ID: 5}, store: map[string]any{}}
	errorReplier("oops")(errors.New("boom"), custom)
	if len(custom.sent) != 1 || custom.sent[0] != "oops" {
		t.Errorf("custom sent = %v", custom.sent)
	}

	silent := &replyContext{chat: &tele.Chat{ID: 5}, store: map[string]any{}}
	errorReplier("-")(errors.New("boom"), silent)
	if len(silent.sent) != 0 {
		t.Errorf("disabled reply still sent %v", silent.sent)
	}

	errorReplier("")(errors.New("no context"), nil)
}

func TestBuildPoller(t *testing.T) {
	lp, ok := BuildPoller(PollerOptions{RunMode: "longpoll"}).(*tele.LongPoller)
	if !ok || lp.Timeout != 10*time.Second {
		t.Fatalf("longpoll = %+v", lp)
	}
	wh, ok := BuildPoller(PollerOptions{
		RunMode: "webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook"},
	}).(*tele.Webhook)
	if !ok || wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://bot.example.com/hook" {
		t.Fatalf("webhook = %+v", wh)
	}
}
