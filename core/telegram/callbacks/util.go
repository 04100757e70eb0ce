package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

const ackedKey = "cb_acked"

// ParseCallbackData parses Telebot's \f<unique>|<payload> encoding.
// Returns unique and payload (may be empty).
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns cb.Unique if present; otherwise parses from Data.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// CallbackPayload returns the payload that follows the unique key.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}

// Ack answers the callback query. Only the first call per update reaches
// Telegram; later calls return nil.
func Ack(c tele.Context, text string) error {
	if c.Callback() == nil || Acked(c) {
		return nil
	}
	c.Set(ackedKey, true)
	if text == "" {
		return c.Respond()
	}
	return c.Respond(&tele.CallbackResponse{Text: text})
}

// Acked reports whether Ack already ran for this update.
func Acked(c tele.Context) bool {
	v, _ := c.Get(ackedKey).(bool)
	return v
}
