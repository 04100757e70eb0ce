package claims

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/partsbot/internal/notify"
)

// CallbackUnique is the callback key of the claim button.
const CallbackUnique = "claim"

// ActionLabel is the claim button text.
const ActionLabel = "✅ Take order"

// ErrMalformedPayload is returned for callback data that is not "<customerID>|<requestID>".
var ErrMalformedPayload = errors.New("claims: malformed payload")

// EncodePayload renders k as callback data.
func EncodePayload(k Key) string {
	return strconv.FormatInt(k.CustomerID, 10) + "|" + k.RequestID
}

// ParsePayload is the inverse of EncodePayload. It rejects anything else.
func ParsePayload(s string) (Key, error) {
	idPart, reqPart, ok := strings.Cut(s, "|")
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedPayload, s)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id == 0 {
		return Key{}, fmt.Errorf("%w: customer id %q", ErrMalformedPayload, idPart)
	}
	if reqPart == "" || strings.ContainsAny(reqPart, "| \t\n") {
		return Key{}, fmt.Errorf("%w: request id %q", ErrMalformedPayload, reqPart)
	}
	return Key{CustomerID: id, RequestID: reqPart}, nil
}

// Action is the inline button an administrator presses to take the order.
func Action(k Key) notify.Action {
	return notify.Action{Label: ActionLabel, Unique: CallbackUnique, Payload: EncodePayload(k)}
}
