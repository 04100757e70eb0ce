// Package notify delivers bot messages to chat participants.
package notify

import "context"

// Action is an inline button that calls back into the bot.
type Action struct {
	Label   string
	Unique  string
	Payload string
}

// Markup decorates an outgoing message. Actions take precedence over Keyboard
// because a message carries a single reply markup.
type Markup struct {
	Actions []Action
	// Keyboard rows of persistent reply buttons.
	Keyboard [][]string
}

// Router sends messages to a participant identified by chat id.
type Router interface {
	SendText(ctx context.Context, to int64, text string, m Markup) error
	SendMedia(ctx context.Context, to int64, mediaRef, caption string, m Markup) error
}
