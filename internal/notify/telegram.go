package notify

import (
	"context"

	"github.com/m3rciful/partsbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Sender is the part of *tele.Bot the router needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Executor runs a Telegram call with retries; *sender.Dispatcher satisfies it.
type Executor interface {
	Do(ctx context.Context, action, endpoint string, run func() error) error
}

// TelegramRouter delivers messages through the Bot API.
type TelegramRouter struct {
	bot  Sender
	exec Executor
}

// NewTelegramRouter builds a router. A nil exec runs each call once, inline.
func NewTelegramRouter(bot Sender, exec Executor) *TelegramRouter {
	return &TelegramRouter{bot: bot, exec: exec}
}

func (r *TelegramRouter) SendText(ctx context.Context, to int64, text string, m Markup) error {
	return r.do(ctx, "send.text", "sendMessage", func() error {
		_, err := r.bot.Send(tele.ChatID(to), text, sendOptions(m)...)
		return err
	})
}

func (r *TelegramRouter) SendMedia(ctx context.Context, to int64, mediaRef, caption string, m Markup) error {
	photo := &tele.Photo{File: tele.File{FileID: mediaRef}, Caption: caption}
	return r.do(ctx, "send.photo", "sendPhoto", func() error {
		_, err := r.bot.Send(tele.ChatID(to), photo, sendOptions(m)...)
		return err
	})
}

func (r *TelegramRouter) do(ctx context.Context, action, endpoint string, run func() error) error {
	if r.exec == nil {
		return run()
	}
	return r.exec.Do(ctx, action, endpoint, run)
}

func sendOptions(m Markup) []interface{} {
	if rm := replyMarkup(m); rm != nil {
		return []interface{}{rm}
	}
	return nil
}

func replyMarkup(m Markup) *tele.ReplyMarkup {
	if len(m.Actions) > 0 {
		btns := make([]keyboard.InlineBtn, 0, len(m.Actions))
		for _, a := range m.Actions {
			btns = append(btns, keyboard.InlineBtn{Text: a.Label, Unique: a.Unique, Data: a.Payload})
		}
		return keyboard.InlineButtons(btns)
	}
	if len(m.Keyboard) > 0 {
		return keyboard.ReplyButtons(m.Keyboard...)
	}
	return nil
}
