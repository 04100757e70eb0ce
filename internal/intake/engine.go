// Package intake runs the per-customer question flow that turns chat answers
// into orders.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/partsbot/core/logger"
	"github.com/m3rciful/partsbot/core/telegram/format"
	"github.com/m3rciful/partsbot/core/telegram/state"
	"github.com/m3rciful/partsbot/internal/claims"
	"github.com/m3rciful/partsbot/internal/notify"
	"github.com/m3rciful/partsbot/internal/orders"
)

const component = "service.intake"

// Conversation states, in the order the questions are asked.
const (
	StateAwaitingCar        state.State = "awaiting_car"
	StateAwaitingParts      state.State = "awaiting_parts"
	StateAwaitingPhotoOrVIN state.State = "awaiting_photo_or_vin"
	StateAwaitingContact    state.State = "awaiting_contact"
	StateAwaitingCity       state.State = "awaiting_city"
	// stateFinalizing holds the session between the last answer and its removal
	// so a repeated answer cannot submit the order twice.
	stateFinalizing state.State = "finalizing"
)

// DefaultSkipKeywords are accepted at the photo/VIN step to leave it empty.
var DefaultSkipKeywords = []string{"skip", "пропустить"}

// maxIDAttempts bounds request id regeneration on a per-customer collision.
const maxIDAttempts = 5

// Draft is the partially collected order.
type Draft struct {
	Car        string
	Parts      string
	PhotoOrVIN orders.Attachment
	Contact    string
	City       string
}

// Options wires an Engine.
type Options struct {
	Sessions     *state.Store[Draft]
	Store        orders.Store
	Router       notify.Router
	Admins       []int64
	SkipKeywords []string
	// NewRequestID defaults to the first segment of a random UUID.
	NewRequestID func() string
	Clock        func() time.Time
}

// Engine drives the intake conversation for every customer.
type Engine struct {
	sessions *state.Store[Draft]
	store    orders.Store
	router   notify.Router
	admins   []int64
	skip     []string
	newID    func() string
	now      func() time.Time
}

// NewEngine validates opts and fills defaults.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("intake: nil store")
	}
	if opts.Router == nil {
		return nil, errors.New("intake: nil router")
	}
	if opts.Sessions == nil {
		opts.Sessions = state.NewStore[Draft]()
	}
	skip := make([]string, 0, len(opts.SkipKeywords))
	for _, kw := range opts.SkipKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			skip = append(skip, kw)
		}
	}
	if len(skip) == 0 {
		skip = append(skip, DefaultSkipKeywords...)
	}
	if opts.NewRequestID == nil {
		opts.NewRequestID = func() string { return uuid.New().String()[:8] }
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{
		sessions: opts.Sessions,
		store:    opts.Store,
		router:   opts.Router,
		admins:   append([]int64(nil), opts.Admins...),
		skip:     skip,
		newID:    opts.NewRequestID,
		now:      opts.Clock,
	}, nil
}

// Sessions exposes the session store for eviction and stats.
func (e *Engine) Sessions() *state.Store[Draft] { return e.sessions }

// InProgress reports whether the customer is in the middle of the questions.
func (e *Engine) InProgress(customerID int64) bool {
	return e.sessions.InProgress(customerID)
}

// Open starts an idle session and shows the main menu.
func (e *Engine) Open(ctx context.Context, customerID int64) error {
	e.sessions.Put(customerID, state.StateIdle, Draft{})
	return e.router.SendText(ctx, customerID, textMainMenu, notify.Markup{Keyboard: mainMenuKeyboard})
}

// Begin discards any draft and asks the first question.
func (e *Engine) Begin(ctx context.Context, customerID int64) error {
	e.sessions.Put(customerID, StateAwaitingCar, Draft{})
	logger.Debug(ctx, component, "intake.begin", slog.Int64("customer_id", customerID))
	return e.router.SendText(ctx, customerID, promptCar, notify.Markup{})
}

// Reset drops the session and shows the main menu.
func (e *Engine) Reset(ctx context.Context, customerID int64) error {
	e.sessions.Delete(customerID)
	return e.router.SendText(ctx, customerID, textMainMenu, notify.Markup{Keyboard: mainMenuKeyboard})
}

// About sends the service description.
func (e *Engine) About(ctx context.Context, customerID int64) error {
	return e.router.SendText(ctx, customerID, textAbout, notify.Markup{Keyboard: aboutKeyboard})
}

// MyOrders lists the customer's orders, oldest first, split across messages
// when the list is long.
func (e *Engine) MyOrders(ctx context.Context, customerID int64) error {
	list, err := e.store.List(ctx, customerID)
	if err != nil {
		return fmt.Errorf("intake: list orders: %w", err)
	}
	back := notify.Markup{Keyboard: backKeyboard}
	if len(list) == 0 {
		return e.router.SendText(ctx, customerID, textNoOrders, back)
	}
	blocks := make([]string, 0, len(list)+1)
	blocks = append(blocks, ordersHeader(len(list)))
	for i, o := range list {
		blocks = append(blocks, OrderBlock(i+1, o))
	}
	chunks := format.JoinBlocks(blocks, "\n\n", format.MaxMessageLen)
	for i, chunk := range chunks {
		m := notify.Markup{}
		if i == len(chunks)-1 {
			m = back
		}
		if err := e.router.SendText(ctx, customerID, chunk, m); err != nil {
			return err
		}
	}
	return nil
}

// HandleText feeds a text answer into the customer's conversation. It reports
// false, with no side effects, when the customer is not waiting for text.
func (e *Engine) HandleText(ctx context.Context, customerID int64, text string) (bool, error) {
	var (
		prompt   string
		draft    Draft
		finalize bool
	)
	ok := e.sessions.Update(customerID, func(s *state.Session[Draft]) bool {
		switch s.State {
		case StateAwaitingCar:
			s.Data.Car = text
			s.State, prompt = StateAwaitingParts, promptParts
		case StateAwaitingParts:
			s.Data.Parts = text
			s.State, prompt = StateAwaitingPhotoOrVIN, promptPhotoOrVIN(e.skip[0])
		case StateAwaitingPhotoOrVIN:
			if e.isSkip(text) {
				s.Data.PhotoOrVIN = orders.Unspecified()
			} else {
				s.Data.PhotoOrVIN = orders.TextAttachment(text)
			}
			s.State, prompt = StateAwaitingContact, promptContact
		case StateAwaitingContact:
			s.Data.Contact = text
			s.State, prompt = StateAwaitingCity, promptCity
		case StateAwaitingCity:
			s.Data.City = text
			s.State = stateFinalizing
			draft, finalize = s.Data, true
		default:
			return false
		}
		return true
	})
	if !ok {
		logger.Debug(ctx, component, "intake.ignored",
			slog.Int64("customer_id", customerID),
			slog.String("state", string(e.sessions.State(customerID))),
		)
		return false, nil
	}
	if finalize {
		return true, e.finalize(ctx, customerID, draft)
	}
	return true, e.router.SendText(ctx, customerID, prompt, notify.Markup{})
}

// HandlePhoto records a photo at the photo/VIN step. fileID must identify the
// largest available size. Photos at any other step are ignored.
func (e *Engine) HandlePhoto(ctx context.Context, customerID int64, fileID, caption string) (bool, error) {
	ok := e.sessions.Update(customerID, func(s *state.Session[Draft]) bool {
		if s.State != StateAwaitingPhotoOrVIN {
			return false
		}
		s.Data.PhotoOrVIN = orders.MediaAttachment(fileID, caption)
		s.State = StateAwaitingContact
		return true
	})
	if !ok {
		logger.Debug(ctx, component, "intake.photo_ignored", slog.Int64("customer_id", customerID))
		return false, nil
	}
	return true, e.router.SendText(ctx, customerID, promptContact, notify.Markup{})
}

func (e *Engine) isSkip(text string) bool {
	for _, kw := range e.skip {
		if strings.EqualFold(text, kw) {
			return true
		}
	}
	return false
}

// finalize stores the order, alerts administrators and confirms to the
// customer. Store and delivery failures are logged and reported together; the
// customer confirmation is attempted regardless.
func (e *Engine) finalize(ctx context.Context, customerID int64, d Draft) error {
	e.sessions.Delete(customerID)

	var errs *multierror.Error
	existing, err := e.store.List(ctx, customerID)
	if err != nil {
		logger.Warn(ctx, component, "order.list_failed", slog.Int64("customer_id", customerID), logger.Err(err))
	}

	o := orders.Order{
		RequestID:  e.requestID(ctx, existing),
		CustomerID: customerID,
		Car:        d.Car,
		Parts:      d.Parts,
		PhotoOrVIN: d.PhotoOrVIN,
		Contact:    d.Contact,
		City:       d.City,
		Status:     orders.StatusNew,
		CreatedAt:  e.now().UTC(),
	}
	attrs := []slog.Attr{
		slog.Int64("customer_id", customerID),
		slog.String("request_id", o.RequestID),
		slog.String("photo_kind", string(o.PhotoOrVIN.Kind)),
	}
	if err := e.store.Append(ctx, o); err != nil {
		errs = multierror.Append(errs, err)
	}

	markup := notify.Markup{Actions: []notify.Action{
		claims.Action(claims.Key{CustomerID: customerID, RequestID: o.RequestID}),
	}}
	bErr := notify.Broadcast(ctx, e.admins, func(ctx context.Context, to int64) error {
		if o.PhotoOrVIN.IsMedia() {
			return e.router.SendMedia(ctx, to, o.PhotoOrVIN.Value, adminCaption(o), markup)
		}
		chunks := adminText(o)
		for i, text := range chunks {
			var m notify.Markup
			if i == len(chunks)-1 {
				m = markup
			}
			if err := e.router.SendText(ctx, to, text, m); err != nil {
				return err
			}
		}
		return nil
	})
	if bErr != nil {
		errs = multierror.Append(errs, bErr)
	}

	if err := e.router.SendText(ctx, customerID, textConfirmed, notify.Markup{Keyboard: confirmedKeyboard}); err != nil {
		logger.Warn(ctx, component, "notify.failed",
			append(attrs, slog.String("recipient", "customer"), logger.Err(err))...,
		)
		errs = multierror.Append(errs, fmt.Errorf("customer %d: %w", customerID, err))
	}

	logger.Info(ctx, component, "order.created",
		append(attrs,
			slog.Int("admins", len(e.admins)),
			slog.Int("failed", notify.Failed(bErr)),
		)...,
	)
	return errs.ErrorOrNil()
}

func (e *Engine) requestID(ctx context.Context, existing []orders.Order) string {
	id := e.newID()
	for i := 1; i < maxIDAttempts && orders.HasRequest(existing, id); i++ {
		logger.Debug(ctx, component, "order.id_collision", slog.String("request_id", id))
		id = e.newID()
	}
	return id
}
