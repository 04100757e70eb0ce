package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/partsbot/core/logger"
	"github.com/m3rciful/partsbot/core/telegram/callbacks"
	"github.com/m3rciful/partsbot/core/telegram/commands"
	"github.com/m3rciful/partsbot/core/telegram/format"
	tghelpers "github.com/m3rciful/partsbot/core/telegram/helpers"
	"github.com/m3rciful/partsbot/internal/claims"
	"github.com/m3rciful/partsbot/internal/intake"
	"github.com/m3rciful/partsbot/internal/orders"

	tele "gopkg.in/telebot.v4"
)

const (
	textClaimTaken  = "You took the order"
	textClaimBusy   = "This order is already being handled"
	textClaimDenied = "Only administrators can take orders"
	textAdminOnly   = "This command is for administrators only."
	textNoPending   = "No orders are waiting to be taken."
)

func (a *App) registerHandlers() {
	reg := a.registry
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.customer(func(ctx context.Context, id int64) error { return a.engine.Open(ctx, id) }),
		Description: "Open the main menu",
	})
	reg.RegisterCommand("/menu", commands.Command{
		Handler:     a.customer(func(ctx context.Context, id int64) error { return a.engine.Reset(ctx, id) }),
		Description: "Back to the main menu",
		Aliases:     []string{intake.MenuBack},
	})
	reg.RegisterCommand("/order", commands.Command{
		Handler:     a.customer(func(ctx context.Context, id int64) error { return a.engine.Begin(ctx, id) }),
		Description: "Start a parts search",
		Aliases:     []string{intake.MenuStart},
	})
	reg.RegisterCommand("/about", commands.Command{
		Handler:     a.customer(func(ctx context.Context, id int64) error { return a.engine.About(ctx, id) }),
		Description: "About the service",
		Aliases:     []string{intake.MenuAbout},
	})
	reg.RegisterCommand("/myorders", commands.Command{
		Handler:     a.customer(func(ctx context.Context, id int64) error { return a.engine.MyOrders(ctx, id) }),
		Description: "Show my orders",
		Aliases:     []string{intake.MenuMyOrders},
	})
	reg.RegisterCommand("/orders", commands.Command{
		Handler:     a.onPendingOrders,
		Description: "List orders waiting to be taken",
		AdminOnly:   true,
	})
	if err := reg.RegisterCallback(claims.CallbackUnique, a.onClaim); err != nil {
		logger.Error(context.Background(), component, "register.claim_failed", logger.Err(err))
	}
}

// customer adapts an engine call keyed by the sender's id to a handler.
func (a *App) customer(fn func(ctx context.Context, customerID int64) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		if a.engine == nil {
			return errNotWired
		}
		if c.Sender() == nil {
			return nil
		}
		return fn(tghelpers.BuildContext(c), c.Sender().ID)
	}
}

func (a *App) onAdminReject(c tele.Context) error {
	logger.Warn(tghelpers.BuildContext(c), component, "admin.rejected")
	return tghelpers.SendText(c, textAdminOnly)
}

// onPendingOrders lists every order still waiting for an administrator.
func (a *App) onPendingOrders(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	snap, err := a.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("app: snapshot orders: %w", err)
	}
	var blocks []string
	for _, id := range snap.CustomerIDs() {
		for _, o := range snap[id] {
			if o.Status == orders.StatusNew {
				blocks = append(blocks, pendingBlock(o))
			}
		}
	}
	if len(blocks) == 0 {
		return a.reply(ctx, c, textNoPending)
	}
	blocks = append([]string{fmt.Sprintf("Orders waiting (%d):", len(blocks))}, blocks...)
	for _, chunk := range format.JoinBlocks(blocks, "\n\n", format.MaxMessageLen) {
		if err := a.reply(ctx, c, chunk); err != nil {
			return err
		}
	}
	return nil
}

// reply sends text to the update's chat and waits for delivery, so
// consecutive replies keep their order.
func (a *App) reply(ctx context.Context, c tele.Context, text string) error {
	send := func() error { return c.Send(text) }
	if a.exec == nil {
		return send()
	}
	return a.exec.Do(ctx, "send.text", "sendMessage", send)
}

func pendingBlock(o orders.Order) string {
	att := o.PhotoOrVIN.Value
	if o.PhotoOrVIN.IsMedia() {
		att = "photo attached"
	}
	return intake.AdminSummary(o) +
		"\n📷 VIN/Photo: " + att +
		"\n📅 " + o.CreatedAt.UTC().Format("02.01.2006 15:04") + " UTC"
}

// onClaim handles the "take order" button. The callback route acknowledges
// silently whatever this handler does not answer itself.
func (a *App) onClaim(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if a.coord == nil {
		return errNotWired
	}
	u := c.Sender()
	if u == nil || !a.cfg.Telegram.IsAdmin(u.ID) {
		logger.Warn(ctx, component, "claim.rejected")
		return callbacks.Ack(c, textClaimDenied)
	}

	key, err := claims.ParsePayload(callbacks.CallbackPayload(c))
	if err != nil {
		logger.Warn(ctx, component, "claim.malformed",
			slog.String("payload", logger.SanitizeLimit(callbacks.CallbackPayload(c), 64)),
		)
		return nil
	}

	res, err := a.coord.Claim(ctx, key.CustomerID, key.RequestID, claims.Claimant{ID: u.ID, Name: u.FirstName})
	if err != nil {
		// side effects are logged by the coordinator; the outcome stands
		logger.Warn(ctx, component, "claim.partial", slog.String("claim", key.String()), logger.Err(err))
	}
	if res == claims.ResultDuplicate {
		return callbacks.Ack(c, textClaimBusy)
	}
	if err := callbacks.Ack(c, textClaimTaken); err != nil {
		logger.Warn(ctx, component, "claim.ack_failed", logger.Err(err))
	}
	a.dropClaimButton(ctx, c.Callback().Message)
	return nil
}

func (a *App) dropClaimButton(ctx context.Context, msg *tele.Message) {
	if msg == nil || a.editor == nil {
		return
	}
	edit := func() error {
		_, err := a.editor.EditReplyMarkup(msg, nil)
		return err
	}
	var err error
	if a.exec != nil {
		err = a.exec.Do(ctx, "edit.markup", "editMessageReplyMarkup", edit)
	} else {
		err = edit()
	}
	if err != nil {
		logger.Warn(ctx, component, "claim.markup_failed", logger.Err(err))
	}
}

// conversation feeds free-form messages into the intake engine.
type conversation struct{ a *App }

func (f conversation) InProgress(userID int64) bool {
	return f.a.engine != nil && f.a.engine.InProgress(userID)
}

func (f conversation) ManagerHandler(c tele.Context) error {
	e := f.a.engine
	msg := c.Message()
	if e == nil || msg == nil || c.Sender() == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	id := c.Sender().ID

	var (
		handled bool
		err     error
	)
	switch {
	case msg.Photo != nil:
		// telebot keeps the largest size of the photo
		handled, err = e.HandlePhoto(ctx, id, msg.Photo.FileID, msg.Caption)
	case msg.Document != nil:
		logger.Debug(ctx, component, "intake.document_ignored", slog.String("mime", msg.Document.MIME))
		return nil
	default:
		handled, err = e.HandleText(ctx, id, msg.Text)
	}
	if err != nil {
		// the customer has already moved on; failures are reported, not replayed
		logger.Warn(ctx, component, "intake.delivery_failed", slog.Bool("handled", handled), logger.Err(err))
	}
	return nil
}
