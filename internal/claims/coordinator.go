package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/partsbot/core/logger"
	"github.com/m3rciful/partsbot/internal/notify"
	"github.com/m3rciful/partsbot/internal/orders"
)

const component = "service.claims"

// Result is the outcome of a claim attempt.
type Result int

const (
	// ResultAccepted means the caller took the order.
	ResultAccepted Result = iota
	// ResultDuplicate means another claim for the same order was in flight.
	ResultDuplicate
)

func (r Result) String() string {
	switch r {
	case ResultAccepted:
		return "accepted"
	case ResultDuplicate:
		return "duplicate"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Claimant is the administrator taking the order.
type Claimant struct {
	ID   int64
	Name string
}

// DisplayName falls back to a generic label for users without a first name.
func (c Claimant) DisplayName() string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	return "Administrator"
}

// Options wires a Coordinator.
type Options struct {
	Store    orders.Store
	Router   notify.Router
	Registry *Registry
	Admins   []int64
	Clock    func() time.Time
}

// Coordinator serializes claims per order and fans out the outcome.
type Coordinator struct {
	store    orders.Store
	router   notify.Router
	registry *Registry
	admins   []int64
	now      func() time.Time
}

// NewCoordinator validates opts. A nil Registry gets a fresh one.
func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Store == nil {
		return nil, errors.New("claims: nil store")
	}
	if opts.Router == nil {
		return nil, errors.New("claims: nil router")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Coordinator{
		store:    opts.Store,
		router:   opts.Router,
		registry: opts.Registry,
		admins:   append([]int64(nil), opts.Admins...),
		now:      opts.Clock,
	}, nil
}

// Registry exposes the in-flight claim set.
func (c *Coordinator) Registry() *Registry { return c.registry }

// Claim lets claimant take the order identified by customerID and requestID.
//
// A claim for an order already being claimed returns ResultDuplicate with no
// side effects. Otherwise the order is marked in progress, the customer is
// told, and every other administrator is informed. A missing order is logged
// and the claim still succeeds. The prior status is not checked, so a
// finished claim can be repeated.
//
// A non-nil error lists side effects that failed (persistence, deliveries);
// the returned Result is still authoritative.
func (c *Coordinator) Claim(ctx context.Context, customerID int64, requestID string, claimant Claimant) (Result, error) {
	key := Key{CustomerID: customerID, RequestID: requestID}
	attrs := []slog.Attr{
		slog.Int64("customer_id", customerID),
		slog.String("request_id", requestID),
		slog.Int64("admin_id", claimant.ID),
	}

	release, ok := c.registry.TryAcquire(key)
	if !ok {
		logger.Info(ctx, component, "claim.duplicate", attrs...)
		return ResultDuplicate, nil
	}
	defer release()

	var errs *multierror.Error

	upd := orders.StatusUpdate{Status: orders.StatusInProgress, By: claimant.ID, At: c.now().UTC()}
	switch err := c.store.SetStatus(ctx, customerID, requestID, upd); {
	case err == nil:
	case errors.Is(err, orders.ErrNotFound):
		logger.Warn(ctx, component, "claim.order_missing", attrs...)
	default:
		// the store already logged the write failure
		errs = multierror.Append(errs, err)
	}

	if err := c.router.SendText(ctx, customerID, customerInProgressText(requestID), notify.Markup{}); err != nil {
		logger.Warn(ctx, component, "notify.failed",
			append(attrs, slog.String("recipient", "customer"), logger.Err(err))...,
		)
		errs = multierror.Append(errs, fmt.Errorf("customer %d: %w", customerID, err))
	}

	others := make([]int64, 0, len(c.admins))
	for _, id := range c.admins {
		if id != claimant.ID {
			others = append(others, id)
		}
	}
	text := adminTakenText(requestID, customerID, claimant.DisplayName())
	bErr := notify.Broadcast(ctx, others, func(ctx context.Context, to int64) error {
		return c.router.SendText(ctx, to, text, notify.Markup{})
	})
	if bErr != nil {
		errs = multierror.Append(errs, bErr)
	}

	logger.Info(ctx, component, "claim.accepted",
		append(attrs,
			slog.Int("recipients", len(others)+1),
			slog.Int("failed", notify.Failed(bErr)),
		)...,
	)
	return ResultAccepted, errs.ErrorOrNil()
}

func customerInProgressText(requestID string) string {
	return fmt.Sprintf("🔄 Your order #%s has been taken into work. We will contact you soon!", requestID)
}

func adminTakenText(requestID string, customerID int64, admin string) string {
	return fmt.Sprintf("📢 Order #%s (customer %d) was taken by %s", requestID, customerID, admin)
}
