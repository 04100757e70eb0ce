package middleware

import tele "gopkg.in/telebot.v4"

const countersKey = "counters"

// Counters tallies what a handler sent back during one update.
type Counters struct {
	Messages int
	Keyboard bool
	Acks     int
}

// counted wraps tele.Context so replies issued by handlers are tallied.
// Sends going through the async dispatcher bypass it.
type counted struct {
	tele.Context
	n *Counters
}

func (c counted) track(err error, opts []interface{}) error {
	if err != nil {
		return err
	}
	c.n.Messages++
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			c.n.Keyboard = c.n.Keyboard || (v != nil && v.ReplyMarkup != nil)
		case *tele.ReplyMarkup:
			c.n.Keyboard = c.n.Keyboard || v != nil
		}
	}
	return nil
}

func (c counted) Send(what interface{}, opts ...interface{}) error {
	return c.track(c.Context.Send(what, opts...), opts)
}

func (c counted) Reply(what interface{}, opts ...interface{}) error {
	return c.track(c.Context.Reply(what, opts...), opts)
}

func (c counted) Edit(what interface{}, opts ...interface{}) error {
	return c.track(c.Context.Edit(what, opts...), opts)
}

func (c counted) EditOrSend(what interface{}, opts ...interface{}) error {
	return c.track(c.Context.EditOrSend(what, opts...), opts)
}

func (c counted) Respond(resp ...*tele.CallbackResponse) error {
	err := c.Context.Respond(resp...)
	if err == nil {
		c.n.Acks++
	}
	return err
}

// MessageMetricsMiddleware attaches fresh Counters to every update.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := &Counters{}
		c.Set(countersKey, n)
		return next(counted{Context: c, n: n})
	}
}

// GetCounters returns the tallies for the current update, zero when the
// metrics middleware is not installed.
func GetCounters(c tele.Context) Counters {
	if n, ok := c.Get(countersKey).(*Counters); ok && n != nil {
		return *n
	}
	return Counters{}
}
