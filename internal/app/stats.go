package app

import (
	"context"
	"time"

	"github.com/m3rciful/partsbot/core/buildinfo"
	"github.com/m3rciful/partsbot/internal/orders"
)

// Stats is the runtime snapshot served on /stats.
type Stats struct {
	Version        string `json:"version"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	Sessions       int    `json:"sessions"`
	Customers      int    `json:"customers"`
	Orders         int    `json:"orders"`
	Pending        int    `json:"pending"`
	ClaimsInFlight int    `json:"claims_in_flight"`
}

// Stats counts live sessions and stored orders.
func (a *App) Stats(ctx context.Context) (Stats, error) {
	snap, err := a.store.Snapshot(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{
		Version:        buildinfo.Version,
		UptimeSeconds:  int64(time.Since(a.started) / time.Second),
		Sessions:       a.sessions.Len(),
		Customers:      len(snap),
		Orders:         snap.Count(),
		ClaimsInFlight: a.claimReg.Len(),
	}
	for _, list := range snap {
		for _, o := range list {
			if o.Status == orders.StatusNew {
				s.Pending++
			}
		}
	}
	return s, nil
}
