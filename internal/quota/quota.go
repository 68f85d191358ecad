// Package quota gates the monthly allowance of AI summaries per owner.
package quota

import (
	"context"
	"strings"
	"time"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/clock"
	"github.com/balkashynov/wroklog/internal/db"
)

// DefaultMonthlyLimit is the number of summaries an owner may request per month.
const DefaultMonthlyLimit = 3

// MonthLayout formats the usage bucket key.
const MonthLayout = "2006-01"

// Decision is the outcome of a reservation.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Month     string `json:"month"`
}

// Gate makes the atomic allow/deny decision for summary requests.
type Gate struct {
	usage *db.UsageStore
	clock clock.Clock
	limit int
}

// NewGate returns a Gate allowing limit summaries per owner per month.
func NewGate(usage *db.UsageStore, clk clock.Clock, limit int) *Gate {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Gate{usage: usage, clock: clk, limit: limit}
}

// Limit returns the monthly allowance.
func (g *Gate) Limit() int { return g.limit }

// Month returns the usage bucket for t.
func Month(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// CurrentMonth returns the bucket for the gate's current time.
func (g *Gate) CurrentMonth() string {
	return Month(g.clock.Now())
}

// CheckAndReserve consumes one unit of the owner's allowance for month when
// any remains. Two callers racing for the last unit cannot both succeed.
func (g *Gate) CheckAndReserve(ctx context.Context, ownerID, month string) (Decision, error) {
	if err := validate(ownerID, month); err != nil {
		return Decision{}, err
	}
	allowed, err := g.usage.Reserve(ctx, ownerID, month, g.limit, g.clock.Now())
	if err != nil {
		return Decision{}, err
	}
	used, err := g.usage.Used(ctx, ownerID, month)
	if err != nil {
		return Decision{}, err
	}
	return g.decision(allowed, used, month), nil
}

// Release refunds a reservation whose request produced nothing.
func (g *Gate) Release(ctx context.Context, ownerID, month string) error {
	if err := validate(ownerID, month); err != nil {
		return err
	}
	return g.usage.Release(ctx, ownerID, month, g.clock.Now())
}

// Remaining reports the owner's allowance for month without consuming it.
func (g *Gate) Remaining(ctx context.Context, ownerID, month string) (Decision, error) {
	if err := validate(ownerID, month); err != nil {
		return Decision{}, err
	}
	used, err := g.usage.Used(ctx, ownerID, month)
	if err != nil {
		return Decision{}, err
	}
	return g.decision(used < g.limit, used, month), nil
}

func (g *Gate) decision(allowed bool, used int, month string) Decision {
	remaining := g.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: allowed, Used: used, Limit: g.limit, Remaining: remaining, Month: month}
}

func validate(ownerID, month string) error {
	if strings.TrimSpace(ownerID) == "" {
		return apperr.With(apperr.ErrInvalidInput, "owner id is required", nil)
	}
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return apperr.With(apperr.ErrInvalidInput, "month must be YYYY-MM", err)
	}
	return nil
}
