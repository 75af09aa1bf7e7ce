// Package ledger answers cost aggregates over the cash-flow graph and
// attributes model usage to users.
package ledger

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/einkauf-app/einkauf/internal/model"
	"github.com/einkauf-app/einkauf/internal/store"
)

const microPerDollar = 1_000_000.0

// Ledger reads and writes the per-user cash-flow record. Stored amounts
// are signed micro-dollars with outflows negative; reported costs are the
// absolute value of the sum, in dollars.
type Ledger struct {
	store   store.Store
	pricing model.TokenPricing
}

// New creates a Ledger on top of the given store.
func New(s store.Store, pricing model.TokenPricing) *Ledger {
	return &Ledger{store: s, pricing: pricing}
}

// DeploymentDailyCost returns all users' cost over the last 24 hours.
func (l *Ledger) DeploymentDailyCost(ctx context.Context) (float64, error) {
	sum, err := l.store.DeploymentDailyMicro(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "ledger: deployment daily cost")
	}
	return toDollarCost(sum), nil
}

// UserDailyCost returns the user's cost over the last 24 hours.
func (l *Ledger) UserDailyCost(ctx context.Context, username string) (float64, error) {
	sum, err := l.store.UserDailyMicro(ctx, username)
	if err != nil {
		return 0, eris.Wrap(err, "ledger: user daily cost")
	}
	return toDollarCost(sum), nil
}

// UserLifetimeCost returns the user's all-time cost.
func (l *Ledger) UserLifetimeCost(ctx context.Context, username string) (float64, error) {
	sum, err := l.store.UserLifetimeMicro(ctx, username)
	if err != nil {
		return 0, eris.Wrap(err, "ledger: user lifetime cost")
	}
	return toDollarCost(sum), nil
}

// AttributeCosts appends one cash flow per usage to the user's ledger.
// Callers treat a failure here as best-effort: the model response has
// already been delivered, so the error is logged, not propagated.
func (l *Ledger) AttributeCosts(ctx context.Context, username string, usages []model.Usage) error {
	flows := make([]model.CashFlow, 0, len(usages))
	for _, usage := range usages {
		flows = append(flows, usage.CashFlow(l.pricing))
	}
	if err := l.store.InsertCashFlows(ctx, username, flows); err != nil {
		return eris.Wrap(err, "ledger: attribute costs")
	}
	return nil
}

// toDollarCost reports the signed micro-dollar sum as an absolute dollar
// cost. The sign convention is fixed: flipping it silently would double
// bill or unbill everyone.
func toDollarCost(microSum int64) float64 {
	dollars := float64(microSum) / microPerDollar
	if dollars < 0 {
		return -dollars
	}
	return dollars
}
