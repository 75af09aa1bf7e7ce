// Package budget enforces the daily spend caps on model usage.
package budget

import (
	"context"

	"go.uber.org/zap"

	"github.com/einkauf-app/einkauf/internal/apperr"
	"github.com/einkauf-app/einkauf/internal/ledger"
)

// Limits holds the daily caps in dollars.
type Limits struct {
	DeploymentDailyDollar float64
	UserDailyDollar       float64
}

// DefaultLimits returns the default caps: $1.00 deployment, $0.10 per user.
func DefaultLimits() Limits {
	return Limits{DeploymentDailyDollar: 1.0, UserDailyDollar: 0.1}
}

// Guard checks spend against the caps before every model call.
type Guard struct {
	ledger *ledger.Ledger
	limits Limits
}

// New creates a Guard reading from the given ledger.
func New(l *ledger.Ledger, limits Limits) *Guard {
	return &Guard{ledger: l, limits: limits}
}

// Check verifies both caps for the user. The comparison is strictly
// greater-than, so a cap may be touched exactly once before calls are
// refused. Deployment excess maps to TooManyRequests, user excess to
// PaymentRequired.
func (g *Guard) Check(ctx context.Context, username string) error {
	deploymentCost, err := g.ledger.DeploymentDailyCost(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternalServer, "failed to read deployment daily cost", err)
	}
	zap.L().Info("deployment daily cost",
		zap.Float64("cost_dollar", deploymentCost),
		zap.Float64("limit_dollar", g.limits.DeploymentDailyDollar),
	)
	if deploymentCost > g.limits.DeploymentDailyDollar {
		zap.L().Warn("deployment daily limit exceeded",
			zap.Float64("cost_dollar", deploymentCost),
			zap.Float64("limit_dollar", g.limits.DeploymentDailyDollar),
		)
		return apperr.New(apperr.KindTooManyRequests, "deployment daily budget exceeded")
	}

	userCost, err := g.ledger.UserDailyCost(ctx, username)
	if err != nil {
		return apperr.Wrap(apperr.KindInternalServer, "failed to read user daily cost", err)
	}
	if userCost > g.limits.UserDailyDollar {
		zap.L().Warn("user daily limit exceeded",
			zap.String("user", username),
			zap.Float64("cost_dollar", userCost),
			zap.Float64("limit_dollar", g.limits.UserDailyDollar),
		)
		return apperr.New(apperr.KindPaymentRequired, "user daily budget exceeded")
	}

	return nil
}

// UserLimit exposes the configured per-user cap for the me endpoint.
func (g *Guard) UserLimit() float64 {
	return g.limits.UserDailyDollar
}
