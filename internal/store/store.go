// Package store persists the entity graph: user, invite, recipe, ingredient,
// item and cash_flow vertices connected by submits, requires, seeks, matches
// and generates edges. Two drivers exist, postgres for deployments and
// sqlite for local use; both render the graph relationally.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/einkauf-app/einkauf/internal/model"
)

// Store defines the persistence interface for the resolution pipeline and
// the cost ledger.
type Store interface {
	// Users and invites
	GetUser(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, user model.User) error
	GetInvite(ctx context.Context, code string) (*model.Invite, error)
	CreateInvite(ctx context.Context, invite model.Invite) error
	ConsumeInviteCharge(ctx context.Context, code string) error

	// Recipe graph
	CreateRecipe(ctx context.Context, username string, recipe model.Recipe) error
	CreateIngredient(ctx context.Context, ingredient model.Ingredient) error
	LinkRequires(ctx context.Context, recipeID, ingredientID uuid.UUID, quantity int64, unit model.Unit) error
	LinkSeeks(ctx context.Context, username string, ingredientID uuid.UUID, quantity int64, unit model.Unit, vendor string) error
	UpsertItem(ctx context.Context, vendor string, item model.Item) error
	LinkMatches(ctx context.Context, itemID, ingredientID uuid.UUID) error

	// Cost ledger. The micro-dollar sums are signed; daily windows cover
	// the last 24 hours measured on the generates edge timestamp.
	InsertCashFlows(ctx context.Context, username string, flows []model.CashFlow) error
	DeploymentDailyMicro(ctx context.Context) (int64, error)
	UserDailyMicro(ctx context.Context, username string) (int64, error)
	UserLifetimeMicro(ctx context.Context, username string) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
