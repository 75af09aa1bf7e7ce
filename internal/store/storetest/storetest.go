// Package storetest provides a configurable in-memory Store fake for unit
// tests of the ledger, budget guard and pipeline.
package storetest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/einkauf-app/einkauf/internal/model"
)

// Fake implements store.Store. Writes are recorded; reads consult the
// override funcs first and fall back to the recorded cash flows.
type Fake struct {
	mu sync.Mutex

	Users       map[string]model.User
	Invites     map[string]model.Invite
	Recipes     []model.Recipe
	Ingredients []model.Ingredient
	Items       []model.Item
	CashFlows   []model.CashFlow

	SubmitsEdges   int
	RequiresEdges  int
	SeeksEdges     int
	MatchesEdges   int
	GeneratesEdges int

	// Per-call error injection; nil means success.
	CreateRecipeErr     error
	CreateIngredientErr error
	InsertCashFlowsErr  error
	UpsertItemErr       error

	// Aggregate overrides in micro-dollars (signed).
	DeploymentDailyMicroFn func() (int64, error)
	UserDailyMicroFn       func(username string) (int64, error)
	UserLifetimeMicroFn    func(username string) (int64, error)
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		Users:   make(map[string]model.User),
		Invites: make(map[string]model.Invite),
	}
}

func (f *Fake) GetUser(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *Fake) CreateUser(_ context.Context, user model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Users[user.Username] = user
	return nil
}

func (f *Fake) GetInvite(_ context.Context, code string) (*model.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.Invites[code]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (f *Fake) CreateInvite(_ context.Context, invite model.Invite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Invites[invite.Code] = invite
	return nil
}

func (f *Fake) ConsumeInviteCharge(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := f.Invites[code]
	inv.UsedCharges++
	f.Invites[code] = inv
	return nil
}

func (f *Fake) CreateRecipe(_ context.Context, _ string, recipe model.Recipe) error {
	if f.CreateRecipeErr != nil {
		return f.CreateRecipeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Recipes = append(f.Recipes, recipe)
	f.SubmitsEdges++
	return nil
}

func (f *Fake) CreateIngredient(_ context.Context, ingredient model.Ingredient) error {
	if f.CreateIngredientErr != nil {
		return f.CreateIngredientErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.Ingredients {
		if existing.ID == ingredient.ID {
			f.Ingredients[i] = ingredient
			return nil
		}
	}
	f.Ingredients = append(f.Ingredients, ingredient)
	return nil
}

func (f *Fake) LinkRequires(_ context.Context, _, _ uuid.UUID, _ int64, _ model.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RequiresEdges++
	return nil
}

func (f *Fake) LinkSeeks(_ context.Context, _ string, _ uuid.UUID, _ int64, _ model.Unit, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SeeksEdges++
	return nil
}

func (f *Fake) UpsertItem(_ context.Context, _ string, item model.Item) error {
	if f.UpsertItemErr != nil {
		return f.UpsertItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.Items {
		if existing.ID == item.ID {
			f.Items[i] = item
			return nil
		}
	}
	f.Items = append(f.Items, item)
	return nil
}

func (f *Fake) LinkMatches(_ context.Context, _, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MatchesEdges++
	return nil
}

func (f *Fake) InsertCashFlows(_ context.Context, _ string, flows []model.CashFlow) error {
	if f.InsertCashFlowsErr != nil {
		return f.InsertCashFlowsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CashFlows = append(f.CashFlows, flows...)
	f.GeneratesEdges += len(flows)
	return nil
}

func (f *Fake) DeploymentDailyMicro(context.Context) (int64, error) {
	if f.DeploymentDailyMicroFn != nil {
		return f.DeploymentDailyMicroFn()
	}
	return f.sumCashFlows(), nil
}

func (f *Fake) UserDailyMicro(_ context.Context, username string) (int64, error) {
	if f.UserDailyMicroFn != nil {
		return f.UserDailyMicroFn(username)
	}
	return f.sumCashFlows(), nil
}

func (f *Fake) UserLifetimeMicro(_ context.Context, username string) (int64, error) {
	if f.UserLifetimeMicroFn != nil {
		return f.UserLifetimeMicroFn(username)
	}
	return f.sumCashFlows(), nil
}

func (f *Fake) sumCashFlows() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, flow := range f.CashFlows {
		sum += flow.Amount
	}
	return sum
}

func (f *Fake) Migrate(context.Context) error { return nil }

func (f *Fake) Close() error { return nil }
