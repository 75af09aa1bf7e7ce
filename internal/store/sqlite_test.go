package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/einkauf-app/einkauf/internal/model"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteUsersAndInvites(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateInvite(ctx, model.Invite{Code: "invite-1", InitialCharges: 2}))

	invite, err := s.GetInvite(ctx, "invite-1")
	require.NoError(t, err)
	require.NotNil(t, invite)
	assert.EqualValues(t, 2, invite.InitialCharges)
	assert.False(t, invite.Exhausted())

	missing, err := s.GetInvite(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.ConsumeInviteCharge(ctx, "invite-1"))
	require.NoError(t, s.ConsumeInviteCharge(ctx, "invite-1"))
	assert.Error(t, s.ConsumeInviteCharge(ctx, "invite-1"))

	invite, err = s.GetInvite(ctx, "invite-1")
	require.NoError(t, err)
	assert.True(t, invite.Exhausted())

	require.NoError(t, s.CreateUser(ctx, model.User{
		Username:     "amber-otter-1234",
		PasswordHash: "$2a$10$hash",
		InviteCode:   "invite-1",
	}))

	user, err := s.GetUser(ctx, "amber-otter-1234")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "invite-1", user.InviteCode)
	assert.False(t, user.CreatedAt.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), user.CreatedAt, time.Minute)

	none, err := s.GetUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSQLiteRecipeGraph(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, model.User{Username: "alice", PasswordHash: "h", InviteCode: "i"}))

	recipe := model.Recipe{ID: uuid.New(), Text: "500g Mehl, 2 Eier"}
	require.NoError(t, s.CreateRecipe(ctx, "alice", recipe))

	ingredient := model.Ingredient{ID: uuid.New(), Name: "Weizenmehl", Unit: model.UnitGram, Quantity: 500}
	require.NoError(t, s.CreateIngredient(ctx, ingredient))
	require.NoError(t, s.LinkRequires(ctx, recipe.ID, ingredient.ID, 500, model.UnitGram))
	require.NoError(t, s.LinkSeeks(ctx, "alice", ingredient.ID, 500, model.UnitGram, "rewe"))

	// The upsert path must accept the same ingredient id again.
	ingredient.Name = "Dinkelmehl"
	require.NoError(t, s.CreateIngredient(ctx, ingredient))

	price := int64(119)
	item := model.Item{ID: uuid.New(), Name: "Weizenmehl Type 405", Grammage: "1kg", PriceCent: &price}
	require.NoError(t, s.UpsertItem(ctx, "rewe", item))
	require.NoError(t, s.UpsertItem(ctx, "rewe", item))
	require.NoError(t, s.LinkMatches(ctx, item.ID, ingredient.ID))
}

func TestSQLiteLedger(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, model.User{Username: "alice", PasswordHash: "h", InviteCode: "i"}))
	require.NoError(t, s.CreateUser(ctx, model.User{Username: "bob", PasswordHash: "h", InviteCode: "i"}))

	require.NoError(t, s.InsertCashFlows(ctx, "alice", []model.CashFlow{
		{ID: uuid.New(), Amount: -1500, Origin: model.OriginAiInputToken},
		{ID: uuid.New(), Amount: -6000, Origin: model.OriginAiOutputToken},
	}))
	require.NoError(t, s.InsertCashFlows(ctx, "bob", []model.CashFlow{
		{ID: uuid.New(), Amount: -2500, Origin: model.OriginAiInputToken},
	}))

	deployment, err := s.DeploymentDailyMicro(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, -10_000, deployment)

	alice, err := s.UserDailyMicro(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, -7500, alice)

	lifetime, err := s.UserLifetimeMicro(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, -7500, lifetime)

	nobody, err := s.UserDailyMicro(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, nobody)
}
