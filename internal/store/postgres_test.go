package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/einkauf-app/einkauf/internal/model"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s, mock := newMockStore(t)

		created := time.Now().UTC()
		mock.ExpectQuery("SELECT username, password_hash, invite_code, created_at FROM users").
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows([]string{"username", "password_hash", "invite_code", "created_at"}).
				AddRow("alice", "$2a$10$hash", "invite-1", created))

		user, err := s.GetUser(context.Background(), "alice")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "$2a$10$hash", user.PasswordHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user is nil not error", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery("SELECT username, password_hash, invite_code, created_at FROM users").
			WithArgs("nobody").
			WillReturnRows(pgxmock.NewRows([]string{"username", "password_hash", "invite_code", "created_at"}))

		user, err := s.GetUser(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("query error propagates", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery("SELECT username, password_hash, invite_code, created_at FROM users").
			WithArgs("alice").
			WillReturnError(errors.New("connection refused"))

		_, err := s.GetUser(context.Background(), "alice")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "get user")
	})
}

func TestConsumeInviteCharge(t *testing.T) {
	t.Run("decrements a remaining charge", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectExec("UPDATE invites SET used_charges").
			WithArgs("invite-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, s.ConsumeInviteCharge(context.Background(), "invite-1"))
	})

	t.Run("exhausted invite fails", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectExec("UPDATE invites SET used_charges").
			WithArgs("invite-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := s.ConsumeInviteCharge(context.Background(), "invite-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exhausted")
	})
}

func TestCreateRecipe(t *testing.T) {
	s, mock := newMockStore(t)

	recipe := model.Recipe{ID: uuid.New(), Text: "500g Mehl, 2 Eier"}

	mock.ExpectExec("INSERT INTO recipes").
		WithArgs(recipe.ID.String(), recipe.Text, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO submits").
		WithArgs("alice", recipe.ID.String(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateRecipe(context.Background(), "alice", recipe))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIngredientUpsert(t *testing.T) {
	s, mock := newMockStore(t)

	ingredient := model.Ingredient{ID: uuid.New(), Name: "Weizenmehl", ProbablyAtHome: false}

	mock.ExpectExec("INSERT INTO ingredients").
		WithArgs(ingredient.ID.String(), "Weizenmehl", false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateIngredient(context.Background(), ingredient))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertItem(t *testing.T) {
	s, mock := newMockStore(t)

	price := int64(119)
	item := model.Item{
		ID:        uuid.New(),
		Name:      "Weizenmehl Type 405",
		Grammage:  "1kg",
		PriceCent: &price,
		URL:       "https://www.rewe.de/produkte/1234567",
		ImageURL:  "https://img.rewe.de/1234567.png",
	}

	mock.ExpectExec("INSERT INTO items").
		WithArgs(item.ID.String(), "rewe", item.Name, item.PriceCent, item.Grammage, item.URL, item.ImageURL).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertItem(context.Background(), "rewe", item))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCashFlows(t *testing.T) {
	t.Run("writes flow and generates edge per entry", func(t *testing.T) {
		s, mock := newMockStore(t)

		flows := []model.CashFlow{
			{ID: uuid.New(), Amount: -1500, Origin: model.OriginAiInputToken},
			{ID: uuid.New(), Amount: -6000, Origin: model.OriginAiOutputToken},
		}

		for _, flow := range flows {
			mock.ExpectExec("INSERT INTO cash_flows").
				WithArgs(flow.ID.String(), flow.Amount, string(flow.Origin)).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			mock.ExpectExec("INSERT INTO generates").
				WithArgs("alice", flow.ID.String(), pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}

		require.NoError(t, s.InsertCashFlows(context.Background(), "alice", flows))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops on first failure", func(t *testing.T) {
		s, mock := newMockStore(t)

		flow := model.CashFlow{ID: uuid.New(), Amount: -1, Origin: model.OriginAiInputToken}
		mock.ExpectExec("INSERT INTO cash_flows").
			WithArgs(flow.ID.String(), flow.Amount, string(flow.Origin)).
			WillReturnError(errors.New("deadlock detected"))

		err := s.InsertCashFlows(context.Background(), "alice", []model.CashFlow{flow})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert cash flow")
	})
}

func TestLedgerSums(t *testing.T) {
	t.Run("deployment daily", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(cf.amount\), 0\) FROM generates`).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(-250_000)))

		sum, err := s.DeploymentDailyMicro(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, -250_000, sum)
	})

	t.Run("user daily", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(cf.amount\), 0\) FROM generates`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(-42_000)))

		sum, err := s.UserDailyMicro(context.Background(), "alice")
		require.NoError(t, err)
		assert.EqualValues(t, -42_000, sum)
	})

	t.Run("user lifetime", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(cf.amount\), 0\) FROM generates`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(-1_500_000)))

		sum, err := s.UserLifetimeMicro(context.Background(), "alice")
		require.NoError(t, err)
		assert.EqualValues(t, -1_500_000, sum)
	})

	t.Run("empty ledger sums to zero", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(cf.amount\), 0\) FROM generates`).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))

		sum, err := s.DeploymentDailyMicro(context.Background())
		require.NoError(t, err)
		assert.Zero(t, sum)
	})
}
