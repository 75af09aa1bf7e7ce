package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/einkauf-app/einkauf/internal/db"
	"github.com/einkauf-app/einkauf/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection. The
// ledger aggregates run before every model call, so they lead the list.
var preparedStatements = map[string]string{
	"deployment_daily": `SELECT COALESCE(SUM(cf.amount), 0) FROM generates g JOIN cash_flows cf ON cf.id = g.cash_flow_id WHERE g.created_at > now() - interval '24 hours'`,
	"user_daily":       `SELECT COALESCE(SUM(cf.amount), 0) FROM generates g JOIN cash_flows cf ON cf.id = g.cash_flow_id WHERE g.created_at > now() - interval '24 hours' AND g.user_name = $1`,
	"user_lifetime":    `SELECT COALESCE(SUM(cf.amount), 0) FROM generates g JOIN cash_flows cf ON cf.id = g.cash_flow_id WHERE g.user_name = $1`,
	"insert_cash_flow": `INSERT INTO cash_flows (id, amount, origin) VALUES ($1, $2, $3)`,
	"insert_generates": `INSERT INTO generates (user_name, cash_flow_id, created_at) VALUES ($1, $2, $3)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	invite_code   TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS invites (
	code            TEXT PRIMARY KEY,
	initial_charges INT NOT NULL,
	used_charges    INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS recipes (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ingredients (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	probably_at_home BOOLEAN NOT NULL DEFAULT false,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS items (
	id         TEXT PRIMARY KEY,
	vendor     TEXT NOT NULL,
	name       TEXT NOT NULL,
	price_cent BIGINT,
	grammage   TEXT,
	url        TEXT,
	image_url  TEXT
);

CREATE TABLE IF NOT EXISTS cash_flows (
	id     TEXT PRIMARY KEY,
	amount BIGINT NOT NULL,
	origin TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS submits (
	user_name  TEXT NOT NULL REFERENCES users(username),
	recipe_id  TEXT NOT NULL REFERENCES recipes(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS requires (
	recipe_id     TEXT NOT NULL REFERENCES recipes(id),
	ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
	quantity      BIGINT NOT NULL,
	unit          TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS seeks (
	user_name     TEXT NOT NULL REFERENCES users(username),
	ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
	quantity      BIGINT NOT NULL,
	unit          TEXT NOT NULL,
	vendor        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS matches (
	item_id       TEXT NOT NULL REFERENCES items(id),
	ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS generates (
	user_name    TEXT NOT NULL REFERENCES users(username),
	cash_flow_id TEXT NOT NULL REFERENCES cash_flows(id),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_generates_created_at ON generates(created_at);
CREATE INDEX IF NOT EXISTS idx_generates_user_name ON generates(user_name);
CREATE INDEX IF NOT EXISTS idx_requires_recipe_id ON requires(recipe_id);
CREATE INDEX IF NOT EXISTS idx_seeks_user_name ON seeks(user_name);
CREATE INDEX IF NOT EXISTS idx_matches_ingredient_id ON matches(ingredient_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT username, password_hash, invite_code, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.Username, &u.PasswordHash, &u.InviteCode, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get user")
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (username, password_hash, invite_code, created_at) VALUES ($1, $2, $3, $4)`,
		user.Username, user.PasswordHash, user.InviteCode, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: create user")
}

func (s *PostgresStore) GetInvite(ctx context.Context, code string) (*model.Invite, error) {
	var inv model.Invite
	err := s.pool.QueryRow(ctx,
		`SELECT code, initial_charges, used_charges FROM invites WHERE code = $1`,
		code,
	).Scan(&inv.Code, &inv.InitialCharges, &inv.UsedCharges)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get invite")
	}
	return &inv, nil
}

func (s *PostgresStore) CreateInvite(ctx context.Context, invite model.Invite) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO invites (code, initial_charges, used_charges) VALUES ($1, $2, $3)`,
		invite.Code, invite.InitialCharges, invite.UsedCharges,
	)
	return eris.Wrap(err, "postgres: create invite")
}

func (s *PostgresStore) ConsumeInviteCharge(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE invites SET used_charges = used_charges + 1 WHERE code = $1 AND used_charges < initial_charges`,
		code,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: consume invite charge")
	}
	if tag.RowsAffected() == 0 {
		return eris.New("postgres: invite exhausted or unknown")
	}
	return nil
}

func (s *PostgresStore) CreateRecipe(ctx context.Context, username string, recipe model.Recipe) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO recipes (id, text, created_at) VALUES ($1, $2, $3)`,
		recipe.ID.String(), recipe.Text, time.Now().UTC(),
	); err != nil {
		return eris.Wrap(err, "postgres: create recipe")
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO submits (user_name, recipe_id, created_at) VALUES ($1, $2, $3)`,
		username, recipe.ID.String(), time.Now().UTC(),
	); err != nil {
		return eris.Wrap(err, "postgres: link submits")
	}
	return nil
}

func (s *PostgresStore) CreateIngredient(ctx context.Context, ingredient model.Ingredient) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingredients (id, name, probably_at_home, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, probably_at_home = EXCLUDED.probably_at_home`,
		ingredient.ID.String(), ingredient.Name, ingredient.ProbablyAtHome, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: create ingredient")
}

func (s *PostgresStore) LinkRequires(ctx context.Context, recipeID, ingredientID uuid.UUID, quantity int64, unit model.Unit) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO requires (recipe_id, ingredient_id, quantity, unit, created_at) VALUES ($1, $2, $3, $4, $5)`,
		recipeID.String(), ingredientID.String(), quantity, string(unit), time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: link requires")
}

func (s *PostgresStore) LinkSeeks(ctx context.Context, username string, ingredientID uuid.UUID, quantity int64, unit model.Unit, vendor string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO seeks (user_name, ingredient_id, quantity, unit, vendor, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		username, ingredientID.String(), quantity, string(unit), vendor, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: link seeks")
}

func (s *PostgresStore) UpsertItem(ctx context.Context, vendor string, item model.Item) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO items (id, vendor, name, price_cent, grammage, url, image_url) VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET vendor = EXCLUDED.vendor, name = EXCLUDED.name, price_cent = EXCLUDED.price_cent,
		 grammage = EXCLUDED.grammage, url = EXCLUDED.url, image_url = EXCLUDED.image_url`,
		item.ID.String(), vendor, item.Name, item.PriceCent, item.Grammage, item.URL, item.ImageURL,
	)
	return eris.Wrap(err, "postgres: upsert item")
}

func (s *PostgresStore) LinkMatches(ctx context.Context, itemID, ingredientID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO matches (item_id, ingredient_id, created_at) VALUES ($1, $2, $3)`,
		itemID.String(), ingredientID.String(), time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: link matches")
}

func (s *PostgresStore) InsertCashFlows(ctx context.Context, username string, flows []model.CashFlow) error {
	for _, flow := range flows {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO cash_flows (id, amount, origin) VALUES ($1, $2, $3)`,
			flow.ID.String(), flow.Amount, string(flow.Origin),
		); err != nil {
			return eris.Wrap(err, "postgres: insert cash flow")
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO generates (user_name, cash_flow_id, created_at) VALUES ($1, $2, $3)`,
			username, flow.ID.String(), time.Now().UTC(),
		); err != nil {
			return eris.Wrap(err, "postgres: link generates")
		}
	}
	return nil
}

func (s *PostgresStore) DeploymentDailyMicro(ctx context.Context) (int64, error) {
	var sum int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(cf.amount), 0) FROM generates g JOIN cash_flows cf ON cf.id = g.cash_flow_id WHERE g.created_at > now() - interval '24 hours'`,
	).Scan(&sum)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: deployment daily sum")
	}
	return sum, nil
}

func (s *PostgresStore) UserDailyMicro(ctx context.Context, username string) (int64, error) {
	var sum int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(cf.amount), 0) FROM generates g JOIN cash_flows cf ON cf.id = g.cash_flow_id WHERE g.created_at > now() - interval '24 hours' AND g.user_name = $1`,
		username,
	).Scan(&sum)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: user daily sum")
	}
	return sum, nil
}

func (s *PostgresStore) UserLifetimeMicro(ctx context.Context, username string) (int64, error) {
	var sum int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(cf.amount), 0) FROM generates g JOIN cash_flows cf ON cf.id = g.cash_flow_id WHERE g.user_name = $1`,
		username,
	).Scan(&sum)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: user lifetime sum")
	}
	return sum, nil
}
