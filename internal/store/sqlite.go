package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/einkauf-app/einkauf/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	invite_code   TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS invites (
	code            TEXT PRIMARY KEY,
	initial_charges INTEGER NOT NULL,
	used_charges    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS recipes (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ingredients (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	probably_at_home INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS items (
	id         TEXT PRIMARY KEY,
	vendor     TEXT NOT NULL,
	name       TEXT NOT NULL,
	price_cent INTEGER,
	grammage   TEXT,
	url        TEXT,
	image_url  TEXT
);

CREATE TABLE IF NOT EXISTS cash_flows (
	id     TEXT PRIMARY KEY,
	amount INTEGER NOT NULL,
	origin TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS submits (
	user_name  TEXT NOT NULL REFERENCES users(username),
	recipe_id  TEXT NOT NULL REFERENCES recipes(id),
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS requires (
	recipe_id     TEXT NOT NULL REFERENCES recipes(id),
	ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
	quantity      INTEGER NOT NULL,
	unit          TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS seeks (
	user_name     TEXT NOT NULL REFERENCES users(username),
	ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
	quantity      INTEGER NOT NULL,
	unit          TEXT NOT NULL,
	vendor        TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS matches (
	item_id       TEXT NOT NULL REFERENCES items(id),
	ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS generates (
	user_name    TEXT NOT NULL REFERENCES users(username),
	cash_flow_id TEXT NOT NULL REFERENCES cash_flows(id),
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_generates_created_at ON generates(created_at);
CREATE INDEX IF NOT EXISTS idx_generates_user_name ON generates(user_name);
CREATE INDEX IF NOT EXISTS idx_requires_recipe_id ON requires(recipe_id);
CREATE INDEX IF NOT EXISTS idx_seeks_user_name ON seeks(user_name);
CREATE INDEX IF NOT EXISTS idx_matches_ingredient_id ON matches(ingredient_id);
`

// sqliteNow renders a timestamp the way datetime('now') does, so the
// lexicographic window comparisons in the ledger queries stay valid.
func sqliteNow() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetUser(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	// The driver converts DATETIME columns back to time.Time on read.
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, invite_code, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&u.Username, &u.PasswordHash, &u.InviteCode, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get user")
	}
	return &u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, invite_code, created_at) VALUES (?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.InviteCode, sqliteNow(),
	)
	return eris.Wrap(err, "sqlite: create user")
}

func (s *SQLiteStore) GetInvite(ctx context.Context, code string) (*model.Invite, error) {
	var inv model.Invite
	err := s.db.QueryRowContext(ctx,
		`SELECT code, initial_charges, used_charges FROM invites WHERE code = ?`,
		code,
	).Scan(&inv.Code, &inv.InitialCharges, &inv.UsedCharges)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get invite")
	}
	return &inv, nil
}

func (s *SQLiteStore) CreateInvite(ctx context.Context, invite model.Invite) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invites (code, initial_charges, used_charges) VALUES (?, ?, ?)`,
		invite.Code, invite.InitialCharges, invite.UsedCharges,
	)
	return eris.Wrap(err, "sqlite: create invite")
}

func (s *SQLiteStore) ConsumeInviteCharge(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invites SET used_charges = used_charges + 1 WHERE code = ? AND used_charges < initial_charges`,
		code,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: consume invite charge")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: consume invite charge rows")
	}
	if n == 0 {
		return eris.New("sqlite: invite exhausted or unknown")
	}
	return nil
}

func (s *SQLiteStore) CreateRecipe(ctx context.Context, username string, recipe model.Recipe) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO recipes (id, text, created_at) VALUES (?, ?, ?)`,
		recipe.ID.String(), recipe.Text, sqliteNow(),
	); err != nil {
		return eris.Wrap(err, "sqlite: create recipe")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO submits (user_name, recipe_id, created_at) VALUES (?, ?, ?)`,
		username, recipe.ID.String(), sqliteNow(),
	); err != nil {
		return eris.Wrap(err, "sqlite: link submits")
	}
	return nil
}

func (s *SQLiteStore) CreateIngredient(ctx context.Context, ingredient model.Ingredient) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingredients (id, name, probably_at_home, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, probably_at_home = excluded.probably_at_home`,
		ingredient.ID.String(), ingredient.Name, ingredient.ProbablyAtHome, sqliteNow(),
	)
	return eris.Wrap(err, "sqlite: create ingredient")
}

func (s *SQLiteStore) LinkRequires(ctx context.Context, recipeID, ingredientID uuid.UUID, quantity int64, unit model.Unit) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requires (recipe_id, ingredient_id, quantity, unit, created_at) VALUES (?, ?, ?, ?, ?)`,
		recipeID.String(), ingredientID.String(), quantity, string(unit), sqliteNow(),
	)
	return eris.Wrap(err, "sqlite: link requires")
}

func (s *SQLiteStore) LinkSeeks(ctx context.Context, username string, ingredientID uuid.UUID, quantity int64, unit model.Unit, vendor string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seeks (user_name, ingredient_id, quantity, unit, vendor, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		username, ingredientID.String(), quantity, string(unit), vendor, sqliteNow(),
	)
	return eris.Wrap(err, "sqlite: link seeks")
}

func (s *SQLiteStore) UpsertItem(ctx context.Context, vendor string, item model.Item) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, vendor, name, price_cent, grammage, url, image_url) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET vendor = excluded.vendor, name = excluded.name, price_cent = excluded.price_cent,
		 grammage = excluded.grammage, url = excluded.url, image_url = excluded.image_url`,
		item.ID.String(), vendor, item.Name, item.PriceCent, item.Grammage, item.URL, item.ImageURL,
	)
	return eris.Wrap(err, "sqlite: upsert item")
}

func (s *SQLiteStore) LinkMatches(ctx context.Context, itemID, ingredientID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (item_id, ingredient_id, created_at) VALUES (?, ?, ?)`,
		itemID.String(), ingredientID.String(), sqliteNow(),
	)
	return eris.Wrap(err, "sqlite: link matches")
}

func (s *SQLiteStore) InsertCashFlows(ctx context.Context, username string, flows []model.CashFlow) error {
	for _, flow := range flows {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO cash_flows (id, amount, origin) VALUES (?, ?, ?)`,
			flow.ID.String(), flow.Amount, string(flow.Origin),
		); err != nil {
			return eris.Wrap(err, "sqlite: insert cash flow")
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO generates (user_name, cash_flow_id, created_at) VALUES (?, ?, ?)`,
			username, flow.ID.String(), sqliteNow(),
		); err != nil {
			return eris.Wrap(err, "sqlite: link generates")
		}
	}
	return nil
}

func (s *SQLiteStore) DeploymentDailyMicro(ctx context.Context) (int64, error) {
	var sum int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cf.amount), 0) FROM generates g JOIN cash_flows cf ON cf.id = g.cash_flow_id
		 WHERE g.created_at > datetime('now', '-24 hours')`,
	).Scan(&sum)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: deployment daily sum")
	}
	return sum, nil
}

func (s *SQLiteStore) UserDailyMicro(ctx context.Context, username string) (int64, error) {
	var sum int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cf.amount), 0) FROM generates g JOIN cash_flows cf ON cf.id = g.cash_flow_id
		 WHERE g.created_at > datetime('now', '-24 hours') AND g.user_name = ?`,
		username,
	).Scan(&sum)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: user daily sum")
	}
	return sum, nil
}

func (s *SQLiteStore) UserLifetimeMicro(ctx context.Context, username string) (int64, error) {
	var sum int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cf.amount), 0) FROM generates g JOIN cash_flows cf ON cf.id = g.cash_flow_id WHERE g.user_name = ?`,
		username,
	).Scan(&sum)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: user lifetime sum")
	}
	return sum, nil
}
