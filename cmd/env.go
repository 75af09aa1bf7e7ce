package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/einkauf-app/einkauf/internal/assistant"
	"github.com/einkauf-app/einkauf/internal/auth"
	"github.com/einkauf-app/einkauf/internal/budget"
	"github.com/einkauf-app/einkauf/internal/ledger"
	"github.com/einkauf-app/einkauf/internal/model"
	"github.com/einkauf-app/einkauf/internal/pipeline"
	"github.com/einkauf-app/einkauf/internal/store"
	"github.com/einkauf-app/einkauf/internal/vendor"
	"github.com/einkauf-app/einkauf/pkg/openai"
	"github.com/einkauf-app/einkauf/pkg/rewe"
)

// env bundles the wired application components.
type env struct {
	Store    store.Store
	Ledger   *ledger.Ledger
	Guard    *budget.Guard
	Pipeline *pipeline.Pipeline
	Auth     *auth.Service
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// newStore opens the configured store driver.
func newStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv wires the store, ledger, budget guard, assistant and pipeline
// from the loaded configuration.
func initEnv(ctx context.Context) (*env, error) {
	if cfg.OpenAI.Key == "" {
		return nil, eris.New("openai.key is required (EINKAUF_OPENAI_KEY)")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, eris.New("auth.jwt_secret is required (EINKAUF_AUTH_JWT_SECRET)")
	}

	s, err := newStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	pricing := model.TokenPricing{
		InputPerMTok:  cfg.OpenAI.InputPerMTok,
		OutputPerMTok: cfg.OpenAI.OutputPerMTok,
	}
	l := ledger.New(s, pricing)

	guard := budget.New(l, budget.Limits{
		DeploymentDailyDollar: cfg.Budget.DeploymentDailyDollar,
		UserDailyDollar:       cfg.Budget.UserDailyDollar,
	})

	chatClient := openai.NewClient(cfg.OpenAI.Key,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithModel(cfg.OpenAI.Model),
	)
	asker := assistant.New(chatClient, guard, l, cfg.OpenAI.MaxChars)

	reweClient := rewe.NewClient(
		rewe.WithBaseURL(cfg.Rewe.BaseURL),
		rewe.WithMarket(cfg.Rewe.Market),
		rewe.WithRateLimit(cfg.Rewe.RPS, 2),
	)
	vendors := vendor.NewRegistry(vendor.NewRewe(reweClient))

	return &env{
		Store:    s,
		Ledger:   l,
		Guard:    guard,
		Pipeline: pipeline.New(s, asker, vendors),
		Auth:     auth.NewService(s, cfg.Auth.JWTSecret),
	}, nil
}
