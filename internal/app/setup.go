package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchmeal/matchmeal/db"
	"github.com/matchmeal/matchmeal/internal/catalog"
	"github.com/matchmeal/matchmeal/internal/coach"
	"github.com/matchmeal/matchmeal/internal/config"
	"github.com/matchmeal/matchmeal/internal/foodsource"
	"github.com/matchmeal/matchmeal/internal/history"
	"github.com/matchmeal/matchmeal/internal/log"
	"github.com/matchmeal/matchmeal/internal/selector"
	"github.com/matchmeal/matchmeal/internal/vector"
	"github.com/matchmeal/matchmeal/internal/vision"
)

// openaiProvider is the plugin namespace under which the OpenAI-compatible
// provider registers models and embedders.
const openaiProvider = "openai"

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			_ = a.Close()
		}
	}()

	// Background work (bulk food loading) stops when the App closes.
	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel

	pool, dbCleanup, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, err := provideGenkit(ctx, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := genkit.LookupEmbedder(g, api.NewName(openaiProvider, cfg.EmbedderModel))
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not registered by provider", cfg.EmbedderModel)
	}

	queries := vector.NewPGQuerier(pool)

	a.FoodIndex, err = vector.NewFoodIndex(queries, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("creating food index: %w", err)
	}
	a.ToolIndex, err = vector.NewToolIndex(queries, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("creating tool index: %w", err)
	}

	a.Catalog, err = catalog.New(a.FoodIndex, logger)
	if err != nil {
		return nil, fmt.Errorf("creating tool catalog: %w", err)
	}
	toolRefs := a.Catalog.Register(g)

	// The tool index must reflect the current catalog before the first
	// selection runs; stale entries from removed tools are replaced here.
	if err := a.ToolIndex.Reindex(ctx, a.Catalog.Docs()); err != nil {
		return nil, fmt.Errorf("indexing tool descriptions: %w", err)
	}

	fastModel := api.NewName(openaiProvider, cfg.FastModel)
	heavyModel := api.NewName(openaiProvider, cfg.HeavyModel)

	sel, err := selector.New(g, a.ToolIndex, a.Catalog, fastModel, logger)
	if err != nil {
		return nil, fmt.Errorf("creating tool selector: %w", err)
	}

	a.Coach, err = coach.New(coach.Config{
		Genkit:       g,
		Selector:     sel,
		Tools:        a.Catalog,
		ToolRefs:     toolRefs,
		FastModel:    fastModel,
		HeavyModel:   heavyModel,
		MaxToolTurns: cfg.MaxToolTurns,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating coach: %w", err)
	}

	a.History, err = history.New(history.NewPGQuerier(pool), logger)
	if err != nil {
		return nil, fmt.Errorf("creating history store: %w", err)
	}
	a.Recorder = coach.NewRecorder(a.History, logger)

	if cfg.VisionURL != "" {
		a.Vision, err = vision.NewClient(cfg.VisionURL, logger)
		if err != nil {
			return nil, fmt.Errorf("creating vision client: %w", err)
		}
	}

	// Bulk food loading runs in the background so startup does not block
	// on embedding a full food table. The load-once guard inside the index
	// makes the whole pass a no-op on restarts.
	go loadFoodData(bgCtx, cfg.FoodDataDir, a.FoodIndex, logger)

	return a, nil
}

// provideGenkit initializes Genkit with the OpenAI-compatible provider.
// The provider reads OPENAI_API_KEY from the environment.
func provideGenkit(ctx context.Context, logger log.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with openai provider")
	}
	logger.Info("initialized Genkit with openai provider")
	return g, nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// loadFoodData reads the bulk food table and indexes it.
// Failures leave the server running with an empty or partial food index;
// search-backed tools degrade to "no results" answers rather than errors.
func loadFoodData(ctx context.Context, dir string, index *vector.FoodIndex, logger log.Logger) {
	if dir == "" {
		return
	}

	foods, err := foodsource.ReadDir(dir, logger)
	if err != nil {
		logger.Warn("reading food data directory", "dir", dir, "error", err)
		return
	}
	if len(foods) == 0 {
		logger.Info("no food data found, skipping index load", "dir", dir)
		return
	}

	if err := index.Load(ctx, foods); err != nil {
		logger.Warn("loading food index", "error", err)
		return
	}
	logger.Info("food index ready", "foods", len(foods))
}
