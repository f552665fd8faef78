// Package app provides application initialization and dependency wiring.
//
// Setup builds the full component graph in dependency order: database pool
// and migrations, Genkit with the OpenAI-compatible provider, the vector
// indexes, the tool catalog, the selector, and the coach. App owns the
// lifecycle; Close releases everything in reverse order.
package app

import (
	"context"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchmeal/matchmeal/internal/catalog"
	"github.com/matchmeal/matchmeal/internal/coach"
	"github.com/matchmeal/matchmeal/internal/config"
	"github.com/matchmeal/matchmeal/internal/history"
	"github.com/matchmeal/matchmeal/internal/log"
	"github.com/matchmeal/matchmeal/internal/vector"
	"github.com/matchmeal/matchmeal/internal/vision"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit *genkit.Genkit
	DBPool *pgxpool.Pool

	FoodIndex *vector.FoodIndex
	ToolIndex *vector.ToolIndex
	Catalog   *catalog.Catalog

	Coach    *coach.Coach
	Recorder *coach.Recorder
	History  *history.Store
	Vision   *vision.Client // nil when no vision service is configured

	// Lifecycle management
	cancel    context.CancelFunc
	dbCleanup func()
}

// Close gracefully shuts down all resources.
// Safe to call on a partially initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}

	return nil
}
