package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/daybook-sh/daybook/internal/config"
	"github.com/daybook-sh/daybook/internal/engine"
	"github.com/daybook-sh/daybook/internal/store"
)

// openStore loads config and opens the database. Callers own the returned
// DB and must Close it.
func openStore() (*config.Config, *store.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, nil
}

// buildRecommender wires the embedding provider and engines from config.
// The store backs the access-frequency signal.
func buildRecommender(cfg *config.Config, db *store.DB) *engine.Recommender {
	var remote engine.Embedder
	if cfg.Embedding.Provider == "openai" {
		apiKey := cfg.Embedding.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		remote = engine.NewOpenAIEmbedder(
			cfg.Embedding.BaseURL,
			apiKey,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
			time.Duration(cfg.Embedding.TimeoutSeconds)*time.Second,
		)
	}

	provider := engine.NewProvider(remote, cfg.Embedding.Dimensions)
	relevance := engine.NewRelevance(provider)
	// store.DB satisfies engine.FrequencyProvider via its access log.
	rec := engine.NewRecommender(relevance, db)
	rec.SetTemporalWindow(cfg.Engine.TemporalWindowDays)
	return rec
}
