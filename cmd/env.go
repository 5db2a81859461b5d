package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/reviewpulse/reviewpulse/internal/analyzer"
	"github.com/reviewpulse/reviewpulse/internal/comparator"
	"github.com/reviewpulse/reviewpulse/internal/discovery"
	"github.com/reviewpulse/reviewpulse/internal/extractor"
	"github.com/reviewpulse/reviewpulse/internal/pipeline"
	"github.com/reviewpulse/reviewpulse/internal/store"
	"github.com/reviewpulse/reviewpulse/pkg/anthropic"
	"github.com/reviewpulse/reviewpulse/pkg/firecrawl"
	"github.com/reviewpulse/reviewpulse/pkg/serper"
)

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "reviewpulse.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// pipelineEnv holds the initialized store, clients, and pipeline used by the
// serve/analyze/compare commands.
type pipelineEnv struct {
	Store      store.Store
	Pipeline   *pipeline.Pipeline
	Runner     *pipeline.Runner
	Comparator *comparator.Comparator
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, API clients, and pipeline. Callers should
// defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	serperClient := serper.NewClient(cfg.Serper.Key, serper.WithBaseURL(cfg.Serper.BaseURL))
	firecrawlClient := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	anthropicClient := anthropic.NewClient(cfg.LLM.Key)

	pipe := pipeline.New(
		st,
		discovery.NewDiscoverer(serperClient, cfg.Serper),
		extractor.NewExtractor(firecrawlClient, cfg.Firecrawl),
		analyzer.NewAnalyzer(anthropicClient, cfg.LLM),
	)

	return &pipelineEnv{
		Store:      st,
		Pipeline:   pipe,
		Runner:     pipeline.NewRunner(pipe),
		Comparator: comparator.NewComparator(anthropicClient, cfg.LLM),
	}, nil
}
