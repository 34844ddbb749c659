package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cre-extract/internal/confidence"
	"github.com/sells-group/cre-extract/internal/extract"
	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/parser"
	"github.com/sells-group/cre-extract/internal/pipeline"
	"github.com/sells-group/cre-extract/internal/redact"
	"github.com/sells-group/cre-extract/internal/storage"
	"github.com/sells-group/cre-extract/internal/store"
	anthropicpkg "github.com/sells-group/cre-extract/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initStorage() (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "fs":
		return storage.NewFS(cfg.Storage.Dir), nil
	case "s3":
		return storage.NewS3(cfg.Storage.S3)
	default:
		return nil, eris.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func buildPipeline(st store.Store) (*pipeline.Pipeline, error) {
	stg, err := initStorage()
	if err != nil {
		return nil, err
	}

	catalog, err := model.DefaultFieldCatalog()
	if err != nil {
		return nil, eris.Wrap(err, "load field catalog")
	}

	client := anthropicpkg.NewRateLimitedClient(
		anthropicpkg.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.RateLimitRPM,
		cfg.Anthropic.RateLimitBurst,
	)

	calc := confidence.New(cfg.Confidence)
	extractor := extract.New(client, catalog, calc, extract.Config{
		Model:     cfg.Extract.Model,
		MaxTokens: cfg.Extract.MaxTokens,
		Retry:     cfg.Extract.Retry,
	})

	redactor := redact.New(
		redact.Mode(cfg.Redaction.Mode),
		redact.WithAllowedDomains(cfg.Redaction.AllowedDomains...),
	)

	return pipeline.New(st, stg, parser.DefaultRegistry(), redactor, extractor, cfg.Extract.Industry), nil
}
