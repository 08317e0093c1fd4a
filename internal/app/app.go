// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"os"

	gcpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/llmlogs/botwatch/internal/botlog"
	"github.com/llmlogs/botwatch/internal/clock/system"
	"github.com/llmlogs/botwatch/internal/config"
	"github.com/llmlogs/botwatch/internal/logging"
	"github.com/llmlogs/botwatch/internal/pipeline"
	publishermem "github.com/llmlogs/botwatch/internal/publisher/memory"
	publisherps "github.com/llmlogs/botwatch/internal/publisher/pubsub"
	sourcelocal "github.com/llmlogs/botwatch/internal/source/local"
	sourcemem "github.com/llmlogs/botwatch/internal/source/memory"
	storagegcs "github.com/llmlogs/botwatch/internal/storage/gcs"
	storagelocal "github.com/llmlogs/botwatch/internal/storage/local"
	storagemem "github.com/llmlogs/botwatch/internal/storage/memory"
	summaryblob "github.com/llmlogs/botwatch/internal/summary/blob"
	summarypg "github.com/llmlogs/botwatch/internal/summary/postgres"
)

// App holds the shared, long-lived services for the application. It is
// initialized once at startup and passed to the components that need it.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Pipeline *pipeline.Pipeline

	closers []func()
}

// New builds all services from the loaded configuration, failing fast when a
// critical dependency cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	a := &App{Config: cfg, Logger: logger}

	blobs, err := a.buildBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	source, err := a.buildSource()
	if err != nil {
		return nil, err
	}
	summaries, err := a.buildSummaryStore(ctx, blobs)
	if err != nil {
		return nil, err
	}
	publisher, err := a.buildPublisher(ctx)
	if err != nil {
		return nil, err
	}

	catalogData, err := a.readCatalog(ctx, blobs)
	if err != nil {
		return nil, err
	}
	catalog, err := botlog.LoadCatalog(catalogData)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.Catalog.Path, err)
	}
	logger.Info("bot catalog loaded",
		zap.String("provider", cfg.Catalog.Provider),
		zap.String("path", cfg.Catalog.Path),
		zap.Int("signatures", catalog.Len()))

	template, err := botlog.NewTemplate(cfg.Source.Template)
	if err != nil {
		return nil, fmt.Errorf("parse source template: %w", err)
	}

	p, err := pipeline.New(source, blobs, summaries, catalog, publisher, system.New(), logger, pipeline.Config{
		Template:            template,
		MaxDays:             cfg.Source.MaxDays,
		RawPrefix:           cfg.Storage.RawPrefix,
		ParsedPrefix:        cfg.Storage.ParsedPrefix,
		ReportPrefix:        cfg.Storage.ReportPrefix,
		DaysBack:            cfg.Report.DaysBack,
		TopPaths:            cfg.Report.TopPaths,
		IncludeUnclassified: cfg.Report.IncludeUnclassified,
	})
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	a.Pipeline = p

	logger.Info("application services initialized",
		zap.String("source", cfg.Source.Provider),
		zap.String("storage", cfg.Storage.Provider),
		zap.String("summary", cfg.Summary.Provider),
		zap.String("pubsub", cfg.PubSub.Provider))
	return a, nil
}

// readCatalog fetches the signature document from a local file or from the
// blob store, depending on the configured provider.
func (a *App) readCatalog(ctx context.Context, blobs botlog.BlobStore) ([]byte, error) {
	switch a.Config.Catalog.Provider {
	case "blob":
		data, err := blobs.GetObject(ctx, a.Config.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("fetch catalog %s: %w", a.Config.Catalog.Path, err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(a.Config.Catalog.Path) // #nosec G304 -- operator-provided path
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", a.Config.Catalog.Path, err)
		}
		return data, nil
	}
}

func (a *App) buildBlobStore(ctx context.Context) (botlog.BlobStore, error) {
	switch a.Config.Storage.Provider {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.Logger.Warn("close gcs client", zap.Error(err))
			}
		})
		return storagegcs.New(client, storagegcs.Config{Bucket: a.Config.Storage.GCS.Bucket})
	case "local":
		return storagelocal.New(storagelocal.Config{BaseDir: a.Config.Storage.Local.BaseDir})
	case "memory":
		return storagemem.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", a.Config.Storage.Provider)
	}
}

func (a *App) buildSource() (botlog.FileSource, error) {
	switch a.Config.Source.Provider {
	case "local":
		return sourcelocal.New(sourcelocal.Config{Dir: a.Config.Source.Local.Dir})
	case "memory":
		return sourcemem.NewSource(), nil
	default:
		return nil, fmt.Errorf("unknown source provider %q", a.Config.Source.Provider)
	}
}

func (a *App) buildSummaryStore(ctx context.Context, blobs botlog.BlobStore) (botlog.SummaryStore, error) {
	switch a.Config.Summary.Provider {
	case "blob":
		return summaryblob.New(blobs)
	case "postgres":
		store, err := summarypg.New(ctx, summarypg.Config{
			DSN:      a.Config.Summary.Postgres.DSN,
			Table:    a.Config.Summary.Postgres.Table,
			MaxConns: a.Config.Summary.Postgres.MaxConns,
			MinConns: a.Config.Summary.Postgres.MinConns,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown summary provider %q", a.Config.Summary.Provider)
	}
}

func (a *App) buildPublisher(ctx context.Context) (botlog.Publisher, error) {
	switch a.Config.PubSub.Provider {
	case "pubsub":
		client, err := gcpubsub.NewClient(ctx, a.Config.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create pubsub client: %w", err)
		}
		pub, err := publisherps.New(client)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			pub.Close()
			if err := client.Close(); err != nil {
				a.Logger.Warn("close pubsub client", zap.Error(err))
			}
		})
		return pub, nil
	case "memory", "noop":
		return publishermem.New(), nil
	default:
		return nil, fmt.Errorf("unknown pubsub provider %q", a.Config.PubSub.Provider)
	}
}

// Close shuts down all services in reverse initialization order and flushes
// the logger.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.Logger.Sync() //nolint:errcheck // best-effort flush
}
