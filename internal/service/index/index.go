package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/jgivc/stlcatalog/internal/metrics"
)

type CatalogStorage interface {
	Scan(ctx context.Context) (*entity.ScanResult, error)
}

// CatalogSink persists a finished build.
type CatalogSink interface {
	Save(ctx context.Context, result *entity.ScanResult) error
}

type IndexerService struct {
	store  CatalogStorage
	sinks  []CatalogSink
	latest atomic.Pointer[entity.ScanResult]
	log    *slog.Logger
}

func NewIndexService(store CatalogStorage, log *slog.Logger, sinks ...CatalogSink) *IndexerService {
	return &IndexerService{
		store: store,
		sinks: sinks,
		log:   log.With(slog.String("item", "IndexService")),
	}
}

// Index builds the catalog and hands it to every sink. The in-memory
// snapshot is replaced even when a sink fails.
func (i *IndexerService) Index(ctx context.Context) (*entity.ScanResult, error) {
	start := time.Now()

	result, err := i.store.Scan(ctx)
	if err != nil {
		if !errors.Is(err, common.ErrIndexingProcessHasAlreadyStarted) {
			metrics.RecordBuild(nil, time.Since(start))
		}
		i.log.Error("Cannot scan", slog.Any("error", err))

		return nil, fmt.Errorf("cannot scan tree: %w", err)
	}

	result.RunID = uuid.NewString()
	metrics.RecordBuild(result, time.Since(start))

	for _, be := range result.BranchErrors {
		i.log.Warn("Branch skipped", slog.String("path", be.Path), slog.Any("error", be.Err))
	}

	stats := result.Catalog.Stats()
	i.log.Info("Catalog built",
		slog.String("run_id", result.RunID),
		slog.Int("categories", stats.Categories),
		slog.Int("subtypes", stats.Subtypes),
		slog.Int("groups", stats.Groups),
		slog.Int("files", stats.Files),
		slog.Int("branch_errors", len(result.BranchErrors)),
		slog.Duration("duration", result.Duration),
	)

	i.latest.Store(result)

	var errs []error
	for _, sink := range i.sinks {
		if err := sink.Save(ctx, result); err != nil {
			i.log.Error("Cannot save catalog", slog.Any("error", err))
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return result, fmt.Errorf("cannot save catalog: %w", err)
	}

	return result, nil
}

// Latest is the last successful build, or nil before the first one.
func (i *IndexerService) Latest() *entity.ScanResult {
	return i.latest.Load()
}

func (i *IndexerService) GetCatalog(_ context.Context) (*entity.ScanResult, error) {
	result := i.latest.Load()
	if result == nil {
		return nil, common.ErrCatalogNotFound
	}

	return result, nil
}

func (i *IndexerService) GetCategory(ctx context.Context, name string) (entity.Category, error) {
	result, err := i.GetCatalog(ctx)
	if err != nil {
		return nil, err
	}

	category, ok := result.Catalog[name]
	if !ok {
		return nil, common.ErrCategoryNotFound
	}

	return category, nil
}
