package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/jgivc/stlcatalog/internal/catalog"
	"github.com/jgivc/stlcatalog/internal/classifier"
	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	"golang.org/x/sync/errgroup"
)

type Classifier interface {
	Classify(ctx context.Context, category entity.DirEntry) (*classifier.Nested, []*entity.BranchError, error)
	Excluded(entry entity.DirEntry) bool
}

type indexStorage struct {
	running    atomic.Bool
	source     classifier.TreeSource
	classifier Classifier
	policy     catalog.DuplicatePolicy
	cfg        *config.IndexerConfig
	log        *slog.Logger
}

func NewIndexStorage(source classifier.TreeSource, cls Classifier, policy catalog.DuplicatePolicy, cfg *config.IndexerConfig, log *slog.Logger) *indexStorage {
	return &indexStorage{
		source:     source,
		classifier: cls,
		policy:     policy,
		cfg:        cfg,
		log:        log.With(slog.String("item", "IndexStorage")),
	}
}

// Scan lists the tree root and classifies every category directory, at most
// cfg.Workers at a time. Partial catalogs are merged in category name order
// so the result does not depend on scheduling.
func (i *indexStorage) Scan(ctx context.Context) (*entity.ScanResult, error) {
	if !i.running.CompareAndSwap(false, true) {
		return nil, common.ErrIndexingProcessHasAlreadyStarted
	}
	defer i.running.Store(false)

	if i.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.cfg.Timeout)
		defer cancel()
	}

	started := time.Now()

	categories, err := i.categories(ctx)
	if err != nil {
		return nil, err
	}

	if len(categories) == 0 {
		i.log.Info("Tree has no categories")

		return &entity.ScanResult{Catalog: entity.Catalog{}, StartedAt: started, Duration: time.Since(started)}, nil
	}

	partials := make([]entity.Catalog, len(categories))
	branchErrs := make([][]*entity.BranchError, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(i.cfg.Workers, 1))

	for n, category := range categories {
		g.Go(func() error {
			node, errs, err := i.classifier.Classify(gctx, category)
			branchErrs[n] = errs
			if err != nil {
				return fmt.Errorf("cannot classify category %s: %w", category.Name, err)
			}

			a := catalog.NewAssembler(i.policy)
			a.AddCategory(node)
			partials[n] = a.Catalog()
			branchErrs[n] = append(branchErrs[n], a.Errors()...)

			i.log.Info("Found category", slog.String("path", category.RelativePath),
				slog.Int("groups", a.Placements()), slog.Int("replaced", a.Replaced()))

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		i.log.Error("Scan aborted", slog.Any("error", err))

		return nil, err
	}

	result := &entity.ScanResult{
		Catalog:   catalog.Combine(i.policy, partials...),
		StartedAt: started,
		Duration:  time.Since(started),
	}

	for _, errs := range branchErrs {
		result.BranchErrors = append(result.BranchErrors, errs...)
	}

	return result, nil
}

// categories lists the root. Any failure here is fatal.
func (i *indexStorage) categories(ctx context.Context) ([]entity.DirEntry, error) {
	entries, err := i.source.ListChildren(ctx, "")
	if err != nil {
		i.log.Error("Cannot list tree root", slog.Any("error", err))

		if classifier.IsFatal(err) {
			return nil, fmt.Errorf("cannot list tree root: %w", err)
		}

		return nil, fmt.Errorf("cannot list tree root: %w: %w", common.ErrSourceFatal, err)
	}

	var categories []entity.DirEntry
	for _, entry := range entries {
		if entry.RelativePath == "" {
			entry.RelativePath = entry.Name
		}

		if !entry.IsDir() || i.classifier.Excluded(entry) {
			continue
		}

		categories = append(categories, entry)
	}

	sort.Slice(categories, func(a, b int) bool { return categories[a].Name < categories[b].Name })

	return categories, nil
}
