package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jgivc/stlcatalog/internal/catalog"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/jgivc/stlcatalog/internal/util"
)

const (
	serviceName = "catalog"
)

// CatalogRepository is where the last build is read from: the in-memory
// snapshot of the indexer or the Redis store.
type CatalogRepository interface {
	GetCatalog(ctx context.Context) (*entity.ScanResult, error)
	GetCategory(ctx context.Context, name string) (entity.Category, error)
}

// Document is an encoded response body with its entity tag.
type Document struct {
	Body  []byte
	ETag  string
	RunID string
}

type catalogService struct {
	repo CatalogRepository
	log  *slog.Logger
}

func NewCatalogService(repo CatalogRepository, log *slog.Logger) *catalogService {
	return &catalogService{
		repo: repo,
		log:  log.With(slog.String("service", serviceName)),
	}
}

func (c *catalogService) GetCatalog(ctx context.Context) (*Document, error) {
	result, err := c.repo.GetCatalog(ctx)
	if err != nil {
		c.log.Error("Cannot get catalog", slog.Any("error", err))

		return nil, fmt.Errorf("cannot get catalog: %w", err)
	}

	body, err := catalog.Encode(result.Catalog)
	if err != nil {
		return nil, err
	}

	return newDocument(body, result.RunID), nil
}

func (c *catalogService) GetCategory(ctx context.Context, name string) (*Document, error) {
	category, err := c.repo.GetCategory(ctx, name)
	if err != nil {
		c.log.Debug("Cannot get category", slog.String("category", name), slog.Any("error", err))

		return nil, fmt.Errorf("cannot get category %s: %w", name, err)
	}

	body, err := catalog.EncodeCategory(category)
	if err != nil {
		return nil, err
	}

	return newDocument(body, ""), nil
}

func newDocument(body []byte, runID string) *Document {
	content := string(body)

	return &Document{
		Body:  body,
		ETag:  `"` + util.GetIDFromString(&content) + `"`,
		RunID: runID,
	}
}
