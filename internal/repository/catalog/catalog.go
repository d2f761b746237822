package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	KeyVersion1      = "v1"
	KeyVersion2      = "v2"
	KeyActiveVersion = "av"   // STRING. Version the readers use.
	KeyCategories    = "cat"  // HASH. cat:ver category_name: msgpack of the category
	KeyMeta          = "meta" // HASH. meta:ver field: value, see the field constants

	KeyEmpty     = ""
	KeySeparator = ":"

	fieldRunID        = "run_id"
	fieldStartedAt    = "started_at"
	fieldDurationMS   = "duration_ms"
	fieldCategories   = "categories"
	fieldSubtypes     = "subtypes"
	fieldGroups       = "groups"
	fieldFiles        = "files"
	fieldBranchErrors = "branch_errors"
)

// ClearableKeys are rewritten on every save of the standby version.
var ClearableKeys = []string{KeyCategories, KeyMeta}

// catalogRepository keeps two versions of the catalog and flips the active
// version key once the standby one is completely written, so readers never
// see a half written catalog.
type catalogRepository struct {
	ver    atomic.Value
	prefix string
	cl     *redis.Client
	log    *slog.Logger
}

func NewCatalogRepository(ctx context.Context, cl *redis.Client, prefix string, log *slog.Logger) (*catalogRepository, error) {
	repo := &catalogRepository{
		prefix: prefix,
		cl:     cl,
		log:    log.With(slog.String("item", "CatalogRepository")),
	}

	ver, _, err := repo.getVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot get active version: %w", err)
	}

	repo.ver.Store(ver)

	return repo, nil
}

func (r *catalogRepository) Save(ctx context.Context, result *entity.ScanResult) error {
	verActive, verStandby, err := r.getVersions(ctx)
	if err != nil {
		r.log.Error("Cannot get standby data version", slog.Any("error", err))

		return fmt.Errorf("cannot get active version: %w", err)
	}
	r.log.Info("Save new data", slog.String("active_version", verActive), slog.String("standby_version", verStandby))

	if err := r.clearOldData(ctx, verStandby); err != nil {
		r.log.Error("Cannot clear old data", slog.String("version", verStandby), slog.Any("error", err))

		return fmt.Errorf("cannot clear old data: %w", err)
	}

	if err := r.saveNewData(ctx, verStandby, result); err != nil {
		r.log.Error("Cannot save new data", slog.String("version", verStandby), slog.Any("error", err))

		return fmt.Errorf("cannot save new data: %w", err)
	}

	if _, err := r.cl.Set(ctx, r.key(KeyActiveVersion), verStandby, 0).Result(); err != nil {
		r.log.Error("Cannot switch to new version", slog.String("version", verStandby), slog.Any("error", err))

		return fmt.Errorf("cannot switch to new version: %w", err)
	}

	r.ver.Store(verStandby)

	return nil
}

func (r *catalogRepository) saveNewData(ctx context.Context, ver string, result *entity.ScanResult) error {
	pipe := r.cl.Pipeline()

	catKey := r.key(KeyCategories, ver)
	for name, category := range result.Catalog {
		data, err := EncodeCategory(category)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, catKey, name, data)
	}

	pipe.HSet(ctx, r.key(KeyMeta, ver), metaFields(result))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cannot exec pipe: %w", err)
	}

	return nil
}

func (r *catalogRepository) clearOldData(ctx context.Context, ver string) error {
	keys := make([]string, 0, len(ClearableKeys))
	for _, key := range ClearableKeys {
		keys = append(keys, r.key(key, ver))
	}

	count, err := r.cl.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("error deleting keys: %w", err)
	}

	r.log.Debug("Clear old data", slog.String("version", ver), slog.Int64("key_count", count))

	return nil
}

/*
getVersions return active and standby versions
*/
func (r *catalogRepository) getVersions(ctx context.Context) (string, string, error) {
	ver, err := r.cl.Get(ctx, r.key(KeyActiveVersion)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return KeyEmpty, KeyEmpty, fmt.Errorf("cannot get active version: %w", err)
	}

	if active, standby, ok := versions(ver); ok {
		return active, standby, nil
	}

	r.log.Info("Active version key is not found. Try to set new one", slog.String("version", KeyVersion1))

	if _, err = r.cl.Set(ctx, r.key(KeyActiveVersion), KeyVersion1, 0).Result(); err != nil {
		return KeyEmpty, KeyEmpty, fmt.Errorf("cannot set version key: %w", err)
	}

	return KeyVersion1, KeyVersion2, nil
}

func (r *catalogRepository) getActiveVersion() string {
	return r.ver.Load().(string)
}

func (r *catalogRepository) GetCatalog(ctx context.Context) (*entity.ScanResult, error) {
	ver := r.getActiveVersion()

	categories, err := r.cl.HGetAll(ctx, r.key(KeyCategories, ver)).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot get categories: %w", err)
	}

	meta, err := r.cl.HGetAll(ctx, r.key(KeyMeta, ver)).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot get catalog meta: %w", err)
	}

	if len(meta) == 0 {
		return nil, common.ErrCatalogNotFound
	}

	result := resultFromMeta(meta)
	result.Catalog = make(entity.Catalog, len(categories))
	for name, data := range categories {
		category, err := DecodeCategory([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("cannot decode category %s: %w", name, err)
		}
		result.Catalog[name] = category
	}

	return result, nil
}

func (r *catalogRepository) GetCategory(ctx context.Context, name string) (entity.Category, error) {
	data, err := r.cl.HGet(ctx, r.key(KeyCategories, r.getActiveVersion()), name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrCategoryNotFound
		}

		return nil, fmt.Errorf("cannot get category %s: %w", name, err)
	}

	return DecodeCategory(data)
}

func (r *catalogRepository) key(keys ...string) string {
	return getKey(append([]string{r.prefix}, keys...)...)
}

func versions(active string) (string, string, bool) {
	switch active {
	case KeyVersion1:
		return KeyVersion1, KeyVersion2, true
	case KeyVersion2:
		return KeyVersion2, KeyVersion1, true
	}

	return KeyEmpty, KeyEmpty, false
}

func EncodeCategory(c entity.Category) ([]byte, error) {
	data, err := msgpack.Marshal(c.Flatten())
	if err != nil {
		return nil, fmt.Errorf("cannot encode category: %w", err)
	}

	return data, nil
}

func DecodeCategory(data []byte) (entity.Category, error) {
	var flat map[string]map[string]*entity.Group
	if err := msgpack.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("cannot decode category: %w", err)
	}

	return entity.CategoryFromFlat(flat), nil
}

func metaFields(result *entity.ScanResult) map[string]any {
	stats := result.Catalog.Stats()

	return map[string]any{
		fieldRunID:        result.RunID,
		fieldStartedAt:    result.StartedAt.UTC().Format(time.RFC3339Nano),
		fieldDurationMS:   result.Duration.Milliseconds(),
		fieldCategories:   stats.Categories,
		fieldSubtypes:     stats.Subtypes,
		fieldGroups:       stats.Groups,
		fieldFiles:        stats.Files,
		fieldBranchErrors: len(result.BranchErrors),
	}
}

// resultFromMeta restores what a reader needs; branch errors themselves are
// not stored.
func resultFromMeta(meta map[string]string) *entity.ScanResult {
	result := &entity.ScanResult{RunID: meta[fieldRunID]}

	if t, err := time.Parse(time.RFC3339Nano, meta[fieldStartedAt]); err == nil {
		result.StartedAt = t
	}

	if ms, err := strconv.ParseInt(meta[fieldDurationMS], 10, 64); err == nil {
		result.Duration = time.Duration(ms) * time.Millisecond
	}

	return result
}

func getKey(keys ...string) string {
	return strings.Join(keys, KeySeparator)
}
