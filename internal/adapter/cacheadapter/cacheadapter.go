// Package cacheadapter keeps recent directory listings of a tree source in
// memory so repeated builds do not hit a remote source for every directory.
package cacheadapter

import (
	"context"
	"log/slog"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jgivc/stlcatalog/internal/classifier"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/jgivc/stlcatalog/internal/util"
)

// cachedSource caches successful listings. The root is always listed from
// the wrapped source so every build sees the current set of categories.
type cachedSource struct {
	next  classifier.TreeSource
	cache *expirable.LRU[string, []entity.DirEntry]
	log   *slog.Logger
}

func New(next classifier.TreeSource, cfg *config.CacheConfig, log *slog.Logger) *cachedSource {
	return &cachedSource{
		next:  next,
		cache: expirable.NewLRU[string, []entity.DirEntry](cfg.Size, nil, cfg.TTL),
		log:   log.With(slog.String("item", "CachedSource")),
	}
}

func (s *cachedSource) ListChildren(ctx context.Context, dirPath string) ([]entity.DirEntry, error) {
	dirPath = util.NormalizePath(dirPath)

	if dirPath != "" {
		if entries, ok := s.cache.Get(dirPath); ok {
			return clone(entries), nil
		}
	}

	entries, err := s.next.ListChildren(ctx, dirPath)
	if err != nil {
		return nil, err
	}

	if dirPath != "" {
		s.cache.Add(dirPath, clone(entries))
		s.log.Debug("Listing cached", slog.String("path", dirPath), slog.Int("entries", len(entries)))
	}

	return entries, nil
}

func clone(entries []entity.DirEntry) []entity.DirEntry {
	out := make([]entity.DirEntry, len(entries))
	copy(out, entries)

	return out
}
