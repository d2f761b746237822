package githubadapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"

	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/jgivc/stlcatalog/internal/util"
)

const (
	treeTypeBlob = "blob"
	treeTypeTree = "tree"
)

type treeItem struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

type treeResponse struct {
	SHA       string     `json:"sha"`
	Tree      []treeItem `json:"tree"`
	Truncated bool       `json:"truncated"`
}

// treeSource fetches the whole repository tree in one request and answers
// listings from it. Listing the root fetches a fresh tree.
type treeSource struct {
	c   *client
	log *slog.Logger

	mu    sync.RWMutex
	index map[string][]entity.DirEntry
}

func NewTreeSource(cfg *config.SourceConfig, log *slog.Logger) *treeSource {
	log = log.With(slog.String("item", "GitHubTreeSource"))

	return &treeSource{
		c:   newClient(cfg, log),
		log: log,
	}
}

func (s *treeSource) ListChildren(ctx context.Context, dirPath string) ([]entity.DirEntry, error) {
	dirPath = util.NormalizePath(dirPath)

	index, err := s.getIndex(ctx, dirPath == "")
	if err != nil {
		return nil, err
	}

	children, ok := index[dirPath]
	if !ok {
		return nil, fmt.Errorf("%s is not a directory of the tree: %w", dirPath, common.ErrDirectoryAbsent)
	}

	out := make([]entity.DirEntry, len(children))
	copy(out, children)

	return out, nil
}

func (s *treeSource) getIndex(ctx context.Context, refresh bool) (map[string][]entity.DirEntry, error) {
	s.mu.RLock()
	index := s.index
	s.mu.RUnlock()

	if index != nil && !refresh {
		return index, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil && !refresh {
		return s.index, nil
	}

	index, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.index = index

	return index, nil
}

func (s *treeSource) fetch(ctx context.Context) (map[string][]entity.DirEntry, error) {
	target := s.c.repoURL("git", "trees", url.PathEscape(s.c.cfg.Branch)) + "?recursive=1"

	var resp treeResponse
	if _, err := s.c.getJSON(ctx, target, &resp); err != nil {
		return nil, err
	}

	if resp.Truncated {
		s.log.Warn("Tree listing is truncated, some directories will be missing", slog.String("sha", resp.SHA))
	}

	index := map[string][]entity.DirEntry{"": {}}
	for _, item := range resp.Tree {
		p := util.NormalizePath(item.Path)
		entry := entity.DirEntry{
			Name:         util.BaseName(p),
			RelativePath: p,
		}

		switch item.Type {
		case treeTypeTree:
			entry.Kind = entity.KindDirectory
			if _, ok := index[p]; !ok {
				index[p] = []entity.DirEntry{}
			}
		case treeTypeBlob:
			entry.Kind = entity.KindFile
			entry.ContentRef = s.c.rawURL(p)
		default:
			continue
		}

		parent := parentPath(p)
		index[parent] = append(index[parent], entry)
	}

	for _, children := range index {
		sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	}

	s.log.Debug("Tree fetched", slog.String("sha", resp.SHA), slog.Int("entries", len(resp.Tree)))

	return index, nil
}

func parentPath(p string) string {
	name := util.BaseName(p)
	if len(name) == len(p) {
		return ""
	}

	return p[:len(p)-len(name)-1]
}
