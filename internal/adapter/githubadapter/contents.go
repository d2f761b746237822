package githubadapter

import (
	"context"
	"log/slog"
	"net/url"
	"sort"

	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/jgivc/stlcatalog/internal/util"
)

const (
	contentTypeDir  = "dir"
	contentTypeFile = "file"
)

type contentItem struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// contentsSource issues one contents API request per listed directory.
type contentsSource struct {
	c   *client
	log *slog.Logger
}

func NewContentsSource(cfg *config.SourceConfig, log *slog.Logger) *contentsSource {
	log = log.With(slog.String("item", "GitHubContentsSource"))

	return &contentsSource{
		c:   newClient(cfg, log),
		log: log,
	}
}

func (s *contentsSource) ListChildren(ctx context.Context, dirPath string) ([]entity.DirEntry, error) {
	dirPath = util.NormalizePath(dirPath)

	target := s.c.repoURL("contents")
	if dirPath != "" {
		target += "/" + escapePath(dirPath)
	}
	target += "?ref=" + url.QueryEscape(s.c.cfg.Branch)

	items, err := getAll[contentItem](ctx, s.c, target)
	if err != nil {
		return nil, err
	}

	entries := make([]entity.DirEntry, 0, len(items))
	for _, item := range items {
		entry := entity.DirEntry{
			Name:         item.Name,
			RelativePath: util.JoinPath(dirPath, item.Name),
		}

		switch item.Type {
		case contentTypeDir:
			entry.Kind = entity.KindDirectory
		case contentTypeFile:
			entry.Kind = entity.KindFile
			entry.ContentRef = item.DownloadURL
			if entry.ContentRef == "" {
				entry.ContentRef = s.c.rawURL(entry.RelativePath)
			}
		default:
			// Symlinks and submodules are not followed.
			continue
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, nil
}
