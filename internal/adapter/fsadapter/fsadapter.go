package fsadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/jgivc/stlcatalog/internal/util"
	"github.com/spf13/afero"
)

type fsSource struct {
	fs  afero.Fs
	cfg *config.FSConfig
	log *slog.Logger
}

func NewFSSource(cfg *config.FSConfig, log *slog.Logger) (*fsSource, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("cannot open tree root: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("tree root is not a directory: %s", cfg.Root)
	}

	return NewFSSourceWithFS(afero.NewBasePathFs(afero.NewOsFs(), cfg.Root), cfg, log)
}

// NewFSSourceWithFS lists fs as if its root were the tree root.
func NewFSSourceWithFS(fs afero.Fs, cfg *config.FSConfig, log *slog.Logger) (*fsSource, error) {
	return &fsSource{
		fs:  fs,
		cfg: cfg,
		log: log.With(slog.String("item", "FSSource")),
	}, nil
}

func (s *fsSource) ListChildren(ctx context.Context, dirPath string) ([]entity.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirPath = util.NormalizePath(dirPath)
	if strings.Contains(dirPath, "..") {
		return nil, fmt.Errorf("invalid path %s: %w", dirPath, common.ErrDirectoryAbsent)
	}

	// afero.ReadDir returns entries sorted by name.
	infos, err := afero.ReadDir(s.fs, "/"+dirPath)
	if err != nil {
		return nil, s.mapError(dirPath, err)
	}

	entries := make([]entity.DirEntry, 0, len(infos))
	for _, info := range infos {
		entry := entity.DirEntry{
			Name:         info.Name(),
			Kind:         entity.KindFile,
			RelativePath: util.JoinPath(dirPath, info.Name()),
		}

		if info.IsDir() {
			entry.Kind = entity.KindDirectory
		} else {
			entry.ContentRef = s.contentRef(entry.RelativePath)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *fsSource) mapError(dirPath string, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("cannot read %s: %w: %w", dirPath, common.ErrDirectoryAbsent, err)
	default:
		s.log.Debug("Cannot read directory", slog.String("path", dirPath), slog.Any("error", err))

		return fmt.Errorf("cannot read %s: %w: %w", dirPath, common.ErrSourceUnavailable, err)
	}
}

// contentRef is the download URL when a base URL is configured, else the
// local path of the file.
func (s *fsSource) contentRef(relPath string) string {
	if s.cfg.BaseURL == "" {
		return filepath.Join(s.cfg.Root, filepath.FromSlash(relPath))
	}

	parts := strings.Split(relPath, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}

	return strings.TrimSuffix(s.cfg.BaseURL, "/") + "/" + strings.Join(parts, "/")
}
