// Package filesink writes the catalog JSON to a file.
package filesink

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jgivc/stlcatalog/internal/catalog"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/juju/fslock"
	"github.com/spf13/afero"
)

const (
	lockTimeout = 3 * time.Second
	lockSuffix  = ".lock"
	filePerm    = 0o644
)

type fileSink struct {
	fs   afero.Fs
	path string
	lock bool
	log  *slog.Logger
}

func NewFileSink(path string, lock bool, log *slog.Logger) *fileSink {
	return NewFileSinkWithFS(afero.NewOsFs(), path, lock, log)
}

// NewFileSinkWithFS writes through fs. The lock file, when enabled, is always
// taken on the native filesystem.
func NewFileSinkWithFS(fs afero.Fs, path string, lock bool, log *slog.Logger) *fileSink {
	return &fileSink{
		fs:   fs,
		path: path,
		lock: lock,
		log:  log.With(slog.String("item", "FileSink"), slog.String("path", path)),
	}
}

// Save replaces the file in one rename so readers see either the previous
// catalog or the new one.
func (s *fileSink) Save(_ context.Context, result *entity.ScanResult) error {
	data, err := catalog.Encode(result.Catalog)
	if err != nil {
		return err
	}

	if s.lock {
		lock := fslock.New(s.path + lockSuffix)
		if err := lock.LockWithTimeout(lockTimeout); err != nil {
			return fmt.Errorf("cannot lock %s: %w", s.path, err)
		}
		defer lock.Unlock()
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmp.Name())

		return fmt.Errorf("cannot write catalog: %w", err)
	}

	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmp.Name())

		return fmt.Errorf("cannot close temp file: %w", err)
	}

	if err := s.fs.Chmod(tmp.Name(), filePerm); err != nil {
		s.log.Debug("Cannot chmod temp file", slog.Any("error", err))
	}

	if err := s.fs.Rename(tmp.Name(), s.path); err != nil {
		s.fs.Remove(tmp.Name())

		return fmt.Errorf("cannot replace %s: %w", s.path, err)
	}

	s.log.Info("Catalog written", slog.Int("bytes", len(data)))

	return nil
}
