package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/jgivc/stlcatalog/internal/util"
)

const (
	levelCategory = iota
	levelSubtype
	levelStandard
)

type TreeSource interface {
	ListChildren(ctx context.Context, path string) ([]entity.DirEntry, error)
}

type Classifier struct {
	source TreeSource
	policy *policy
	cfg    *config.ClassifierConfig
	log    *slog.Logger
}

func New(source TreeSource, cfg *config.ClassifierConfig, log *slog.Logger) (*Classifier, error) {
	p, err := newPolicy(cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot build name policy: %w", err)
	}

	return &Classifier{
		source: source,
		policy: p,
		cfg:    cfg,
		log:    log.With(slog.String("item", "Classifier")),
	}, nil
}

// Excluded reports whether a directory is skipped by name policy.
func (c *Classifier) Excluded(entry entity.DirEntry) bool {
	return c.policy.isExcluded(entry)
}

// IsFatal reports whether err must abort the whole traversal instead of
// pruning a single branch.
func IsFatal(err error) bool {
	return errors.Is(err, common.ErrSourceFatal) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

/*
Classify walks the subtree of one category directory.

 1. Matching files of a directory become a Direct probe; its subdirectories are still explored.
 2. Category and subtype directories recurse into every non-excluded child.
 3. A standard directory (third level) looks one level ahead: a child named like a content
    folder alias is the terminal group; without one, every child that directly holds matching
    files is a terminal group. Terminal folders are never descended into.
 4. Nothing is listed once the depth budget (cfg.MaxDepth, counted from the category) is spent.

Listing failures prune the branch and are returned as branch errors; fatal failures abort.
*/
func (c *Classifier) Classify(ctx context.Context, category entity.DirEntry) (*Nested, []*entity.BranchError, error) {
	w := &walk{c: c}

	node, err := w.directory(ctx, category, levelCategory, c.cfg.MaxDepth)
	if err != nil {
		return nil, w.errs, err
	}

	if node == nil {
		node = &Nested{Name: category.Name, Path: category.RelativePath}
	}

	return node, w.errs, nil
}

type walk struct {
	c    *Classifier
	errs []*entity.BranchError
}

func (w *walk) directory(ctx context.Context, dir entity.DirEntry, level, budget int) (*Nested, error) {
	node := &Nested{Name: dir.Name, Path: dir.RelativePath}
	if budget <= 0 {
		return node, nil
	}

	files, dirs, err := w.list(ctx, dir.RelativePath)
	if err != nil {
		return nil, err
	}

	if files == nil && dirs == nil {
		return nil, nil
	}

	if len(files) > 0 {
		w.c.log.Debug("Found content", slog.String("path", dir.RelativePath), slog.Int("files", len(files)))
		node.Children = append(node.Children, &Direct{Path: dir.RelativePath, Files: files})
	}

	if level >= levelStandard {
		folders, err := w.contentFolders(ctx, dir.RelativePath, dirs, budget-1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, folders...)

		return node, nil
	}

	for _, child := range dirs {
		childNode, err := w.directory(ctx, child, level+1, budget-1)
		if err != nil {
			return nil, err
		}

		if childNode != nil {
			node.Children = append(node.Children, childNode)
		}
	}

	return node, nil
}

func (w *walk) contentFolders(ctx context.Context, standardPath string, dirs []entity.DirEntry, budget int) ([]Probe, error) {
	if budget <= 0 || len(dirs) == 0 {
		return nil, nil
	}

	for _, dir := range dirs {
		if !w.c.policy.isAlias(dir.Name) {
			continue
		}

		files, _, err := w.list(ctx, dir.RelativePath)
		if err != nil || len(files) == 0 {
			return nil, err
		}

		w.c.log.Debug("Found content folder", slog.String("path", dir.RelativePath), slog.Int("files", len(files)))

		return []Probe{&ContentFolder{Path: dir.RelativePath, AttributedTo: standardPath, Files: files}}, nil
	}

	var probes []Probe
	for _, dir := range dirs {
		files, _, err := w.list(ctx, dir.RelativePath)
		if err != nil {
			return nil, err
		}

		if len(files) > 0 {
			w.c.log.Debug("Found inferred content folder", slog.String("path", dir.RelativePath), slog.Int("files", len(files)))
			probes = append(probes, &ContentFolder{Path: dir.RelativePath, AttributedTo: standardPath, Inferred: true, Files: files})
		}
	}

	return probes, nil
}

// list splits a directory listing into content files and traversable
// directories. A non-fatal failure is recorded and yields two nil slices.
func (w *walk) list(ctx context.Context, dirPath string) ([]entity.ContentFile, []entity.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	entries, err := w.c.source.ListChildren(ctx, dirPath)
	if err != nil {
		if IsFatal(err) {
			return nil, nil, fmt.Errorf("cannot list %s: %w", dirPath, err)
		}

		w.c.log.Warn("Cannot list directory, branch skipped", slog.String("path", dirPath), slog.Any("error", err))
		w.errs = append(w.errs, &entity.BranchError{Path: dirPath, Err: err})

		return nil, nil, nil
	}

	files := []entity.ContentFile{}
	dirs := []entity.DirEntry{}
	for _, entry := range entries {
		if entry.RelativePath == "" {
			entry.RelativePath = util.JoinPath(dirPath, entry.Name)
		}

		switch {
		case entry.IsDir():
			if w.c.policy.isExcluded(entry) {
				w.c.log.Debug("Skip directory", slog.String("path", entry.RelativePath))

				continue
			}
			dirs = append(dirs, entry)
		case w.c.policy.isContent(entry.Name):
			files = append(files, entity.ContentFile{
				Name:       entry.Name,
				Path:       entry.RelativePath,
				ContentRef: entry.ContentRef,
			})
		}
	}

	return files, dirs, nil
}
