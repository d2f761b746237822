package classifier

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
)

// policy holds the name rules: which files are content, which directories are
// content-folder aliases and which directories are never entered.
type policy struct {
	extensions   map[string]struct{}
	aliases      []string
	excludeNames map[string]struct{}
	patterns     []string
	skipHidden   bool
}

func newPolicy(cfg *config.ClassifierConfig) (*policy, error) {
	p := &policy{
		extensions:   make(map[string]struct{}, len(cfg.Extensions)),
		excludeNames: make(map[string]struct{}, len(cfg.ExcludeNames)),
		skipHidden:   cfg.HiddenSkipped(),
	}

	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.extensions[ext] = struct{}{}
	}

	if len(p.extensions) == 0 {
		return nil, fmt.Errorf("no content extensions configured")
	}

	for _, alias := range cfg.ContentFolderAliases {
		if alias = strings.TrimSpace(alias); alias != "" {
			p.aliases = append(p.aliases, alias)
		}
	}

	for _, name := range cfg.ExcludeNames {
		p.excludeNames[name] = struct{}{}
	}

	for _, pattern := range cfg.ExcludePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
		p.patterns = append(p.patterns, pattern)
	}

	return p, nil
}

func (p *policy) isContent(name string) bool {
	if p.skipHidden && strings.HasPrefix(name, ".") {
		return false
	}

	_, ok := p.extensions[strings.ToLower(path.Ext(name))]

	return ok
}

func (p *policy) isAlias(name string) bool {
	for _, alias := range p.aliases {
		if strings.EqualFold(alias, name) {
			return true
		}
	}

	return false
}

func (p *policy) isExcluded(entry entity.DirEntry) bool {
	if p.skipHidden && strings.HasPrefix(entry.Name, ".") {
		return true
	}

	if _, exists := p.excludeNames[entry.Name]; exists {
		return true
	}

	for _, pattern := range p.patterns {
		if ok, _ := doublestar.Match(pattern, entry.RelativePath); ok {
			return true
		}
	}

	return false
}
