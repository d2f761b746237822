// Package catalog folds classifier probes into the three level catalog.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jgivc/stlcatalog/internal/classifier"
	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
)

type DuplicatePolicy int

const (
	// Overwrite keeps the files of the last group placed under a key.
	Overwrite DuplicatePolicy = iota
	// Merge appends later files to the first group placed under a key.
	Merge
)

func (p DuplicatePolicy) String() string {
	return [...]string{config.DuplicateOverwrite, config.DuplicateMerge}[p]
}

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case config.DuplicateOverwrite, "":
		return Overwrite, nil
	case config.DuplicateMerge:
		return Merge, nil
	}

	return Overwrite, fmt.Errorf("unknown duplicate policy: %s", s)
}

// Placement is one group ready to be stored under category, subtype and group key.
type Placement struct {
	Category string
	Subtype  entity.Key
	Key      entity.Key
	Path     string
	Files    []entity.ContentFile
}

// Assembler accumulates placements into a catalog. It is not safe for
// concurrent use; give each goroutine its own and Combine the results.
type Assembler struct {
	policy     DuplicatePolicy
	catalog    entity.Catalog
	errs       []*entity.BranchError
	replaced   int
	placements int
}

func NewAssembler(policy DuplicatePolicy) *Assembler {
	return &Assembler{
		policy:  policy,
		catalog: make(entity.Catalog),
	}
}

// AddCategory places every group found under one category directory.
// Files directly under the category go to catalog[category]["_root"]["_root"],
// one level deeper than the flat catalog[category]["_root"] some older catalog
// generators wrote, so every category keeps the subtype/group shape.
func (a *Assembler) AddCategory(category *classifier.Nested) {
	for _, probe := range category.Children {
		switch p := probe.(type) {
		case *classifier.Direct:
			a.Add(Placement{Category: category.Name, Subtype: entity.RootKey(), Key: entity.RootKey(), Path: p.Path, Files: p.Files})
		case *classifier.ContentFolder:
			a.Add(Placement{Category: category.Name, Subtype: entity.RootKey(), Key: entity.RootKey(), Path: p.Path, Files: p.Files})
		case *classifier.Nested:
			if !a.checkName(p) {
				continue
			}
			a.addSubtype(category.Name, p)
		}
	}
}

func (a *Assembler) addSubtype(category string, subtype *classifier.Nested) {
	subtypeKey := entity.RealKey(subtype.Name)

	for _, probe := range subtype.Children {
		switch p := probe.(type) {
		case *classifier.Direct:
			a.Add(Placement{Category: category, Subtype: subtypeKey, Key: entity.DefaultKey(), Path: p.Path, Files: p.Files})
		case *classifier.ContentFolder:
			a.Add(Placement{Category: category, Subtype: subtypeKey, Key: entity.DefaultKey(), Path: p.Path, Files: p.Files})
		case *classifier.Nested:
			if !a.checkName(p) {
				continue
			}
			a.addStandard(category, subtypeKey, p)
		}
	}
}

func (a *Assembler) addStandard(category string, subtypeKey entity.Key, standard *classifier.Nested) {
	key := entity.RealKey(standard.Name)

	for _, probe := range standard.Children {
		switch p := probe.(type) {
		case *classifier.Direct:
			a.Add(Placement{Category: category, Subtype: subtypeKey, Key: key, Path: p.Path, Files: p.Files})
		case *classifier.ContentFolder:
			a.Add(Placement{Category: category, Subtype: subtypeKey, Key: key, Path: p.Path, Files: p.Files})
		case *classifier.Nested:
			// The classifier never nests below a standard.
		}
	}
}

func (a *Assembler) checkName(n *classifier.Nested) bool {
	if entity.IsReservedName(n.Name) {
		a.errs = append(a.errs, &entity.BranchError{Path: n.Path, Err: common.ErrReservedName})

		return false
	}

	return true
}

// Add stores one placement. Empty placements are dropped.
func (a *Assembler) Add(p Placement) {
	if len(p.Files) == 0 {
		return
	}

	a.placements++

	category, ok := a.catalog[p.Category]
	if !ok {
		category = make(entity.Category)
		a.catalog[p.Category] = category
	}

	subtype, ok := category[p.Subtype]
	if !ok {
		subtype = make(entity.Subtype)
		category[p.Subtype] = subtype
	}

	files := make([]entity.ContentFile, len(p.Files))
	copy(files, p.Files)

	if a.put(subtype, p.Key, &entity.Group{Files: files, Path: p.Path}) {
		a.replaced++
	}
}

// put stores group under key following the duplicate policy and reports
// whether a previous group was already there.
func (a *Assembler) put(subtype entity.Subtype, key entity.Key, group *entity.Group) bool {
	existing, ok := subtype[key]
	if !ok {
		subtype[key] = group

		return false
	}

	switch a.policy {
	case Merge:
		existing.Files = append(existing.Files, group.Files...)
	default:
		subtype[key] = group
	}

	return true
}

func (a *Assembler) Catalog() entity.Catalog {
	return a.catalog
}

// Errors returns directories that could not be placed.
func (a *Assembler) Errors() []*entity.BranchError {
	return a.errs
}

// Replaced counts placements that landed on an occupied key.
func (a *Assembler) Replaced() int {
	return a.replaced
}

func (a *Assembler) Placements() int {
	return a.placements
}

// Combine folds partial catalogs in the given order with the given policy.
// Callers order partials by category name so the result does not depend on
// which partial finished first.
func Combine(policy DuplicatePolicy, partials ...entity.Catalog) entity.Catalog {
	a := NewAssembler(policy)

	for _, partial := range partials {
		for _, categoryName := range partial.CategoryNames() {
			category := partial[categoryName]
			for _, subtypeKey := range entity.SortedKeys(category) {
				subtype := category[subtypeKey]
				for _, key := range entity.SortedKeys(subtype) {
					group := subtype[key]
					a.Add(Placement{Category: categoryName, Subtype: subtypeKey, Key: key, Path: group.Path, Files: group.Files})
				}
			}
		}
	}

	return a.catalog
}

// Encode renders the catalog as indented JSON. Keys are sorted so the same
// catalog always encodes to the same bytes.
func Encode(c entity.Catalog) ([]byte, error) {
	if c == nil {
		c = entity.Catalog{}
	}

	return encode(c)
}

func EncodeCategory(c entity.Category) ([]byte, error) {
	if c == nil {
		c = entity.Category{}
	}

	return encode(c)
}

func encode(v any) ([]byte, error) {
	buf := bytes.Buffer{}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("cannot encode catalog: %w", err)
	}

	return buf.Bytes(), nil
}

func Decode(data []byte) (entity.Catalog, error) {
	var c entity.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("cannot decode catalog: %w", err)
	}

	return c, nil
}
