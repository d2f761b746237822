package entity

import (
	"sort"
	"time"
)

type (
	// Catalog maps category name to its subtypes.
	Catalog map[string]Category
	// Category maps a subtype key to its groups.
	Category map[Key]Subtype
	// Subtype maps a group key to the group.
	Subtype map[Key]*Group
)

type Stats struct {
	Categories int `json:"categories"`
	Subtypes   int `json:"subtypes"`
	Groups     int `json:"groups"`
	Files      int `json:"files"`
}

func (c Catalog) Stats() Stats {
	var s Stats
	for _, category := range c {
		s.Categories++
		for _, subtype := range category {
			s.Subtypes++
			for _, group := range subtype {
				s.Groups++
				s.Files += len(group.Files)
			}
		}
	}

	return s
}

func (c Catalog) CategoryNames() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// SortedKeys orders keys the way they appear once encoded.
func SortedKeys[V any](m map[Key]V) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	return keys
}

// Flatten converts a category into string-keyed maps for encoders that do
// not understand Key.
func (c Category) Flatten() map[string]map[string]*Group {
	out := make(map[string]map[string]*Group, len(c))
	for sk, subtype := range c {
		groups := make(map[string]*Group, len(subtype))
		for gk, group := range subtype {
			groups[gk.String()] = group
		}
		out[sk.String()] = groups
	}

	return out
}

func CategoryFromFlat(flat map[string]map[string]*Group) Category {
	c := make(Category, len(flat))
	for sk, groups := range flat {
		subtype := make(Subtype, len(groups))
		for gk, group := range groups {
			subtype[ParseKey(gk)] = group
		}
		c[ParseKey(sk)] = subtype
	}

	return c
}

// BranchError is a listing failure that pruned one branch of the tree.
type BranchError struct {
	Path string
	Err  error
}

func (e *BranchError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *BranchError) Unwrap() error {
	return e.Err
}

// ScanResult is the outcome of one traversal of the tree.
type ScanResult struct {
	RunID        string
	Catalog      Catalog
	BranchErrors []*BranchError
	StartedAt    time.Time
	Duration     time.Duration
}
