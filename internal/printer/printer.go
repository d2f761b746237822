// Package printer renders a catalog summary for the console.
package printer

import (
	"fmt"
	"io"

	"github.com/ddddddO/gtree"
	"github.com/jgivc/stlcatalog/internal/entity"
)

// PrintTree writes category, subtype and group labels as a tree with the
// number of files below each node.
func PrintTree(w io.Writer, title string, c entity.Catalog) error {
	root := gtree.NewRoot(title)

	for _, name := range c.CategoryNames() {
		category := c[name]
		node := root.Add(fmt.Sprintf("%s (%s)", name, filesLabel(countCategory(category))))

		for _, subtypeKey := range entity.SortedKeys(category) {
			subtype := category[subtypeKey]
			subtypeNode := node.Add(fmt.Sprintf("%s (%s)", subtypeKey.Label(), filesLabel(countSubtype(subtype))))

			for _, key := range entity.SortedKeys(subtype) {
				group := subtype[key]
				subtypeNode.Add(fmt.Sprintf("%s (%s) %s", key.Label(), filesLabel(len(group.Files)), group.Path))
			}
		}
	}

	if err := gtree.OutputFromRoot(w, root); err != nil {
		return fmt.Errorf("cannot print tree: %w", err)
	}

	return nil
}

func PrintSummary(w io.Writer, result *entity.ScanResult) {
	stats := result.Catalog.Stats()

	fmt.Fprintf(w, "Categories: %d\nSubtypes: %d\nGroups: %d\nFiles: %d\n",
		stats.Categories, stats.Subtypes, stats.Groups, stats.Files)

	if len(result.BranchErrors) == 0 {
		return
	}

	fmt.Fprintf(w, "Skipped branches: %d\n", len(result.BranchErrors))
	for _, be := range result.BranchErrors {
		fmt.Fprintf(w, "  %s: %s\n", be.Path, be.Err)
	}
}

func filesLabel(n int) string {
	if n == 1 {
		return "1 file"
	}

	return fmt.Sprintf("%d files", n)
}

func countCategory(c entity.Category) int {
	n := 0
	for _, subtype := range c {
		n += countSubtype(subtype)
	}

	return n
}

func countSubtype(s entity.Subtype) int {
	n := 0
	for _, group := range s {
		n += len(group.Files)
	}

	return n
}
