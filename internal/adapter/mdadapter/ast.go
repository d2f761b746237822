package mdadapter

import (
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/yuin/goldmark/ast"
)

var KindCategoryDirective = ast.NewNodeKind("CategoryDirective")

// CategoryDirective is an inline {{ category: Name }} placeholder. Category
// is nil when the catalog has no such category.
type CategoryDirective struct {
	ast.BaseInline
	Name     string
	Category entity.Category
}

func (n *CategoryDirective) Kind() ast.NodeKind {
	return KindCategoryDirective
}

func (n *CategoryDirective) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Name": n.Name,
	}, nil)
}
