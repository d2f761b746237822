package mdadapter

import (
	"regexp"
	"strings"

	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// CatalogKey holds the entity.Catalog the directives are resolved against.
var CatalogKey = parser.NewContextKey()

var (
	directiveRegexp    = regexp.MustCompile(`^\{\{\s*category:\s*([^}]+?)\s*\}\}`)
	anyDirectiveRegexp = regexp.MustCompile(`\{\{\s*category:`)
)

type CategoryDirectiveParser struct{}

func NewCategoryDirectiveParser() parser.InlineParser {
	return &CategoryDirectiveParser{}
}

func (s *CategoryDirectiveParser) Trigger() []byte {
	return []byte{'{'}
}

func (s *CategoryDirectiveParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()

	matches := directiveRegexp.FindSubmatch(line)
	if matches == nil {
		return nil
	}
	block.Advance(len(matches[0]))

	node := &CategoryDirective{Name: strings.TrimSpace(string(matches[1]))}
	if c, ok := pc.Get(CatalogKey).(entity.Catalog); ok {
		node.Category = c[node.Name]
	}

	return node
}

// HasDirectives reports whether src places categories itself.
func HasDirectives(src []byte) bool {
	return anyDirectiveRegexp.Match(src)
}
