package mdadapter

import (
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// CatalogExtension adds {{ category: Name }} directives.
type CatalogExtension struct {
	tmpl *template.Template
}

func NewCatalogExtension(tmpl *template.Template) goldmark.Extender {
	return &CatalogExtension{tmpl: tmpl}
}

func (e *CatalogExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(NewCategoryDirectiveParser(), 500),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(NewCategoryDirectiveRenderer(e.tmpl), 500),
		),
	)
}
