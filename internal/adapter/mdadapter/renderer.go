package mdadapter

import (
	"fmt"
	"html/template"

	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

const (
	templateNameCategory = "CATEGORY"
	templateNameMissing  = "MISSING"
)

type groupView struct {
	Label string
	Path  string
	Files []fileView
}

type fileView struct {
	Name string
	URL  string
}

type subtypeView struct {
	Label  string
	Groups []groupView
}

type categoryView struct {
	Name     string
	Subtypes []subtypeView
}

// CategoryDirectiveRenderer renders a directive through the CATEGORY template.
type CategoryDirectiveRenderer struct {
	tmpl *template.Template
}

func NewCategoryDirectiveRenderer(tmpl *template.Template) renderer.NodeRenderer {
	return &CategoryDirectiveRenderer{tmpl: tmpl}
}

func (r *CategoryDirectiveRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindCategoryDirective, r.renderCategoryDirective)
}

func (r *CategoryDirectiveRenderer) renderCategoryDirective(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	directive := n.(*CategoryDirective)

	name, data := templateNameCategory, any(newCategoryView(directive.Name, directive.Category))
	if directive.Category == nil {
		name, data = templateNameMissing, directive.Name
	}

	tt := r.tmpl.Lookup(name)
	if tt == nil {
		return ast.WalkStop, fmt.Errorf("template %s must be defined", name)
	}

	if err := tt.Execute(w, data); err != nil {
		return ast.WalkStop, fmt.Errorf("cannot execute template %s: %w", name, err)
	}

	return ast.WalkContinue, nil
}

func newCategoryView(name string, c entity.Category) categoryView {
	view := categoryView{Name: name}

	for _, subtypeKey := range entity.SortedKeys(c) {
		subtype := c[subtypeKey]
		sv := subtypeView{Label: subtypeKey.Label()}

		for _, key := range entity.SortedKeys(subtype) {
			group := subtype[key]
			gv := groupView{Label: key.Label(), Path: group.Path}
			for _, f := range group.Files {
				url := f.ContentRef
				if url == "" {
					url = f.Path
				}
				gv.Files = append(gv.Files, fileView{Name: f.Name, URL: url})
			}
			sv.Groups = append(sv.Groups, gv)
		}

		view.Subtypes = append(view.Subtypes, sv)
	}

	return view
}
