// Package mdadapter renders the catalog as an HTML report. The report is
// Markdown: an optional header file followed by a generated summary, where
// {{ category: Name }} directives expand into the groups of a category.
package mdadapter

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

const (
	defaultTitle = "STL catalog"
	filePerm     = 0o644
)

//go:embed templates/report.html
var defaultTemplateContent string

type Frontmatter struct {
	Title string `yaml:"title"`
}

type PageContext struct {
	Title     string
	Content   template.HTML
	RunID     string
	Generated string
}

type reporter struct {
	fs         afero.Fs
	path       string
	headerPath string
	tmpl       *template.Template
	md         goldmark.Markdown
	log        *slog.Logger
}

func NewReporter(cfg *config.OutputConfig, log *slog.Logger) (*reporter, error) {
	return NewReporterWithFS(afero.NewOsFs(), cfg.ReportFile, cfg.ReportHeader, log)
}

func NewReporterWithFS(fs afero.Fs, path, headerPath string, log *slog.Logger) (*reporter, error) {
	tmpl, err := template.New("").Parse(defaultTemplateContent)
	if err != nil {
		return nil, fmt.Errorf("cannot parse report template: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			&frontmatter.Extender{},
			NewCatalogExtension(tmpl),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	return &reporter{
		fs:         fs,
		path:       path,
		headerPath: headerPath,
		tmpl:       tmpl,
		md:         md,
		log:        log.With(slog.String("item", "Reporter")),
	}, nil
}

// Save writes the rendered report to the configured file.
func (r *reporter) Save(_ context.Context, result *entity.ScanResult) error {
	page, err := r.Render(result)
	if err != nil {
		return err
	}

	if err := r.fs.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("cannot create report dir: %w", err)
	}

	if err := afero.WriteFile(r.fs, r.path, page, filePerm); err != nil {
		return fmt.Errorf("cannot write report: %w", err)
	}

	r.log.Info("Report written", slog.String("path", r.path))

	return nil
}

func (r *reporter) Render(result *entity.ScanResult) ([]byte, error) {
	header, err := r.readHeader()
	if err != nil {
		return nil, err
	}

	src := bytes.Buffer{}
	if len(header) > 0 {
		src.Write(header)
		src.WriteString("\n\n")
	}
	src.WriteString(summaryMarkdown(result, !HasDirectives(header)))

	pc := parser.NewContext()
	pc.Set(CatalogKey, result.Catalog)

	var content bytes.Buffer
	if err := r.md.Convert(src.Bytes(), &content, parser.WithContext(pc)); err != nil {
		return nil, fmt.Errorf("cannot convert markdown: %w", err)
	}

	title := defaultTitle
	if fm := frontmatter.Get(pc); fm != nil {
		var meta Frontmatter
		if err := fm.Decode(&meta); err != nil {
			return nil, fmt.Errorf("cannot decode frontmatter: %w", err)
		}
		if meta.Title != "" {
			title = meta.Title
		}
	}

	page := bytes.Buffer{}
	if err := r.tmpl.Execute(&page, &PageContext{
		Title:     title,
		Content:   template.HTML(content.String()),
		RunID:     result.RunID,
		Generated: result.StartedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("cannot build page: %w", err)
	}

	return page.Bytes(), nil
}

func (r *reporter) readHeader() ([]byte, error) {
	if r.headerPath == "" {
		return nil, nil
	}

	data, err := afero.ReadFile(r.fs, r.headerPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read report header: %w", err)
	}

	return data, nil
}

func summaryMarkdown(result *entity.ScanResult, withCategories bool) string {
	stats := result.Catalog.Stats()

	b := strings.Builder{}
	b.WriteString("## Summary\n\n")
	b.WriteString("| | Count |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Categories | %d |\n", stats.Categories)
	fmt.Fprintf(&b, "| Subtypes | %d |\n", stats.Subtypes)
	fmt.Fprintf(&b, "| Groups | %d |\n", stats.Groups)
	fmt.Fprintf(&b, "| Files | %d |\n", stats.Files)
	fmt.Fprintf(&b, "| Skipped branches | %d |\n", len(result.BranchErrors))

	if len(result.BranchErrors) > 0 {
		b.WriteString("\n### Skipped branches\n\n")
		for _, be := range result.BranchErrors {
			fmt.Fprintf(&b, "- `%s`: %s\n", be.Path, be.Err)
		}
	}

	if !withCategories {
		return b.String()
	}

	for _, name := range result.Catalog.CategoryNames() {
		fmt.Fprintf(&b, "\n## %s\n\n{{ category: %s }}\n", name, name)
	}

	return b.String()
}
