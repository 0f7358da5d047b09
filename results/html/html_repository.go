// Package html renders the Markdown report to a standalone HTML page. The
// converted markup is sanitized before it is embedded.
package html

import (
	"bytes"
	"html/template"
	"os"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"

	"github.com/pathprobe/pathprobe/pkg/errors"
	"github.com/pathprobe/pathprobe/results"
	"github.com/pathprobe/pathprobe/results/markdown"
)

const componentName = "results/html"

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; color: #24292f; }
table { border-collapse: collapse; }
th, td { border: 1px solid #d0d7de; padding: 0.4rem 0.8rem; }
code { background: #f6f8fa; padding: 0.1rem 0.3rem; border-radius: 4px; }
h1, h2 { border-bottom: 1px solid #d0d7de; padding-bottom: 0.3rem; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`

// Repository writes the HTML report to a single file.
type Repository struct {
	outputPath string
	title      string
}

// Option configures a Repository.
type Option func(*Repository)

// WithTitle overrides the page title.
func WithTitle(title string) Option {
	return func(r *Repository) {
		r.title = title
	}
}

// NewRepository creates an HTML repository writing to outputPath.
func NewRepository(outputPath string, opts ...Option) *Repository {
	r := &Repository{outputPath: outputPath, title: "Pathway Regression Report"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save renders the run's Markdown report to sanitized HTML and writes it.
func (r *Repository) Save(run *results.Run) error {
	extensions := blackfriday.CommonExtensions | blackfriday.HardLineBreak
	rendered := blackfriday.Run([]byte(markdown.Render(run)), blackfriday.WithExtensions(extensions))
	sanitized := bluemonday.UGCPolicy().SanitizeBytes(rendered)

	tmpl, err := template.New("report").Parse(pageTemplate)
	if err != nil {
		return errors.New(componentName, "Save", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{
		Title: r.title,
		Body:  template.HTML(sanitized),
	})
	if err != nil {
		return errors.New(componentName, "Save", err)
	}

	if err := os.WriteFile(r.outputPath, buf.Bytes(), 0o644); err != nil {
		return errors.New(componentName, "Save", err).
			WithDetails(map[string]any{"path": r.outputPath})
	}
	return nil
}
