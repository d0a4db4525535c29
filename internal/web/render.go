// Package web provides HTML template rendering and HTTP handlers for
// the web UI.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates
var templateFS embed.FS

// Renderer manages HTML template rendering with custom functions. All
// templates are parsed at construction time from the embedded
// filesystem, so a rendering error at runtime means a bug, not a
// missing file.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

// NewRenderer parses all embedded templates. Each page template is
// combined with base.html and stored under its path relative to the
// templates directory (e.g. "auth/login.html", "notes/list.html").
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap:   createFuncMap(),
	}

	if err := r.parseTemplates(); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return r, nil
}

// Render executes the named template with the given data and writes
// the result to w with the given status code.
func (r *Renderer) Render(w http.ResponseWriter, status int, templateName string, data interface{}) error {
	tmpl, ok := r.templates[templateName]
	if !ok {
		return fmt.Errorf("template %q not found", templateName)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("failed to execute template %q: %w", templateName, err)
	}
	return nil
}

// RenderError renders an error page with the given HTTP status code
// and message.
func (r *Renderer) RenderError(w http.ResponseWriter, code int, message string) {
	tmpl, ok := r.templates["error.html"]
	if ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(code)
		data := map[string]interface{}{
			"Title":         http.StatusText(code),
			"Authenticated": false,
			"Error":         message,
			"ErrorCode":     http.StatusText(code),
		}
		if err := tmpl.ExecuteTemplate(w, "base", data); err == nil {
			return
		}
	}

	http.Error(w, fmt.Sprintf("Error %d: %s", code, message), code)
}

func (r *Renderer) parseTemplates() error {
	baseContent, err := templateFS.ReadFile("templates/base.html")
	if err != nil {
		return fmt.Errorf("failed to read base template: %w", err)
	}

	err = fs.WalkDir(templateFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") || path == "templates/base.html" {
			return nil
		}

		pageContent, err := templateFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}

		tmpl := template.New("base").Funcs(r.funcMap)
		tmpl, err = tmpl.Parse(string(baseContent))
		if err != nil {
			return fmt.Errorf("failed to parse base template for %s: %w", path, err)
		}
		tmpl, err = tmpl.Parse(string(pageContent))
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", path, err)
		}

		r.templates[strings.TrimPrefix(path, "templates/")] = tmpl
		return nil
	})
	if err != nil {
		return err
	}

	if len(r.templates) == 0 {
		return fmt.Errorf("no templates found")
	}
	return nil
}

func createFuncMap() template.FuncMap {
	return template.FuncMap{
		"formatTime": formatTime,
		"truncate":   truncate,
		"markdown":   renderMarkdown,
	}
}

// formatTime formats a time.Time as a human-readable date string.
// Example: "Jan 2, 2006"
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// truncate truncates a string to n characters, adding "..." if
// truncated.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// renderMarkdown converts markdown text to sanitized HTML. The result
// is safe to use in templates.
func renderMarkdown(s string) template.HTML {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(s))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	htmlContent := markdown.Render(doc, renderer)

	policy := bluemonday.UGCPolicy()
	return template.HTML(policy.SanitizeBytes(htmlContent))
}
