// Package web holds the embedded page templates, the guide and the static
// assets served next to them.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/russross/blackfriday/v2"

	"hydration-user-service/internal/querycache"
)

// StateElementID is the id of the script element carrying the dehydrated query state.
const StateElementID = "__QUERY_STATE__"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

//go:embed guide.md
var guideSource []byte

var (
	guideOnce sync.Once
	guideHTML template.HTML
)

// Templates parses every page template.
func Templates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatDate": formatDate,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// Static returns the file system mounted under /static.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Guide returns the rendered data-fetching guide.
func Guide() template.HTML {
	guideOnce.Do(func() {
		// The guide is trusted, embedded content.
		guideHTML = template.HTML(blackfriday.Run(guideSource))
	})
	return guideHTML
}

// StateScript serializes the dehydrated state of qc for the state script element.
func StateScript(qc *querycache.Client) (template.JS, error) {
	data, err := qc.MarshalDehydrated()
	if err != nil {
		return "", fmt.Errorf("failed to dehydrate query state: %w", err)
	}
	// encoding/json escapes <, >, &, U+2028 and U+2029, which keeps the
	// payload inert inside a script element.
	return template.JS(data), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
