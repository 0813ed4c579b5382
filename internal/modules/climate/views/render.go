package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
)

var pageTmpl *template.Template

// loadTemplatesFromFS loads page templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	pageTmpl, err = template.ParseFS(sub, "*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// SummaryData is the view model for a temperature summary. Temperatures
// are preformatted; Start and End come from the request path and are
// escaped on output.
type SummaryData struct {
	Start string
	End   string
	Min   string
	Avg   string
	Max   string
}

var errNotLoaded = errors.New("templates not loaded: call views.LoadTemplates during startup")

// RenderHome writes the route listing.
func RenderHome(w io.Writer) error {
	if pageTmpl == nil {
		return errNotLoaded
	}
	return pageTmpl.ExecuteTemplate(w, "home", nil)
}

// RenderSummary writes the three-line min/max/avg text for a date range.
func RenderSummary(w io.Writer, data SummaryData) error {
	if pageTmpl == nil {
		return errNotLoaded
	}
	return pageTmpl.ExecuteTemplate(w, "summary", data)
}
