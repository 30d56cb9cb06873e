// Package report renders analysis results as a standalone HTML document.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the packaged report templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates once at startup.
func NewRenderer() (*Renderer, error) {
	templates, err := template.New("report").Funcs(template.FuncMap{
		"formatTime":   formatTime,
		"yesNo":        yesNo,
		"tierClass":    tierClass,
		"licenseLabel": licenseLabel,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse report templates: %w", err)
	}
	return &Renderer{templates: templates}, nil
}

// Render writes the HTML report for one analysis.
func (r *Renderer) Render(w io.Writer, report domain.AnalysisReport) error {
	if err := r.templates.ExecuteTemplate(w, "report.html", report); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func formatTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	}
	return ""
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func licenseLabel(required bool) string {
	if required {
		return "commercial"
	}
	return "free"
}

func tierClass(tier string) string {
	switch tier {
	case domain.AgeTierVeryOld:
		return "tier-very-old"
	case domain.AgeTierOld:
		return "tier-old"
	default:
		return "tier-ok"
	}
}
