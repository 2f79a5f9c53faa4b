package api

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// Views renders the embedded page templates.
type Views struct {
	templates *template.Template
}

var _ echo.Renderer = (*Views)(nil)

func NewViews() (*Views, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Views{templates: tmpl}, nil
}

func (v *Views) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return v.templates.ExecuteTemplate(w, name, data)
}
