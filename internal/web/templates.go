package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	return template.New("").ParseFS(templateFS, "templates/*.gohtml")
}
