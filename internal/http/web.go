package http

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"
	"unicode"
	"unicode/utf8"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// loadTemplates parsea las plantillas embebidas.
func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"initial": initial,
	}).ParseFS(templateFS, "templates/*.html")
}

func staticFiles() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}

// initial devuelve la letra del avatar: nombre, luego email, luego "U".
func initial(name, email string) string {
	for _, s := range []string{name, email} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(s)
		return string(unicode.ToUpper(r))
	}
	return "U"
}
