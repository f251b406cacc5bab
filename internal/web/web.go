// Package web holds the HTML templates of the server-rendered pages.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"property-manager/internal/common"
)

//go:embed templates/*.html
var files embed.FS

// Funcs are available to every template
var Funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(common.DateLayout)
	},
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"label": func(v interface{}) string { return strings.ReplaceAll(fmt.Sprint(v), "_", " ") },
}

// Templates parses every page template
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(files, "templates/*.html")
}
