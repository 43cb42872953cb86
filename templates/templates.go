// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/rango-polls/slug"
)

//go:embed html
var files embed.FS

const layout = "html/base.html"

var funcs = template.FuncMap{
	"commas":      slug.Commas,
	"naturaltime": func(t time.Time) string { return humanize.Time(t) },
	"pathescape":  url.PathEscape,
}

// pages maps names like "rango/index.html" to their parsed template
var pages = mustParse()

func mustParse() map[string]*template.Template {
	set := make(map[string]*template.Template)

	err := fs.WalkDir(files, "html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == layout || !strings.HasSuffix(path, ".html") {
			return nil
		}

		tmpl, err := template.New("base").Funcs(funcs).ParseFS(files, layout, path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		set[strings.TrimPrefix(path, "html/")] = tmpl
		return nil
	})
	if err != nil {
		panic(err)
	}

	return set
}

// Render executes the named page into a buffer, then writes it with status.
// Nothing is written if execution fails.
func Render(w http.ResponseWriter, status int, name string, data any) error {
	tmpl, ok := pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write response", "template", name, "error", err)
	}
	return nil
}

// Names lists every renderable page
func Names() []string {
	names := make([]string, 0, len(pages))
	for name := range pages {
		names = append(names, name)
	}
	return names
}
