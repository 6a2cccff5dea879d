// Package textview renders list views through pongo2 templates for the CLI.
package textview

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-formflow/pkg/listview"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// DefaultTemplate prints one tab separated line per row.
const DefaultTemplate = `{% for row in rows %}{% for cell in row.cells %}{{ cell|trim }}{% if not forloop.Last %}	{% endif %}{% endfor %}
{% endfor %}`

var registerFilters sync.Once

// Engine compiles and executes list templates.
type Engine struct {
	mu  sync.Mutex
	set *pongo2.TemplateSet
}

// New constructs an Engine. Relative template paths resolve against baseDir,
// or the working directory when baseDir is empty.
func New(baseDir string) (*Engine, error) {
	if strings.TrimSpace(baseDir) == "" {
		baseDir = "."
	}
	loader, err := pongo2.NewLocalFileSystemLoader(baseDir)
	if err != nil {
		return nil, fmt.Errorf("textview: create local loader: %w", err)
	}
	registerFilters.Do(registerDefaultFilters)
	return &Engine{set: pongo2.NewSet("formflow", loader)}, nil
}

// RenderFile renders view with the template at path.
func (e *Engine) RenderFile(w io.Writer, path string, columns []schema.Column, view listview.View) error {
	if e == nil || e.set == nil {
		return errors.New("textview: engine is nil")
	}
	e.mu.Lock()
	tmpl, err := e.set.FromFile(path)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("textview: load template %q: %w", path, err)
	}
	return execute(w, tmpl, columns, view)
}

// RenderString renders view with an inline template.
func (e *Engine) RenderString(w io.Writer, content string, columns []schema.Column, view listview.View) error {
	if e == nil || e.set == nil {
		return errors.New("textview: engine is nil")
	}
	e.mu.Lock()
	tmpl, err := e.set.FromString(content)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("textview: parse template: %w", err)
	}
	return execute(w, tmpl, columns, view)
}

func execute(w io.Writer, tmpl *pongo2.Template, columns []schema.Column, view listview.View) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(Context(columns, view), &buf); err != nil {
		return fmt.Errorf("textview: execute template: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Context exposes a view to templates as:
//
//	columns  [{field, label}]
//	rows     [{record, cells}]   cells follow column order
//	total, page, pages, start, end, search, sort, direction
func Context(columns []schema.Column, view listview.View) pongo2.Context {
	cols := make([]map[string]any, 0, len(columns))
	for _, col := range columns {
		label := col.Label
		if label == "" {
			label = col.Field
		}
		cols = append(cols, map[string]any{"field": col.Field, "label": label})
	}
	rows := make([]map[string]any, 0, len(view.Rows))
	for _, rec := range view.Rows {
		cells := make([]string, 0, len(columns))
		for _, col := range columns {
			cells = append(cells, rec.String(col.Field))
		}
		rows = append(rows, map[string]any{"record": map[string]any(rec), "cells": cells})
	}
	start := 0
	if view.TotalCount > 0 {
		start = view.StartIndex + 1
	}
	return pongo2.Context{
		"columns":   cols,
		"rows":      rows,
		"total":     view.TotalCount,
		"page":      view.Query.Page,
		"pages":     view.TotalPages,
		"start":     start,
		"end":       view.EndIndex,
		"search":    view.Query.SearchTerm,
		"sort":      view.Query.SortField,
		"direction": string(view.Query.SortDirection),
	}
}

// Output is plain text, so HTML autoescaping is turned off for the process.
func registerDefaultFilters() {
	pongo2.SetAutoescape(false)
	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", filterTrim)
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}
