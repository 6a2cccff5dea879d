package textview

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/listview"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/source"
)

var (
	columns = []schema.Column{{Field: "invoice", Label: "Invoice"}, {Field: "amount"}}
	view    = listview.View{
		Rows: []source.Record{
			{"invoice": "INV-1", "amount": 10},
			{"invoice": " INV-2 ", "amount": 20},
		},
		TotalCount: 12,
		TotalPages: 6,
		StartIndex: 2,
		EndIndex:   4,
		Query:      listview.Query{Page: 2, PageSize: 2, SortField: "amount", SortDirection: listview.Descending},
	}
)

func TestRenderStringDefaultTemplate(t *testing.T) {
	engine, err := New("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, engine.RenderString(&buf, DefaultTemplate, columns, view))
	require.Equal(t, "INV-1\t10\nINV-2\t20\n", buf.String())
}

func TestRenderStringPagingContext(t *testing.T) {
	engine, err := New("")
	require.NoError(t, err)

	var buf bytes.Buffer
	tpl := `{{ start }}-{{ end }} of {{ total }} by {{ sort }} {{ direction }}{% for c in columns %} {{ c.label }}{% endfor %}`
	require.NoError(t, engine.RenderString(&buf, tpl, columns, view))
	require.Equal(t, "3-4 of 12 by amount desc Invoice amount", buf.String())
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rows.tpl"), []byte(`{% for row in rows %}[{{ row.record.invoice|trim }}]{% endfor %}`), 0o600))

	engine, err := New(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, engine.RenderFile(&buf, "rows.tpl", columns, view))
	require.Equal(t, "[INV-1][INV-2]", buf.String())
}

func TestRenderErrors(t *testing.T) {
	engine, err := New("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.Error(t, engine.RenderString(&buf, `{% for %}`, columns, view))
	require.Error(t, engine.RenderFile(&buf, filepath.Join(t.TempDir(), "missing.tpl"), columns, view))

	var nilEngine *Engine
	require.Error(t, nilEngine.RenderString(&buf, DefaultTemplate, columns, view))
}

func TestContextEmptyView(t *testing.T) {
	ctx := Context(columns, listview.View{})
	require.Equal(t, 0, ctx["start"])
	require.Empty(t, ctx["rows"])
}
