package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/internal/textview"
	"github.com/goliatone/go-formflow/pkg/listview"
	"github.com/goliatone/go-formflow/pkg/schema"
)

type listOptions struct {
	Search   string
	Sort     []string
	Page     int
	PageSize int
	Template string
	TSV      bool
}

func newListCmd(root *rootOptions) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list <screen>",
		Short: "Search, sort and page the records of a screen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.HTTPTimeout+a.cfg.OptionRetryDelay)
			defer cancel()

			store, closeStore, err := root.openStore(ctx, a)
			if err != nil {
				return err
			}
			defer closeStore()

			rt, err := formflow.New(a.catalog, store, formflow.FromConfig(a.cfg), formflow.WithLogger(a.logger))
			if err != nil {
				return err
			}
			screen, err := rt.ListScreen(args[0])
			if err != nil {
				return err
			}
			if err := screen.Refresh(ctx); err != nil {
				return err
			}

			engine := screen.Engine()
			engine.SetSearchTerm(opts.Search)
			// Each --sort toggles like a header click: the same field twice
			// flips the direction.
			for _, field := range opts.Sort {
				engine.SetSort(field)
			}
			if opts.PageSize > 0 {
				engine.SetPageSize(opts.PageSize)
			}
			screen.View()
			if opts.Page > 1 && !engine.SetPage(opts.Page) {
				return fmt.Errorf("page %d is out of range", opts.Page)
			}

			s, _ := a.catalog.Screen(args[0])
			return renderView(cmd.OutOrStdout(), opts, s.ColumnsOrDefault(), screen.View())
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "search term")
	cmd.Flags().StringSliceVar(&opts.Sort, "sort", nil, "sort field; repeat to toggle direction")
	cmd.Flags().IntVarP(&opts.Page, "page", "p", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "rows per page")
	cmd.Flags().StringVar(&opts.Template, "template", "", "render rows with a pongo2 template file")
	cmd.Flags().BoolVar(&opts.TSV, "tsv", false, "print rows as tab separated values")

	return cmd
}

func renderView(w io.Writer, opts listOptions, columns []schema.Column, view listview.View) error {
	if opts.Template == "" && !opts.TSV {
		return writeView(w, columns, view)
	}
	engine, err := textview.New("")
	if err != nil {
		return err
	}
	if opts.Template != "" {
		return engine.RenderFile(w, opts.Template, columns, view)
	}
	return engine.RenderString(w, textview.DefaultTemplate, columns, view)
}

func writeView(w io.Writer, columns []schema.Column, view listview.View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	headers := make([]string, 0, len(columns))
	for _, col := range columns {
		label := col.Label
		if label == "" {
			label = col.Field
		}
		headers = append(headers, strings.ToUpper(label))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range view.Rows {
		cells := make([]string, 0, len(columns))
		for _, col := range columns {
			cells = append(cells, row.String(col.Field))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if view.TotalCount == 0 {
		_, err := fmt.Fprintln(w, "No records.")
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d-%d of %d (page %d of %d)\n",
		view.StartIndex+1, view.EndIndex, view.TotalCount, view.Query.Page, view.TotalPages)
	return err
}
