package main

import (
	"fmt"

	"github.com/spf13/cobra"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/prompt"
)

type formOptions struct {
	EditID string
}

func newFormCmd(root *rootOptions) *cobra.Command {
	var opts formOptions

	cmd := &cobra.Command{
		Use:   "form <screen> [--edit <id>]",
		Short: "Fill in and submit a create or edit form interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, closeStore, err := root.openStore(ctx, a)
			if err != nil {
				return err
			}
			defer closeStore()

			rt, err := formflow.New(a.catalog, store, formflow.FromConfig(a.cfg), formflow.WithLogger(a.logger))
			if err != nil {
				return err
			}

			var engine *form.Engine
			if opts.EditID != "" {
				engine, err = rt.EditForm(ctx, args[0], opts.EditID)
			} else {
				engine, err = rt.CreateForm(args[0])
			}
			if err != nil {
				return err
			}
			defer engine.Close()
			if err := engine.Mount(ctx); err != nil {
				return err
			}

			session, err := prompt.New(engine, prompt.NewSurveyDriver(), prompt.WithLogger(a.logger))
			if err != nil {
				return err
			}
			sub, err := session.Run(ctx)
			if err != nil {
				return err
			}

			verb := "Created"
			if sub.Mode == form.ModeUpdate {
				verb = "Updated"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", verb, engine.Schema().Kind, sub.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.EditID, "edit", "", "id of the record to edit")

	return cmd
}
