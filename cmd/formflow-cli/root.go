package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/config"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/source"
	"github.com/goliatone/go-formflow/pkg/source/memory"
)

type rootOptions struct {
	ScreensFile string
	EnvFiles    []string
	SeedFile    string
}

// app is what every subcommand needs after flags are parsed.
type app struct {
	cfg     *config.Config
	logger  *logrus.Entry
	catalog *schema.Catalog
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "formflow-cli",
		Short:         "Browse, create and edit records described by a screens file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.ScreensFile, "screens", "", "screens file (defaults to FORMFLOW_SCREENS_FILE)")
	cmd.PersistentFlags().StringVar(&opts.SeedFile, "seed", "", "records file for the in-memory store")
	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", config.DefaultEnvFiles, "env files to load before reading the environment")

	cmd.AddCommand(newListCmd(&opts))
	cmd.AddCommand(newFormCmd(&opts))
	cmd.AddCommand(newServeCmd(&opts))
	return cmd
}

func (o *rootOptions) load() (*app, error) {
	cfg, err := config.Load(o.EnvFiles...)
	if err != nil {
		return nil, err
	}
	if o.ScreensFile != "" {
		cfg.ScreensFile = o.ScreensFile
	}
	logger := logrus.NewEntry(cfg.Logger())

	src, err := schema.ParseSource(cfg.ScreensFile)
	if err != nil {
		return nil, err
	}
	cat, err := schema.Load(context.Background(), src, &http.Client{Timeout: cfg.HTTPTimeout})
	if err != nil {
		return nil, err
	}
	logger.WithField("screens", len(cat.Names())).Debug("formflow-cli: catalog loaded")
	return &app{cfg: cfg, logger: logger, catalog: cat}, nil
}

// openStore opens the configured backend, seeding it from --seed when it is
// the in-memory store.
func (o *rootOptions) openStore(ctx context.Context, a *app) (source.Store, func(), error) {
	store, closeStore, err := formflow.OpenStore(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, nil, err
	}
	if o.SeedFile == "" {
		return store, closeStore, nil
	}
	mem, ok := store.(*memory.Store)
	if !ok {
		closeStore()
		return nil, nil, fmt.Errorf("--seed only applies to the in-memory store")
	}
	n, err := mem.SeedFile(o.SeedFile)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	a.logger.WithField("records", n).Info("formflow-cli: store seeded")
	return mem, closeStore, nil
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
