package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formflow/components/optionsapi"
	"github.com/goliatone/go-formflow/internal/metrics"
	"github.com/goliatone/go-formflow/pkg/source/memory"
)

type serveOptions struct {
	Addr        string
	MetricsAddr string
	ReadOnly    bool
}

type listener struct {
	name    string
	addr    string
	handler http.Handler
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve [--seed records.yaml]",
		Short: "Serve an in-memory record store over the records API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.load()
			if err != nil {
				return err
			}
			if opts.Addr == "" {
				opts.Addr = a.cfg.ListenAddr
			}
			if opts.MetricsAddr == "" {
				opts.MetricsAddr = a.cfg.MetricsAddr
			}

			store := memory.New()
			if root.SeedFile != "" {
				seeded, err := store.SeedFile(root.SeedFile)
				if err != nil {
					return err
				}
				a.logger.WithField("records", seeded).Info("formflow-cli: store seeded")
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			fns := []optionsapi.OptionFn{optionsapi.WithStore(store), optionsapi.WithLogger(a.logger)}
			if opts.ReadOnly {
				fns = append(fns, optionsapi.WithReadOnly())
			}
			mux := http.NewServeMux()
			pattern, err := optionsapi.RegisterRoutes(mux, "", fns...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.logger.WithField("routes", pattern), listeners(opts, mux, metrics.Handler(reg))...)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (defaults to FORMFLOW_LISTEN_ADDR)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "separate listen address for /metrics (defaults to FORMFLOW_METRICS_ADDR)")
	cmd.Flags().BoolVar(&opts.ReadOnly, "read-only", false, "reject create and update requests")

	return cmd
}

// listeners mounts /metrics next to the API unless a distinct metrics
// address is configured, in which case it gets its own server.
func listeners(opts serveOptions, api *http.ServeMux, metricsHandler http.Handler) []listener {
	if opts.MetricsAddr == "" || opts.MetricsAddr == opts.Addr {
		api.Handle("/metrics", metricsHandler)
		return []listener{{name: "api", addr: opts.Addr, handler: api}}
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsHandler)
	return []listener{
		{name: "api", addr: opts.Addr, handler: api},
		{name: "metrics", addr: opts.MetricsAddr, handler: metricsMux},
	}
}

func serve(ctx context.Context, logger *logrus.Entry, ls ...listener) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, l := range ls {
		srv := &http.Server{
			Addr:              l.addr,
			Handler:           l.handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		log := logger.WithFields(logrus.Fields{"listener": l.name, "addr": l.addr})
		g.Go(func() error {
			log.Info("formflow-cli: listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

