// Command example runs a small pet service built on the rest conventions.
//
//	go run ./cmd/example serve --addr :8080
//	go run ./cmd/example spec --format yaml
//
// Then explore:
//
//	GET  http://localhost:8080/api/all                  discovery
//	GET  http://localhost:8080/api/health               health check
//	GET  http://localhost:8080/api/v1/swagger           OpenAPI document
//	GET  http://localhost:8080/api/v1/pet               search pets
//	POST http://localhost:8080/api/v1/pet               create pet
//	GET  http://localhost:8080/api/v1/owner/{id}/pet    pets of an owner
//	GET  http://localhost:8080/metrics                  prometheus metrics
//
// Configuration is read from the file given with --config, then from the
// environment (see rest.Config.ApplyEnv). A .env file in the working
// directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/bjaus/rest"
	"github.com/bjaus/rest/convention"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("load .env", "err", err)
		os.Exit(1)
	}

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "example",
		Short:        "Pet service built on the rest conventions",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rest.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, addr)
		},
	}
	serve.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	var format string
	spec := &cobra.Command{
		Use:   "spec",
		Short: "Write the OpenAPI document to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rest.LoadConfig(configPath)
			if err != nil {
				return err
			}
			r, _, err := newRouter(cfg, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			switch format {
			case "json":
				return r.WriteSpec(cmd.OutOrStdout(), apiNamespace())
			case "yaml":
				return r.WriteSpecYAML(cmd.OutOrStdout(), apiNamespace())
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	spec.Flags().StringVar(&format, "format", "json", "output format: json or yaml")

	root.AddCommand(serve, spec)
	return root
}

func serve(ctx context.Context, cfg rest.Config, addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r, health, err := newRouter(cfg, reg)
	if err != nil {
		return err
	}
	health.AddCheck("store", func(context.Context) error { return nil })

	r.Mount("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	r.Logger().Info("starting server", "addr", addr)
	if err := r.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	r.Logger().Info("server stopped")
	return nil
}

// apiNamespace is the namespace of the OpenAPI document. Its base path
// covers every versioned route.
func apiNamespace() *rest.Namespace {
	return &rest.Namespace{Subject: "swagger", Version: "v1"}
}

func newRouter(cfg rest.Config, reg prometheus.Registerer) (*rest.Router, *convention.Health, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	r := rest.New(
		rest.WithTitle("Pets"),
		rest.WithVersion("1.0.0"),
		rest.WithConfig(cfg),
		rest.WithLogger(logger),
		rest.WithRegisterer(reg),
		rest.WithTracer(rest.OTelTracer(otel.Tracer("github.com/bjaus/rest/cmd/example"))),
	)
	r.Use(rest.RequestID(), rest.Logger(logger), rest.Recovery())

	registerPets(r, newStore())

	if _, err := convention.Discovery(r); err != nil {
		return nil, nil, err
	}
	health := convention.RegisterHealth(r)
	r.ServeSpec(apiNamespace())

	return r, health, nil
}
