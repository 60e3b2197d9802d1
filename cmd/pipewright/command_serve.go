package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/contentsmith/pipewright/internal/engine"
	"github.com/contentsmith/pipewright/internal/jobs"
	"github.com/contentsmith/pipewright/internal/server"
	"github.com/contentsmith/pipewright/internal/track"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Long:  "Expose the pipeline as a REST API: POST /api/pipeline starts a run, GET /api/jobs/:id polls it, GET /api/outputs/:name fetches the results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func registerServeCommand(root *cobra.Command) {
	root.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&storeKind, "store", "file", "Checkpoint store backend (file or badger)")
	serveCmd.Flags().BoolVar(&offline, "offline", false, "Use the built-in deterministic generator instead of the LLM")
}

func serve() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.newStore()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := track.NewMetrics(registry)

	run := func(ctx context.Context) (*engine.Report, error) {
		eng, err := a.newEngine(store, metrics)
		if err != nil {
			return nil, err
		}
		return eng.Run(ctx, "")
	}

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(server.Config{
		Run:       run,
		Jobs:      jobs.NewManager(a.cfg.Server.MaxJobs),
		OutputDir: a.cfg.Paths.OutputDir,
		Logger:    a.logger,
		Registry:  registry,
	})

	a.logger.Info("serving pipeline API", "addr", addr)
	fmt.Printf("✓ Listening on %s\n", addr)
	return srv.Router().Run(addr)
}
