package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradelens/ecomplexity/internal/api"
	"github.com/tradelens/ecomplexity/pkg/dataset"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string // listen address
	config  string // config file path
	noCache bool   // disable result caching
}

// newServeCmd creates the serve command that runs the HTTP API.
// The cache backend is taken from the config file, so an instance can share
// results through Redis or MongoDB with other instances.
func newServeCmd() *cobra.Command {
	opts := serveOpts{addr: ":8080"}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server.

The server exposes the pipeline stages as JSON endpoints:

  POST /v1/complexity   country and product complexity indices
  POST /v1/proximity    proximity matrices
  POST /v1/projection   projected proximity network
  POST /v1/outlook      density, gain, and outlook index
  GET  /healthz         liveness check

Examples:
  ecomplexity serve                      # Listen on :8080
  ecomplexity serve --addr :9000
  ecomplexity serve -c prod.toml         # Redis or MongoDB cache from config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVarP(&opts.config, "config", "c", dataset.DefaultConfigFile, "config file")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable result caching")

	return cmd
}

// runServe starts the HTTP server and blocks until ctx is cancelled.
func runServe(ctx context.Context, opts *serveOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := dataset.LoadConfigIfPresent(opts.config)
	if err != nil {
		return err
	}

	runner, err := newRunner(ctx, cfg, opts.noCache, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	server := api.NewServer(runner, logger)
	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", opts.addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}
