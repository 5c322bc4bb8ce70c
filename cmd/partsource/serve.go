package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/partsource/httpapi"
	"github.com/jonwraymond/partsource/observe"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API together with the cache sweeper and the provider
rehabilitation loop. SIGINT or SIGTERM triggers a graceful shutdown bounded
by server.shutdown_timeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, addr, nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

// runServe blocks until ctx is done or the server fails. When ready is not
// nil it receives the bound address once the listener is open.
func runServe(ctx context.Context, opts *rootOptions, addr string, ready chan<- string) error {
	svc, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close(context.Background()) }()

	cfg := svc.Config().Server
	if addr == "" {
		addr = cfg.Addr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      httpapi.NewRouter(httpapi.NewHandler(svc)),
		ReadTimeout:  cfg.ReadTimeout.Duration(),
		WriteTimeout: cfg.WriteTimeout.Duration(),
	}

	logger := svc.Logger()
	logger.Info(ctx, "listening", observe.Field{Key: "addr", Value: ln.Addr().String()})
	if ready != nil {
		ready <- ln.Addr().String()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration())
		defer cancel()
		logger.Info(shutdownCtx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
