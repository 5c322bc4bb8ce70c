package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/partsource/config"
	"github.com/jonwraymond/partsource/service"
)

type rootOptions struct {
	configPath string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "partsource",
		Short: "Aggregate hardware part providers with fallback and caching",
		Long: `partsource queries several unreliable part catalogs and comparison
backends as one. Providers are tried in priority order; unhealthy ones are
skipped, responses are cached, and when every provider fails a degraded
result is returned instead of an error.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "partsource.yaml", "Path to the YAML configuration")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", time.Minute, "Deadline for one-shot commands")

	cmd.AddCommand(
		newServeCmd(opts),
		newSearchCmd(opts),
		newResolveCmd(opts),
		newCompareCmd(opts),
		newCacheCmd(opts),
		newProvidersCmd(opts),
	)
	return cmd
}

// open loads the configuration and builds a service. The caller closes it.
func (o *rootOptions) open(ctx context.Context) (*service.Service, error) {
	cfg, err := config.Load(ctx, o.configPath)
	if err != nil {
		return nil, err
	}
	return service.New(ctx, cfg)
}

// oneShot runs fn against a fresh service under the --timeout deadline.
func (o *rootOptions) oneShot(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) (any, error)) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	svc, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close(context.Background()) }()

	out, err := fn(ctx, svc)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
