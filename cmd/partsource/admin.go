package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/partsource/service"
)

func newCacheCmd(opts *rootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the response cache",
	}
	cmd.PersistentFlags().StringVar(&name, "provider", "", "Limit to one provider")

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Count total, valid and expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.oneShot(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
				return svc.CacheStats(ctx, name)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.oneShot(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
				removed, err := svc.SweepCache(ctx, name)
				if err != nil {
					return nil, err
				}
				return map[string]int{"removed": removed}, nil
			})
		},
	})
	return cmd
}

func newProvidersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List configured providers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sources and generators in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.oneShot(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
				return svc.Providers(), nil
			})
		},
	})
	return cmd
}
