package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/partsource/fallback"
	"github.com/jonwraymond/partsource/service"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		category string
		limit    int
		so       fallback.SearchOptions
		noDedupe bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search every part source",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noDedupe {
				dedupe := false
				so.Dedupe = &dedupe
			}
			query := strings.Join(args, " ")
			return opts.oneShot(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
				return svc.Orchestrator().Search(ctx, query, category, limit, so)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Restrict results to a category")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	cmd.Flags().StringVar(&so.Hint, "hint", "", "Provider to try first")
	cmd.Flags().IntVar(&so.MaxProviders, "max-providers", 0, "Number of providers to consult (0 = all)")
	cmd.Flags().BoolVar(&so.ContinueOnLimit, "all", false, "Keep consulting providers after the limit is reached")
	cmd.Flags().BoolVar(&noDedupe, "no-dedupe", false, "Keep results sharing a name and brand")
	return cmd
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var ro fallback.ResolveOptions

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Fetch the details of one part",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.oneShot(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
				return svc.Orchestrator().Resolve(ctx, args[0], ro)
			})
		},
	}
	cmd.Flags().StringVar(&ro.Hint, "hint", "", "Provider to try first")
	return cmd
}

func newCompareCmd(opts *rootOptions) *cobra.Command {
	var (
		co         fallback.CompareOptions
		sourceHint string
	)

	cmd := &cobra.Command{
		Use:   "compare <id-a> <id-b>",
		Short: "Resolve two parts and compare them",
		Long: `Resolve both parts through the part sources, then ask the generators
for a comparison. When no generator answers, a templated comparison built
from names, prices and shared specifications is printed instead.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.oneShot(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
				orch := svc.Orchestrator()
				a, err := orch.Resolve(ctx, args[0], fallback.ResolveOptions{Hint: sourceHint})
				if err != nil {
					return nil, err
				}
				b, err := orch.Resolve(ctx, args[1], fallback.ResolveOptions{Hint: sourceHint})
				if err != nil {
					return nil, err
				}
				return orch.Compare(ctx, a.Result, b.Result, co)
			})
		},
	}
	cmd.Flags().StringVar(&co.Focus, "focus", "", "What the comparison should focus on, e.g. gaming")
	cmd.Flags().StringVar(&co.Hint, "hint", "", "Generator to try first")
	cmd.Flags().StringVar(&sourceHint, "source-hint", "", "Part source to try first when resolving")
	return cmd
}
