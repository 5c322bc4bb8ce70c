// Command partsource serves and queries the provider aggregation layer.
//
// Usage:
//
//	partsource serve --config partsource.yaml
//	partsource search "rtx 4070" --category gpu --limit 5
//	partsource resolve rtx-4070
//	partsource compare rtx-4070 rx-7800-xt --focus gaming
//	partsource cache stats|sweep [--provider name]
//	partsource providers list
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
