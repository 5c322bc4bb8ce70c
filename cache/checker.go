package cache

import (
	"context"

	"github.com/jonwraymond/partsource/health"
)

// NewChecker reports whether store answers Stats.
func NewChecker(name string, store Store) health.Checker {
	return health.Named(name, func(ctx context.Context) health.Result {
		st, err := store.Stats(ctx, "")
		if err != nil {
			return health.Unhealthy("cache unavailable", err)
		}
		return health.Healthy("ok").WithDetails(map[string]any{
			"total":   st.Total,
			"valid":   st.Valid,
			"expired": st.Expired,
		})
	})
}
