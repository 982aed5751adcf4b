package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/utxochain/foundation/metrics"
	"github.com/ardanlabs/utxochain/foundation/web"
)

// Metrics updates program counters for every request.
func Metrics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)

			if v, verr := web.GetValues(ctx); verr == nil {
				metrics.ObserveRequest(v.Route, v.StatusCode, v.Now)
			}

			return err
		}

		return h
	}

	return m
}
