package handlers

import (
	"errors"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "shopfunnel/internal/db"
	"shopfunnel/internal/funnel"
)

// Index is the root route.
func Index() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString("Hello, world!")
	}
}

// Ping responds with a JSON pong, mostly useful as a liveness probe with a body.
func Ping() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		jsonResponse(ctx, Message{Message: "pong"})
	}
}

// OrderMetrics computes the funnel snapshot over the entire current events
// relation. The snapshot is never cached: every request recomputes it, and
// a deadline on the request context fails the whole computation rather than
// returning partial metrics. An empty source population maps to 404, never
// to zero-valued metrics.
func OrderMetrics(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		events, err := dbpkg.FetchEvents(ctx, gdb)
		if err != nil {
			funnelRequestsTotal.WithLabelValues("error").Inc()
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load events")
			return
		}

		snap, err := funnel.Aggregate(events)
		if err != nil {
			if errors.Is(err, funnel.ErrNoData) {
				funnelRequestsTotal.WithLabelValues("no_data").Inc()
				errResponse(ctx, fasthttp.StatusNotFound, "no data")
				return
			}
			funnelRequestsTotal.WithLabelValues("error").Inc()
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to aggregate metrics")
			return
		}

		funnelRequestsTotal.WithLabelValues("ok").Inc()
		funnelDuration.Observe(time.Since(start).Seconds())
		jsonResponse(ctx, snap)
	}
}
