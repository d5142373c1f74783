package handlers

import (
	"fmt"
	"log"
	"strconv"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"shopfunnel/internal/config"
	dbpkg "shopfunnel/internal/db"
	httpctx "shopfunnel/internal/http/ctx"
	"shopfunnel/internal/sessionize"
)

// ReSessionize re-runs the segmenter over the raw columns of the stored
// events with a new session_length and replaces the relation contents in
// one transaction. This is a pure re-invocation over the full history;
// previously computed sessions are never patched incrementally.
func ReSessionize(gdb *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		sessionLength := cfg.SessionLength
		if v := string(ctx.QueryArgs().Peek("session_length")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				errResponse(ctx, fasthttp.StatusBadRequest, "session_length must be a non-negative integer")
				return
			}
			sessionLength = n
		}

		raw, err := dbpkg.FetchRaw(ctx, gdb)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load events")
			return
		}
		if len(raw) == 0 {
			errResponse(ctx, fasthttp.StatusNotFound, "no data")
			return
		}

		events, _, err := sessionize.Sessionize(raw, sessionize.Options{SessionLength: sessionLength})
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to sessionize events")
			return
		}

		if err := dbpkg.ReplaceEvents(ctx, gdb, events); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist sessionized events")
			return
		}

		caller := "unknown"
		if ak, ok := httpctx.APIKeyFromCtx(ctx); ok && ak != nil {
			caller = ak.Name
		}
		log.Printf("re-sessionized %d events with session length %d (key=%s)", len(events), sessionLength, caller)
		resessionizeTotal.Inc()

		jsonResponse(ctx, Message{Message: fmt.Sprintf(
			"Successfully resessionized the data with a session length of %d", sessionLength)})
	}
}
