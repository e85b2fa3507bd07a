package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger returns a request logging middleware using zerolog. Scrape and
// probe endpoints log at debug so steady-state output is message traffic,
// and WebSocket subscriptions carry their room.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				evt := logger.Info()
				if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
					evt = logger.Debug()
				}

				evt = evt.
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr)

				if r.URL.Path == "/ws" {
					evt = evt.Str("room", r.URL.Query().Get("room"))
				}

				evt.Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
