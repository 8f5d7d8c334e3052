package rest

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/italolelis/tg_file_listener/internal/logctx"
	"github.com/italolelis/tg_file_listener/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter mounts the link API behind the request id, access log and
// telemetry middlewares. Requests inherit the logger carried by ctx.
func NewRouter(ctx context.Context, links *LinkHandler, tel *telemetry.Telemetry) http.Handler {
	logger := logctx.LoggerFromContext(ctx)

	r := chi.NewRouter()
	r.Use(
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(logctx.WithLogger(r.Context(), logger)))
			})
		},
		telemetry.RequestID,
		telemetry.HTTPLogging,
		telemetry.NewHTTPMiddleware(tel).Middleware,
	)

	r.Handle("/metrics", tel.Handler())
	r.Mount("/", links.Routes())

	return otelhttp.NewHandler(r, "http_request",
		otelhttp.WithTracerProvider(tel.TracerProvider()),
	)
}
