package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/scmdesk/scmdesk/internal/observability"
	"github.com/scmdesk/scmdesk/internal/platform/httpx"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// BaseStack is installed on every route, the websocket feed included.
func BaseStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}

// APIStack wraps the JSON API with a request deadline, compression and a per-IP rate limit.
func APIStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	timeout := 30 * time.Second
	limit := 120
	if cfg.Config != nil {
		if cfg.Config.AppRequestTimeout > 0 {
			timeout = cfg.Config.AppRequestTimeout
		}
		if cfg.Config.RateLimitPerMinute > 0 {
			limit = cfg.Config.RateLimitPerMinute
		}
	}
	return []func(http.Handler) http.Handler{
		middleware.Timeout(timeout),
		middleware.Compress(5),
		httprate.Limit(limit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded")
			}),
		),
	}
}
