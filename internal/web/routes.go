package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
)

// RouterOptions configures middleware around the dashboard routes.
type RouterOptions struct {
	// CSRFKey enables gorilla/csrf on POST routes when non-empty. It must be 32 bytes.
	CSRFKey        string
	SecureCookies  bool
	TrustedOrigins []string
	RequestTimeout time.Duration
}

// Routes mounts the dashboard on a chi router.
func Routes(h *Handler, opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	h.csrf = opts.CSRFKey != ""

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(opts.RequestTimeout))
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", h.Health)
	r.Get("/livez", h.Live)
	r.Get("/api/view", h.View)
	r.Get("/charts/{name}", h.Chart)

	r.Group(func(pr chi.Router) {
		if h.csrf {
			pr.Use(csrfMiddleware(h.logger, opts))
		}
		pr.Get("/", h.Index)
		pr.Post("/mode", h.ToggleMode)
		pr.Post("/refresh", h.Refresh)
		pr.Post("/layout", h.Layout)
		pr.Post("/tables/{name}/sort/{column}", h.Sort)
	})
	return r
}

func csrfMiddleware(logger *slog.Logger, opts RouterOptions) func(http.Handler) http.Handler {
	csrfOpts := []csrf.Option{
		csrf.Secure(opts.SecureCookies),
		csrf.Path("/"),
		csrf.CookieName("posture_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				slog.String("path", req.URL.Path),
				slog.String("method", req.Method),
				slog.Any("reason", csrf.FailureReason(req)),
			)
			http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
		})),
	}
	if len(opts.TrustedOrigins) > 0 {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins(opts.TrustedOrigins))
	}
	protect := csrf.Protect([]byte(opts.CSRFKey), csrfOpts...)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !opts.SecureCookies {
				req = csrf.PlaintextHTTPRequest(req)
			}
			protected.ServeHTTP(w, req)
		})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
