package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"supportdesk/internal/config"
	"supportdesk/internal/dialogs"
	"supportdesk/internal/reconcile"
	"supportdesk/internal/store"
	"supportdesk/internal/view"
	"supportdesk/internal/ws"
)

type Server struct {
	router *chi.Mux
	config *config.Config
	hub    *ws.Hub
}

func NewServer(
	cfg *config.Config,
	messages *store.Store,
	registry *dialogs.Registry,
	feed *view.Feed,
	reconciler *reconcile.Reconciler,
) (*Server, error) {
	ipResolver, err := NewClientIPResolver(cfg.Limits.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("initializing client IP resolver: %w", err)
	}

	hub := ws.NewHub(messages, cfg.Server.Name)
	go hub.Run()
	messages.Subscribe(hub.OnStoreEvent)

	dialogHandler := NewDialogHandler(registry, feed)
	messageHandler := NewMessageHandler(messages, registry, reconciler)
	feedHandler := NewFeedHandler(registry, feed)
	serverInfoHandler := NewServerInfoHandler(cfg.Server.Name, cfg.Dialogs.PageSize)
	wsHandler := NewWebSocketHandler(hub)
	healthHandler := NewHealthHandler()

	apiLimiter := httprate.Limit(
		cfg.Limits.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return ipResolver.Resolve(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, ErrCodeRateLimitExceeded, "Too many requests, please try again later")
		}),
	)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(maxBodySizeMiddleware(cfg.Limits.MaxBodyBytes))
		r.Use(apiLimiter)

		r.Get("/server/info", serverInfoHandler.GetInfo)

		r.Route("/dialogs", func(r chi.Router) {
			r.Get("/", dialogHandler.List)

			r.Route("/{dialogID}", func(r chi.Router) {
				r.Post("/select", dialogHandler.Select)
				r.Post("/actions", dialogHandler.Action)
				r.Get("/feed", feedHandler.Get)

				r.Route("/messages", func(r chi.Router) {
					r.Get("/", messageHandler.List)
					r.Post("/", messageHandler.Send)
					r.Post("/ingest", messageHandler.Ingest)
					r.Patch("/{messageID}/status", messageHandler.UpdateStatus)
				})
			})
		})
	})

	r.Get("/ws", wsHandler.ServeWS)

	return &Server{
		router: r,
		config: cfg,
		hub:    hub,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Shutdown() {
	s.hub.Shutdown()
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if !originAllowed(allowed, origin) {
					writeError(w, http.StatusForbidden, ErrCodeInvalidRequest, "Origin not allowed")
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Loopback origins are always accepted so a local console works without
// configuration.
func originAllowed(allowed map[string]bool, origin string) bool {
	if allowed[origin] {
		return true
	}
	for _, prefix := range []string{"http://localhost:", "http://127.0.0.1:", "http://[::1]:"} {
		if len(origin) > len(prefix) && origin[:len(prefix)] == prefix {
			return true
		}
	}
	return origin == "http://localhost" || origin == "http://127.0.0.1"
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
