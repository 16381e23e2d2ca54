package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"expensetracker/internal/gql"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether a dependency can serve traffic.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP server.
type Options struct {
	Addr               string
	ReadHeaderTimeout  time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *applog.Logger
}

// Server is the API's http.Server plus the middleware state that must be
// stopped with it.
type Server struct {
	http.Server
	limiter      *ratelimit.Limiter
	logger       *applog.Logger
	shutdownOnce sync.Once
}

// NewServer mounts the GraphQL handler, the docs and the health probes behind
// tracing, security headers, CORS and rate limiting.
func NewServer(opts Options, graphqlHandler http.Handler, ready Pinger) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector, err := security.NewDetector(opts.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("configure client ip detection: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", graphqlHandler)
	mux.Handle("/api/docs", gql.DocsHandler(gql.DefaultDocs("/graphql")))
	mux.HandleFunc("/healthz", handleHealth)
	mux.Handle("/readyz", readyHandler(ready, logger))

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: opts.RateLimitPerMinute,
		Methods:           []string{http.MethodPost},
	})

	var handler http.Handler = mux
	handler = limiter.Middleware(detector.ExtractClientIP, rateLimited, logger)(handler)
	handler = newCORS(opts.CORSAllowedOrigins).Handler(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig(), detector, logger).Middleware(handler)
	handler = trace.NewMiddleware(detector.ExtractClientIP, logger).Middleware(handler)

	return &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
			ReadTimeout:       opts.ReadTimeout,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
		},
		limiter: limiter,
		logger:  logger,
	}, nil
}

func newCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", trace.RequestIDHeader},
		ExposedHeaders:   []string{trace.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func readyHandler(ready Pinger, logger *applog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := ready.Ping(ctx); err != nil {
				applog.FromContextOr(r.Context(), logger).WithComponent(applog.ComponentHTTP).WarnContext(r.Context(), "Readiness check failed",
					applog.NewFields().WithError(err, applog.ErrorTypeDatabase).ToSlice()...)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
}

// rateLimited answers in the GraphQL error shape so clients can handle it
// like any other failure.
func rateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"data": nil,
		"errors": []map[string]interface{}{{
			"message": "Rate limit exceeded. Please try again later.",
			"extensions": map[string]interface{}{
				"code":       "TOO_MANY_REQUESTS",
				"statusCode": http.StatusTooManyRequests,
				"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
			},
		}},
	})
}
