// Package httpapi exposes the dispatcher over a REST surface at /api/v3,
// mirroring the response envelope, count-clamping, and admin-auth rules the
// gateway's HTTP contract requires.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"scrapegate/internal/classify"
	"scrapegate/internal/dispatch"
	"scrapegate/internal/model"
	"scrapegate/pkg/auth"
	"scrapegate/pkg/logger"
)

// Config holds the HTTP server's listen address and CORS policy.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps a chi router fronting the dispatcher.
type Server struct {
	router chi.Router
	cfg    Config
	disp   *dispatch.Dispatcher
	backend Backend
	tokens  *auth.Manager
	log     logger.Logger
}

// New builds a Server routing /api/v3 traffic to disp via backend.
func New(cfg Config, disp *dispatch.Dispatcher, backend Backend, tokens *auth.Manager, log logger.Logger) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Server{cfg: cfg, disp: disp, backend: backend, tokens: tokens, log: log}
	s.router = s.buildRouter()
	return s
}

// Handler returns the underlying http.Handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.requestIDMiddleware)
	r.Use(s.corsMiddleware())

	r.Route("/api/v3", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.adminAuth)
			r.Get("/stats", s.handleStats)
		})

		r.Get("/tweets/{username}", s.handleTweets)
		r.Get("/tweets/{username}/latest", s.handleLatestTweet)
		r.Get("/tweets/{username}/replies", s.handleReplies)
		r.Get("/search", s.handleSearch)
		r.Get("/profile/{username}", s.handleProfile)
		r.Get("/followers/{username}", s.handleFollowers)
		r.Get("/following/{username}", s.handleFollowing)
		r.Get("/tweet/{id}", s.handleTweet)
	})

	return r
}

// Start listens and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("httpapi: listen on %s: %w", s.cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// requestIDMiddleware stamps every request with an id, exposes it on the
// response, and attaches it to the request context so dispatch's retry loop
// can tag its log lines with the same id.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		ctx := dispatch.WithRequestID(r.Context(), id)
		s.log.WithRequestID(id).DebugWithFields("request received", map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokens == nil {
			writeError(w, http.StatusUnauthorized, "admin token not configured")
			return
		}
		got := bearerToken(r)
		want, err := s.tokens.Retrieve()
		if err != nil || got == "" || got != want.Token {
			writeError(w, http.StatusUnauthorized, "invalid or missing admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeOK(w, s.disp.Stats())
}

// run executes thunk through the dispatcher at MEDIUM priority, blocks for
// its result, and writes the outcome through the response envelope.
func (s *Server) run(w http.ResponseWriter, r *http.Request, opName, opClass string, thunk dispatch.Thunk[any]) {
	out, err := dispatch.Execute(s.disp, r.Context(), opName, model.PriorityMedium, opClass, thunk)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	select {
	case res := <-out:
		s.writeResult(w, res.Value, res.Err)
	case <-r.Context().Done():
		writeError(w, http.StatusGatewayTimeout, "request cancelled")
	}
}

func (s *Server) writeResult(w http.ResponseWriter, v any, err error) {
	if err != nil {
		if errors.Is(err, dispatch.ErrNoUsableAccounts) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		kind := classify.Classify(err.Error())
		writeError(w, classify.ToExternalStatus(kind), err.Error())
		return
	}
	writeOK(w, v)
}
