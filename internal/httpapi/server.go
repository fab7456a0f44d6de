// Package httpapi exposes the dashboard over HTTP for browser front ends:
// spreadsheet analysis, report downloads, predictions and account calls.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/feelsunbreeze/student_dashboard/internal/dashboard"
	"github.com/feelsunbreeze/student_dashboard/internal/identity"
	"github.com/feelsunbreeze/student_dashboard/internal/logger"
)

// Identity is the subset of the identity client the handlers call.
type Identity interface {
	SignUp(ctx context.Context, email, password, displayName string) (identity.User, error)
	SignIn(ctx context.Context, email, password string) (identity.User, error)
	SendPasswordReset(ctx context.Context, email string) error
	ResendVerification(ctx context.Context, idToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (identity.Tokens, error)
	RefreshStatus(ctx context.Context, u identity.User) (identity.User, error)
}

var _ Identity = (*identity.Client)(nil)

type Options struct {
	Workspace      *dashboard.Workspace
	Identity       Identity
	Logger         logger.Logger
	AllowedOrigins []string
	// MaxUploadBytes bounds a multipart upload. Zero means 32 MiB.
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

type server struct {
	ws        *dashboard.Workspace
	auth      Identity
	log       logger.Logger
	maxUpload int64
}

// NewRouter builds the chi router with middleware and all routes.
func NewRouter(opts Options) http.Handler {
	s := &server{
		ws:        opts.Workspace,
		auth:      opts.Identity,
		log:       opts.Logger,
		maxUpload: opts.MaxUploadBytes,
	}
	if s.ws == nil {
		s.ws = dashboard.Default()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 32 << 20
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.analyze)
		r.Post("/reports/{kind}", s.downloadReport)
		r.Post("/predict", s.predict)
		r.Get("/predict/options", s.predictOptions)

		r.Route("/auth", func(r chi.Router) {
			r.Use(s.requireIdentity)
			r.Post("/signin", s.signIn)
			r.Post("/signup", s.signUp)
			r.Post("/reset", s.sendPasswordReset)
			r.Post("/verify", s.resendVerification)
			r.Post("/refresh", s.refreshToken)
			r.Post("/status", s.refreshStatus)
		})
	})

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("request",
				"id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *server) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.writeJSONError(w, http.StatusServiceUnavailable, "accounts are not configured on this server", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
