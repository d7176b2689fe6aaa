package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"example.com/sqliteblog/internal/auth"
	"example.com/sqliteblog/internal/blog"
	appkafka "example.com/sqliteblog/internal/broker"
	config "example.com/sqliteblog/internal/init"
	"example.com/sqliteblog/internal/logger"
	"example.com/sqliteblog/internal/middleware"
	"example.com/sqliteblog/internal/store"
	"example.com/sqliteblog/internal/views"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type Server struct {
	blog     *blog.Service
	auth     *auth.Service
	views    *views.Renderer
	sessions middleware.Sessions
	stubs    bool
}

var logg = logger.New()

// New builds a Server on top of the store and the post event writer.
func New(st store.StoreInterface, writer appkafka.KafkaWriter, cfg *config.Config) (*Server, error) {
	r, err := views.New()
	if err != nil {
		return nil, err
	}
	return &Server{
		blog:  blog.NewService(st, writer),
		auth:  auth.NewService(st),
		views: r,
		sessions: middleware.Sessions{
			Secret: []byte(cfg.JWTSecret),
			Cookie: cfg.SessionCookie,
			TTL:    cfg.SessionTTL,
			Users:  st,
		},
		stubs: cfg.StubRoutes,
	}, nil
}

// Handler returns the routed application wrapped in recovery and access logging.
func (s *Server) Handler(accessLog io.Writer) http.Handler {
	r := mux.NewRouter()
	r.Use(logger.RequestID, s.sessions.Load)

	// Blog
	r.HandleFunc("/", s.indexHandler).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/create", middleware.LoginRequired(http.HandlerFunc(s.createHandler))).
		Methods(http.MethodGet, http.MethodPost)
	r.Handle("/{id:[0-9]+}/update", middleware.LoginRequired(http.HandlerFunc(s.updateHandler))).
		Methods(http.MethodGet, http.MethodPost)
	r.Handle("/{id:[0-9]+}/delete", middleware.LoginRequired(http.HandlerFunc(s.deleteHandler))).
		Methods(http.MethodPost)

	// Authentication
	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/register", s.registerHandler).Methods(http.MethodGet, http.MethodPost)
	a.HandleFunc("/login", s.loginHandler).Methods(http.MethodGet, http.MethodPost)
	a.HandleFunc("/logout", s.logoutHandler).Methods(http.MethodGet)

	if s.stubs {
		s.handleStubs(r)
	}

	var h http.Handler = r
	h = handlers.CombinedLoggingHandler(accessLog, h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return h
}

// Run starts the HTTP(S) server and shuts it down gracefully when ctx is done.
func Run(ctx context.Context, st store.StoreInterface, writer appkafka.KafkaWriter, cfg *config.Config) error {
	s, err := New(st, writer, cfg)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      s.Handler(os.Stdout),
		ReadTimeout:  cfg.ReadTimeout, // prevent slowloris attacks
		WriteTimeout: cfg.WriteTimeout,
	}

	// --- Start server in a goroutine ---
	errc := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			logg.Info("server", "Starting HTTPS server on "+cfg.ServerAddr)
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			logg.Info("server", "Starting HTTP server on "+cfg.ServerAddr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logg.Error("server", "Server stopped unexpectedly", err)
			errc <- err
		}
	}()

	// --- Graceful shutdown ---
	select {
	case <-ctx.Done():
		logg.Info("server", "Shutdown signal received")
	case err := <-errc:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
		return err
	}
	logg.Info("server", "Server stopped gracefully")
	return nil
}
