// ABOUTME: Assembles the console from config and runs the HTTP server
// ABOUTME: Owns the store lifecycle and the session purge loop

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/burrowvpn/burrow-console/internal/auth"
	"github.com/burrowvpn/burrow-console/internal/config"
	"github.com/burrowvpn/burrow-console/internal/mail"
	"github.com/burrowvpn/burrow-console/internal/store"
	"github.com/burrowvpn/burrow-console/internal/vpn"
	"github.com/burrowvpn/burrow-console/internal/web"
	"github.com/burrowvpn/burrow-console/internal/webapi"
)

// purgeInterval is how often expired session rows are swept.
const purgeInterval = time.Hour

// Server is the assembled console.
type Server struct {
	config     *config.Config
	store      *store.SQLiteStore
	httpServer *http.Server
	logger     *slog.Logger
}

// New opens the store and wires every layer together.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sessions := web.NewSessionManager(s, cfg.Auth.SessionDuration)
	recorder := auth.NewRecorder(s)
	verifier := auth.NewVerifier(s, s)
	mfa := auth.NewMfaVerifier(s, recorder, "Burrow VPN")
	signer := auth.NewStateSigner([]byte(cfg.Auth.StateSecret))
	oauth := web.NewOAuth2Flow(s, signer, cfg.Server.BaseURL)

	console := web.NewConsole(web.Options{
		Users:     s,
		Installer: s,
		Settings:  s,
		Verifier:  verifier,
		Mfa:       mfa,
		Sessions:  sessions,
		OAuth:     oauth,
	})
	api := webapi.New(s, mfa, vpn.NewSystemdController(cfg.VPN.ServiceName), mail.NewSMTPSender(s))

	mux := http.NewServeMux()
	console.RegisterRoutes(mux)
	api.RegisterRoutes(mux, console)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	return &Server{
		config: cfg,
		store:  s,
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// Run serves until the context is canceled or the server fails, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.purgeSessions(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.config.Server.HTTPAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.shutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// shutdown uses a fresh context since the run context is already canceled.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// purgeSessions sweeps expired session rows until the context ends.
func (s *Server) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.PurgeExpiredWebSessions(ctx)
			if err != nil {
				s.logger.Warn("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("purged expired sessions", "count", n)
			}
		}
	}
}
