package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// ShutdownTimeout bounds how long in-flight requests may take to drain.
const ShutdownTimeout = 30 * time.Second

type TLSOptions struct {
	Mode     string // "off", "auto", "manual"
	CertFile string // manual mode
	KeyFile  string // manual mode
	Domain   string // auto mode
	Email    string // auto mode
	CacheDir string // auto mode
}

type Server struct {
	httpServer     *http.Server
	addr           string
	tlsOpts        TLSOptions
	certManager    *autocert.Manager
	redirectServer *http.Server
}

func New(host string, port int, handler http.Handler, tlsOpts TLSOptions) *Server {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	s := &Server{
		addr:    addr,
		tlsOpts: tlsOpts,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}

	if tlsOpts.Mode == "auto" {
		s.certManager = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(tlsOpts.Domain),
			Cache:      autocert.DirCache(tlsOpts.CacheDir),
			Email:      tlsOpts.Email,
		}
		s.httpServer.TLSConfig = &tls.Config{
			GetCertificate: s.certManager.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}
		s.redirectServer = &http.Server{
			Addr:         ":80",
			Handler:      s.certManager.HTTPHandler(nil),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
	}

	return s
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or the server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return <-errCh
}

func (s *Server) serve(ln net.Listener) error {
	var err error
	switch s.tlsOpts.Mode {
	case "auto":
		slog.Info("starting HTTPS server", "addr", ln.Addr().String(), "tls", "auto", "domain", s.tlsOpts.Domain)
		go func() {
			slog.Info("starting HTTP redirect server", "addr", s.redirectServer.Addr)
			if err := s.redirectServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP redirect server error", "error", err)
			}
		}()
		err = s.httpServer.ServeTLS(ln, "", "")
	case "manual":
		slog.Info("starting HTTPS server", "addr", ln.Addr().String(), "tls", "manual")
		err = s.httpServer.ServeTLS(ln, s.tlsOpts.CertFile, s.tlsOpts.KeyFile)
	default:
		slog.Info("starting server", "addr", ln.Addr().String())
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server")
	if s.redirectServer != nil {
		if err := s.redirectServer.Shutdown(ctx); err != nil {
			slog.Error("HTTP redirect server shutdown error", "error", err)
		}
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) TLSMode() string {
	if s.tlsOpts.Mode == "" {
		return "off"
	}
	return s.tlsOpts.Mode
}
