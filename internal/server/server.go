package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Engines accepted by Host.
const (
	EngineGin  = "gin"
	EngineEcho = "echo"
)

// Host returns the handler the listener serves. With the echo engine the
// gin handler is mounted on an echo instance via echo.WrapHandler.
func Host(engine string, h http.Handler) (http.Handler, error) {
	switch strings.ToLower(engine) {
	case "", EngineGin:
		return h, nil
	case EngineEcho:
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.Any("/", echo.WrapHandler(h))
		e.Any("/*", echo.WrapHandler(h))
		return e, nil
	default:
		return nil, fmt.Errorf("unknown server engine %q", engine)
	}
}

// NewServer builds the HTTP server; tlsCfg may be nil.
func NewServer(addr string, h http.Handler, tlsCfg *tls.Config) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Serve listens on srv.Addr and serves until ctx is cancelled, then shuts
// down gracefully. ready, if non-nil, receives the bound address.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger, ready func(net.Addr)) error {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	if srv.TLSConfig != nil {
		ln = tls.NewListener(ln, srv.TLSConfig)
	}
	if ready != nil {
		ready(ln.Addr())
	}
	logger.Info("http server listening", "addr", ln.Addr().String(), "tls", srv.TLSConfig != nil)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
