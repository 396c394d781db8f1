package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"qrganizer/internal/httpapi"
)

// shutdownGrace bounds how long in-flight requests may finish after ctx ends.
const shutdownGrace = 10 * time.Second

// Handler returns the REST API bound to this app.
func (a *QRApp) Handler(ctx context.Context) (http.Handler, error) {
	d, err := a.Dispatcher(ctx)
	if err != nil {
		return nil, err
	}
	return httpapi.New(a.db, d, a.logger).Handler(), nil
}

// Serve runs the REST API on the configured address until ctx is done, then
// shuts down gracefully. ready, when not nil, receives the bound address.
func (a *QRApp) Serve(ctx context.Context, ready func(addr string)) error {
	h, err := a.Handler(ctx)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Server.Addr, err)
	}

	srv := &http.Server{
		Handler:      h,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server listening", "addr", ln.Addr().String())
		if ready != nil {
			ready(ln.Addr().String())
		}
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		a.logger.Info("server shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
