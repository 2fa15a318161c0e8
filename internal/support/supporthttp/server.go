// Package supporthttp runs HTTP servers with sane timeouts and graceful
// shutdown on SIGINT/SIGTERM.
package supporthttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fikir-app/fikir-backend/internal/support/log"
)

// Config describes one server to run.
type Config struct {
	ListenAddr          string
	Handler             http.Handler
	TCPKeepAlive        time.Duration
	ShutdownGracePeriod time.Duration
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	IdleTimeout         time.Duration
	OnStarting          func()
	OnStopping          func()
}

// Run starts the configured server and blocks until it exits. On SIGINT or
// SIGTERM the server drains in-flight requests for up to ShutdownGracePeriod
// before closing. Run terminates the process on listener errors, matching the
// behavior callers expect from a top-level serve loop.
func Run(conf Config) {
	if conf.OnStarting != nil {
		conf.OnStarting()
	}

	srv := &http.Server{
		Addr:         conf.ListenAddr,
		Handler:      conf.Handler,
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
		IdleTimeout:  conf.IdleTimeout,
	}

	listener, err := net.Listen("tcp", conf.ListenAddr)
	if err != nil {
		log.Fatalf("error listening on %s: %s", conf.ListenAddr, err.Error())
	}
	if conf.TCPKeepAlive > 0 {
		listener = tcpKeepAliveListener{listener.(*net.TCPListener), conf.TCPKeepAlive}
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err = <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %s", err.Error())
		}
	case sig := <-shutdown:
		log.Infof("Received signal %q, shutting down...", sig)

		gracePeriod := conf.ShutdownGracePeriod
		if gracePeriod <= 0 {
			gracePeriod = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), gracePeriod)
		defer cancel()

		if err = srv.Shutdown(ctx); err != nil {
			log.Errorf("graceful shutdown failed: %s", err.Error())
		}
	}

	if conf.OnStopping != nil {
		conf.OnStopping()
	}
}

type tcpKeepAliveListener struct {
	*net.TCPListener
	keepAlivePeriod time.Duration
}

func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	conn, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	if err = conn.SetKeepAlive(true); err != nil {
		return nil, err
	}
	if err = conn.SetKeepAlivePeriod(ln.keepAlivePeriod); err != nil {
		return nil, err
	}
	return conn, nil
}
