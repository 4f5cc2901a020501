package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	WebServerEnabled    bool
	WebServerPort       string
	WebServerPreHandler func(r *gin.Engine)

	JobsEnabled bool
	JobsHandler func()

	MigrationEnabled bool
	MigrationHandler func()

	// ShutdownHandler runs after the HTTP server has drained.
	ShutdownHandler func(ctx context.Context)

	CORSOrigins []string
	Development bool
}

func GetDefaultOptions() Options {
	return Options{
		WebServerEnabled: true,
		WebServerPort:    "5000",
		CORSOrigins:      []string{"*"},
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

/*
* Recovery, request id and access log first
* Then cors and gzip
* The pre handler registers the routes
 */
func NewEngine(opts Options) *gin.Engine {
	if !opts.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog())
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(corsConfig(origins)))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	if opts.WebServerPreHandler != nil {
		opts.WebServerPreHandler(r)
	}
	return r
}

// Start runs until SIGINT or SIGTERM.
func Start(opts Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, opts)
}

/*
* Migrations run to completion before anything else
* Jobs are started, then the web server until ctx is done
* Shutdown drains in-flight requests
 */
func Run(ctx context.Context, opts Options) error {
	if opts.MigrationEnabled && opts.MigrationHandler != nil {
		opts.MigrationHandler()
	}
	if opts.JobsEnabled && opts.JobsHandler != nil {
		opts.JobsHandler()
	}
	if !opts.WebServerEnabled {
		return nil
	}

	listener, err := net.Listen("tcp", ":"+opts.WebServerPort)
	if err != nil {
		return fmt.Errorf("while listening on port %s: %w", opts.WebServerPort, err)
	}
	return serve(ctx, listener, NewEngine(opts), opts.ShutdownHandler)
}

func serve(ctx context.Context, listener net.Listener, handler http.Handler, onShutdown func(context.Context)) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", listener.Addr().String()).Msg("Web server started")
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error while shutting down web server")
		return err
	}
	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}
	log.Info().Msg("Web server stopped")
	return nil
}
