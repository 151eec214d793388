// Package ui serves the sales dashboard over HTTP.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/salesdash/internal/catalog"
	"github.com/leapstack-labs/salesdash/internal/dashboard"
	"github.com/leapstack-labs/salesdash/internal/ui/notifier"
	"github.com/leapstack-labs/salesdash/internal/ui/router"
	"golang.org/x/sync/errgroup"
)

// reloadDelay debounces bursts of writes to the catalog file.
const reloadDelay = 100 * time.Millisecond

// Server is the dashboard web server.
type Server struct {
	runner      *Runner
	notifier    *notifier.Notifier
	catalogPath string
	port        int
	watch       bool
	listener    net.Listener
	logger      *slog.Logger
}

// Config holds configuration for the UI server.
type Config struct {
	// Options describe the store and catalog. Options.Renderer is unused.
	Options dashboard.Options

	// CatalogPath is the external catalog file reloaded when Watch is set.
	// Empty means the embedded catalog, which is never reloaded.
	CatalogPath string

	Port   int
	Watch  bool
	Logger *slog.Logger

	// Listener overrides Port when set.
	Listener net.Listener
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := cfg.Options
	if opts.Logger == nil {
		opts.Logger = logger
	}

	return &Server{
		runner:      NewRunner(opts),
		notifier:    notifier.New(),
		catalogPath: cfg.CatalogPath,
		port:        cfg.Port,
		watch:       cfg.Watch,
		listener:    cfg.Listener,
		logger:      logger,
	}
}

// Runner returns the server's dashboard runner.
func (s *Server) Runner() *Runner {
	return s.runner
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	if err := router.SetupRoutes(r, s.runner, s.notifier, s.logger); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
// The store connection is closed on return.
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		if err := s.runner.Close(); err != nil {
			s.logger.Warn("failed to close store", "error", err)
		}
	}()

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	ln := s.listener
	if ln == nil {
		ln, err = net.Listen("tcp", fmt.Sprintf(":%d", s.port))
		if err != nil {
			return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
		}
	}
	s.logger.Info("starting UI server", "addr", "http://"+displayAddr(ln.Addr()))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.catalogPath != "" {
		eg.Go(func() error {
			return s.watchCatalog(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchCatalog reloads the catalog file when it changes. The parent
// directory is watched so editors that replace the file are seen too.
func (s *Server) watchCatalog(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	path := filepath.Clean(s.catalogPath)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		s.logger.Error("failed to watch catalog", "path", path, "error", err)
		<-ctx.Done()
		return nil
	}
	s.logger.Debug("watching catalog", "path", path)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDelay, s.reloadCatalog)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// reloadCatalog swaps in the catalog file's current contents and notifies
// connected pages. An invalid file keeps the previous catalog.
func (s *Server) reloadCatalog() {
	c, err := catalog.Load(s.catalogPath)
	if err != nil {
		s.logger.Error("catalog reload failed, keeping previous catalog", "path", s.catalogPath, "error", err)
		return
	}

	s.runner.SetCatalog(c)
	ev := s.notifier.Publish(s.catalogPath)
	s.logger.Info("catalog reloaded", "path", s.catalogPath, "entries", len(c.Entries), "generation", ev.Generation)
}

func displayAddr(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String()
	}
	if tcp.IP == nil || tcp.IP.IsUnspecified() {
		return fmt.Sprintf("localhost:%d", tcp.Port)
	}
	return tcp.String()
}
