package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/cfgbind/internal/api"
	"github.com/eugenenazirov/cfgbind/internal/config"
	"github.com/eugenenazirov/cfgbind/internal/reload"
	"github.com/eugenenazirov/cfgbind/internal/storage"
)

const renderPath = "/api/config/render"

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	watcher *reload.Watcher
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
	watch   bool
}

// New initializes the application from the provided configuration. The
// configured source is bound once up front; a source that fails to bind
// aborts startup.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	loader := reload.Loader{
		Path:      cfg.Source,
		Layered:   cfg.Layered,
		EnvPrefix: cfg.EnvPrefix,
	}
	watcher := reload.NewWatcher(loader, store, logger)

	if _, err := watcher.Reload(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load initial configuration: %w", err)
	}

	handler := api.NewHandler(store, watcher)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		storage: store,
		watcher: watcher,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter)),
		watch:   cfg.Watch,
	}, nil
}

// BuildRootHandler mounts the API and redirects the root path to the
// rendered configuration.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, renderPath, http.StatusFound)
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the file watcher when enabled and the HTTP server in a
// goroutine. Cancelling ctx stops the watcher.
func (a *App) Start(ctx context.Context) error {
	if a.watch {
		if err := a.watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start config watcher: %w", err)
		}
	}

	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Storage exposes the snapshot store.
func (a *App) Storage() storage.Storage {
	return a.storage
}
