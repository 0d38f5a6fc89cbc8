package application

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eugenenazirov/catering-configurator/internal/api"
	"github.com/eugenenazirov/catering-configurator/internal/breakdown"
	"github.com/eugenenazirov/catering-configurator/internal/calculator"
	"github.com/eugenenazirov/catering-configurator/internal/catalog"
	"github.com/eugenenazirov/catering-configurator/internal/config"
	"github.com/eugenenazirov/catering-configurator/internal/configurator"
	"github.com/eugenenazirov/catering-configurator/internal/pricing"
	"github.com/eugenenazirov/catering-configurator/internal/session"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	catalog  *catalog.Cached
	sessions *configurator.Manager
	persist  session.Store
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	rules := calculator.DefaultRules().WithOverrides(cfg.SauceRatios, cfg.PackSizes)
	calc, err := calculator.NewWithRules(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to apply packaging rules: %w", err)
	}

	source, err := newCatalogSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	cached := catalog.NewCached(source,
		catalog.WithTTL(cfg.CatalogTTL),
		catalog.WithLogger(logger.Named("catalog")),
	)

	engine := pricing.NewEngine(cached,
		pricing.WithTaxRate(decimal.NewFromFloat(cfg.TaxRate)),
		pricing.WithCalculator(calc),
		pricing.WithLogger(logger.Named("pricing")),
	)

	persist, err := newSessionStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	sessions := configurator.NewManager(cached, engine,
		configurator.WithPersistence(persist),
		configurator.WithQuantum(cfg.DebounceQuantum),
		configurator.WithAssembler(breakdown.New(calc)),
		configurator.WithLogger(logger.Named("sessions")),
	)

	handler := api.NewHandler(sessions, cached, api.WithInvalidator(cached))
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		catalog:  cached,
		sessions: sessions,
		persist:  persist,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

func newCatalogSource(cfg config.Config) (catalog.Source, error) {
	switch {
	case cfg.CatalogURL != "":
		return catalog.NewHTTPClient(cfg.CatalogURL, catalog.WithRequestRate(cfg.CatalogRPS, cfg.CatalogBurst))
	case cfg.CatalogFile != "":
		path := cfg.CatalogFile
		if !filepath.IsAbs(path) {
			if _, err := os.Stat(path); err != nil {
				resolved, resolveErr := resolveProjectPath(path)
				if resolveErr != nil {
					return nil, fmt.Errorf("catalog file %s: %w", path, err)
				}
				path = resolved
			}
		}
		return catalog.LoadFile(path)
	default:
		return catalog.Default(), nil
	}
}

func newSessionStore(cfg config.Config) (session.Store, error) {
	if cfg.SessionDB == "" {
		return session.NewMemoryStore(), nil
	}
	return session.OpenSQLite(cfg.SessionDB)
}

// BuildRootHandler constructs the root HTTP handler that routes API requests.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/api/health", http.StatusTemporaryRedirect)
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

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
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

// Sessions returns the session manager.
func (a *App) Sessions() *configurator.Manager {
	return a.sessions
}

// Close ends every live session and releases the session store.
func (a *App) Close() error {
	a.sessions.Close()
	if c, ok := a.persist.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close session store: %w", err)
		}
	}
	return nil
}

// resolveProjectPath locates a file or directory relative to the project root by walking up the directory tree.
func resolveProjectPath(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
