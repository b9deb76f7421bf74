package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raysh454/vigil/internal/capture"
	"github.com/raysh454/vigil/internal/catalog"
	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/monitor"
	"github.com/raysh454/vigil/internal/scheduler"
	"github.com/raysh454/vigil/internal/server"
	"github.com/raysh454/vigil/internal/storage"
	"github.com/raysh454/vigil/internal/whois"
)

// Application wires the runtime components together and owns their
// lifecycle. Pass Application into code that needs shared state rather than
// using package-level variables.
type Application struct {
	Config *Config
	Logger interfaces.Logger

	Store     *storage.FileStore
	Engine    *capture.Engine
	Events    *monitor.EventHub
	Orch      *monitor.Orchestrator
	Scheduler *scheduler.Scheduler
	Server    *server.Server
	Whois     *whois.Client
	Catalog   *catalog.Catalog

	catalogDB *sql.DB
	httpSrv   *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApplication constructs and wires every component from cfg. Subsystems
// switched off in cfg (whois, nrd catalog) stay nil and their routes answer
// 503.
func NewApplication(cfg *Config, logger interfaces.Logger) (*Application, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("app: config and logger are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	capture.RegisterDefaultProviders()
	providers, err := capture.NewProviderChain(cfg.Capture, logger)
	if err != nil {
		return nil, fmt.Errorf("init screenshot providers: %w", err)
	}
	engine, err := capture.NewEngine(cfg.Capture, providers, logger)
	if err != nil {
		return nil, fmt.Errorf("init capture engine: %w", err)
	}

	events := monitor.NewEventHub()
	orch, err := monitor.New(cfg.Monitor, store, engine, events, logger)
	if err != nil {
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}
	sched, err := scheduler.New(cfg.Scheduler, store, engine, orch, events, logger)
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	orch.SetScheduler(sched)

	var whoisClient *whois.Client
	if cfg.WhoisEnabled() {
		whoisClient, err = whois.NewClient(cfg.Whois, logger)
		if err != nil {
			return nil, fmt.Errorf("init whois client: %w", err)
		}
	}

	var (
		cat       *catalog.Catalog
		catalogDB *sql.DB
	)
	if cfg.CatalogEnabled() {
		if err := os.MkdirAll(filepath.Dir(cfg.Catalog.DatabasePath), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
		db, err := sql.Open("sqlite", cfg.Catalog.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open catalog database: %w", err)
		}
		cat, err = catalog.New(db, cfg.Catalog, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init nrd catalog: %w", err)
		}
		catalogDB = db
	}

	srv, err := server.NewServer(cfg.Server, orch, store, whoisClient, cat, logger)
	if err != nil {
		if catalogDB != nil {
			catalogDB.Close()
		}
		return nil, fmt.Errorf("init http server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Engine:    engine,
		Events:    events,
		Orch:      orch,
		Scheduler: sched,
		Server:    srv,
		Whois:     whoisClient,
		Catalog:   cat,
		catalogDB: catalogDB,
		httpSrv:   srv.HTTPServer(),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// HTTPServer returns the configured HTTP server; the caller owns the
// listen loop.
func (a *Application) HTTPServer() *http.Server {
	return a.httpSrv
}

// Start brings up the background side of the application. Domains persisted
// by a previous run resume their periodic checks.
func (a *Application) Start() error {
	if a == nil {
		return errors.New("application is nil")
	}

	a.Logger.Info("application starting",
		interfaces.Field{Key: "data_root", Value: a.Store.Root()},
		interfaces.Field{Key: "config", Value: a.Config.Summary()})

	return a.resumeSchedules()
}

// resumeSchedules restarts periodic checks for every active domain that
// survived the previous run.
func (a *Application) resumeSchedules() error {
	domains, err := a.Store.LoadDomains(a.ctx)
	if err != nil {
		return fmt.Errorf("load domains for scheduling: %w", err)
	}

	resumed := 0
	for _, d := range domains {
		if !d.Active {
			continue
		}
		a.Scheduler.Schedule(d)
		resumed++
	}
	if resumed > 0 {
		a.Logger.Info("resumed periodic checks",
			interfaces.Field{Key: "domains", Value: resumed})
	}
	return nil
}

// Shutdown stops the application. The scheduler drains first so no check is
// mid-flight when the HTTP listener closes; the catalog database closes
// last.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	a.Scheduler.Stop()

	if a.httpSrv != nil {
		if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("http server shutdown returned error",
				interfaces.Field{Key: "error", Value: err.Error()})
		}
	}

	if a.catalogDB != nil {
		if err := a.catalogDB.Close(); err != nil {
			a.Logger.Warn("failed to close catalog database",
				interfaces.Field{Key: "error", Value: err.Error()})
		}
	}

	a.cancel()
	a.Logger.Info("application stopped")
	return nil
}
