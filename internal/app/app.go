package app

import (
	"fmt"
	"os"

	"github.com/hellocounsel/reports-backend/internal/db"
	internalhttp "github.com/hellocounsel/reports-backend/internal/http"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Registry *db.ReplicaRegistry
	Server   *internalhttp.Server
	Repos    Repos
	Services Services
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()

	source, err := db.NewSourceService(cfg.SourceDatabaseURL, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init source database: %w", err)
	}

	registry := db.NewReplicaRegistry(cfg.DataDir, log)

	clientset, err := wireClients(cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(registry, source.DB(), log)
	serviceset := wireServices(cfg, reposet, clientset, log)
	handlerset := wireHandlers(serviceset, log)
	server := wireRouter(handlerset)

	return &App{
		Log:      log,
		Cfg:      cfg,
		Registry: registry,
		Server:   server,
		Repos:    reposet,
		Services: serviceset,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(fmt.Sprintf(":%d", a.Cfg.Port))
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
