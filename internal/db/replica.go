package db

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/types"
)

// Environment names become file names, so only a conservative charset is
// accepted.
var envNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ReplicaRegistry owns one embedded sqlite handle per environment. A
// handle is opened (and its schema migrated) exactly once per process;
// every caller for the same environment shares it.
type ReplicaRegistry struct {
	mu      sync.Mutex
	handles map[string]*gorm.DB
	dataDir string
	log     *logger.Logger
}

func NewReplicaRegistry(dataDir string, log *logger.Logger) *ReplicaRegistry {
	return &ReplicaRegistry{
		handles: make(map[string]*gorm.DB),
		dataDir: dataDir,
		log:     log.With("service", "ReplicaRegistry"),
	}
}

// Handle returns the shared handle for an environment, opening it lazily.
func (r *ReplicaRegistry) Handle(environment string) (*gorm.DB, error) {
	if !envNamePattern.MatchString(environment) {
		return nil, fmt.Errorf("invalid environment name %q", environment)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[environment]; ok {
		return h, nil
	}

	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(r.dataDir, fmt.Sprintf("reports_%s.db", environment))

	r.log.Info("Opening replica database", "environment", environment, "path", path)
	h, err := openReplica(path)
	if err != nil {
		return nil, err
	}
	r.handles[environment] = h
	return h, nil
}

func openReplica(path string) (*gorm.DB, error) {
	h, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open replica db: %w", err)
	}
	if err := h.AutoMigrate(&types.Report{}, &types.ReplicationState{}); err != nil {
		return nil, fmt.Errorf("migrate replica schema: %w", err)
	}
	return h, nil
}

// OpenReplicaAt opens a standalone replica handle outside the registry.
// Used by tests that want an isolated database.
func OpenReplicaAt(path string) (*gorm.DB, error) {
	return openReplica(path)
}
