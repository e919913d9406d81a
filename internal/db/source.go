package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hellocounsel/reports-backend/internal/platform/logger"
)

// SourceService holds the connection to the remote source-of-truth
// database. The report engine only ever reads from it: paginated walks
// of the reports table during replication and prompt lookups.
type SourceService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceService(dsn string, log *logger.Logger) (*SourceService, error) {
	serviceLog := log.With("service", "SourceService")
	if dsn == "" {
		return nil, fmt.Errorf("source database DSN is required")
	}

	serviceLog.Info("Connecting to source database...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to source database: %w", err)
	}
	return &SourceService{db: db, log: serviceLog}, nil
}

func (s *SourceService) DB() *gorm.DB {
	return s.db
}
