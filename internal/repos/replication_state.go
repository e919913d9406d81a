package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/types"
)

// ReplicationStateRepo tracks clone completion per environment.
type ReplicationStateRepo interface {
	Get(ctx context.Context, environment string) (*types.ReplicationState, error)
	MarkCompleted(ctx context.Context, environment string, rowCount int64) error
}

type replicationStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReplicationStateRepo(db *gorm.DB, baseLog *logger.Logger) ReplicationStateRepo {
	return &replicationStateRepo{db: db, log: baseLog.With("repo", "ReplicationStateRepo")}
}

func (r *replicationStateRepo) Get(ctx context.Context, environment string) (*types.ReplicationState, error) {
	var row types.ReplicationState
	err := r.db.WithContext(ctx).Where("environment = ?", environment).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *replicationStateRepo) MarkCompleted(ctx context.Context, environment string, rowCount int64) error {
	row := types.ReplicationState{
		Environment: environment,
		CompletedAt: time.Now().UTC(),
		RowCount:    rowCount,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}
