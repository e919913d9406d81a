package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/types"
)

// SourceReportRepo walks the remote source-of-truth reports table. The
// clone consumes it page by page, newest dates first.
type SourceReportRepo interface {
	Page(ctx context.Context, limit, offset int) ([]types.Report, error)
}

type sourceReportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceReportRepo(db *gorm.DB, baseLog *logger.Logger) SourceReportRepo {
	return &sourceReportRepo{db: db, log: baseLog.With("repo", "SourceReportRepo")}
}

func (r *sourceReportRepo) Page(ctx context.Context, limit, offset int) ([]types.Report, error) {
	var rows []types.Report
	err := r.db.WithContext(ctx).
		Order("report_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PromptRepo reads narrative prompt templates from the source of truth.
type PromptRepo interface {
	GetByType(ctx context.Context, reportType string) (*types.ReportPrompt, error)
}

type promptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPromptRepo(db *gorm.DB, baseLog *logger.Logger) PromptRepo {
	return &promptRepo{db: db, log: baseLog.With("repo", "PromptRepo")}
}

func (r *promptRepo) GetByType(ctx context.Context, reportType string) (*types.ReportPrompt, error) {
	var row types.ReportPrompt
	err := r.db.WithContext(ctx).Where("report_type = ?", reportType).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
