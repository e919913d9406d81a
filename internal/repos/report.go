package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/types"
)

// sortColumns is the fixed allow-list for caller-controlled sort keys.
// Anything not in this map falls back to report_date descending.
var sortColumns = map[string]string{
	"reportDate":  "report_date",
	"generatedAt": "generated_at",
	"reportType":  "report_type",
	"firmId":      "firm_id",
	"errors":      "errors",
}

type ListFilter struct {
	ReportType string
	FirmID     string
	From       string // inclusive report_date lower bound, YYYY-MM-DD
	To         string // inclusive report_date upper bound, YYYY-MM-DD
}

type ReportRepo interface {
	List(ctx context.Context, filter ListFilter, sortKey, order string, limit, offset int) ([]types.Report, int64, error)
	ListRange(ctx context.Context, from, to, reportType string, firmID *string) ([]types.Report, error)
	GetByDateAndType(ctx context.Context, date, reportType string) (*types.Report, error)
	GetByID(ctx context.Context, id string) (*types.Report, error)
	Insert(ctx context.Context, report *types.Report) (*types.Report, error)
	Update(ctx context.Context, id string, patch map[string]interface{}) (*types.Report, error)
	FindIDByDateTypeFirm(ctx context.Context, date, reportType string, firmID *string) (string, error)
	Upsert(ctx context.Context, report *types.Report) (*types.Report, error)
	Count(ctx context.Context) (int64, error)
	InsertPageIgnoringDuplicates(ctx context.Context, rows []types.Report) error
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{db: db, log: baseLog.With("repo", "ReportRepo")}
}

// OrderClause resolves a caller-supplied sort key and direction against
// the allow-list. Exported so the fallback behavior is testable without a
// database.
func OrderClause(sortKey, order string) string {
	col, ok := sortColumns[sortKey]
	if !ok {
		return "report_date DESC"
	}
	dir := "DESC"
	if strings.EqualFold(order, "asc") {
		dir = "ASC"
	}
	return col + " " + dir
}

func (r *reportRepo) List(ctx context.Context, filter ListFilter, sortKey, order string, limit, offset int) ([]types.Report, int64, error) {
	q := r.db.WithContext(ctx).Model(&types.Report{})
	if filter.ReportType != "" {
		q = q.Where("report_type = ?", filter.ReportType)
	}
	if filter.FirmID != "" {
		q = q.Where("firm_id = ?", filter.FirmID)
	}
	if filter.From != "" {
		q = q.Where("report_date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("report_date <= ?", filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []types.Report
	if err := q.Order(OrderClause(sortKey, order)).Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *reportRepo) ListRange(ctx context.Context, from, to, reportType string, firmID *string) ([]types.Report, error) {
	q := r.db.WithContext(ctx).
		Where("report_date >= ? AND report_date <= ?", from, to).
		Where("report_type = ?", reportType)
	if firmID == nil {
		q = q.Where("firm_id IS NULL")
	} else {
		q = q.Where("firm_id = ?", *firmID)
	}
	var rows []types.Report
	if err := q.Order("report_date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *reportRepo) GetByDateAndType(ctx context.Context, date, reportType string) (*types.Report, error) {
	var row types.Report
	err := r.db.WithContext(ctx).
		Where("report_date = ? AND report_type = ?", date, reportType).
		Order("generated_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *reportRepo) GetByID(ctx context.Context, id string) (*types.Report, error) {
	var row types.Report
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *reportRepo) Insert(ctx context.Context, report *types.Report) (*types.Report, error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

func (r *reportRepo) Update(ctx context.Context, id string, patch map[string]interface{}) (*types.Report, error) {
	if err := r.db.WithContext(ctx).Model(&types.Report{}).Where("id = ?", id).Updates(patch).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *reportRepo) FindIDByDateTypeFirm(ctx context.Context, date, reportType string, firmID *string) (string, error) {
	q := r.db.WithContext(ctx).Model(&types.Report{}).
		Where("report_date = ? AND report_type = ?", date, reportType)
	if firmID == nil {
		q = q.Where("firm_id IS NULL")
	} else {
		q = q.Where("firm_id = ?", *firmID)
	}
	var row types.Report
	err := q.Select("id").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.ID, nil
}

// Upsert enforces the one-row-per-(date, type, firm) invariant: an
// existing row is patched in place, otherwise a new row is inserted.
func (r *reportRepo) Upsert(ctx context.Context, report *types.Report) (*types.Report, error) {
	id, err := r.FindIDByDateTypeFirm(ctx, report.ReportDate, report.ReportType, report.FirmID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return r.Insert(ctx, report)
	}

	patch := map[string]interface{}{
		"raw_data":     report.RawData,
		"generated_at": report.GeneratedAt,
		"trigger_type": report.TriggerType,
		"errors":       report.Errors,
	}
	if report.FullReport != nil {
		patch["full_report"] = report.FullReport
	}
	if report.SuccessReport != nil {
		patch["success_report"] = report.SuccessReport
	}
	if report.FailureReport != nil {
		patch["failure_report"] = report.FailureReport
	}
	return r.Update(ctx, id, patch)
}

func (r *reportRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&types.Report{}).Count(&n).Error
	return n, err
}

// InsertPageIgnoringDuplicates writes one clone page in a single
// transaction. Conflicting primary keys are skipped, so a retried or
// cross-process clone never duplicates rows.
func (r *reportRepo) InsertPageIgnoringDuplicates(ctx context.Context, rows []types.Report) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}
