package services

import (
	"context"
	"time"

	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/repos"
	"github.com/hellocounsel/reports-backend/internal/types"
)

// ReportService is the entry point the HTTP layer talks to. Reads go
// through the lazily-populated replica; generation builds fresh snapshots
// and persists them back through the same replica.
type ReportService interface {
	ListReports(ctx context.Context, environment string, filter repos.ListFilter, sortKey, order string, limit, offset int) ([]types.Report, int64, error)
	GetReport(ctx context.Context, environment, date, reportType string) (*types.Report, error)
	GenerateDaily(ctx context.Context, environment, reportDate, triggerType string) (*types.Report, error)
	GenerateWeekly(ctx context.Context, environment, weekDate string, firmID *string) (*types.Report, error)
}

type reportService struct {
	stores      *repos.ReplicaStores
	replication ReplicationService
	correlator  CorrelatorService
	aggregator  *WeeklyAggregator
	log         *logger.Logger
}

func NewReportService(stores *repos.ReplicaStores, replication ReplicationService, correlator CorrelatorService, aggregator *WeeklyAggregator, baseLog *logger.Logger) ReportService {
	return &reportService{
		stores:      stores,
		replication: replication,
		correlator:  correlator,
		aggregator:  aggregator,
		log:         baseLog.With("service", "ReportService"),
	}
}

func (s *reportService) ListReports(ctx context.Context, environment string, filter repos.ListFilter, sortKey, order string, limit, offset int) ([]types.Report, int64, error) {
	if err := s.replication.EnsureReplica(ctx, environment); err != nil {
		return nil, 0, err
	}
	reportRepo, err := s.stores.Reports(environment)
	if err != nil {
		return nil, 0, err
	}
	return reportRepo.List(ctx, filter, sortKey, order, limit, offset)
}

func (s *reportService) GetReport(ctx context.Context, environment, date, reportType string) (*types.Report, error) {
	if err := s.replication.EnsureReplica(ctx, environment); err != nil {
		return nil, err
	}
	reportRepo, err := s.stores.Reports(environment)
	if err != nil {
		return nil, err
	}
	return reportRepo.GetByDateAndType(ctx, date, reportType)
}

func (s *reportService) GenerateDaily(ctx context.Context, environment, reportDate, triggerType string) (*types.Report, error) {
	if triggerType != types.TriggerTypeScheduled {
		triggerType = types.TriggerTypeManual
	}

	// Clone before writing: the upsert must see any source-of-truth row
	// for this (date, type, firm) so it patches it instead of inserting a
	// sibling.
	if err := s.replication.EnsureReplica(ctx, environment); err != nil {
		return nil, err
	}

	snapshot, err := s.correlator.BuildDaily(ctx, reportDate, environment)
	if err != nil {
		return nil, err
	}

	errorCount := snapshot.Errors
	report := &types.Report{
		ReportDate:  reportDate,
		ReportType:  types.ReportTypeFull,
		GeneratedAt: snapshot.GeneratedAt,
		TriggerType: triggerType,
		Errors:      &errorCount,
		FirmID:      snapshot.FirmID,
	}
	if err := report.SetRawData(snapshot); err != nil {
		return nil, err
	}

	reportRepo, err := s.stores.Reports(environment)
	if err != nil {
		return nil, err
	}
	saved, err := reportRepo.Upsert(ctx, report)
	if err != nil {
		return nil, err
	}
	s.log.Info("Daily report persisted",
		"reportDate", reportDate, "environment", environment, "reportId", saved.ID)
	return saved, nil
}

func (s *reportService) GenerateWeekly(ctx context.Context, environment, weekDate string, firmID *string) (*types.Report, error) {
	weekStart, weekEnd, err := WeekWindow(weekDate)
	if err != nil {
		return nil, err
	}
	if err := s.replication.EnsureReplica(ctx, environment); err != nil {
		return nil, err
	}
	reportRepo, err := s.stores.Reports(environment)
	if err != nil {
		return nil, err
	}

	dailyRows, err := reportRepo.ListRange(ctx, weekStart, weekEnd, types.ReportTypeFull, firmID)
	if err != nil {
		return nil, err
	}
	dailies := make([]types.EODRawData, 0, len(dailyRows))
	for _, row := range dailyRows {
		d, err := row.EODRawData()
		if err != nil {
			return nil, err
		}
		dailies = append(dailies, d)
	}

	weekly, err := s.aggregator.Aggregate(dailies, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	weekly.GeneratedAt = time.Now().UTC()

	errorCount := weekly.Errors
	report := &types.Report{
		ReportDate:  weekStart,
		ReportType:  types.ReportTypeWeekly,
		GeneratedAt: weekly.GeneratedAt,
		TriggerType: types.TriggerTypeManual,
		Errors:      &errorCount,
		FirmID:      weekly.FirmID,
	}
	if err := report.SetRawData(weekly); err != nil {
		return nil, err
	}

	saved, err := reportRepo.Upsert(ctx, report)
	if err != nil {
		return nil, err
	}
	s.log.Info("Weekly report persisted",
		"weekStart", weekStart, "weekEnd", weekEnd, "environment", environment, "reportId", saved.ID)
	return saved, nil
}
