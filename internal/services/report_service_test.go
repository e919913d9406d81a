package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hellocounsel/reports-backend/internal/db"
	"github.com/hellocounsel/reports-backend/internal/platform/apierr"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/repos"
	"github.com/hellocounsel/reports-backend/internal/types"
)

type noopReplication struct{}

func (noopReplication) EnsureReplica(context.Context, string) error { return nil }

type fakeCorrelator struct {
	snapshots map[string]types.EODRawData
}

func (f fakeCorrelator) BuildDaily(_ context.Context, reportDate, environment string) (types.EODRawData, error) {
	s, ok := f.snapshots[reportDate]
	if !ok {
		return types.EODRawData{}, apierr.Upstream("no snapshot for %s", reportDate)
	}
	s.GeneratedAt = time.Now().UTC()
	s.Environment = environment
	return s, nil
}

func newReportFixture(t *testing.T, correlator CorrelatorService) (ReportService, *repos.ReplicaStores) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	h, err := db.OpenReplicaAt(filepath.Join(t.TempDir(), "replica.db"))
	if err != nil {
		t.Fatalf("OpenReplicaAt: %v", err)
	}
	stores := repos.NewReplicaStores(fixedHandles{db: h}, log)
	svc := NewReportService(stores, noopReplication{}, correlator, NewWeeklyAggregator(log), log)
	return svc, stores
}

func daySnapshot(count, failures, errs int, rate float64) types.EODRawData {
	return types.EODRawData{
		Count:             count,
		Total:             count,
		Errors:            errs,
		FailureCount:      failures,
		DisconnectionRate: rate,
		Success:           []types.CallRecord{},
		Failure:           []types.CallRecord{},
		CSEscalationMap:   []types.Escalation{},
		TransfersMap:      map[string]types.TransferOutcome{},
	}
}

func TestGenerateDailyPersistsSnapshot(t *testing.T) {
	correlator := fakeCorrelator{snapshots: map[string]types.EODRawData{
		"2026-08-10": daySnapshot(4, 1, 3, 0.25),
	}}
	svc, _ := newReportFixture(t, correlator)

	saved, err := svc.GenerateDaily(context.Background(), "production", "2026-08-10", "anything-else")
	if err != nil {
		t.Fatalf("GenerateDaily: %v", err)
	}
	if saved.ReportType != types.ReportTypeFull {
		t.Fatalf("report type: want=full got=%s", saved.ReportType)
	}
	// Unknown trigger strings normalize to manual.
	if saved.TriggerType != types.TriggerTypeManual {
		t.Fatalf("trigger: want=manual got=%s", saved.TriggerType)
	}
	if saved.Errors == nil || *saved.Errors != 3 {
		t.Fatalf("errors column: want=3 got=%v", saved.Errors)
	}

	loaded, err := saved.EODRawData()
	if err != nil {
		t.Fatalf("EODRawData: %v", err)
	}
	if loaded.Count != 4 || loaded.Environment != "production" {
		t.Fatalf("persisted snapshot: got count=%d env=%s", loaded.Count, loaded.Environment)
	}
}

func TestGenerateDailyClonesBeforeUpserting(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	h, err := db.OpenReplicaAt(filepath.Join(t.TempDir(), "replica.db"))
	if err != nil {
		t.Fatalf("OpenReplicaAt: %v", err)
	}
	stores := repos.NewReplicaStores(fixedHandles{db: h}, log)

	// The source of truth already holds a full report for the date being
	// generated; the replica has never been cloned.
	source := &fakeSource{rows: []types.Report{{
		ID:         "source-row-0001",
		ReportDate: "2026-08-10",
		ReportType: types.ReportTypeFull,
	}}}
	correlator := fakeCorrelator{snapshots: map[string]types.EODRawData{
		"2026-08-10": daySnapshot(4, 1, 3, 0.25),
	}}
	svc := NewReportService(stores, NewReplicationService(stores, source, log),
		correlator, NewWeeklyAggregator(log), log)
	ctx := context.Background()

	saved, err := svc.GenerateDaily(ctx, "production", "2026-08-10", types.TriggerTypeScheduled)
	if err != nil {
		t.Fatalf("GenerateDaily: %v", err)
	}
	// Generation must land on the cloned row, not insert a sibling with a
	// fresh id.
	if saved.ID != "source-row-0001" {
		t.Fatalf("generated report id: want=source-row-0001 got=%s", saved.ID)
	}

	// A later read path re-checks the clone; the triple must still map to
	// one row.
	rows, total, err := svc.ListReports(ctx, "production", repos.ListFilter{}, "", "", 10, 0)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("rows for (2026-08-10, full, nil firm): want=1 got=%d", total)
	}
}

func TestGenerateDailyRerunReplacesRow(t *testing.T) {
	correlator := fakeCorrelator{snapshots: map[string]types.EODRawData{
		"2026-08-10": daySnapshot(4, 1, 3, 0.25),
	}}
	svc, stores := newReportFixture(t, correlator)
	ctx := context.Background()

	first, err := svc.GenerateDaily(ctx, "production", "2026-08-10", types.TriggerTypeScheduled)
	if err != nil {
		t.Fatalf("GenerateDaily: %v", err)
	}
	correlator.snapshots["2026-08-10"] = daySnapshot(6, 2, 1, 0.1)
	second, err := svc.GenerateDaily(ctx, "production", "2026-08-10", types.TriggerTypeScheduled)
	if err != nil {
		t.Fatalf("GenerateDaily rerun: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("rerun id: want=%s got=%s", first.ID, second.ID)
	}

	reportRepo, err := stores.Reports("production")
	if err != nil {
		t.Fatalf("Reports: %v", err)
	}
	n, err := reportRepo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows after rerun: want=1 got=%d", n)
	}
	loaded, err := second.EODRawData()
	if err != nil {
		t.Fatalf("EODRawData: %v", err)
	}
	if loaded.Count != 6 {
		t.Fatalf("rerun snapshot: want count=6 got=%d", loaded.Count)
	}
}

func TestGenerateWeeklyRollsUpTheWindow(t *testing.T) {
	correlator := fakeCorrelator{snapshots: map[string]types.EODRawData{
		"2026-08-10": daySnapshot(10, 2, 1, 0.2), // Monday
		"2026-08-12": daySnapshot(5, 1, 0, 0.4),  // Wednesday
		"2026-08-17": daySnapshot(9, 9, 9, 0.9),  // next Monday, outside the window
	}}
	svc, _ := newReportFixture(t, correlator)
	ctx := context.Background()

	for date := range correlator.snapshots {
		if _, err := svc.GenerateDaily(ctx, "production", date, types.TriggerTypeScheduled); err != nil {
			t.Fatalf("GenerateDaily(%s): %v", date, err)
		}
	}

	weekly, err := svc.GenerateWeekly(ctx, "production", "2026-08-13", nil)
	if err != nil {
		t.Fatalf("GenerateWeekly: %v", err)
	}
	if weekly.ReportDate != "2026-08-10" || weekly.ReportType != types.ReportTypeWeekly {
		t.Fatalf("weekly row: got date=%s type=%s", weekly.ReportDate, weekly.ReportType)
	}

	rolled, err := weekly.WeeklyRawData()
	if err != nil {
		t.Fatalf("WeeklyRawData: %v", err)
	}
	if rolled.Count != 15 || rolled.FailureCount != 3 {
		t.Fatalf("rollup: want count=15 failures=3 got count=%d failures=%d",
			rolled.Count, rolled.FailureCount)
	}
	// (0.2*10 + 0.4*5) / 15 rounds to 0.27; the out-of-window Monday is excluded.
	if rolled.DisconnectionRate != 0.27 {
		t.Fatalf("rollup rate: want=0.27 got=%v", rolled.DisconnectionRate)
	}
	if rolled.WeekStart != "2026-08-10" || rolled.WeekEnd != "2026-08-16" {
		t.Fatalf("window: got %s..%s", rolled.WeekStart, rolled.WeekEnd)
	}
}

func TestGenerateWeeklyEmptyWindowIsNoData(t *testing.T) {
	svc, _ := newReportFixture(t, fakeCorrelator{})

	_, err := svc.GenerateWeekly(context.Background(), "production", "2026-08-13", nil)
	if err == nil {
		t.Fatalf("GenerateWeekly: want no_data for empty window")
	}
	if apierr.CodeOf(err) != apierr.CodeNoData {
		t.Fatalf("code: want=%s got=%s", apierr.CodeNoData, apierr.CodeOf(err))
	}
}

func TestGetReportMissing(t *testing.T) {
	svc, _ := newReportFixture(t, fakeCorrelator{})

	row, err := svc.GetReport(context.Background(), "production", "2026-01-01", types.ReportTypeFull)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if row != nil {
		t.Fatalf("GetReport: want nil for missing report")
	}
}
