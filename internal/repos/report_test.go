package repos

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hellocounsel/reports-backend/internal/db"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/types"
)

func newTestRepo(t *testing.T) ReportRepo {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	h, err := db.OpenReplicaAt(filepath.Join(t.TempDir(), "replica.db"))
	if err != nil {
		t.Fatalf("OpenReplicaAt: %v", err)
	}
	return NewReportRepo(h, log)
}

func dailyReport(t *testing.T, date string, firmID *string) *types.Report {
	t.Helper()
	snapshot := types.EODRawData{
		Count:       2,
		Total:       2,
		Environment: "production",
		Success: []types.CallRecord{{
			CorrelationID: "aaaaaaaa-1111-2222-3333-444444444444",
			Evaluation:    types.Evaluation{ID: 2, Status: "success", Success: true},
			Errors:        []types.ErrorEvent{},
		}},
		Failure: []types.CallRecord{{
			CorrelationID: "bbbbbbbb-1111-2222-3333-444444444444",
			Evaluation:    types.Evaluation{ID: 1, Status: "failed"},
			Errors:        []types.ErrorEvent{},
		}},
		FailureCount:    1,
		CSEscalationMap: []types.Escalation{},
		TransfersMap:    map[string]types.TransferOutcome{},
		GeneratedAt:     time.Date(2026, 8, 10, 23, 59, 0, 0, time.UTC),
	}
	report := &types.Report{
		ReportDate:  date,
		ReportType:  types.ReportTypeFull,
		GeneratedAt: snapshot.GeneratedAt,
		TriggerType: types.TriggerTypeManual,
		FirmID:      firmID,
	}
	if err := report.SetRawData(snapshot); err != nil {
		t.Fatalf("SetRawData: %v", err)
	}
	return report
}

func TestOrderClauseAllowList(t *testing.T) {
	cases := []struct {
		sortKey string
		order   string
		want    string
	}{
		{"reportDate", "asc", "report_date ASC"},
		{"generatedAt", "desc", "generated_at DESC"},
		{"errors", "", "errors DESC"},
		{"firmId", "ASC", "firm_id ASC"},
		{"", "", "report_date DESC"},
		{"rawData", "asc", "report_date DESC"},
		{"'; DROP TABLE reports; --", "asc", "report_date DESC"},
	}
	for _, tc := range cases {
		if got := OrderClause(tc.sortKey, tc.order); got != tc.want {
			t.Fatalf("OrderClause(%q, %q): want=%q got=%q", tc.sortKey, tc.order, tc.want, got)
		}
	}
}

func TestListWithHostileSortKeyFallsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, date := range []string{"2026-08-10", "2026-08-11", "2026-08-12"} {
		if _, err := repo.Insert(ctx, dailyReport(t, date, nil)); err != nil {
			t.Fatalf("Insert(%s): %v", date, err)
		}
	}

	rows, total, err := repo.List(ctx, ListFilter{}, "'; DROP TABLE reports; --", "asc", 10, 0)
	if err != nil {
		t.Fatalf("List with hostile sort key: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("List: want total=3 rows=3 got total=%d rows=%d", total, len(rows))
	}
	if rows[0].ReportDate != "2026-08-12" {
		t.Fatalf("fallback order: want newest first, got %s", rows[0].ReportDate)
	}

	// The table must still answer queries afterwards.
	if _, err := repo.Count(ctx); err != nil {
		t.Fatalf("Count after hostile sort: %v", err)
	}
}

func TestListFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	firm := "firm-1"

	if _, err := repo.Insert(ctx, dailyReport(t, "2026-08-10", nil)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	withFirm := dailyReport(t, "2026-08-11", &firm)
	if _, err := repo.Insert(ctx, withFirm); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rows, total, err := repo.List(ctx, ListFilter{FirmID: firm}, "reportDate", "desc", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].ReportDate != "2026-08-11" {
		t.Fatalf("firm filter: want one 2026-08-11 row, got total=%d", total)
	}

	rows, _, err = repo.List(ctx, ListFilter{From: "2026-08-11", To: "2026-08-11"}, "", "", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].ReportDate != "2026-08-11" {
		t.Fatalf("date range filter: want one 2026-08-11 row, got %d", len(rows))
	}
}

func TestUpsertKeepsOneRowPerTriple(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, dailyReport(t, "2026-08-10", nil))
	if err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}

	second := dailyReport(t, "2026-08-10", nil)
	second.TriggerType = types.TriggerTypeScheduled
	updated, err := repo.Upsert(ctx, second)
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if updated.ID != first.ID {
		t.Fatalf("upsert id: want=%s got=%s", first.ID, updated.ID)
	}
	if updated.TriggerType != types.TriggerTypeScheduled {
		t.Fatalf("upsert trigger type: want=scheduled got=%s", updated.TriggerType)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("row count after double upsert: want=1 got=%d", n)
	}
}

func TestUpsertDistinguishesFirms(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	firm := "firm-1"

	if _, err := repo.Upsert(ctx, dailyReport(t, "2026-08-10", nil)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := repo.Upsert(ctx, dailyReport(t, "2026-08-10", &firm)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("nil-firm and firm rows must coexist: want=2 got=%d", n)
	}

	id, err := repo.FindIDByDateTypeFirm(ctx, "2026-08-10", types.ReportTypeFull, nil)
	if err != nil {
		t.Fatalf("FindIDByDateTypeFirm: %v", err)
	}
	if id == "" {
		t.Fatalf("FindIDByDateTypeFirm(nil firm): want a row")
	}
}

func TestRawDataRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	original := dailyReport(t, "2026-08-10", nil)
	want, err := original.EODRawData()
	if err != nil {
		t.Fatalf("EODRawData: %v", err)
	}

	saved, err := repo.Insert(ctx, original)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	loaded, err := repo.GetByID(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded == nil {
		t.Fatalf("GetByID: row missing")
	}

	got, err := loaded.EODRawData()
	if err != nil {
		t.Fatalf("EODRawData after reload: %v", err)
	}
	if got.Count != want.Count || got.FailureCount != want.FailureCount || got.Environment != want.Environment {
		t.Fatalf("round trip scalars: want=%+v got=%+v", want, got)
	}
	if len(got.Success) != len(want.Success) || len(got.Failure) != len(want.Failure) {
		t.Fatalf("round trip buckets: want %d/%d got %d/%d",
			len(want.Success), len(want.Failure), len(got.Success), len(got.Failure))
	}
	if got.Success[0].CorrelationID != want.Success[0].CorrelationID {
		t.Fatalf("round trip correlation id: want=%s got=%s",
			want.Success[0].CorrelationID, got.Success[0].CorrelationID)
	}
	if !got.GeneratedAt.Equal(want.GeneratedAt) {
		t.Fatalf("round trip generatedAt: want=%s got=%s", want.GeneratedAt, got.GeneratedAt)
	}
}

func TestGetByDateAndTypeMissing(t *testing.T) {
	repo := newTestRepo(t)

	row, err := repo.GetByDateAndType(context.Background(), "2026-01-01", types.ReportTypeFull)
	if err != nil {
		t.Fatalf("GetByDateAndType: %v", err)
	}
	if row != nil {
		t.Fatalf("GetByDateAndType: want nil for missing row, got %+v", row)
	}
}

func TestInsertPageIgnoringDuplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	page := []types.Report{*dailyReport(t, "2026-08-10", nil), *dailyReport(t, "2026-08-11", nil)}
	page[0].ID = "row-1"
	page[1].ID = "row-2"

	if err := repo.InsertPageIgnoringDuplicates(ctx, page); err != nil {
		t.Fatalf("InsertPageIgnoringDuplicates: %v", err)
	}
	// Same page again: conflicting primary keys are skipped.
	if err := repo.InsertPageIgnoringDuplicates(ctx, page); err != nil {
		t.Fatalf("InsertPageIgnoringDuplicates retry: %v", err)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("duplicate page insert: want=2 got=%d", n)
	}
}
