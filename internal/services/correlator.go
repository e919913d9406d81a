package services

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hellocounsel/reports-backend/internal/clients/sentry"
	"github.com/hellocounsel/reports-backend/internal/clients/vapi"
	"github.com/hellocounsel/reports-backend/internal/platform/apierr"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/types"
)

// Error events older than this cannot belong to a report still being
// generated; matches the error tracker's retention query window.
const defaultErrorLookback = 14 * 24 * time.Hour

var reportDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Bucketing compares against this literal; any other status is a failure.
const statusSuccess = "success"

// CorrelatorService builds a fresh daily snapshot by joining the
// call-evaluation and error-tracking sources on correlation id.
type CorrelatorService interface {
	BuildDaily(ctx context.Context, reportDate, environment string) (types.EODRawData, error)
}

type correlatorService struct {
	calls         vapi.Client
	errorTracker  sentry.Client
	errorLookback time.Duration
	log           *logger.Logger
}

func NewCorrelatorService(calls vapi.Client, errorTracker sentry.Client, baseLog *logger.Logger) CorrelatorService {
	return &correlatorService{
		calls:         calls,
		errorTracker:  errorTracker,
		errorLookback: defaultErrorLookback,
		log:           baseLog.With("service", "CorrelatorService"),
	}
}

func (s *correlatorService) BuildDaily(ctx context.Context, reportDate, environment string) (types.EODRawData, error) {
	if !reportDatePattern.MatchString(reportDate) {
		return types.EODRawData{}, apierr.BadRequest("report date must be YYYY-MM-DD, got %q", reportDate)
	}
	dayStart, err := time.Parse("2006-01-02", reportDate)
	if err != nil {
		return types.EODRawData{}, apierr.BadRequest("invalid report date %q", reportDate)
	}
	dayStart = dayStart.UTC()
	dayEnd := dayStart.AddDate(0, 0, 1)

	var (
		results []vapi.Result
		total   int
		events  []sentry.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, t, err := s.calls.ListEvaluations(gctx, dayStart, dayEnd)
		if err != nil {
			return err
		}
		results, total = r, t
		return nil
	})
	g.Go(func() error {
		// The error tracker failing degrades to zero recorded errors;
		// the evaluation source failing aborts the whole build.
		ev, err := s.errorTracker.ListEvents(gctx, environment, s.errorLookback)
		if err != nil {
			s.log.Warn("Error-tracking fetch failed, continuing with zero errors",
				"environment", environment, "error", err)
			return nil
		}
		events = ev
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.EODRawData{}, err
	}

	snapshot := join(results, events)
	snapshot.Total = total
	snapshot.GeneratedAt = time.Now().UTC()
	snapshot.Environment = environment

	s.log.Info("Daily snapshot built",
		"reportDate", reportDate,
		"environment", environment,
		"count", snapshot.Count,
		"failures", snapshot.FailureCount,
		"errorEvents", snapshot.Errors)
	return snapshot, nil
}

// join buckets every evaluation into success/failure, attaches matching
// error events, and computes the summary metrics the weekly rollup
// consumes. Error events with no matching evaluation are dropped.
func join(results []vapi.Result, events []sentry.Event) types.EODRawData {
	// Filtered, size-reduced view keyed by correlation id. Evaluation ids
	// are monotonically assigned, so on a duplicate correlation id the
	// higher id wins.
	evals := make(map[string]types.Evaluation, len(results))
	for _, res := range results {
		key := strings.ToLower(strings.TrimSpace(res.CorrelationID))
		if key == "" {
			continue
		}
		if existing, ok := evals[key]; ok && existing.ID >= res.ID {
			continue
		}
		evals[key] = filterEvaluation(res)
	}

	errsByID := make(map[string][]types.ErrorEvent)
	for _, ev := range events {
		key := strings.ToLower(strings.TrimSpace(ev.CorrelationID))
		if key == "" {
			continue
		}
		errsByID[key] = append(errsByID[key], types.ErrorEvent{
			EventID:   ev.EventID,
			Level:     ev.Level,
			Title:     ev.Title,
			Timestamp: ev.Timestamp,
		})
	}

	out := types.EODRawData{
		Success:         []types.CallRecord{},
		Failure:         []types.CallRecord{},
		CSEscalationMap: []types.Escalation{},
		TransfersMap:    map[string]types.TransferOutcome{},
	}

	var disconnected int
	for key, eval := range evals {
		rec := types.CallRecord{
			CorrelationID: key,
			Evaluation:    eval,
			Errors:        errsByID[key],
		}
		if rec.Errors == nil {
			rec.Errors = []types.ErrorEvent{}
		}
		out.Errors += len(rec.Errors)

		if eval.Status == statusSuccess {
			out.Success = append(out.Success, rec)
		} else {
			out.Failure = append(out.Failure, rec)
		}

		out.TotalCallTime += eval.DurationSeconds
		out.TimeSaved += eval.TimeSavedSeconds
		out.MessagesTaken += eval.MessagesTaken
		if eval.Disconnected {
			disconnected++
		}
		if eval.CSEscalation {
			out.CSEscalationCount++
			out.CSEscalationMap = append(out.CSEscalationMap, types.Escalation{
				CorrelationID: key,
				Reason:        eval.EscalationReason,
			})
		}
		if eval.Transfer != nil {
			dest := eval.Transfer.Destination
			outcome := out.TransfersMap[dest]
			outcome.Attempts++
			if !eval.Transfer.Success {
				outcome.Failed++
			}
			out.TransfersMap[dest] = outcome
		}
	}

	sortByEvaluationID(out.Success)
	sortByEvaluationID(out.Failure)
	sort.Slice(out.CSEscalationMap, func(i, j int) bool {
		return out.CSEscalationMap[i].CorrelationID < out.CSEscalationMap[j].CorrelationID
	})

	out.Count = len(out.Success) + len(out.Failure)
	out.FailureCount = len(out.Failure)
	if out.Count > 0 {
		out.DisconnectionRate = round2(float64(disconnected) / float64(out.Count))
	}
	return out
}

func filterEvaluation(res vapi.Result) types.Evaluation {
	return types.Evaluation{
		ID:               res.ID,
		Status:           strings.ToLower(strings.TrimSpace(res.Status)),
		Success:          res.Success,
		DurationSeconds:  res.DurationSeconds,
		MessagesTaken:    res.MessagesTaken,
		EndedReason:      res.EndedReason,
		Disconnected:     res.Disconnected,
		CSEscalation:     res.CSEscalation,
		EscalationReason: res.EscalationReason,
		TimeSavedSeconds: res.TimeSavedSeconds,
		Transfer:         res.Transfer,
	}
}

// Most-recent-first; ids are monotonically assigned so the id ordering is
// also the recency ordering.
func sortByEvaluationID(records []types.CallRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Evaluation.ID > records[j].Evaluation.ID
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
