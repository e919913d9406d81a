package services

import (
	"time"

	"github.com/hellocounsel/reports-backend/internal/platform/apierr"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/types"
)

// WeeklyAggregator folds daily snapshots into one weekly snapshot. The
// fold is deterministic and pure; callers load the inputs.
type WeeklyAggregator struct {
	log *logger.Logger
}

func NewWeeklyAggregator(baseLog *logger.Logger) *WeeklyAggregator {
	return &WeeklyAggregator{log: baseLog.With("service", "WeeklyAggregator")}
}

// WeekWindow resolves any date to its Monday-Sunday calendar window.
func WeekWindow(reportDate string) (weekStart, weekEnd string, err error) {
	day, err := time.Parse("2006-01-02", reportDate)
	if err != nil {
		return "", "", apierr.BadRequest("week date must be YYYY-MM-DD, got %q", reportDate)
	}
	offset := (int(day.Weekday()) + 6) % 7 // Monday == 0
	monday := day.AddDate(0, 0, -offset)
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format("2006-01-02"), sunday.Format("2006-01-02"), nil
}

// Aggregate merges 1-7 daily snapshots. An empty input set is a distinct
// "no data for window" outcome: a zero-filled weekly report would be
// indistinguishable from a real week where nothing happened.
func (a *WeeklyAggregator) Aggregate(dailies []types.EODRawData, weekStart, weekEnd string) (types.WeeklyRawData, error) {
	if len(dailies) == 0 {
		return types.WeeklyRawData{}, apierr.NoData("no daily reports for week %s to %s", weekStart, weekEnd)
	}

	out := types.WeeklyRawData{
		CSEscalationMap: []types.Escalation{},
		TransfersMap:    map[string]types.TransferOutcome{},
		WeekStart:       weekStart,
		WeekEnd:         weekEnd,
		GeneratedAt:     time.Now().UTC(),
	}

	var weightedRate float64
	for _, d := range dailies {
		out.Count += d.Count
		out.FailureCount += d.FailureCount
		out.Errors += d.Errors
		out.TimeSaved += d.TimeSaved
		out.TotalCallTime += d.TotalCallTime
		out.MessagesTaken += d.MessagesTaken
		out.CSEscalationCount += d.CSEscalationCount
		weightedRate += d.DisconnectionRate * float64(d.Count)

		// Duplicate escalations across days are distinct events; no
		// deduplication.
		out.CSEscalationMap = append(out.CSEscalationMap, d.CSEscalationMap...)

		for dest, day := range d.TransfersMap {
			merged := out.TransfersMap[dest]
			merged.Attempts += day.Attempts
			merged.Failed += day.Failed
			out.TransfersMap[dest] = merged
		}

		if out.FirmID == nil && d.FirmID != nil {
			out.FirmID = d.FirmID
			out.FirmName = d.FirmName
		} else if out.FirmID != nil && d.FirmID != nil && *out.FirmID != *d.FirmID {
			// Inputs are expected to agree; first wins, but the conflict
			// is surfaced rather than silently resolved.
			a.log.Warn("Firm id conflict across weekly inputs",
				"kept", *out.FirmID, "ignored", *d.FirmID)
		}
	}

	if out.Count > 0 {
		out.DisconnectionRate = round2(weightedRate / float64(out.Count))
	}
	return out, nil
}
