package types

import "time"

// ErrorEvent is one discrete event from the error tracker, matched to a
// call by correlation id.
type ErrorEvent struct {
	EventID   string `json:"eventId"`
	Level     string `json:"level"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
}

// Transfer describes a single transfer attempt recorded by the
// call-evaluation source.
type Transfer struct {
	Destination string `json:"destination"`
	Success     bool   `json:"success"`
}

// Evaluation is the size-reduced view of a call-evaluation payload. The
// verbose fields (transcript, message log, cost breakdown) are dropped at
// fetch time; only what reporting needs survives.
type Evaluation struct {
	ID               int64     `json:"id"`
	Status           string    `json:"status"`
	Success          bool      `json:"success"`
	DurationSeconds  float64   `json:"durationSeconds"`
	MessagesTaken    int       `json:"messagesTaken"`
	EndedReason      string    `json:"endedReason"`
	Disconnected     bool      `json:"disconnected"`
	CSEscalation     bool      `json:"csEscalation"`
	EscalationReason string    `json:"escalationReason,omitempty"`
	TimeSavedSeconds float64   `json:"timeSavedSeconds"`
	Transfer         *Transfer `json:"transfer,omitempty"`
}

// CallRecord joins one call's evaluation with its error events.
// Immutable once constructed.
type CallRecord struct {
	CorrelationID string       `json:"correlationId"`
	Evaluation    Evaluation   `json:"evaluation"`
	Errors        []ErrorEvent `json:"errors"`
}

// Escalation is one customer-service escalation surfaced in a snapshot.
// Duplicates across days are distinct events and are never deduplicated.
type Escalation struct {
	CorrelationID string `json:"correlationId"`
	Reason        string `json:"reason"`
}

// TransferOutcome accumulates transfer attempts per destination.
type TransferOutcome struct {
	Attempts int `json:"attempts"`
	Failed   int `json:"failed"`
}

// EODRawData is the per-day join output plus the summary metrics the
// weekly rollup folds. len(Success)+len(Failure) == Count and every
// correlation id is unique within the snapshot.
type EODRawData struct {
	Count       int          `json:"count"`
	Total       int          `json:"total"`
	Errors      int          `json:"errors"`
	Success     []CallRecord `json:"success"`
	Failure     []CallRecord `json:"failure"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Environment string       `json:"environment"`

	FailureCount      int                        `json:"failureCount"`
	TimeSaved         float64                    `json:"timeSaved"`
	TotalCallTime     float64                    `json:"totalCallTime"`
	MessagesTaken     int                        `json:"messagesTaken"`
	CSEscalationCount int                        `json:"csEscalationCount"`
	DisconnectionRate float64                    `json:"disconnectionRate"`
	CSEscalationMap   []Escalation               `json:"csEscalationMap"`
	TransfersMap      map[string]TransferOutcome `json:"transfersMap"`

	FirmID   *string `json:"firmId,omitempty"`
	FirmName string  `json:"firmName,omitempty"`
}

// CorrelationIDs returns every id in the snapshot, success then failure.
func (d EODRawData) CorrelationIDs() []string {
	ids := make([]string, 0, len(d.Success)+len(d.Failure))
	for _, rec := range d.Success {
		ids = append(ids, rec.CorrelationID)
	}
	for _, rec := range d.Failure {
		ids = append(ids, rec.CorrelationID)
	}
	return ids
}

// WeeklyRawData aggregates 1-7 daily snapshots over a Monday-Sunday
// window. Summary-only: the weekly narrative never receives per-call
// detail, so no success/failure arrays are carried.
type WeeklyRawData struct {
	Count             int                        `json:"count"`
	FailureCount      int                        `json:"failureCount"`
	Errors            int                        `json:"errors"`
	TimeSaved         float64                    `json:"timeSaved"`
	TotalCallTime     float64                    `json:"totalCallTime"`
	MessagesTaken     int                        `json:"messagesTaken"`
	CSEscalationCount int                        `json:"csEscalationCount"`
	DisconnectionRate float64                    `json:"disconnectionRate"`
	CSEscalationMap   []Escalation               `json:"csEscalationMap"`
	TransfersMap      map[string]TransferOutcome `json:"transfersMap"`
	WeekStart         string                     `json:"weekStart"`
	WeekEnd           string                     `json:"weekEnd"`
	GeneratedAt       time.Time                  `json:"generatedAt"`

	FirmID   *string `json:"firmId,omitempty"`
	FirmName string  `json:"firmName,omitempty"`
}
