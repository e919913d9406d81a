package types

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	ReportTypeSuccess = "success"
	ReportTypeFailure = "failure"
	ReportTypeFull    = "full"
	ReportTypeWeekly  = "weekly"

	TriggerTypeScheduled = "scheduled"
	TriggerTypeManual    = "manual"
)

func ValidReportType(t string) bool {
	switch t {
	case ReportTypeSuccess, ReportTypeFailure, ReportTypeFull, ReportTypeWeekly:
		return true
	default:
		return false
	}
}

// Report is one persisted snapshot. At most one row exists per
// (report_date, report_type, firm_id); writers upsert through
// ReportRepo.FindIDByDateTypeFirm rather than inserting blindly.
type Report struct {
	ID            string         `gorm:"column:id;primaryKey" json:"id"`
	ReportDate    string         `gorm:"column:report_date;not null;index;index:idx_reports_date_type,priority:1" json:"reportDate"`
	ReportType    string         `gorm:"column:report_type;not null;index;index:idx_reports_date_type,priority:2" json:"reportType"`
	RawData       datatypes.JSON `gorm:"column:raw_data" json:"rawData"`
	GeneratedAt   time.Time      `gorm:"column:generated_at" json:"generatedAt"`
	TriggerType   string         `gorm:"column:trigger_type" json:"triggerType"`
	FullReport    *string        `gorm:"column:full_report" json:"fullReport"`
	SuccessReport *string        `gorm:"column:success_report" json:"successReport"`
	FailureReport *string        `gorm:"column:failure_report" json:"failureReport"`
	Errors        *int           `gorm:"column:errors;index" json:"errors"`
	FirmID        *string        `gorm:"column:firm_id;index" json:"firmId"`
}

func (Report) TableName() string { return "reports" }

// SetRawData serializes any raw-data document into the raw_data column.
func (r *Report) SetRawData(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.RawData = datatypes.JSON(b)
	return nil
}

// EODRawData deserializes the raw_data column as a daily snapshot.
func (r *Report) EODRawData() (EODRawData, error) {
	var out EODRawData
	if len(r.RawData) == 0 {
		return out, nil
	}
	err := json.Unmarshal(r.RawData, &out)
	return out, err
}

// WeeklyRawData deserializes the raw_data column as a weekly snapshot.
func (r *Report) WeeklyRawData() (WeeklyRawData, error) {
	var out WeeklyRawData
	if len(r.RawData) == 0 {
		return out, nil
	}
	err := json.Unmarshal(r.RawData, &out)
	return out, err
}

// ReplicationState marks a finished clone for an environment. The marker,
// not the replica row count, is the "already cloned" signal: a clone that
// dies after a partial page leaves rows behind but no marker, so the next
// caller retries instead of trusting an incomplete replica.
type ReplicationState struct {
	Environment string    `gorm:"column:environment;primaryKey" json:"environment"`
	CompletedAt time.Time `gorm:"column:completed_at" json:"completedAt"`
	RowCount    int64     `gorm:"column:row_count" json:"rowCount"`
}

func (ReplicationState) TableName() string { return "replication_state" }

// ReportPrompt is the narrative prompt template row in the source of
// truth, one per report type. A missing row is a configuration error.
type ReportPrompt struct {
	ReportType string `gorm:"column:report_type;primaryKey" json:"reportType"`
	Prompt     string `gorm:"column:prompt" json:"prompt"`
}

func (ReportPrompt) TableName() string { return "report_prompts" }
