package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReportStatus represents the outcome of one analysis run
type ReportStatus string

const (
	ReportStatusCompleted ReportStatus = "completed" // Collaborator returned a result
	ReportStatusNoData    ReportStatus = "no_data"   // Nothing to analyze
	ReportStatusFailed    ReportStatus = "failed"    // Collaborator or storage failed
)

// AnalysisReport is one logged analysis run for a meeting
type AnalysisReport struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CorpID      int64          `json:"corp_id" gorm:"type:bigint;not null;index:idx_reports_meeting"`
	MeetingID   int64          `json:"meeting_id" gorm:"type:bigint;not null;index:idx_reports_meeting"`
	QuestionID  *int64         `json:"question_id,omitempty" gorm:"type:bigint"`
	Kind        AnalysisKind   `json:"kind" gorm:"type:varchar(50);not null;index"`
	Status      ReportStatus   `json:"status" gorm:"type:varchar(20);not null;default:'completed'"`
	ArtifactURL string         `json:"artifact_url,omitempty" gorm:"type:text"`
	Payload     datatypes.JSON `json:"payload,omitempty" gorm:"type:jsonb"`
	LastError   *string        `json:"last_error,omitempty" gorm:"type:text"`
	DurationMs  int64          `json:"duration_ms" gorm:"type:bigint;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for AnalysisReport
func (AnalysisReport) TableName() string {
	return "analysis_reports"
}

// NewAnalysisReport creates a completed report for scope. A payload that
// cannot be encoded is stored as null.
func NewAnalysisReport(scope AnalysisScope, kind AnalysisKind, payload interface{}) *AnalysisReport {
	r := &AnalysisReport{
		ID:         uuid.New(),
		CorpID:     scope.CorpID,
		MeetingID:  scope.MeetingID,
		QuestionID: scope.QuestionID,
		Kind:       kind,
		Status:     ReportStatusCompleted,
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			r.Payload = datatypes.JSON(raw)
		}
	}
	return r
}

// MarkFailed records err on the report
func (r *AnalysisReport) MarkFailed(err error) {
	r.Status = ReportStatusFailed
	if err != nil {
		msg := err.Error()
		r.LastError = &msg
	}
}
