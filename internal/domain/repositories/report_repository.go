package repositories

import (
	"context"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
)

// ReportRepository defines persistence operations for analysis reports
type ReportRepository interface {
	// Create stores a new report
	Create(ctx context.Context, report *entities.AnalysisReport) error

	// ListByMeeting returns a meeting's reports, newest first
	ListByMeeting(ctx context.Context, corpID, meetingID int64, limit int) ([]*entities.AnalysisReport, error)
}
