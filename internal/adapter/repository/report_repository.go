package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
)

// ReportRepository handles analysis report data operations
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create stores a new report
func (r *ReportRepository) Create(ctx context.Context, report *entities.AnalysisReport) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}
	return r.db.WithContext(ctx).Create(report).Error
}

// ListByMeeting returns a meeting's reports, newest first
func (r *ReportRepository) ListByMeeting(ctx context.Context, corpID, meetingID int64, limit int) ([]*entities.AnalysisReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var reports []*entities.AnalysisReport
	err := r.db.WithContext(ctx).
		Where("corp_id = ? AND meeting_id = ?", corpID, meetingID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}
