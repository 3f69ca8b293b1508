package handler

import (
	"context"
	stdErrors "errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/errors"
	dto "github.com/johnquangdev/focus-group-analyzer/internal/adapter/dto/analysis"
	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
	analysisUsecase "github.com/johnquangdev/focus-group-analyzer/internal/usecase/analysis"
)

// Snapshotter persists one meeting on demand
type Snapshotter interface {
	SnapshotMeeting(ctx context.Context, key entities.MeetingKey) error
}

// Meeting handles the per-meeting endpoints
type Meeting struct {
	svc       analysisUsecase.Service
	snapshots Snapshotter
	logger    *zap.Logger
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(svc analysisUsecase.Service, snapshots Snapshotter, logger *zap.Logger) *Meeting {
	return &Meeting{svc: svc, snapshots: snapshots, logger: logger}
}

// Script handles GET /v1/meetings/:corpId/:meetingId/script
// @Summary      Meeting script
// @Description  Answers grouped by question in first-seen order
// @Tags         Meetings
// @Produce      json
// @Param        corpId     path  int  true  "Corp ID"
// @Param        meetingId  path  int  true  "Meeting ID"
// @Success      200  {array}   entities.ScriptEntry
// @Failure      404  {object}  map[string]interface{}  "Unknown corp or meeting"
// @Router       /meetings/{corpId}/{meetingId}/script [get]
func (h *Meeting) Script(c echo.Context) error {
	var req dto.MeetingPath
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	script, err := h.svc.Script(c.Request().Context(), req.CorpID, req.MeetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, script)
}

// QuestionTokens handles GET /v1/meetings/:corpId/:meetingId/questions/:questionId/tokens
// @Summary      Token rows of a question
// @Description  One entry per submission, in submission order
// @Tags         Meetings
// @Produce      json
// @Param        corpId      path  int  true  "Corp ID"
// @Param        meetingId   path  int  true  "Meeting ID"
// @Param        questionId  path  int  true  "Question ID"
// @Success      200  {array}   entities.ParticipantTokens
// @Failure      404  {object}  map[string]interface{}  "Unknown corp, meeting or question"
// @Router       /meetings/{corpId}/{meetingId}/questions/{questionId}/tokens [get]
func (h *Meeting) QuestionTokens(c echo.Context) error {
	var req dto.QuestionPath
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	rows, err := h.svc.QuestionTokens(c.Request().Context(), req.CorpID, req.MeetingID, req.QuestionID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, rows)
}

// Summary handles POST /v1/meetings/:corpId/:meetingId/summary
// @Summary      Summarize a meeting
// @Tags         Meetings
// @Produce      json
// @Param        corpId     path  int  true  "Corp ID"
// @Param        meetingId  path  int  true  "Meeting ID"
// @Success      200  {object}  entities.SummaryResult
// @Failure      422  {object}  map[string]interface{}  "No answers yet"
// @Failure      502  {object}  map[string]interface{}  "Summarizer failed"
// @Router       /meetings/{corpId}/{meetingId}/summary [post]
func (h *Meeting) Summary(c echo.Context) error {
	var req dto.MeetingPath
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	res, err := h.svc.Summarize(c.Request().Context(), req.CorpID, req.MeetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, res)
}

// Snapshot handles POST /v1/meetings/:corpId/:meetingId/snapshot
// @Summary      Persist a meeting now
// @Description  Merges the meeting's unpersisted tokens into its snapshot file
// @Tags         Meetings
// @Produce      json
// @Param        corpId     path  int  true  "Corp ID"
// @Param        meetingId  path  int  true  "Meeting ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}  "Unknown corp or meeting"
// @Failure      500  {object}  map[string]interface{}  "Snapshot write failed"
// @Router       /meetings/{corpId}/{meetingId}/snapshot [post]
func (h *Meeting) Snapshot(c echo.Context) error {
	var req dto.MeetingPath
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	ctx := c.Request().Context()

	// Script performs the presence checks
	if _, err := h.svc.Script(ctx, req.CorpID, req.MeetingID); err != nil {
		return HandleError(h.logger, c, err)
	}

	key := entities.MeetingKey{CorpID: req.CorpID, MeetingID: req.MeetingID}
	if err := h.snapshots.SnapshotMeeting(ctx, key); err != nil {
		if stdErrors.Is(err, entities.ErrMalformedSnapshot) {
			return HandleError(h.logger, c, errors.ErrMalformedSnapshot(key.String(), err))
		}
		return HandleError(h.logger, c, errors.ErrSnapshotFailed(err))
	}
	return HandleSuccess(h.logger, c, map[string]interface{}{
		"corpId":    req.CorpID,
		"meetingId": req.MeetingID,
		"status":    "persisted",
	})
}

// Reports handles GET /v1/meetings/:corpId/:meetingId/reports
// @Summary      Analysis history
// @Tags         Meetings
// @Produce      json
// @Param        corpId     path   int  true   "Corp ID"
// @Param        meetingId  path   int  true   "Meeting ID"
// @Param        limit      query  int  false  "Max reports (1-100, default 20)"
// @Success      200  {array}   entities.AnalysisReport
// @Failure      501  {object}  map[string]interface{}  "Report database disabled"
// @Router       /meetings/{corpId}/{meetingId}/reports [get]
func (h *Meeting) Reports(c echo.Context) error {
	var req dto.ListReportsRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	if req.Limit == 0 {
		req.Limit = 20
	}
	reports, err := h.svc.ListReports(c.Request().Context(), req.CorpID, req.MeetingID, req.Limit)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, reports)
}
