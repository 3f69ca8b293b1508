package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	dto "github.com/johnquangdev/focus-group-analyzer/internal/adapter/dto/response"
	responseUsecase "github.com/johnquangdev/focus-group-analyzer/internal/usecase/response"
)

// Response handles answer submissions
type Response struct {
	svc    responseUsecase.Service
	logger *zap.Logger
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(svc responseUsecase.Service, logger *zap.Logger) *Response {
	return &Response{svc: svc, logger: logger}
}

// SubmitText handles POST /v1/responses/text
// @Summary      Submit a text answer
// @Description  Registers the survey question (first text wins) and records the tokenized answer
// @Tags         Responses
// @Accept       json
// @Produce      json
// @Param        request  body      response.TextRequest  true  "Text answer"
// @Success      200      {object}  map[string]interface{}  "Recorded answer and its tokens"
// @Failure      400      {object}  map[string]interface{}  "Invalid payload"
// @Router       /responses/text [post]
func (h *Response) SubmitText(c echo.Context) error {
	var req dto.TextRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	res, err := h.svc.SubmitText(c.Request().Context(), responseUsecase.TextSubmission{
		CorpID:         req.CorpID,
		MeetingID:      req.MeetingID,
		QuestionID:     req.QuestionID,
		UserID:         req.UserID,
		SurveyQuestion: req.SurveyQuestion,
		Answer:         req.TextResponse,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, res)
}

// SubmitVoice handles POST /v1/responses/voice
// @Summary      Submit a voice answer
// @Description  Transcribes base64 audio and records the text like a typed answer
// @Tags         Responses
// @Accept       json
// @Produce      json
// @Param        request  body      response.VoiceRequest  true  "Voice answer"
// @Success      200      {object}  map[string]interface{}  "Transcribed and recorded answer"
// @Failure      400      {object}  map[string]interface{}  "Invalid payload or audio"
// @Failure      502      {object}  map[string]interface{}  "Transcription failed"
// @Router       /responses/voice [post]
func (h *Response) SubmitVoice(c echo.Context) error {
	var req dto.VoiceRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	res, err := h.svc.SubmitVoice(c.Request().Context(), responseUsecase.VoiceSubmission{
		CorpID:         req.CorpID,
		MeetingID:      req.MeetingID,
		QuestionID:     req.QuestionID,
		UserID:         req.UserID,
		SurveyQuestion: req.SurveyQuestion,
		Audio:          req.VoiceResponse,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, res)
}
