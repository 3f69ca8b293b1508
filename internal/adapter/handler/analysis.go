package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	dto "github.com/johnquangdev/focus-group-analyzer/internal/adapter/dto/analysis"
	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
	analysisUsecase "github.com/johnquangdev/focus-group-analyzer/internal/usecase/analysis"
)

// Analysis handles the analysis endpoints
type Analysis struct {
	svc    analysisUsecase.Service
	logger *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(svc analysisUsecase.Service, logger *zap.Logger) *Analysis {
	return &Analysis{svc: svc, logger: logger}
}

func toRequest(req dto.Request) analysisUsecase.Request {
	out := analysisUsecase.Request{
		Scope: entities.AnalysisScope{
			CorpID:     req.CorpID,
			MeetingID:  req.MeetingID,
			QuestionID: req.QuestionID,
		},
	}
	for _, r := range req.Responses {
		out.Responses = append(out.Responses, entities.ScriptAnswer{UserID: r.UserID, Answer: r.Answer})
	}
	return out
}

// Overall handles POST /v1/analysis/overall
// @Summary      Whole-meeting analysis
// @Description  Runs topic modeling, the word cloud and the embedding projection over a meeting
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request  body      analysis.OverallRequest  true  "Meeting"
// @Success      200      {object}  entities.OverallResult
// @Failure      404      {object}  map[string]interface{}  "Unknown corp or meeting"
// @Failure      422      {object}  map[string]interface{}  "Nothing to analyze"
// @Failure      502      {object}  map[string]interface{}  "Collaborator failed"
// @Router       /analysis/overall [post]
func (h *Analysis) Overall(c echo.Context) error {
	var req dto.OverallRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	res, err := h.svc.AnalyzeOverall(c.Request().Context(), req.CorpID, req.MeetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, res)
}

// Topic handles POST /v1/analysis/topic
// @Summary      Topic modeling
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request  body      analysis.Request  true  "Scope or inline responses"
// @Success      200      {object}  entities.TopicResult
// @Router       /analysis/topic [post]
func (h *Analysis) Topic(c echo.Context) error {
	var req dto.Request
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	res, err := h.svc.AnalyzeTopic(c.Request().Context(), toRequest(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, res)
}

// SentenceSentiment handles POST /v1/analysis/sentiment/sentences
// @Summary      Per-sentence sentiment
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request  body      analysis.Request  true  "Scope or inline responses"
// @Success      200      {object}  entities.SentenceSentimentResult
// @Router       /analysis/sentiment/sentences [post]
func (h *Analysis) SentenceSentiment(c echo.Context) error {
	var req dto.Request
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	res, err := h.svc.AnalyzeSentenceSentiment(c.Request().Context(), toRequest(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, res)
}

// TokenSentiment handles POST /v1/analysis/sentiment/tokens
// @Summary      Per-token sentiment
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request  body      analysis.Request  true  "Scope or inline responses"
// @Success      200      {object}  entities.TokenSentimentResult
// @Router       /analysis/sentiment/tokens [post]
func (h *Analysis) TokenSentiment(c echo.Context) error {
	var req dto.Request
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	res, err := h.svc.AnalyzeTokenSentiment(c.Request().Context(), toRequest(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, res)
}

// Embedding handles POST /v1/analysis/embedding
// @Summary      Embedding projection
// @Description  Writes TensorBoard projector artifacts for the scope and returns their location
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request  body      analysis.Request  true  "Scope or inline responses"
// @Success      200      {object}  entities.EmbeddingResult
// @Router       /analysis/embedding [post]
func (h *Analysis) Embedding(c echo.Context) error {
	var req dto.Request
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	res, err := h.svc.AnalyzeEmbedding(c.Request().Context(), toRequest(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, res)
}

// Wordcloud handles POST /v1/analysis/wordcloud
// @Summary      Word cloud
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request  body      analysis.Request  true  "Scope or inline responses"
// @Success      200      {object}  entities.WordcloudResult
// @Router       /analysis/wordcloud [post]
func (h *Analysis) Wordcloud(c echo.Context) error {
	var req dto.Request
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	res, err := h.svc.GenerateWordcloud(c.Request().Context(), toRequest(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, res)
}
