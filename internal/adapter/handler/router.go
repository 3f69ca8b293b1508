package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/metrics"
	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds all handlers
type Router struct {
	cfg             *config.Config
	responseHandler *Response
	analysisHandler *Analysis
	meetingHandler  *Meeting
	metrics         *metrics.Metrics
	dependencies    map[string]Pinger

	analysisMiddleware []echo.MiddlewareFunc
}

// NewRouter creates a new router with all handlers. dependencies are probed
// by the health check; nil entries are skipped.
func NewRouter(
	cfg *config.Config,
	responseHandler *Response,
	analysisHandler *Analysis,
	meetingHandler *Meeting,
	m *metrics.Metrics,
	dependencies map[string]Pinger,
) *Router {
	return &Router{
		cfg:             cfg,
		responseHandler: responseHandler,
		analysisHandler: analysisHandler,
		meetingHandler:  meetingHandler,
		metrics:         m,
		dependencies:    dependencies,
	}
}

// WithAnalysisMiddleware adds middleware to the analysis routes only
func (rt *Router) WithAnalysisMiddleware(mw ...echo.MiddlewareFunc) *Router {
	rt.analysisMiddleware = append(rt.analysisMiddleware, mw...)
	return rt
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	e.GET("/metrics", echo.WrapHandler(rt.metrics.Handler()))

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupResponseRoutes(v1)
	rt.setupAnalysisRoutes(v1)
	rt.setupMeetingRoutes(v1)
}

func (rt *Router) setupResponseRoutes(g *echo.Group) {
	responses := g.Group("/responses")
	responses.POST("/text", rt.responseHandler.SubmitText)
	responses.POST("/voice", rt.responseHandler.SubmitVoice)
}

func (rt *Router) setupAnalysisRoutes(g *echo.Group) {
	analysis := g.Group("/analysis", rt.analysisMiddleware...)
	analysis.POST("/overall", rt.analysisHandler.Overall)
	analysis.POST("/topic", rt.analysisHandler.Topic)
	analysis.POST("/sentiment/sentences", rt.analysisHandler.SentenceSentiment)
	analysis.POST("/sentiment/tokens", rt.analysisHandler.TokenSentiment)
	analysis.POST("/embedding", rt.analysisHandler.Embedding)
	analysis.POST("/wordcloud", rt.analysisHandler.Wordcloud)
}

func (rt *Router) setupMeetingRoutes(g *echo.Group) {
	meetings := g.Group("/meetings/:corpId/:meetingId")
	meetings.GET("/script", rt.meetingHandler.Script)
	meetings.GET("/questions/:questionId/tokens", rt.meetingHandler.QuestionTokens)
	meetings.POST("/summary", rt.meetingHandler.Summary)
	meetings.POST("/snapshot", rt.meetingHandler.Snapshot)
	meetings.GET("/reports", rt.meetingHandler.Reports)
}

// healthCheck returns health status; any unreachable dependency degrades it
func (rt *Router) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(rt.dependencies))
	for name, p := range rt.dependencies {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	env := ""
	if rt.cfg != nil {
		env = rt.cfg.Server.Environment
	}
	return c.JSON(code, map[string]interface{}{
		"status":      status,
		"environment": env,
		"checks":      checks,
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}
