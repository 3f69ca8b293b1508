// Package analysis orchestrates the analysis stages: it selects and flattens
// the right answers, hands them to the model collaborators and stores the
// artifacts they produce.
package analysis

import (
	"context"
	stdErrors "errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/johnquangdev/focus-group-analyzer/errors"
	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
	domainrepo "github.com/johnquangdev/focus-group-analyzer/internal/domain/repositories"
	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/cache"
	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/metrics"
)

// TopicModel is the topic-modeling collaborator
type TopicModel interface {
	Topics(ctx context.Context, tokens []string) ([]byte, error)
}

// SentimentModel is the sentiment collaborator
type SentimentModel interface {
	SentenceSentiment(ctx context.Context, sentences []string) ([]float64, error)
	TokenSentiment(ctx context.Context, tokens []string) (map[string]float64, error)
}

// Embedder is the embedding collaborator
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float64, error)
}

// WordcloudRenderer draws a word cloud PNG from token frequencies
type WordcloudRenderer interface {
	RenderWordcloud(ctx context.Context, frequencies map[string]int, width, height int) ([]byte, error)
}

// Summarizer is the summarization collaborator
type Summarizer interface {
	Summarize(ctx context.Context, script []entities.ScriptEntry) (string, error)
}

// ObjectStorage stores rendered artifacts
type ObjectStorage interface {
	UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) error
	GetFileURL(ctx context.Context, objectName string) (string, error)
}

// ReportPoster delivers word clouds to the external report endpoint
type ReportPoster interface {
	PostWordcloud(ctx context.Context, meetingID int64, fileName string, png []byte) error
}

// Dependencies wires the service. Reporter, Cache, Reports and Metrics are optional.
type Dependencies struct {
	Store      domainrepo.ResponseRepository
	Pipeline   entities.TokenPipeline
	Topics     TopicModel
	Sentiment  SentimentModel
	Embedder   Embedder
	Wordcloud  WordcloudRenderer
	Summarizer Summarizer
	Storage    ObjectStorage
	Reporter   ReportPoster
	Cache      cache.Store
	Reports    domainrepo.ReportRepository
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// Options tunes the analyses
type Options struct {
	MostCommonK     int
	WordcloudWidth  int
	WordcloudHeight int
	CacheTTL        time.Duration
}

// Request selects what to analyze. When Responses is non-empty the batch is
// analyzed instead of the accumulated answers; Scope then only names artifacts.
type Request struct {
	Scope     entities.AnalysisScope
	Responses []entities.ScriptAnswer
}

// Service defines the analysis operations
type Service interface {
	AnalyzeOverall(ctx context.Context, corpID, meetingID int64) (*entities.OverallResult, error)
	AnalyzeTopic(ctx context.Context, req Request) (*entities.TopicResult, error)
	AnalyzeSentenceSentiment(ctx context.Context, req Request) (*entities.SentenceSentimentResult, error)
	AnalyzeTokenSentiment(ctx context.Context, req Request) (*entities.TokenSentimentResult, error)
	AnalyzeEmbedding(ctx context.Context, req Request) (*entities.EmbeddingResult, error)
	GenerateWordcloud(ctx context.Context, req Request) (*entities.WordcloudResult, error)
	Script(ctx context.Context, corpID, meetingID int64) ([]entities.ScriptEntry, error)
	QuestionTokens(ctx context.Context, corpID, meetingID, questionID int64) ([]entities.ParticipantTokens, error)
	Summarize(ctx context.Context, corpID, meetingID int64) (*entities.SummaryResult, error)
	ListReports(ctx context.Context, corpID, meetingID int64, limit int) ([]*entities.AnalysisReport, error)
}

type analysisService struct {
	deps Dependencies
	opts Options
	agg  *Aggregator
}

// NewService constructs the analysis service
func NewService(deps Dependencies, opts Options) Service {
	if opts.MostCommonK <= 0 {
		opts.MostCommonK = 5
	}
	if opts.WordcloudWidth <= 0 {
		opts.WordcloudWidth = 800
	}
	if opts.WordcloudHeight <= 0 {
		opts.WordcloudHeight = 400
	}
	return &analysisService{
		deps: deps,
		opts: opts,
		agg:  NewAggregator(deps.Store, deps.Pipeline),
	}
}

// AnalyzeOverall runs topic modeling, the word cloud and the embedding
// projection over the whole meeting, in parallel.
func (s *analysisService) AnalyzeOverall(ctx context.Context, corpID, meetingID int64) (result *entities.OverallResult, err error) {
	scope := entities.AnalysisScope{CorpID: corpID, MeetingID: meetingID}
	start := time.Now()
	defer func() { s.finish(ctx, scope, entities.AnalysisKindOverall, start, result, "", err) }()

	if err := s.agg.CheckScope(scope); err != nil {
		return nil, err
	}
	tokens := s.agg.Tokens(scope)
	if len(tokens) == 0 {
		return nil, noData(scope)
	}

	result = &entities.OverallResult{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		topic, err := s.topic(gctx, scope, tokens)
		result.Topic = topic
		return err
	})
	g.Go(func() error {
		wc, err := s.wordcloud(gctx, scope, tokens)
		result.Wordcloud = wc
		return err
	})
	g.Go(func() error {
		emb, err := s.embedding(gctx, scope, countTokens(tokens).unique())
		result.Embedding = emb
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// AnalyzeTopic runs topic modeling over a meeting, a question or a batch
func (s *analysisService) AnalyzeTopic(ctx context.Context, req Request) (result *entities.TopicResult, err error) {
	start := time.Now()
	defer func() { s.finish(ctx, req.Scope, entities.AnalysisKindTopic, start, result, "", err) }()

	tokens, err := s.tokensFor(req)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, noData(req.Scope)
	}
	return s.topic(ctx, req.Scope, tokens)
}

// AnalyzeSentenceSentiment scores every sentence and ranks the tokens they contain
func (s *analysisService) AnalyzeSentenceSentiment(ctx context.Context, req Request) (result *entities.SentenceSentimentResult, err error) {
	start := time.Now()
	defer func() { s.finish(ctx, req.Scope, entities.AnalysisKindSentenceSentiment, start, result, "", err) }()

	sentences, err := s.sentencesFor(req)
	if err != nil {
		return nil, err
	}
	if len(sentences) == 0 {
		return nil, noData(req.Scope)
	}

	scores, err := s.deps.Sentiment.SentenceSentiment(ctx, sentences)
	if err != nil {
		return nil, s.upstream(req.Scope, "sentiment", err)
	}
	if len(scores) != len(sentences) {
		return nil, s.upstream(req.Scope, "sentiment",
			fmt.Errorf("got %d scores for %d sentences", len(scores), len(sentences)))
	}

	result = &entities.SentenceSentimentResult{
		Sentiment: make([]entities.SentenceSentiment, 0, len(sentences)),
	}
	var all []string
	for i, sentence := range sentences {
		tokens := s.agg.SentenceTokens(sentence)
		all = append(all, tokens...)
		result.Sentiment = append(result.Sentiment, entities.SentenceSentiment{
			Sentence: sentence,
			Score:    scores[i],
			Tokens:   tokens,
		})
	}
	freq := countTokens(all)
	result.TokenCounts = freq.counts
	result.MostCommonTokens = freq.mostCommon(s.opts.MostCommonK)
	return result, nil
}

// AnalyzeTokenSentiment scores each unique token and reports its frequency
func (s *analysisService) AnalyzeTokenSentiment(ctx context.Context, req Request) (result *entities.TokenSentimentResult, err error) {
	start := time.Now()
	defer func() { s.finish(ctx, req.Scope, entities.AnalysisKindTokenSentiment, start, result, "", err) }()

	tokens, err := s.tokensFor(req)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, noData(req.Scope)
	}

	freq := countTokens(tokens)
	unique := freq.unique()
	scores, err := s.deps.Sentiment.TokenSentiment(ctx, unique)
	if err != nil {
		return nil, s.upstream(req.Scope, "sentiment", err)
	}

	result = &entities.TokenSentimentResult{Tokens: make([]entities.TokenSentiment, 0, len(unique))}
	for _, t := range unique {
		score, ok := scores[t]
		if !ok {
			return nil, s.upstream(req.Scope, "sentiment", fmt.Errorf("no score returned for token %q", t))
		}
		result.Tokens = append(result.Tokens, entities.TokenSentiment{
			Token:          t,
			Freq:           freq.counts[t],
			SentimentScore: score,
		})
	}
	return result, nil
}

// AnalyzeEmbedding projects a batch's sentences, or the scope's unique tokens
func (s *analysisService) AnalyzeEmbedding(ctx context.Context, req Request) (result *entities.EmbeddingResult, err error) {
	start := time.Now()
	defer func() {
		url := ""
		if result != nil {
			url = result.MetadataURL
		}
		s.finish(ctx, req.Scope, entities.AnalysisKindEmbedding, start, result, url, err)
	}()

	var labels []string
	if len(req.Responses) > 0 {
		labels = s.agg.FlattenAnswers(req.Responses)
	} else {
		if err := s.agg.CheckScope(req.Scope); err != nil {
			return nil, err
		}
		labels = countTokens(s.agg.Tokens(req.Scope)).unique()
	}
	if len(labels) == 0 {
		return nil, noData(req.Scope)
	}
	return s.embedding(ctx, req.Scope, labels)
}

// GenerateWordcloud renders, uploads and optionally reports a word cloud
func (s *analysisService) GenerateWordcloud(ctx context.Context, req Request) (result *entities.WordcloudResult, err error) {
	start := time.Now()
	defer func() {
		url := ""
		if result != nil {
			url = result.URL
		}
		s.finish(ctx, req.Scope, entities.AnalysisKindWordcloud, start, result, url, err)
	}()

	tokens, err := s.tokensFor(req)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, noData(req.Scope)
	}
	return s.wordcloud(ctx, req.Scope, tokens)
}

// Script returns the question-grouped answers of a known meeting
func (s *analysisService) Script(ctx context.Context, corpID, meetingID int64) ([]entities.ScriptEntry, error) {
	scope := entities.AnalysisScope{CorpID: corpID, MeetingID: meetingID}
	if err := s.agg.CheckScope(scope); err != nil {
		return nil, err
	}
	return s.deps.Store.Script(corpID, meetingID), nil
}

// QuestionTokens returns the token rows logged for one question, one per submission
func (s *analysisService) QuestionTokens(ctx context.Context, corpID, meetingID, questionID int64) ([]entities.ParticipantTokens, error) {
	scope := entities.AnalysisScope{CorpID: corpID, MeetingID: meetingID, QuestionID: &questionID}
	if err := s.agg.CheckScope(scope); err != nil {
		return nil, err
	}
	return s.deps.Store.Tokens(corpID, meetingID, questionID), nil
}

// Summarize hands the meeting's script to the summarization collaborator
func (s *analysisService) Summarize(ctx context.Context, corpID, meetingID int64) (result *entities.SummaryResult, err error) {
	scope := entities.AnalysisScope{CorpID: corpID, MeetingID: meetingID}
	start := time.Now()
	defer func() { s.finish(ctx, scope, entities.AnalysisKindSummary, start, result, "", err) }()

	script, err := s.Script(ctx, corpID, meetingID)
	if err != nil {
		return nil, err
	}
	answers := 0
	for _, entry := range script {
		answers += len(entry.Answers)
	}
	if answers == 0 {
		return nil, noData(scope)
	}

	summary, err := s.deps.Summarizer.Summarize(ctx, script)
	if err != nil {
		return nil, s.upstream(scope, "summarizer", err)
	}
	return &entities.SummaryResult{
		CorpID:    corpID,
		MeetingID: meetingID,
		Summary:   summary,
		Script:    script,
	}, nil
}

// ListReports returns a meeting's logged analyses
func (s *analysisService) ListReports(ctx context.Context, corpID, meetingID int64, limit int) ([]*entities.AnalysisReport, error) {
	if s.deps.Reports == nil {
		return nil, errors.ErrDBDisabled()
	}
	reports, err := s.deps.Reports.ListByMeeting(ctx, corpID, meetingID, limit)
	if err != nil {
		return nil, errors.ErrDBQueryFailed("list analysis reports", err)
	}
	if reports == nil {
		reports = []*entities.AnalysisReport{}
	}
	return reports, nil
}

func (s *analysisService) tokensFor(req Request) ([]string, error) {
	if len(req.Responses) > 0 {
		return s.agg.BatchTokens(req.Responses), nil
	}
	if err := s.agg.CheckScope(req.Scope); err != nil {
		return nil, err
	}
	return s.agg.Tokens(req.Scope), nil
}

func (s *analysisService) sentencesFor(req Request) ([]string, error) {
	if len(req.Responses) > 0 {
		return s.agg.FlattenAnswers(req.Responses), nil
	}
	if err := s.agg.CheckScope(req.Scope); err != nil {
		return nil, err
	}
	return s.agg.Sentences(req.Scope), nil
}

func (s *analysisService) topic(ctx context.Context, scope entities.AnalysisScope, tokens []string) (*entities.TopicResult, error) {
	key := fmt.Sprintf("topic:%d:%d:%s:%s", scope.CorpID, scope.MeetingID, scopeLeaf(scope), cache.Fingerprint(tokens))

	if s.deps.Cache != nil {
		payload, ok, err := s.deps.Cache.Get(ctx, key)
		switch {
		case err != nil:
			s.warn("topic cache read failed", scope, err)
		case ok:
			return &entities.TopicResult{Payload: payload, Cached: true}, nil
		}
	}

	payload, err := s.deps.Topics.Topics(ctx, tokens)
	if err != nil {
		return nil, s.upstream(scope, "topic", err)
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, payload, s.opts.CacheTTL); err != nil {
			s.warn("topic cache write failed", scope, err)
		}
	}
	return &entities.TopicResult{Payload: payload}, nil
}

func (s *analysisService) wordcloud(ctx context.Context, scope entities.AnalysisScope, tokens []string) (*entities.WordcloudResult, error) {
	freq := countTokens(tokens)
	png, err := s.deps.Wordcloud.RenderWordcloud(ctx, freq.counts, s.opts.WordcloudWidth, s.opts.WordcloudHeight)
	if err != nil {
		return nil, s.upstream(scope, "wordcloud", err)
	}

	fileName := WordcloudFileName(scope)
	if err := s.deps.Storage.UploadBytes(ctx, fileName, png, "image/png"); err != nil {
		return nil, s.upstream(scope, "storage", err)
	}
	url, err := s.deps.Storage.GetFileURL(ctx, fileName)
	if err != nil {
		return nil, s.upstream(scope, "storage", err)
	}

	result := &entities.WordcloudResult{FileName: fileName, URL: url, Tokens: len(tokens)}
	if s.deps.Reporter != nil {
		if err := s.deps.Reporter.PostWordcloud(ctx, scope.MeetingID, fileName, png); err != nil {
			s.deps.Metrics.UpstreamError("report")
			s.warn("word cloud report delivery failed", scope, err)
		} else {
			result.Reported = true
		}
	}
	return result, nil
}

func (s *analysisService) embedding(ctx context.Context, scope entities.AnalysisScope, labels []string) (*entities.EmbeddingResult, error) {
	vectors, err := s.deps.Embedder.Embed(ctx, labels)
	if err != nil {
		return nil, s.upstream(scope, "embedding", err)
	}

	artifacts, err := buildProjector(scope, labels, vectors)
	if err != nil {
		return nil, s.upstream(scope, "embedding", err)
	}

	files := []struct {
		name        string
		data        []byte
		contentType string
	}{
		{projectorMetadataFile, artifacts.metadata, "text/tab-separated-values"},
		{projectorTensorsFile, artifacts.tensors, "text/tab-separated-values"},
		{projectorConfigFile, artifacts.config, "application/json"},
	}
	for _, f := range files {
		if err := s.deps.Storage.UploadBytes(ctx, path.Join(artifacts.logDir, f.name), f.data, f.contentType); err != nil {
			return nil, s.upstream(scope, "storage", err)
		}
	}

	metadataURL, err := s.deps.Storage.GetFileURL(ctx, path.Join(artifacts.logDir, projectorMetadataFile))
	if err != nil {
		return nil, s.upstream(scope, "storage", err)
	}

	return &entities.EmbeddingResult{
		LogDir:      artifacts.logDir,
		Points:      artifacts.points,
		Dimensions:  artifacts.dimensions,
		MetadataURL: metadataURL,
	}, nil
}

// upstream converts a collaborator failure into the boundary error. A model
// reporting that it had nothing to analyze becomes the no-data outcome.
func (s *analysisService) upstream(scope entities.AnalysisScope, collaborator string, err error) error {
	if stdErrors.Is(err, entities.ErrNoData) {
		return errors.ErrNoData(scopeLabel(scope), err)
	}
	s.deps.Metrics.UpstreamError(collaborator)
	if s.deps.Logger != nil {
		s.deps.Logger.Error("❌ Collaborator failed",
			zap.String("collaborator", collaborator),
			zap.Int64("corp_id", scope.CorpID),
			zap.Int64("meeting_id", scope.MeetingID),
			zap.Error(err),
		)
	}
	return errors.ErrUpstream(collaborator, err)
}

// finish records metrics and, when the report database is enabled, logs the run
func (s *analysisService) finish(ctx context.Context, scope entities.AnalysisScope, kind entities.AnalysisKind, start time.Time, payload interface{}, artifactURL string, err error) {
	s.deps.Metrics.ObserveAnalysis(string(kind), start, err)
	if s.deps.Reports == nil {
		return
	}

	var report *entities.AnalysisReport
	if err != nil {
		report = entities.NewAnalysisReport(scope, kind, nil)
		if stdErrors.Is(err, entities.ErrNoData) {
			report.Status = entities.ReportStatusNoData
		} else {
			report.MarkFailed(err)
		}
	} else {
		report = entities.NewAnalysisReport(scope, kind, payload)
	}
	report.ArtifactURL = artifactURL
	report.DurationMs = time.Since(start).Milliseconds()

	if createErr := s.deps.Reports.Create(context.WithoutCancel(ctx), report); createErr != nil {
		s.warn("failed to log analysis report", scope, createErr)
	}
}

func (s *analysisService) warn(msg string, scope entities.AnalysisScope, err error) {
	if s.deps.Logger == nil {
		return
	}
	s.deps.Logger.Warn("⚠️ "+msg,
		zap.Int64("corp_id", scope.CorpID),
		zap.Int64("meeting_id", scope.MeetingID),
		zap.Error(err),
	)
}

// WordcloudFileName is wordcloud_{corp}_{meeting}[_{question}].png
func WordcloudFileName(scope entities.AnalysisScope) string {
	if scope.QuestionID != nil {
		return fmt.Sprintf("wordcloud_%d_%d_%d.png", scope.CorpID, scope.MeetingID, *scope.QuestionID)
	}
	return fmt.Sprintf("wordcloud_%d_%d.png", scope.CorpID, scope.MeetingID)
}

func noData(scope entities.AnalysisScope) error {
	return errors.ErrNoData(scopeLabel(scope), entities.ErrNoData)
}

func scopeLeaf(scope entities.AnalysisScope) string {
	if scope.QuestionID == nil {
		return "all"
	}
	return strconv.FormatInt(*scope.QuestionID, 10)
}

func scopeLabel(scope entities.AnalysisScope) string {
	return fmt.Sprintf("corp %d / meeting %d / question %s", scope.CorpID, scope.MeetingID, scopeLeaf(scope))
}
