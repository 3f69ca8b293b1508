package analysis

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/errors"
	"github.com/johnquangdev/focus-group-analyzer/internal/adapter/repository"
	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/cache"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fieldsPipeline struct{}

func (fieldsPipeline) Tokens(text string) []string {
	return strings.Fields(text)
}

type stubModels struct {
	topicCalls     atomic.Int32
	sentimentCalls atomic.Int32
	embedCalls     atomic.Int32
	renderCalls    atomic.Int32
	topicErr       error
	embedErr       error
	unscored       string

	mu           sync.Mutex
	topicInput   []string
	renderInput  map[string]int
	summaryInput []entities.ScriptEntry
}

func (m *stubModels) Topics(_ context.Context, tokens []string) ([]byte, error) {
	m.topicCalls.Add(1)
	m.mu.Lock()
	m.topicInput = tokens
	m.mu.Unlock()
	if m.topicErr != nil {
		return nil, m.topicErr
	}
	return []byte(`{"topics":[1]}`), nil
}

func (m *stubModels) SentenceSentiment(_ context.Context, sentences []string) ([]float64, error) {
	m.sentimentCalls.Add(1)
	scores := make([]float64, len(sentences))
	for i := range sentences {
		scores[i] = float64(i) / 10
	}
	return scores, nil
}

func (m *stubModels) TokenSentiment(_ context.Context, tokens []string) (map[string]float64, error) {
	m.sentimentCalls.Add(1)
	scores := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		if t != m.unscored {
			scores[t] = float64(len(t))
		}
	}
	return scores, nil
}

func (m *stubModels) Embed(_ context.Context, inputs []string) ([][]float64, error) {
	m.embedCalls.Add(1)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	vectors := make([][]float64, len(inputs))
	for i := range inputs {
		vectors[i] = []float64{float64(i), 1}
	}
	return vectors, nil
}

func (m *stubModels) RenderWordcloud(_ context.Context, freqs map[string]int, _, _ int) ([]byte, error) {
	m.renderCalls.Add(1)
	m.mu.Lock()
	m.renderInput = freqs
	m.mu.Unlock()
	return []byte("png"), nil
}

func (m *stubModels) Summarize(_ context.Context, script []entities.ScriptEntry) (string, error) {
	m.mu.Lock()
	m.summaryInput = script
	m.mu.Unlock()
	return "summary", nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStorage) UploadBytes(_ context.Context, name string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[name] = data
	return nil
}

func (s *memStorage) GetFileURL(_ context.Context, name string) (string, error) {
	return "https://files.test/" + name, nil
}

func (s *memStorage) object(name string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[name]
}

type stubReporter struct {
	err   error
	calls atomic.Int32
}

func (r *stubReporter) PostWordcloud(context.Context, int64, string, []byte) error {
	r.calls.Add(1)
	return r.err
}

type memReports struct {
	mu      sync.Mutex
	reports []*entities.AnalysisReport
}

func (r *memReports) Create(_ context.Context, report *entities.AnalysisReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

func (r *memReports) ListByMeeting(_ context.Context, corpID, meetingID int64, _ int) ([]*entities.AnalysisReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.AnalysisReport
	for _, report := range r.reports {
		if report.CorpID == corpID && report.MeetingID == meetingID {
			out = append(out, report)
		}
	}
	return out, nil
}

type fixture struct {
	store   *repository.ResponseStore
	models  *stubModels
	storage *memStorage
	reports *memReports
	deps    Dependencies
	svc     Service
}

func newFixture(t *testing.T, mutate func(*Dependencies)) *fixture {
	t.Helper()
	f := &fixture{
		store:   repository.NewResponseStore(fieldsPipeline{}, zap.NewNop()),
		models:  &stubModels{},
		storage: &memStorage{},
		reports: &memReports{},
	}
	f.deps = Dependencies{
		Store:      f.store,
		Pipeline:   fieldsPipeline{},
		Topics:     f.models,
		Sentiment:  f.models,
		Embedder:   f.models,
		Wordcloud:  f.models,
		Summarizer: f.models,
		Storage:    f.storage,
		Reports:    f.reports,
		Logger:     zap.NewNop(),
	}
	if mutate != nil {
		mutate(&f.deps)
	}
	f.svc = NewService(f.deps, Options{MostCommonK: 2, CacheTTL: time.Minute})
	return f
}

func int64Ptr(v int64) *int64 { return &v }

func requireCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	var appErr errors.AppError
	require.True(t, stdErrors.As(err, &appErr), "want AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestCheckScope_AbsenceVersusEmptiness(t *testing.T) {
	f := newFixture(t, nil)
	agg := NewAggregator(f.store, fieldsPipeline{})

	// both read as empty from the store
	assert.Empty(t, f.store.AggregateMeeting(9, 9))
	f.store.RegisterQuestion(1, 2, 3, "question")
	assert.Empty(t, f.store.AggregateMeeting(1, 2))

	requireCode(t, agg.CheckScope(entities.AnalysisScope{CorpID: 9, MeetingID: 9}), errors.ErrorCode_CORP_NOT_FOUND)
	requireCode(t, agg.CheckScope(entities.AnalysisScope{CorpID: 1, MeetingID: 9}), errors.ErrorCode_MEETING_NOT_FOUND)
	requireCode(t, agg.CheckScope(entities.AnalysisScope{CorpID: 1, MeetingID: 2, QuestionID: int64Ptr(4)}), errors.ErrorCode_QUESTION_NOT_FOUND)
	assert.NoError(t, agg.CheckScope(entities.AnalysisScope{CorpID: 1, MeetingID: 2}))
	assert.NoError(t, agg.CheckScope(entities.AnalysisScope{CorpID: 1, MeetingID: 2, QuestionID: int64Ptr(3)}))
}

func TestAnalyzeTopic_UnknownMeetingIsNotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.AnalyzeTopic(context.Background(), Request{Scope: entities.AnalysisScope{CorpID: 1, MeetingID: 2}})

	requireCode(t, err, errors.ErrorCode_CORP_NOT_FOUND)
	assert.Zero(t, f.models.topicCalls.Load())
}

func TestAnalyzeTopic_EmptyMeetingIsNoDataWithoutCallingModel(t *testing.T) {
	f := newFixture(t, nil)
	f.store.RegisterQuestion(1, 2, 3, "question")

	_, err := f.svc.AnalyzeTopic(context.Background(), Request{Scope: entities.AnalysisScope{CorpID: 1, MeetingID: 2}})

	requireCode(t, err, errors.ErrorCode_NO_DATA)
	assert.True(t, stdErrors.Is(err, entities.ErrNoData))
	assert.Zero(t, f.models.topicCalls.Load())

	require.Len(t, f.reports.reports, 1)
	assert.Equal(t, entities.ReportStatusNoData, f.reports.reports[0].Status)
}

func TestAnalyzeTopic_ModelNoDataIsNoData(t *testing.T) {
	f := newFixture(t, nil)
	f.models.topicErr = fmt.Errorf("model reported no data: %w", entities.ErrNoData)
	f.store.RecordText(1, 2, 3, 4, "a b")

	_, err := f.svc.AnalyzeTopic(context.Background(), Request{Scope: entities.AnalysisScope{CorpID: 1, MeetingID: 2}})

	requireCode(t, err, errors.ErrorCode_NO_DATA)
}

func TestAnalyzeTopic_UpstreamFailurePreservesMessage(t *testing.T) {
	f := newFixture(t, nil)
	f.models.topicErr = stdErrors.New("model server exploded")
	f.store.RecordText(1, 2, 3, 4, "a b")

	_, err := f.svc.AnalyzeTopic(context.Background(), Request{Scope: entities.AnalysisScope{CorpID: 1, MeetingID: 2}})

	requireCode(t, err, errors.ErrorCode_INTEGRATION_UPSTREAM_FAILED)
	assert.Contains(t, err.Error(), "model server exploded")
	require.Len(t, f.reports.reports, 1)
	assert.Equal(t, entities.ReportStatusFailed, f.reports.reports[0].Status)
	require.NotNil(t, f.reports.reports[0].LastError)
}

func TestAnalyzeTopic_QuestionScopeAndBatch(t *testing.T) {
	f := newFixture(t, nil)
	f.store.RecordText(1, 2, 3, 4, "a b")
	f.store.RecordText(1, 2, 5, 4, "c")

	res, err := f.svc.AnalyzeTopic(context.Background(), Request{
		Scope: entities.AnalysisScope{CorpID: 1, MeetingID: 2, QuestionID: int64Ptr(3)},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"topics":[1]}`, string(res.Payload))
	assert.Equal(t, []string{"a", "b"}, f.models.topicInput)

	// a batch is analyzed as sent, even for a meeting the store never saw
	_, err = f.svc.AnalyzeTopic(context.Background(), Request{
		Scope:     entities.AnalysisScope{CorpID: 7, MeetingID: 8},
		Responses: []entities.ScriptAnswer{{UserID: 1, Answer: "x y"}, {UserID: 2, Answer: "z"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, f.models.topicInput)
}

func TestAnalyzeTopic_CachesByTokenFingerprint(t *testing.T) {
	mem := cache.NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	f := newFixture(t, func(d *Dependencies) { d.Cache = mem })
	f.store.RecordText(1, 2, 3, 4, "a b")
	req := Request{Scope: entities.AnalysisScope{CorpID: 1, MeetingID: 2}}

	first, err := f.svc.AnalyzeTopic(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := f.svc.AnalyzeTopic(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Payload, second.Payload)
	assert.Equal(t, int32(1), f.models.topicCalls.Load())

	// new tokens change the fingerprint
	f.store.RecordText(1, 2, 3, 5, "c")
	third, err := f.svc.AnalyzeTopic(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, int32(2), f.models.topicCalls.Load())
}

func TestAnalyzeSentenceSentiment(t *testing.T) {
	f := newFixture(t, nil)
	f.store.RecordText(1, 2, 3, 10, "old answer")
	f.store.RecordText(1, 2, 3, 11, "red red apple")
	f.store.RecordText(1, 2, 3, 10, "red banana")

	res, err := f.svc.AnalyzeSentenceSentiment(context.Background(), Request{
		Scope: entities.AnalysisScope{CorpID: 1, MeetingID: 2, QuestionID: int64Ptr(3)},
	})
	require.NoError(t, err)

	require.Len(t, res.Sentiment, 2)
	assert.Equal(t, "red banana", res.Sentiment[0].Sentence)
	assert.Equal(t, []string{"red", "banana"}, res.Sentiment[0].Tokens)
	assert.Equal(t, "red red apple", res.Sentiment[1].Sentence)
	assert.InDelta(t, 0.1, res.Sentiment[1].Score, 1e-9)

	assert.Equal(t, map[string]int{"red": 3, "banana": 1, "apple": 1}, res.TokenCounts)
	assert.Equal(t, []entities.TokenCount{{Token: "red", Count: 3}, {Token: "banana", Count: 1}}, res.MostCommonTokens)
}

func TestAnalyzeTokenSentiment(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.AnalyzeTokenSentiment(context.Background(), Request{
		Scope:     entities.AnalysisScope{CorpID: 1, MeetingID: 2},
		Responses: []entities.ScriptAnswer{{UserID: 1, Answer: "bb a"}, {UserID: 2, Answer: "a ccc"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []entities.TokenSentiment{
		{Token: "bb", Freq: 1, SentimentScore: 2},
		{Token: "a", Freq: 2, SentimentScore: 1},
		{Token: "ccc", Freq: 1, SentimentScore: 3},
	}, res.Tokens)
}

func TestAnalyzeTokenSentiment_MissingScore(t *testing.T) {
	f := newFixture(t, nil)
	f.models.unscored = "ccc"

	_, err := f.svc.AnalyzeTokenSentiment(context.Background(), Request{
		Scope:     entities.AnalysisScope{CorpID: 1, MeetingID: 2},
		Responses: []entities.ScriptAnswer{{UserID: 1, Answer: "bb a"}, {UserID: 2, Answer: "a ccc"}},
	})

	requireCode(t, err, errors.ErrorCode_INTEGRATION_UPSTREAM_FAILED)
	assert.Contains(t, err.Error(), "ccc")
}

func TestGenerateWordcloud(t *testing.T) {
	reporter := &stubReporter{}
	f := newFixture(t, func(d *Dependencies) { d.Reporter = reporter })
	f.store.RecordText(1, 2, 3, 4, "a b a")

	res, err := f.svc.GenerateWordcloud(context.Background(), Request{
		Scope: entities.AnalysisScope{CorpID: 1, MeetingID: 2, QuestionID: int64Ptr(3)},
	})
	require.NoError(t, err)

	assert.Equal(t, "wordcloud_1_2_3.png", res.FileName)
	assert.Equal(t, "https://files.test/wordcloud_1_2_3.png", res.URL)
	assert.Equal(t, 3, res.Tokens)
	assert.True(t, res.Reported)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, f.models.renderInput)
	assert.Equal(t, []byte("png"), f.storage.object("wordcloud_1_2_3.png"))

	require.Len(t, f.reports.reports, 1)
	assert.Equal(t, res.URL, f.reports.reports[0].ArtifactURL)
}

func TestGenerateWordcloud_ReportFailureIsNotFatal(t *testing.T) {
	reporter := &stubReporter{err: stdErrors.New("report endpoint down")}
	f := newFixture(t, func(d *Dependencies) { d.Reporter = reporter })
	f.store.RecordText(1, 2, 3, 4, "a")

	res, err := f.svc.GenerateWordcloud(context.Background(), Request{Scope: entities.AnalysisScope{CorpID: 1, MeetingID: 2}})

	require.NoError(t, err)
	assert.False(t, res.Reported)
	assert.Equal(t, int32(1), reporter.calls.Load())
	assert.Equal(t, "wordcloud_1_2.png", res.FileName)
}

func TestAnalyzeEmbedding_UploadsProjectorFiles(t *testing.T) {
	f := newFixture(t, nil)
	f.store.RecordText(1, 2, 3, 4, "a b a")

	res, err := f.svc.AnalyzeEmbedding(context.Background(), Request{Scope: entities.AnalysisScope{CorpID: 1, MeetingID: 2}})
	require.NoError(t, err)

	assert.Equal(t, "embeddings/1/2/all", res.LogDir)
	assert.Equal(t, 2, res.Points)
	assert.Equal(t, 2, res.Dimensions)
	assert.Equal(t, "https://files.test/embeddings/1/2/all/metadata.tsv", res.MetadataURL)
	assert.Equal(t, "a\nb\n", string(f.storage.object("embeddings/1/2/all/metadata.tsv")))
	assert.Equal(t, "0\t1\n1\t1\n", string(f.storage.object("embeddings/1/2/all/tensors.tsv")))
	assert.Contains(t, string(f.storage.object("embeddings/1/2/all/projector_config.json")), `"tensorShape": [`)
}

func TestAnalyzeEmbedding_BatchUsesSentences(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.AnalyzeEmbedding(context.Background(), Request{
		Scope:     entities.AnalysisScope{CorpID: 1, MeetingID: 2, QuestionID: int64Ptr(5)},
		Responses: []entities.ScriptAnswer{{UserID: 1, Answer: "first\tsentence"}, {UserID: 2, Answer: "second"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "embeddings/1/2/5", res.LogDir)
	assert.Equal(t, "first sentence\nsecond\n", string(f.storage.object("embeddings/1/2/5/metadata.tsv")))
}

func TestAnalyzeOverall(t *testing.T) {
	f := newFixture(t, nil)
	f.store.RecordText(1, 2, 3, 4, "a b")
	f.store.RecordText(1, 2, 5, 6, "c")

	res, err := f.svc.AnalyzeOverall(context.Background(), 1, 2)
	require.NoError(t, err)

	require.NotNil(t, res.Topic)
	require.NotNil(t, res.Wordcloud)
	require.NotNil(t, res.Embedding)
	assert.Equal(t, "wordcloud_1_2.png", res.Wordcloud.FileName)
	assert.Equal(t, 3, res.Embedding.Points)
	assert.Equal(t, int32(1), f.models.topicCalls.Load())
	assert.Equal(t, int32(1), f.models.renderCalls.Load())
	assert.Equal(t, int32(1), f.models.embedCalls.Load())
}

func TestAnalyzeOverall_FailsWhenOneStageFails(t *testing.T) {
	f := newFixture(t, nil)
	f.models.embedErr = stdErrors.New("embedding unavailable")
	f.store.RecordText(1, 2, 3, 4, "a b")

	res, err := f.svc.AnalyzeOverall(context.Background(), 1, 2)

	assert.Nil(t, res)
	requireCode(t, err, errors.ErrorCode_INTEGRATION_UPSTREAM_FAILED)
	assert.Contains(t, err.Error(), "embedding unavailable")
}

func TestSummarize(t *testing.T) {
	f := newFixture(t, nil)
	f.store.RegisterQuestion(1, 2, 3, "How is it?")

	_, err := f.svc.Summarize(context.Background(), 1, 2)
	requireCode(t, err, errors.ErrorCode_NO_DATA)

	f.store.RecordText(1, 2, 3, 4, "great")
	res, err := f.svc.Summarize(context.Background(), 1, 2)
	require.NoError(t, err)

	assert.Equal(t, "summary", res.Summary)
	require.Len(t, f.models.summaryInput, 1)
	assert.Equal(t, "How is it?", f.models.summaryInput[0].Question)
}

func TestListReports(t *testing.T) {
	f := newFixture(t, nil)
	f.store.RecordText(1, 2, 3, 4, "a")
	_, err := f.svc.AnalyzeTopic(context.Background(), Request{Scope: entities.AnalysisScope{CorpID: 1, MeetingID: 2}})
	require.NoError(t, err)

	reports, err := f.svc.ListReports(context.Background(), 1, 2, 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, entities.AnalysisKindTopic, reports[0].Kind)
	assert.Equal(t, entities.ReportStatusCompleted, reports[0].Status)

	disabled := newFixture(t, func(d *Dependencies) { d.Reports = nil })
	_, err = disabled.svc.ListReports(context.Background(), 1, 2, 10)
	requireCode(t, err, errors.ErrorCode_DB_DISABLED)
}
