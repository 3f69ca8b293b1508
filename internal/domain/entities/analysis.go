package entities

import "encoding/json"

// AnalysisKind names one analysis stage. It is used as a metric label, a
// report discriminator and a cache key prefix.
type AnalysisKind string

const (
	AnalysisKindOverall           AnalysisKind = "overall"
	AnalysisKindTopic             AnalysisKind = "topic"
	AnalysisKindSentenceSentiment AnalysisKind = "sentiment_sentences"
	AnalysisKindTokenSentiment    AnalysisKind = "sentiment_tokens"
	AnalysisKindEmbedding         AnalysisKind = "embedding"
	AnalysisKindWordcloud         AnalysisKind = "wordcloud"
	AnalysisKindSummary           AnalysisKind = "summary"
)

// AnalysisScope selects the data an analysis reads. A nil QuestionID means the
// whole meeting.
type AnalysisScope struct {
	CorpID     int64  `json:"corpId"`
	MeetingID  int64  `json:"meetingId"`
	QuestionID *int64 `json:"questionId,omitempty"`
}

// Key returns the meeting the scope belongs to
func (s AnalysisScope) Key() MeetingKey {
	return MeetingKey{CorpID: s.CorpID, MeetingID: s.MeetingID}
}

// TopicResult is the topic collaborator's visualization payload, kept opaque.
type TopicResult struct {
	Payload json.RawMessage `json:"payload"`
	Cached  bool            `json:"cached"`
}

// SentenceSentiment is one scored answer.
type SentenceSentiment struct {
	Sentence string   `json:"sentence"`
	Score    float64  `json:"sentimentScore"`
	Tokens   []string `json:"tokens"`
}

// TokenCount is one entry of a frequency ranking.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// SentenceSentimentResult is the per-sentence sentiment view.
type SentenceSentimentResult struct {
	Sentiment        []SentenceSentiment `json:"sentiment"`
	TokenCounts      map[string]int      `json:"tokenCounts"`
	MostCommonTokens []TokenCount        `json:"mostCommonTokens"`
}

// TokenSentiment is the frequency and score of one unique token.
type TokenSentiment struct {
	Token          string  `json:"token"`
	Freq           int     `json:"freq"`
	SentimentScore float64 `json:"sentimentScore"`
}

// TokenSentimentResult keeps unique tokens in first-seen order.
type TokenSentimentResult struct {
	Tokens []TokenSentiment `json:"tokens"`
}

// EmbeddingResult points at the projector artifacts written for a scope.
type EmbeddingResult struct {
	LogDir      string `json:"logDir"`
	Points      int    `json:"points"`
	Dimensions  int    `json:"dimensions"`
	MetadataURL string `json:"metadataUrl,omitempty"`
}

// WordcloudResult points at the uploaded word-cloud image.
type WordcloudResult struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	Tokens   int    `json:"tokens"`
	Reported bool   `json:"reported"`
}

// OverallResult bundles the whole-meeting analyses.
type OverallResult struct {
	Topic     *TopicResult     `json:"topic"`
	Wordcloud *WordcloudResult `json:"wordcloud"`
	Embedding *EmbeddingResult `json:"embedding"`
}

// SummaryResult is the summarization collaborator's output for a script.
type SummaryResult struct {
	CorpID    int64         `json:"corpId"`
	MeetingID int64         `json:"meetingId"`
	Summary   string        `json:"summary"`
	Script    []ScriptEntry `json:"script"`
}
