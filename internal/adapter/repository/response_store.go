package repository

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
)

// ResponseStore accumulates every meeting's answers in memory. Each
// (corpId, meetingId) pair owns one MeetingTranscript; all aggregations are
// views over those row logs. One lock guards the whole store, so a first
// write allocates its meeting in a single critical section.
type ResponseStore struct {
	mu       sync.RWMutex
	meetings map[entities.MeetingKey]*entities.MeetingTranscript
	corps    map[int64]int
	pipeline entities.TokenPipeline
	logger   *zap.Logger
}

// NewResponseStore creates an empty store tokenizing answers with pipeline
func NewResponseStore(pipeline entities.TokenPipeline, logger *zap.Logger) *ResponseStore {
	return &ResponseStore{
		meetings: make(map[entities.MeetingKey]*entities.MeetingTranscript),
		corps:    make(map[int64]int),
		pipeline: pipeline,
		logger:   logger,
	}
}

// transcript returns the meeting's transcript, creating it when create is set.
// Callers hold s.mu (write lock when create is set).
func (s *ResponseStore) transcript(key entities.MeetingKey, create bool) *entities.MeetingTranscript {
	t, ok := s.meetings[key]
	if ok || !create {
		return t
	}
	t = entities.NewMeetingTranscript(key, s.pipeline)
	s.meetings[key] = t
	s.corps[key.CorpID]++
	return t
}

func (s *ResponseStore) read(corpID, meetingID int64, fn func(t *entities.MeetingTranscript)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.transcript(entities.MeetingKey{CorpID: corpID, MeetingID: meetingID}, false); t != nil {
		fn(t)
	}
}

// RecordText appends answerText and its tokens for the participant
func (s *ResponseStore) RecordText(corpID, meetingID, questionID, userID int64, answerText string) entities.AnswerRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.transcript(entities.MeetingKey{CorpID: corpID, MeetingID: meetingID}, true)
	return t.AddAnswer(questionID, answerText, userID)
}

// RegisterQuestion registers questionText; the first registration wins
func (s *ResponseStore) RegisterQuestion(corpID, meetingID, questionID int64, questionText string) bool {
	s.mu.Lock()
	t := s.transcript(entities.MeetingKey{CorpID: corpID, MeetingID: meetingID}, true)
	added := t.AddQuestion(questionID, questionText)
	existing := t.QuestionText(questionID)
	s.mu.Unlock()

	if !added && existing != questionText && s.logger != nil {
		s.logger.Info("question already registered, keeping first text",
			zap.Int64("corp_id", corpID),
			zap.Int64("meeting_id", meetingID),
			zap.Int64("question_id", questionID),
			zap.String("existing", existing),
			zap.String("ignored", questionText),
		)
	}
	return added
}

// AggregateMeeting returns every token of the meeting, question by question
// and participant by participant. Unknown meetings yield an empty slice.
func (s *ResponseStore) AggregateMeeting(corpID, meetingID int64) []string {
	tokens := []string{}
	s.read(corpID, meetingID, func(t *entities.MeetingTranscript) {
		tokens = t.MeetingTokens()
	})
	return tokens
}

// AggregateQuestion is AggregateMeeting restricted to one question
func (s *ResponseStore) AggregateQuestion(corpID, meetingID, questionID int64) []string {
	tokens := []string{}
	s.read(corpID, meetingID, func(t *entities.MeetingTranscript) {
		tokens = t.QuestionTokens(questionID)
	})
	return tokens
}

// AggregateQuestionSentences returns the latest raw answer of each participant
func (s *ResponseStore) AggregateQuestionSentences(corpID, meetingID, questionID int64) []string {
	sentences := []string{}
	s.read(corpID, meetingID, func(t *entities.MeetingTranscript) {
		sentences = t.QuestionSentences(questionID)
	})
	return sentences
}

// AllTokens returns the meeting's tokens in submission order
func (s *ResponseStore) AllTokens(corpID, meetingID int64) []string {
	tokens := []string{}
	s.read(corpID, meetingID, func(t *entities.MeetingTranscript) {
		tokens = t.AllTokens()
	})
	return tokens
}

// Record returns a participant's accumulated answers and tokens
func (s *ResponseStore) Record(corpID, meetingID, questionID, userID int64) (entities.ResponseRecord, bool) {
	rec := entities.NewResponseRecord()
	found := false
	s.read(corpID, meetingID, func(t *entities.MeetingTranscript) {
		rec, found = t.Record(questionID, userID)
	})
	return rec, found
}

// Answers returns every answer logged for a question
func (s *ResponseStore) Answers(corpID, meetingID, questionID int64) []entities.ScriptAnswer {
	answers := []entities.ScriptAnswer{}
	s.read(corpID, meetingID, func(t *entities.MeetingTranscript) {
		answers = t.Answers(questionID)
	})
	return answers
}

// Tokens returns the per-row tokens logged for a question
func (s *ResponseStore) Tokens(corpID, meetingID, questionID int64) []entities.ParticipantTokens {
	rows := []entities.ParticipantTokens{}
	s.read(corpID, meetingID, func(t *entities.MeetingTranscript) {
		rows = t.Tokens(questionID)
	})
	return rows
}

// QuestionText returns the registered text or ""
func (s *ResponseStore) QuestionText(corpID, meetingID, questionID int64) string {
	var text string
	s.read(corpID, meetingID, func(t *entities.MeetingTranscript) {
		text = t.QuestionText(questionID)
	})
	return text
}

// Script returns the meeting's script view
func (s *ResponseStore) Script(corpID, meetingID int64) []entities.ScriptEntry {
	script := []entities.ScriptEntry{}
	s.read(corpID, meetingID, func(t *entities.MeetingTranscript) {
		script = t.ScriptFormat()
	})
	return script
}

// HasCorp reports whether any meeting of corpID has been seen
func (s *ResponseStore) HasCorp(corpID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corps[corpID] > 0
}

// HasMeeting reports whether the meeting has been seen
func (s *ResponseStore) HasMeeting(corpID, meetingID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.meetings[entities.MeetingKey{CorpID: corpID, MeetingID: meetingID}]
	return ok
}

// HasQuestion reports whether the question was registered or answered
func (s *ResponseStore) HasQuestion(corpID, meetingID, questionID int64) bool {
	found := false
	s.read(corpID, meetingID, func(t *entities.MeetingTranscript) {
		found = t.HasQuestion(questionID)
	})
	return found
}

// Partitions lists every known meeting, ordered by corp then meeting id
func (s *ResponseStore) Partitions() []entities.MeetingKey {
	s.mu.RLock()
	keys := make([]entities.MeetingKey, 0, len(s.meetings))
	for k := range s.meetings {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CorpID != keys[j].CorpID {
			return keys[i].CorpID < keys[j].CorpID
		}
		return keys[i].MeetingID < keys[j].MeetingID
	})
	return keys
}

// LiveMeetings reports how many meetings are held in memory
func (s *ResponseStore) LiveMeetings() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return float64(len(s.meetings))
}

// PendingTokens returns the tokens not yet snapshotted and the mark to
// acknowledge them with
func (s *ResponseStore) PendingTokens(key entities.MeetingKey) (entities.TokenMap, int) {
	pending := entities.TokenMap{}
	mark := 0
	s.read(key.CorpID, key.MeetingID, func(t *entities.MeetingTranscript) {
		pending, mark = t.PendingTokens()
	})
	return pending, mark
}

// MarkPersisted acknowledges a snapshot write up to mark
func (s *ResponseStore) MarkPersisted(key entities.MeetingKey, mark int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.transcript(key, false); t != nil {
		t.MarkPersisted(mark)
	}
}

// Restore loads snapshot tokens into the meeting, creating it if needed
func (s *ResponseStore) Restore(key entities.MeetingKey, tokens entities.TokenMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.transcript(key, false); t != nil {
		return t.Restore(tokens)
	}
	t := entities.NewMeetingTranscript(key, s.pipeline)
	if err := t.Restore(tokens); err != nil {
		return err
	}
	s.meetings[key] = t
	s.corps[key.CorpID]++
	return nil
}
