package entities

import (
	"fmt"
	"sort"
	"strconv"
)

// TokenPipeline turns one raw answer into its normalized tokens
// (tokenization followed by stopword removal).
type TokenPipeline interface {
	Tokens(text string) []string
}

type loggedRow struct {
	AnswerRow
	persisted bool
	// restored rows come from a snapshot and carry tokens only
	restored bool
}

// MeetingTranscript is the question catalog plus the append-only answer log
// of one (corpId, meetingId) pair. Every submission is its own row, so a
// participant answering the same question twice keeps both answers.
//
// MeetingTranscript is not safe for concurrent use; ResponseStore serializes
// access to it.
type MeetingTranscript struct {
	key       MeetingKey
	pipeline  TokenPipeline
	questions map[int64]string
	order     []int64
	seen      map[int64]struct{}
	rows      []loggedRow
}

// NewMeetingTranscript creates an empty transcript
func NewMeetingTranscript(key MeetingKey, pipeline TokenPipeline) *MeetingTranscript {
	return &MeetingTranscript{
		key:       key,
		pipeline:  pipeline,
		questions: make(map[int64]string),
		seen:      make(map[int64]struct{}),
	}
}

// Key returns the transcript's identity
func (t *MeetingTranscript) Key() MeetingKey {
	return t.key
}

// Len returns the number of rows in the answer log
func (t *MeetingTranscript) Len() int {
	return len(t.rows)
}

func (t *MeetingTranscript) touch(questionID int64) {
	if _, ok := t.seen[questionID]; ok {
		return
	}
	t.seen[questionID] = struct{}{}
	t.order = append(t.order, questionID)
}

// AddQuestion registers questionText for questionID. The first registration
// wins; it returns false when the question was already registered.
func (t *MeetingTranscript) AddQuestion(questionID int64, questionText string) bool {
	if _, exists := t.questions[questionID]; exists {
		return false
	}
	t.questions[questionID] = questionText
	t.touch(questionID)
	return true
}

// AddAnswer tokenizes answer and appends one row to the log. The question
// does not have to be registered.
func (t *MeetingTranscript) AddAnswer(questionID int64, answer string, userID int64) AnswerRow {
	var tokens []string
	if t.pipeline != nil {
		tokens = t.pipeline.Tokens(answer)
	}
	row := AnswerRow{
		QuestionID: questionID,
		UserID:     userID,
		Answer:     answer,
		Tokens:     append([]string{}, tokens...),
	}
	t.rows = append(t.rows, loggedRow{AnswerRow: row})
	t.touch(questionID)
	return row
}

// QuestionText returns the registered text or "" when unknown
func (t *MeetingTranscript) QuestionText(questionID int64) string {
	return t.questions[questionID]
}

// HasQuestion reports whether questionID was registered or answered
func (t *MeetingTranscript) HasQuestion(questionID int64) bool {
	_, ok := t.seen[questionID]
	return ok
}

// Answers returns every answer logged for questionID, in log order, empty
// answers included. Rows restored from a snapshot are skipped.
func (t *MeetingTranscript) Answers(questionID int64) []ScriptAnswer {
	answers := []ScriptAnswer{}
	for _, r := range t.rows {
		if r.QuestionID != questionID || r.restored {
			continue
		}
		answers = append(answers, ScriptAnswer{UserID: r.UserID, Answer: r.Answer})
	}
	return answers
}

// Tokens returns each row's tokens for questionID, in log order.
func (t *MeetingTranscript) Tokens(questionID int64) []ParticipantTokens {
	out := []ParticipantTokens{}
	for _, r := range t.rows {
		if r.QuestionID != questionID {
			continue
		}
		out = append(out, ParticipantTokens{UserID: r.UserID, Tokens: append([]string{}, r.Tokens...)})
	}
	return out
}

// AllTokens flattens every row's tokens in log order.
func (t *MeetingTranscript) AllTokens() []string {
	all := []string{}
	for _, r := range t.rows {
		all = append(all, r.Tokens...)
	}
	return all
}

// ScriptFormat groups answers by question, one entry per question in the
// order each question was first seen.
func (t *MeetingTranscript) ScriptFormat() []ScriptEntry {
	script := make([]ScriptEntry, 0, len(t.order))
	for _, qid := range t.order {
		script = append(script, ScriptEntry{
			QuestionID: qid,
			Question:   t.QuestionText(qid),
			Answers:    t.Answers(qid),
		})
	}
	return script
}

// participantOrder returns the users who answered questionID in first-answer order.
func (t *MeetingTranscript) participantOrder(questionID int64) []int64 {
	var users []int64
	seen := make(map[int64]struct{})
	for _, r := range t.rows {
		if r.QuestionID != questionID {
			continue
		}
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		users = append(users, r.UserID)
	}
	return users
}

// QuestionTokens concatenates, participant by participant, every token logged
// for questionID.
func (t *MeetingTranscript) QuestionTokens(questionID int64) []string {
	byUser := make(map[int64][]string)
	for _, r := range t.rows {
		if r.QuestionID == questionID {
			byUser[r.UserID] = append(byUser[r.UserID], r.Tokens...)
		}
	}
	tokens := []string{}
	for _, uid := range t.participantOrder(questionID) {
		tokens = append(tokens, byUser[uid]...)
	}
	return tokens
}

// MeetingTokens is QuestionTokens over every question, questions in first-seen order.
func (t *MeetingTranscript) MeetingTokens() []string {
	tokens := []string{}
	for _, qid := range t.order {
		tokens = append(tokens, t.QuestionTokens(qid)...)
	}
	return tokens
}

// QuestionSentences returns one raw answer per participant: the latest one.
func (t *MeetingTranscript) QuestionSentences(questionID int64) []string {
	latest := make(map[int64]string)
	for _, r := range t.rows {
		if r.QuestionID == questionID && !r.restored {
			latest[r.UserID] = r.Answer
		}
	}
	sentences := []string{}
	for _, uid := range t.participantOrder(questionID) {
		if answer, ok := latest[uid]; ok {
			sentences = append(sentences, answer)
		}
	}
	return sentences
}

// Record returns the participant's accumulated answers and tokens. Restored
// rows add to Tokens only; live rows add one answer and one token group.
func (t *MeetingTranscript) Record(questionID, userID int64) (ResponseRecord, bool) {
	rec := NewResponseRecord()
	found := false
	for _, r := range t.rows {
		if r.QuestionID != questionID || r.UserID != userID {
			continue
		}
		found = true
		if !r.restored {
			rec.Answers = append(rec.Answers, r.Answer)
			rec.TokenGroups = append(rec.TokenGroups, append([]string{}, r.Tokens...))
		}
		rec.Tokens = append(rec.Tokens, r.Tokens...)
	}
	return rec, found
}

// PendingTokens collects the tokens of rows not yet written to a snapshot.
// The returned mark is passed to MarkPersisted once the write succeeded.
func (t *MeetingTranscript) PendingTokens() (TokenMap, int) {
	pending := TokenMap{}
	for _, r := range t.rows {
		if !r.persisted {
			pending.Add(r.QuestionID, r.UserID, r.Tokens...)
		}
	}
	return pending, len(t.rows)
}

// MarkPersisted flags every row before mark as written.
func (t *MeetingTranscript) MarkPersisted(mark int) {
	if mark > len(t.rows) {
		mark = len(t.rows)
	}
	for i := 0; i < mark; i++ {
		t.rows[i].persisted = true
	}
}

// Restore appends token-only rows from a snapshot. Restored rows count as
// persisted so they are never merged back into their own file.
func (t *MeetingTranscript) Restore(m TokenMap) error {
	type restored struct {
		qid, uid int64
		tokens   []string
	}
	var rows []restored
	for q, users := range m {
		qid, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid question id %q: %w", q, err)
		}
		for u, tokens := range users {
			uid, err := strconv.ParseInt(u, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", u, err)
			}
			rows = append(rows, restored{qid: qid, uid: uid, tokens: tokens})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].qid != rows[j].qid {
			return rows[i].qid < rows[j].qid
		}
		return rows[i].uid < rows[j].uid
	})

	for _, r := range rows {
		t.rows = append(t.rows, loggedRow{
			AnswerRow: AnswerRow{
				QuestionID: r.qid,
				UserID:     r.uid,
				Tokens:     append([]string{}, r.tokens...),
			},
			persisted: true,
			restored:  true,
		})
		t.touch(r.qid)
	}
	return nil
}
