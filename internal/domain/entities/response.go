package entities

import (
	"fmt"
	"strconv"
)

// MeetingKey identifies one focus-group session inside an organization.
type MeetingKey struct {
	CorpID    int64 `json:"corpId"`
	MeetingID int64 `json:"meetingId"`
}

// String renders the key for logs and cache keys
func (k MeetingKey) String() string {
	return fmt.Sprintf("%d/%d", k.CorpID, k.MeetingID)
}

// ResponseRecord is one participant's accumulated data for one question.
// TokenGroups holds one entry per answer, possibly empty, so the two grow in
// step. Tokens is the flat view and also carries tokens restored from a
// snapshot, which have no answer text.
type ResponseRecord struct {
	Answers     []string   `json:"answers"`
	TokenGroups [][]string `json:"tokenGroups"`
	Tokens      []string   `json:"tokens"`
}

// NewResponseRecord returns an empty record with non-nil slices
func NewResponseRecord() ResponseRecord {
	return ResponseRecord{Answers: []string{}, TokenGroups: [][]string{}, Tokens: []string{}}
}

// AnswerRow is a single submission in a meeting's answer log.
type AnswerRow struct {
	QuestionID int64    `json:"question_id"`
	UserID     int64    `json:"user_id"`
	Answer     string   `json:"answer"`
	Tokens     []string `json:"tokens"`
}

// ScriptAnswer is one answer line in a script.
type ScriptAnswer struct {
	UserID int64  `json:"userId"`
	Answer string `json:"answer"`
}

// ScriptEntry groups every answer logged for one question.
type ScriptEntry struct {
	QuestionID int64          `json:"questionId"`
	Question   string         `json:"question"`
	Answers    []ScriptAnswer `json:"answers"`
}

// ParticipantTokens is one participant's token list for a question.
type ParticipantTokens struct {
	UserID int64    `json:"userId"`
	Tokens []string `json:"tokens"`
}

// TokenMap is the snapshot shape: questionId -> userId -> tokens.
// Keys are decimal ids so the JSON form is {"1":{"10":["..."]}}.
type TokenMap map[string]map[string][]string

// Add appends tokens under (questionID, userID), allocating levels as needed.
func (m TokenMap) Add(questionID, userID int64, tokens ...string) {
	q := strconv.FormatInt(questionID, 10)
	u := strconv.FormatInt(userID, 10)
	users, ok := m[q]
	if !ok {
		users = make(map[string][]string)
		m[q] = users
	}
	if _, ok := users[u]; !ok {
		users[u] = []string{}
	}
	users[u] = append(users[u], tokens...)
}

// Merge extends m with other. Existing participant lists are extended, never
// replaced.
func (m TokenMap) Merge(other TokenMap) {
	for q, users := range other {
		existing, ok := m[q]
		if !ok {
			existing = make(map[string][]string, len(users))
			m[q] = existing
		}
		for u, tokens := range users {
			if _, ok := existing[u]; !ok {
				existing[u] = []string{}
			}
			existing[u] = append(existing[u], tokens...)
		}
	}
}

// Len returns the number of tokens held.
func (m TokenMap) Len() int {
	n := 0
	for _, users := range m {
		for _, tokens := range users {
			n += len(tokens)
		}
	}
	return n
}
