package repositories

import (
	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
)

// ResponseRepository defines the in-process response accumulation operations.
// Lookups against absent keys return empty results, never errors; callers
// that must tell "unknown" from "empty" use the Has* checks.
type ResponseRepository interface {
	// RecordText appends one answer (and its tokens) for a participant
	RecordText(corpID, meetingID, questionID, userID int64, answerText string) entities.AnswerRow

	// RegisterQuestion registers question text; the first registration wins
	RegisterQuestion(corpID, meetingID, questionID int64, questionText string) bool

	// Aggregations
	AggregateMeeting(corpID, meetingID int64) []string
	AggregateQuestion(corpID, meetingID, questionID int64) []string
	AggregateQuestionSentences(corpID, meetingID, questionID int64) []string

	// Transcript views
	Record(corpID, meetingID, questionID, userID int64) (entities.ResponseRecord, bool)
	Tokens(corpID, meetingID, questionID int64) []entities.ParticipantTokens
	Script(corpID, meetingID int64) []entities.ScriptEntry

	// Presence checks
	HasCorp(corpID int64) bool
	HasMeeting(corpID, meetingID int64) bool
	HasQuestion(corpID, meetingID, questionID int64) bool
	Partitions() []entities.MeetingKey

	// Snapshot hooks
	PendingTokens(key entities.MeetingKey) (entities.TokenMap, int)
	MarkPersisted(key entities.MeetingKey, mark int)
	Restore(key entities.MeetingKey, tokens entities.TokenMap) error
}
