// Package response records text and voice answers into the response store.
package response

import (
	"context"
	"encoding/base64"
	stdErrors "errors"
	"strings"

	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/errors"
	domainrepo "github.com/johnquangdev/focus-group-analyzer/internal/domain/repositories"
	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/metrics"
)

// ErrEmptyTranscript is returned when the audio transcribed to no text
var ErrEmptyTranscript = stdErrors.New("transcript is empty")

// Transcriber is the speech-to-text collaborator
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// TextSubmission is one typed answer
type TextSubmission struct {
	CorpID         int64
	MeetingID      int64
	QuestionID     int64
	UserID         int64
	SurveyQuestion string
	Answer         string
}

// VoiceSubmission is one spoken answer, base64 encoded
type VoiceSubmission struct {
	CorpID         int64
	MeetingID      int64
	QuestionID     int64
	UserID         int64
	SurveyQuestion string
	Audio          string
}

// Result is what a submission stored
type Result struct {
	CorpID     int64    `json:"corpId"`
	MeetingID  int64    `json:"meetingId"`
	QuestionID int64    `json:"questionId"`
	UserID     int64    `json:"userId"`
	Answer     string   `json:"answer"`
	Tokens     []string `json:"tokens"`
}

// Service defines answer submission methods
type Service interface {
	SubmitText(ctx context.Context, in TextSubmission) (*Result, error)
	SubmitVoice(ctx context.Context, in VoiceSubmission) (*Result, error)
}

type responseService struct {
	store       domainrepo.ResponseRepository
	transcriber Transcriber
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewService constructs the submission service. transcriber may be nil, in
// which case voice submissions fail with an upstream error.
func NewService(store domainrepo.ResponseRepository, transcriber Transcriber, m *metrics.Metrics, logger *zap.Logger) Service {
	return &responseService{
		store:       store,
		transcriber: transcriber,
		metrics:     m,
		logger:      logger,
	}
}

// SubmitText registers the question text (first one wins) and records the answer
func (s *responseService) SubmitText(ctx context.Context, in TextSubmission) (*Result, error) {
	res := s.record(in.CorpID, in.MeetingID, in.QuestionID, in.UserID, in.SurveyQuestion, in.Answer)
	s.metrics.RecordResponse("text")
	return res, nil
}

// SubmitVoice decodes and transcribes the audio, then records the text like a typed answer
func (s *responseService) SubmitVoice(ctx context.Context, in VoiceSubmission) (*Result, error) {
	audio, err := DecodeAudio(in.Audio)
	if err != nil {
		return nil, errors.ErrInvalidAudio(err)
	}

	if s.transcriber == nil {
		return nil, errors.ErrUpstream("stt", stdErrors.New("speech-to-text is not configured"))
	}

	text, err := s.transcriber.Transcribe(ctx, audio)
	if err != nil {
		s.metrics.UpstreamError("stt")
		if s.logger != nil {
			s.logger.Error("❌ Transcription failed",
				zap.Int64("corp_id", in.CorpID),
				zap.Int64("meeting_id", in.MeetingID),
				zap.Int64("question_id", in.QuestionID),
				zap.Int64("user_id", in.UserID),
				zap.Error(err),
			)
		}
		return nil, errors.ErrUpstream("stt", err)
	}
	if strings.TrimSpace(text) == "" {
		s.metrics.UpstreamError("stt")
		return nil, errors.ErrUpstream("stt", ErrEmptyTranscript)
	}

	res := s.record(in.CorpID, in.MeetingID, in.QuestionID, in.UserID, in.SurveyQuestion, text)
	s.metrics.RecordResponse("voice")
	return res, nil
}

func (s *responseService) record(corpID, meetingID, questionID, userID int64, question, answer string) *Result {
	if question != "" {
		s.store.RegisterQuestion(corpID, meetingID, questionID, question)
	}
	row := s.store.RecordText(corpID, meetingID, questionID, userID, answer)

	if s.logger != nil {
		s.logger.Debug("answer recorded",
			zap.Int64("corp_id", corpID),
			zap.Int64("meeting_id", meetingID),
			zap.Int64("question_id", questionID),
			zap.Int64("user_id", userID),
			zap.Int("tokens", len(row.Tokens)),
		)
	}

	return &Result{
		CorpID:     corpID,
		MeetingID:  meetingID,
		QuestionID: questionID,
		UserID:     userID,
		Answer:     row.Answer,
		Tokens:     row.Tokens,
	}
}

// DecodeAudio decodes base64 audio, accepting an optional data URL prefix
// ("data:audio/wav;base64,...").
func DecodeAudio(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	if encoded == "" {
		return nil, stdErrors.New("audio is empty")
	}

	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		audio, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, stdErrors.New("audio is empty")
	}
	return audio, nil
}
