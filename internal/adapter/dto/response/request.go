package response

// TextRequest represents a typed answer to one survey question
type TextRequest struct {
	CorpID         int64  `json:"corpId" validate:"required,gt=0"`
	MeetingID      int64  `json:"meetingId" validate:"required,gt=0"`
	QuestionID     int64  `json:"questionId" validate:"required,gt=0"`
	UserID         int64  `json:"userId" validate:"required,gt=0"`
	SurveyQuestion string `json:"surveyQuestion" validate:"required,max=2000"`
	TextResponse   string `json:"textResponse" validate:"required,max=10000"`
}

// VoiceRequest represents a spoken answer. VoiceResponse is base64 audio,
// optionally as a data URL.
type VoiceRequest struct {
	CorpID         int64  `json:"corpId" validate:"required,gt=0"`
	MeetingID      int64  `json:"meetingId" validate:"required,gt=0"`
	QuestionID     int64  `json:"questionId" validate:"required,gt=0"`
	UserID         int64  `json:"userId" validate:"required,gt=0"`
	SurveyQuestion string `json:"surveyQuestion" validate:"required,max=2000"`
	VoiceResponse  string `json:"voiceResponse" validate:"required"`
}
