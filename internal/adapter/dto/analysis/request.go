package analysis

// ResponseItem is one answer sent inline with an analysis request
type ResponseItem struct {
	UserID int64  `json:"userId" validate:"gte=0"`
	Answer string `json:"answer" validate:"required"`
}

// Request selects a meeting, optionally narrowed to one question. When
// Responses is set the batch is analyzed instead of the stored answers.
type Request struct {
	CorpID     int64          `json:"corpId" validate:"required,gt=0"`
	MeetingID  int64          `json:"meetingId" validate:"required,gt=0"`
	QuestionID *int64         `json:"questionId,omitempty" validate:"omitempty,gt=0"`
	Responses  []ResponseItem `json:"responses,omitempty" validate:"omitempty,max=5000,dive"`
}

// OverallRequest selects a whole meeting
type OverallRequest struct {
	CorpID    int64 `json:"corpId" validate:"required,gt=0"`
	MeetingID int64 `json:"meetingId" validate:"required,gt=0"`
}

// MeetingPath binds the :corpId/:meetingId path of the meeting routes
type MeetingPath struct {
	CorpID    int64 `param:"corpId" validate:"required,gt=0"`
	MeetingID int64 `param:"meetingId" validate:"required,gt=0"`
}

// QuestionPath binds the :corpId/:meetingId/:questionId path
type QuestionPath struct {
	CorpID     int64 `param:"corpId" validate:"required,gt=0"`
	MeetingID  int64 `param:"meetingId" validate:"required,gt=0"`
	QuestionID int64 `param:"questionId" validate:"required,gt=0"`
}

// ListReportsRequest represents query parameters for listing reports
type ListReportsRequest struct {
	CorpID    int64 `param:"corpId" validate:"required,gt=0"`
	MeetingID int64 `param:"meetingId" validate:"required,gt=0"`
	Limit     int   `query:"limit" validate:"omitempty,min=1,max=100"`
}
