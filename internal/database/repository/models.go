package repository

import (
	"strings"
	"time"
)

// Interview represents one ATS feedback row.
type Interview struct {
	ID                 string
	RecordKey          string
	CandidateName      string
	InterviewDate      time.Time
	FeedbackForm       string
	Interviewer        string
	OverallScore       *float64
	CandidateOrigin    string
	CandidateOwnerName *string
	PostingTitle       *string
	UploadID           *string
	CreatedAt          time.Time
}

// FileUpload represents an upload history row.
type FileUpload struct {
	ID              string
	Filename        string
	UploadTimestamp time.Time
	RecordCount     int
}

// RecordKey identifies an interview row across uploads: candidate, interview
// minute (UTC), feedback form and interviewer. Panel interviews share the
// first three, so the interviewer is part of the key.
func RecordKey(candidate string, date time.Time, feedbackForm, interviewer string) string {
	return strings.Join([]string{
		strings.TrimSpace(candidate),
		date.UTC().Format("2006-01-02 15:04"),
		strings.TrimSpace(feedbackForm),
		strings.TrimSpace(interviewer),
	}, "|")
}
