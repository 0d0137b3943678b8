package dto

import "time"

// AnswerRecordDTO is one graded answer inside an attempt detail.
type AnswerRecordDTO struct {
	QuestionID uint   `json:"question_id"`
	Selected   string `json:"selected,omitempty"`
	Correct    string `json:"correct"`
	IsCorrect  bool   `json:"is_correct"`
}

// AttemptDetailDTO is the immutable result of a finished test.
type AttemptDetailDTO struct {
	ID             uint              `json:"id"`
	CandidateID    string            `json:"candidate_id"`
	AssignedExamID *uint             `json:"assigned_exam_id,omitempty"`
	Score          int               `json:"score"`
	Passed         bool              `json:"passed"`
	CompletedAt    time.Time         `json:"completed_at"`
	Answers        []AnswerRecordDTO `json:"answers,omitempty"`
}

// AttemptSummaryDTO lists a candidate's past attempts.
type AttemptSummaryDTO struct {
	ID          uint      `json:"id"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completed_at"`
}

// CertificateStatusDTO reports where the candidate stands in the
// delay-gated issuance flow.
type CertificateStatusDTO struct {
	Status      string     `json:"status"` // not_eligible | processing | issued
	AvailableAt *time.Time `json:"available_at,omitempty"`
	Ref         string     `json:"ref,omitempty"`
	Score       *int       `json:"score,omitempty"`
}
