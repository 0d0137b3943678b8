package dto

import "time"

// SessionQuestionDTO is a frozen question as presented to the candidate.
// The correct letter never leaves the server.
type SessionQuestionDTO struct {
	QuestionID uint   `json:"question_id"`
	Prompt     string `json:"prompt"`
	ChoiceA    string `json:"choice_a"`
	ChoiceB    string `json:"choice_b"`
	ChoiceC    string `json:"choice_c"`
	ChoiceD    string `json:"choice_d"`
}

// SessionViewDTO is the full resumable view: lobby or running, with the
// candidate's answers and the live remaining time.
type SessionViewDTO struct {
	State          string               `json:"state"` // lobby | running
	Questions      []SessionQuestionDTO `json:"questions"`
	QuestionCount  int                  `json:"question_count"`
	Answers        map[uint]string      `json:"answers"`
	Cursor         int                  `json:"cursor"`
	RemainingSec   int                  `json:"remaining_sec"`
	TimeLimitSec   int                  `json:"time_limit_sec"`
	PassingScore   int                  `json:"passing_score"`
	Started        bool                 `json:"started"`
	StartedAt      *time.Time           `json:"started_at,omitempty"`
	AssignedExamID *uint                `json:"assigned_exam_id,omitempty"`
	Resumed        bool                 `json:"resumed"`
	StaleDiscarded bool                 `json:"stale_discarded"`
}

// AnswerRequestDTO records one selection.
type AnswerRequestDTO struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Choice     string `json:"choice" binding:"required,oneof=A B C D a b c d"`
}

// CheckpointRequestDTO is the periodic whole-state checkpoint pushed by the
// client (every answer change and at most every 30s while running). Writes
// are idempotent last-write-wins, so replaying a buffered checkpoint after
// an offline period is safe.
type CheckpointRequestDTO struct {
	Answers      map[uint]string `json:"answers" binding:"required"`
	Cursor       int             `json:"cursor" binding:"min=0"`
	RemainingSec int             `json:"remaining_sec" binding:"min=0"`
}

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
