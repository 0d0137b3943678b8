package dto

import "time"

// QuestionCreateDTO is the admin payload for adding a bank question.
type QuestionCreateDTO struct {
	Prompt        string `json:"prompt" binding:"required"`
	ChoiceA       string `json:"choice_a" binding:"required"`
	ChoiceB       string `json:"choice_b" binding:"required"`
	ChoiceC       string `json:"choice_c" binding:"required"`
	ChoiceD       string `json:"choice_d" binding:"required"`
	CorrectChoice string `json:"correct_choice" binding:"required,oneof=A B C D"`
	Category      string `json:"category"`
	Active        *bool  `json:"active"`
}

// QuestionResponseDTO mirrors a bank question for admin listings.
type QuestionResponseDTO struct {
	ID            uint      `json:"id"`
	Prompt        string    `json:"prompt"`
	ChoiceA       string    `json:"choice_a"`
	ChoiceB       string    `json:"choice_b"`
	ChoiceC       string    `json:"choice_c"`
	ChoiceD       string    `json:"choice_d"`
	CorrectChoice string    `json:"correct_choice"`
	Category      string    `json:"category"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// ExamConfigurationCreateDTO defines a candidate-specific exam.
type ExamConfigurationCreateDTO struct {
	Name         string     `json:"name" binding:"required"`
	QuestionIDs  []uint     `json:"question_ids" binding:"required,min=1,dive,min=1"`
	TimeLimitSec int        `json:"time_limit_sec" binding:"required,min=60"`
	PassingScore int        `json:"passing_score" binding:"required,min=1,max=100"`
	OpensAt      *time.Time `json:"opens_at"`
	ClosesAt     *time.Time `json:"closes_at"`
}

// ExamConfigurationResponseDTO mirrors a stored configuration.
type ExamConfigurationResponseDTO struct {
	ID           uint       `json:"id"`
	Name         string     `json:"name"`
	QuestionIDs  []uint     `json:"question_ids"`
	TimeLimitSec int        `json:"time_limit_sec"`
	PassingScore int        `json:"passing_score"`
	OpensAt      *time.Time `json:"opens_at,omitempty"`
	ClosesAt     *time.Time `json:"closes_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AssignExamDTO links a candidate to an exam configuration.
type AssignExamDTO struct {
	CandidateID string `json:"candidate_id" binding:"required"`
}

// AssignedExamResponseDTO mirrors a stored assignment.
type AssignedExamResponseDTO struct {
	ID                  uint       `json:"id"`
	CandidateID         string     `json:"candidate_id"`
	ExamConfigurationID uint       `json:"exam_configuration_id"`
	AssignedAt          time.Time  `json:"assigned_at"`
	Completed           bool       `json:"completed"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	Score               *int       `json:"score,omitempty"`
	Passed              *bool      `json:"passed,omitempty"`
}
