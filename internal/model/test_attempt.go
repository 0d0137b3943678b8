package model

import (
	"time"

	"gorm.io/datatypes"
)

// AnswerRecord is the graded per-question outcome kept on the attempt.
type AnswerRecord struct {
	QuestionID uint   `json:"question_id"`
	Selected   string `json:"selected"` // empty when unanswered
	Correct    string `json:"correct"`
	IsCorrect  bool   `json:"is_correct"`
}

// TestAttempt is the immutable record of a finished test. A candidate may
// accumulate several (retakes); the most recent one drives the profile
// projection.
type TestAttempt struct {
	ID             uint                                   `gorm:"primarykey" json:"id"`
	CandidateID    string                                 `json:"candidate_id" gorm:"not null;index"`
	AssignedExamID *uint                                  `json:"assigned_exam_id,omitempty" gorm:"index"`
	Snapshot       datatypes.JSONType[[]SnapshotQuestion] `json:"snapshot" gorm:"not null"`
	Answers        datatypes.JSONType[[]AnswerRecord]     `json:"answers" gorm:"not null"`
	Score          int                                    `json:"score" gorm:"not null"` // 0..100
	Passed         bool                                   `json:"passed" gorm:"not null"`
	CompletedAt    time.Time                              `json:"completed_at" gorm:"not null;index"`
	CreatedAt      time.Time                              `json:"created_at"`
}
