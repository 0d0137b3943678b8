package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ExamConfiguration is a candidate-specific exam definition: its own
// question subset, time limit, passing score and availability window.
// Candidates without one fall back to the default random draw.
type ExamConfiguration struct {
	ID           uint                       `gorm:"primarykey" json:"id"`
	Name         string                     `json:"name" gorm:"not null"`
	QuestionIDs  datatypes.JSONSlice[uint]  `json:"question_ids" gorm:"not null"`
	TimeLimitSec int                        `json:"time_limit_sec" gorm:"not null"`
	PassingScore int                        `json:"passing_score" gorm:"not null"`
	OpensAt      *time.Time                 `json:"opens_at,omitempty"`
	ClosesAt     *time.Time                 `json:"closes_at,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
	DeletedAt    gorm.DeletedAt             `gorm:"index" json:"-"`
}

// AssignedExam links a candidate to an ExamConfiguration. It is created by
// the assignment process and completed exactly once by the scoring engine.
type AssignedExam struct {
	ID                  uint              `gorm:"primarykey" json:"id"`
	CandidateID         string            `json:"candidate_id" gorm:"not null;index"`
	ExamConfigurationID uint              `json:"exam_configuration_id" gorm:"not null;index"`
	ExamConfiguration   ExamConfiguration `json:"exam_configuration,omitempty" gorm:"foreignKey:ExamConfigurationID"`
	AssignedAt          time.Time         `json:"assigned_at" gorm:"autoCreateTime"`
	Completed           bool              `json:"completed" gorm:"default:false;index"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty"`
	Score               *int              `json:"score,omitempty"`
	Passed              *bool             `json:"passed,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}
