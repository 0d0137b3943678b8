package model

import (
	"time"

	"gorm.io/datatypes"
)

// OngoingTestSession is the resumable state of a test in progress. At most
// one exists per candidate; it is deleted exactly once, when the attempt is
// successfully scored. No soft delete: a unique index on candidate_id
// enforces the one-session invariant and a soft-deleted row would keep
// blocking it.
type OngoingTestSession struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	CandidateID string `json:"candidate_id" gorm:"not null;uniqueIndex"`

	// Frozen at creation; the bank is never consulted again for this attempt.
	Snapshot datatypes.JSONType[[]SnapshotQuestion] `json:"snapshot" gorm:"not null"`

	// Resolved rules copied from the assignment (or the defaults) so a
	// mid-attempt re-assignment cannot change them.
	AssignedExamID *uint `json:"assigned_exam_id,omitempty" gorm:"index"`
	TimeLimitSec   int   `json:"time_limit_sec" gorm:"not null"`
	PassingScore   int   `json:"passing_score" gorm:"not null"`

	Answers datatypes.JSONType[map[uint]string] `json:"answers"` // question id -> selected letter
	Cursor  int                                 `json:"cursor"`

	// RemainingSec is valid as of RemainingAsOf. Live remaining time is
	// always RemainingSec minus wall-clock elapsed since that instant,
	// clamped at zero; the persisted number alone over-credits a candidate
	// whose page was closed.
	RemainingSec  int        `json:"remaining_sec" gorm:"not null"`
	RemainingAsOf time.Time  `json:"remaining_as_of"`
	Started       bool       `json:"started" gorm:"default:false"`
	StartedAt     *time.Time `json:"started_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
