package model

import (
	"time"

	"gorm.io/gorm"
)

// Question is a bank question. Once a question has been frozen into a
// session snapshot it is referenced by value only, so later edits or
// deactivation never affect an in-progress or completed attempt.
type Question struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	Prompt        string         `json:"prompt" gorm:"type:text;not null"`
	ChoiceA       string         `json:"choice_a" gorm:"not null"`
	ChoiceB       string         `json:"choice_b" gorm:"not null"`
	ChoiceC       string         `json:"choice_c" gorm:"not null"`
	ChoiceD       string         `json:"choice_d" gorm:"not null"`
	CorrectChoice string         `json:"correct_choice" gorm:"size:1;not null"` // "A".."D"
	Category      string         `json:"category" gorm:"index"`
	Active        bool           `json:"active" gorm:"default:true;index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// SnapshotQuestion is the frozen, by-value copy of a question taken at
// session creation and carried through to the attempt record.
type SnapshotQuestion struct {
	QuestionID    uint   `json:"question_id"`
	Prompt        string `json:"prompt"`
	ChoiceA       string `json:"choice_a"`
	ChoiceB       string `json:"choice_b"`
	ChoiceC       string `json:"choice_c"`
	ChoiceD       string `json:"choice_d"`
	CorrectChoice string `json:"correct_choice"`
}

// Snapshot copies the mutable bank question into its frozen form.
func (q Question) Snapshot() SnapshotQuestion {
	return SnapshotQuestion{
		QuestionID:    q.ID,
		Prompt:        q.Prompt,
		ChoiceA:       q.ChoiceA,
		ChoiceB:       q.ChoiceB,
		ChoiceC:       q.ChoiceC,
		ChoiceD:       q.ChoiceD,
		CorrectChoice: q.CorrectChoice,
	}
}
