package repository

import (
	"errors"
	"fmt"

	"github.com/ptmquan/certprep/internal/model"
	"gorm.io/gorm"
)

// ErrAssignmentCompleted is returned when a submission targets an assigned
// exam that was already marked completed. The attempt must be rejected, not
// overwritten.
var ErrAssignmentCompleted = errors.New("assigned exam already completed")

type SubmissionRepository interface {
	// PersistOutcome durably writes the attempt, the exactly-once assignment
	// completion and the profile projection in a single transaction. The
	// session row is intentionally NOT touched here: its deletion happens
	// strictly after this commit, so a crash in between leaves a recoverable
	// session instead of a silently lost graded attempt.
	PersistOutcome(attempt *model.TestAttempt, profile *model.CandidateProfile) error
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) PersistOutcome(attempt *model.TestAttempt, profile *model.CandidateProfile) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if attempt.AssignedExamID != nil {
			res := tx.Model(&model.AssignedExam{}).
				Where("id = ? AND completed = ?", *attempt.AssignedExamID, false).
				Updates(map[string]interface{}{
					"completed":    true,
					"completed_at": attempt.CompletedAt,
					"score":        attempt.Score,
					"passed":       attempt.Passed,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to complete assigned exam %d: %w", *attempt.AssignedExamID, res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrAssignmentCompleted
			}
		}

		if err := tx.Create(attempt).Error; err != nil {
			return fmt.Errorf("failed to create test attempt: %w", err)
		}

		if err := tx.Save(profile).Error; err != nil {
			return fmt.Errorf("failed to update candidate profile: %w", err)
		}

		return nil
	})
}
