package repository

import (
	"time"

	"github.com/ptmquan/certprep/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository interface {
	FindByCandidate(candidateID string) (*model.OngoingTestSession, error)
	// Upsert writes the session keyed by candidate, last-write-wins. Safe to
	// call repeatedly with the same snapshot (checkpoint replays).
	Upsert(session *model.OngoingTestSession) error
	// Delete removes the candidate's session. The scoring engine is the only
	// caller, and only after the attempt is durably persisted.
	Delete(candidateID string) error
	// FindExpired returns started sessions whose wall-clock budget has run
	// out as of now; the sweeper auto-submits them.
	FindExpired(now time.Time) ([]model.OngoingTestSession, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) FindByCandidate(candidateID string) (*model.OngoingTestSession, error) {
	var session model.OngoingTestSession
	if err := r.db.Where("candidate_id = ?", candidateID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Upsert(session *model.OngoingTestSession) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "candidate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"snapshot", "assigned_exam_id", "time_limit_sec", "passing_score",
			"answers", "cursor", "remaining_sec", "remaining_as_of",
			"started", "started_at", "updated_at",
		}),
	}).Create(session).Error
}

func (r *sessionRepository) Delete(candidateID string) error {
	return r.db.Where("candidate_id = ?", candidateID).
		Delete(&model.OngoingTestSession{}).Error
}

func (r *sessionRepository) FindExpired(now time.Time) ([]model.OngoingTestSession, error) {
	var sessions []model.OngoingTestSession
	err := r.db.
		Where("started = ? AND remaining_as_of + make_interval(secs => remaining_sec) <= ?", true, now).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
