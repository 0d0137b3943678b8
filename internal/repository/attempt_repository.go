package repository

import (
	"github.com/ptmquan/certprep/internal/model"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	FindByID(id uint) (*model.TestAttempt, error)
	FindLatestByCandidate(candidateID string) (*model.TestAttempt, error)
	FindAllByCandidate(candidateID string) ([]model.TestAttempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) FindByID(id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	if err := r.db.First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindLatestByCandidate(candidateID string) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.Where("candidate_id = ?", candidateID).
		Order("completed_at DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindAllByCandidate(candidateID string) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.db.Where("candidate_id = ?", candidateID).
		Order("completed_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
