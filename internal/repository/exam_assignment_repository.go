package repository

import (
	"errors"

	"github.com/ptmquan/certprep/internal/model"
	"gorm.io/gorm"
)

type ExamAssignmentRepository interface {
	CreateConfiguration(cfg *model.ExamConfiguration) error
	FindConfigurationByID(id uint) (*model.ExamConfiguration, error)
	Assign(assignment *model.AssignedExam) error
	// FindPendingByCandidate returns the candidate's uncompleted assignment
	// with its configuration preloaded, or gorm.ErrRecordNotFound.
	FindPendingByCandidate(candidateID string) (*model.AssignedExam, error)
}

type examAssignmentRepository struct {
	db *gorm.DB
}

func NewExamAssignmentRepository(db *gorm.DB) ExamAssignmentRepository {
	return &examAssignmentRepository{db: db}
}

func (r *examAssignmentRepository) CreateConfiguration(cfg *model.ExamConfiguration) error {
	return r.db.Create(cfg).Error
}

func (r *examAssignmentRepository) FindConfigurationByID(id uint) (*model.ExamConfiguration, error) {
	var cfg model.ExamConfiguration
	if err := r.db.First(&cfg, id).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *examAssignmentRepository) Assign(assignment *model.AssignedExam) error {
	// One pending assignment per candidate keeps the resolver unambiguous.
	var pending int64
	if err := r.db.Model(&model.AssignedExam{}).
		Where("candidate_id = ? AND completed = ?", assignment.CandidateID, false).
		Count(&pending).Error; err != nil {
		return err
	}
	if pending > 0 {
		return errors.New("candidate already has a pending assigned exam")
	}
	return r.db.Create(assignment).Error
}

func (r *examAssignmentRepository) FindPendingByCandidate(candidateID string) (*model.AssignedExam, error) {
	var assignment model.AssignedExam
	err := r.db.
		Preload("ExamConfiguration").
		Where("candidate_id = ? AND completed = ?", candidateID, false).
		Order("assigned_at DESC").
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}
