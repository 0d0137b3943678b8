package repository

import (
	"time"

	"github.com/ptmquan/certprep/internal/model"
	"gorm.io/gorm"
)

type CandidateRepository interface {
	FindByID(candidateID string) (*model.CandidateProfile, error)
	Save(profile *model.CandidateProfile) error
	// IssueCertificate flips certificate_issued for a candidate whose delay
	// has elapsed. The guard in the WHERE clause makes repeated calls
	// harmless; it reports whether this call did the flip.
	IssueCertificate(candidateID, ref string, now time.Time) (bool, error)
	// FindCertificateDue lists candidates whose certificate delay has
	// elapsed but whose certificate has not been issued yet.
	FindCertificateDue(now time.Time) ([]model.CandidateProfile, error)
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) FindByID(candidateID string) (*model.CandidateProfile, error) {
	var profile model.CandidateProfile
	if err := r.db.First(&profile, "candidate_id = ?", candidateID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *candidateRepository) Save(profile *model.CandidateProfile) error {
	return r.db.Save(profile).Error
}

func (r *candidateRepository) IssueCertificate(candidateID, ref string, now time.Time) (bool, error) {
	res := r.db.Model(&model.CandidateProfile{}).
		Where("candidate_id = ? AND certificate_issued = ? AND certificate_available_at IS NOT NULL AND certificate_available_at <= ?",
			candidateID, false, now).
		Updates(map[string]interface{}{
			"certificate_issued": true,
			"certificate_ref":    ref,
			"updated_at":         now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *candidateRepository) FindCertificateDue(now time.Time) ([]model.CandidateProfile, error) {
	var profiles []model.CandidateProfile
	err := r.db.
		Where("certificate_issued = ? AND certificate_available_at IS NOT NULL AND certificate_available_at <= ?", false, now).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}
