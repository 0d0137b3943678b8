package model

import "time"

// CandidateProfile is the projection of candidate state the engine owns:
// entitlement precondition, latest test outcome and certificate fields.
// Account data itself lives elsewhere.
type CandidateProfile struct {
	CandidateID string `gorm:"primarykey" json:"candidate_id"`
	Entitled    bool   `json:"entitled" gorm:"default:false"`

	TestCompleted bool `json:"test_completed" gorm:"default:false"`
	TestScore     *int `json:"test_score,omitempty"`
	TestPassed    bool `json:"test_passed" gorm:"default:false"`

	CertificateAvailableAt *time.Time `json:"certificate_available_at,omitempty"`
	CertificateIssued      bool       `json:"certificate_issued" gorm:"default:false"`
	CertificateRef         string     `json:"certificate_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
