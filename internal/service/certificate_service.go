package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ptmquan/certprep/internal/dto"
	"github.com/ptmquan/certprep/internal/engine"
	"github.com/ptmquan/certprep/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CertificateService is the eligibility gate: it derives certificate
// availability from pass status and the elapsed-delay rule. CheckAndIssue
// is idempotent and called on every dashboard load.
type CertificateService interface {
	CheckAndIssue(candidateID string) (*dto.CertificateStatusDTO, error)
}

type certificateService struct {
	candidateRepo repository.CandidateRepository
	clock         engine.Clock
}

func NewCertificateService(candidateRepo repository.CandidateRepository, clock engine.Clock) CertificateService {
	return &certificateService{candidateRepo: candidateRepo, clock: clock}
}

func (s *certificateService) CheckAndIssue(candidateID string) (*dto.CertificateStatusDTO, error) {
	profile, err := s.candidateRepo.FindByID(candidateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.CertificateStatusDTO{Status: "not_eligible"}, nil
		}
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("CheckAndIssue: profile lookup failed")
		return nil, fmt.Errorf("error loading candidate profile: %w", err)
	}

	if profile.CertificateIssued {
		return &dto.CertificateStatusDTO{
			Status:      "issued",
			AvailableAt: profile.CertificateAvailableAt,
			Ref:         profile.CertificateRef,
			Score:       profile.TestScore,
		}, nil
	}

	if !profile.TestPassed || profile.CertificateAvailableAt == nil {
		return &dto.CertificateStatusDTO{Status: "not_eligible", Score: profile.TestScore}, nil
	}

	now := s.clock.Now()
	if now.Before(*profile.CertificateAvailableAt) {
		return &dto.CertificateStatusDTO{
			Status:      "processing",
			AvailableAt: profile.CertificateAvailableAt,
			Score:       profile.TestScore,
		}, nil
	}

	// The guarded update makes concurrent calls race safely: at most one
	// flips the flag, the rest observe it already issued.
	ref := uuid.NewString()
	issued, err := s.candidateRepo.IssueCertificate(candidateID, ref, now)
	if err != nil {
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("CheckAndIssue: issuance update failed")
		return nil, fmt.Errorf("error issuing certificate: %w", err)
	}
	if !issued {
		// Another caller won; re-read for the recorded reference.
		profile, err = s.candidateRepo.FindByID(candidateID)
		if err != nil {
			return nil, fmt.Errorf("error reloading candidate profile: %w", err)
		}
		ref = profile.CertificateRef
	} else {
		log.Info().Str("candidate_id", candidateID).Str("certificate_ref", ref).Msg("certificate issued")
	}

	return &dto.CertificateStatusDTO{
		Status:      "issued",
		AvailableAt: profile.CertificateAvailableAt,
		Ref:         ref,
		Score:       profile.TestScore,
	}, nil
}
