package service

import (
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/ptmquan/certprep/config"
	"github.com/ptmquan/certprep/internal/engine"
	"github.com/ptmquan/certprep/internal/repository"
	"github.com/rs/zerolog/log"
)

// SweeperService runs the server-side safety nets behind the client-driven
// timer: sessions whose wall-clock budget ran out are auto-submitted even
// when the candidate's client is gone (at-least-once auto-submission), and
// certificates whose delay elapsed are issued without waiting for a
// dashboard visit.
type SweeperService struct {
	scheduler     *gocron.Scheduler
	sessionRepo   repository.SessionRepository
	candidateRepo repository.CandidateRepository
	submissionSvc SubmissionService
	certSvc       CertificateService
	cfg           *config.Config
	clock         engine.Clock
}

func NewSweeperService(
	sessionRepo repository.SessionRepository,
	candidateRepo repository.CandidateRepository,
	submissionSvc SubmissionService,
	certSvc CertificateService,
	cfg *config.Config,
	clock engine.Clock,
) *SweeperService {
	return &SweeperService{
		scheduler:     gocron.NewScheduler(time.UTC),
		sessionRepo:   sessionRepo,
		candidateRepo: candidateRepo,
		submissionSvc: submissionSvc,
		certSvc:       certSvc,
		cfg:           cfg,
		clock:         clock,
	}
}

// Start schedules both sweeps and runs the scheduler in the background.
func (s *SweeperService) Start() error {
	interval := s.cfg.Exam.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	if _, err := s.scheduler.Every(interval).Do(s.sweepExpiredSessions); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(interval).Do(s.sweepDueCertificates); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	log.Info().Dur("interval", interval).Msg("sweeper started")
	return nil
}

func (s *SweeperService) Stop() {
	s.scheduler.Stop()
	log.Info().Msg("sweeper stopped")
}

func (s *SweeperService) sweepExpiredSessions() {
	sessions, err := s.sessionRepo.FindExpired(s.clock.Now())
	if err != nil {
		log.Error().Err(err).Msg("sweep: failed to list expired sessions")
		return
	}
	for _, session := range sessions {
		if _, err := s.submissionSvc.Submit(session.CandidateID); err != nil {
			// In-flight and already-completed are expected races with the
			// candidate's own submit; everything else is worth noise.
			if errors.Is(err, ErrSubmissionInFlight) || errors.Is(err, ErrAlreadyCompleted) || errors.Is(err, ErrNoActiveSession) {
				continue
			}
			log.Error().Err(err).Str("candidate_id", session.CandidateID).Msg("sweep: auto-submit failed, will retry next interval")
			continue
		}
		log.Info().Str("candidate_id", session.CandidateID).Msg("sweep: expired session auto-submitted")
	}
}

func (s *SweeperService) sweepDueCertificates() {
	profiles, err := s.candidateRepo.FindCertificateDue(s.clock.Now())
	if err != nil {
		log.Error().Err(err).Msg("sweep: failed to list due certificates")
		return
	}
	for _, profile := range profiles {
		if _, err := s.certSvc.CheckAndIssue(profile.CandidateID); err != nil {
			log.Error().Err(err).Str("candidate_id", profile.CandidateID).Msg("sweep: certificate issuance failed, will retry next interval")
		}
	}
}
