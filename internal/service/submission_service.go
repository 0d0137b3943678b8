package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/ptmquan/certprep/config"
	"github.com/ptmquan/certprep/internal/dto"
	"github.com/ptmquan/certprep/internal/engine"
	"github.com/ptmquan/certprep/internal/model"
	"github.com/ptmquan/certprep/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmissionService is the attempt scoring engine. Submit grades the
// candidate's session, durably persists the attempt, the exactly-once
// assignment completion and the profile projection, and only then removes
// the session. A per-candidate in-flight guard keeps the timer-expiry path
// and a manual submit from double-firing.
type SubmissionService interface {
	Submit(candidateID string) (*dto.AttemptDetailDTO, error)
	GetAttempts(candidateID string) ([]dto.AttemptSummaryDTO, error)
	GetAttemptDetail(candidateID string, attemptID uint) (*dto.AttemptDetailDTO, error)
}

type submissionService struct {
	sessionRepo    repository.SessionRepository
	submissionRepo repository.SubmissionRepository
	attemptRepo    repository.AttemptRepository
	candidateRepo  repository.CandidateRepository
	cfg            *config.Config
	clock          engine.Clock

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewSubmissionService(
	sessionRepo repository.SessionRepository,
	submissionRepo repository.SubmissionRepository,
	attemptRepo repository.AttemptRepository,
	candidateRepo repository.CandidateRepository,
	cfg *config.Config,
	clock engine.Clock,
) SubmissionService {
	return &submissionService{
		sessionRepo:    sessionRepo,
		submissionRepo: submissionRepo,
		attemptRepo:    attemptRepo,
		candidateRepo:  candidateRepo,
		cfg:            cfg,
		clock:          clock,
		inFlight:       map[string]struct{}{},
	}
}

func (s *submissionService) Submit(candidateID string) (*dto.AttemptDetailDTO, error) {
	if !s.begin(candidateID) {
		return nil, ErrSubmissionInFlight
	}
	defer s.end(candidateID)

	session, err := s.sessionRepo.FindByCandidate(candidateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The session is gone: either nothing was ever started or a
			// previous submission already won the race.
			if profile, perr := s.candidateRepo.FindByID(candidateID); perr == nil && profile.TestCompleted {
				return nil, ErrAlreadyCompleted
			}
			return nil, ErrNoActiveSession
		}
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("Submit: session lookup failed")
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	// The state machine validates the transition: a lobby session has no
	// running clock and cannot be submitted.
	m := sessionMachine(session, s.clock)
	if err := m.BeginSubmit(); err != nil {
		return nil, err
	}

	// Random-draw sessions have no assignment row to carry the exactly-once
	// guard, so duplicates are detected against the attempt history: an
	// attempt completed at or after this session started means the session
	// is a dangling leftover of an already-graded submission whose cleanup
	// failed. Finish the cleanup and reject the duplicate instead of
	// grading it a second time.
	if session.AssignedExamID == nil {
		latest, lerr := s.attemptRepo.FindLatestByCandidate(candidateID)
		switch {
		case lerr == nil && session.StartedAt != nil && !latest.CompletedAt.Before(*session.StartedAt):
			m.FinishSubmit(true)
			if derr := s.sessionRepo.Delete(candidateID); derr != nil {
				log.Error().Err(derr).Str("candidate_id", candidateID).Msg("Submit: failed to clean up already-graded session")
			}
			return nil, ErrAlreadyCompleted
		case lerr != nil && !errors.Is(lerr, gorm.ErrRecordNotFound):
			m.FinishSubmit(false)
			log.Error().Err(lerr).Str("candidate_id", candidateID).Msg("Submit: attempt history lookup failed")
			return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, lerr)
		}
	}

	frozen := session.Snapshot.Data()
	records, score, err := scoreAnswers(frozen, session.Answers.Data())
	if err != nil {
		m.FinishSubmit(false)
		return nil, err
	}
	passed := score >= session.PassingScore
	now := s.clock.Now()

	profile, err := s.loadOrInitProfile(candidateID)
	if err != nil {
		m.FinishSubmit(false)
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	profile.TestCompleted = true
	profile.TestScore = &score
	profile.TestPassed = passed
	if passed {
		// A new certificate cycle starts; the delay gate issues it later.
		availableAt := now.Add(s.cfg.Exam.CertificateDelay)
		profile.CertificateAvailableAt = &availableAt
		profile.CertificateIssued = false
		profile.CertificateRef = ""
	}
	// A failed attempt never schedules a certificate: the certificate
	// fields keep whatever an earlier pass left there.

	attempt := &model.TestAttempt{
		CandidateID:    candidateID,
		AssignedExamID: session.AssignedExamID,
		Snapshot:       session.Snapshot,
		Answers:        datatypes.NewJSONType(records),
		Score:          score,
		Passed:         passed,
		CompletedAt:    now,
	}

	if err := s.submissionRepo.PersistOutcome(attempt, profile); err != nil {
		if errors.Is(err, repository.ErrAssignmentCompleted) {
			// Crash-recovery path: the attempt from a previous submission is
			// durable but its session cleanup never ran. Finish the cleanup
			// and reject the duplicate.
			m.FinishSubmit(true)
			if derr := s.sessionRepo.Delete(candidateID); derr != nil {
				log.Error().Err(derr).Str("candidate_id", candidateID).Msg("Submit: failed to clean up session of completed assignment")
			}
			return nil, ErrAlreadyCompleted
		}
		m.FinishSubmit(false)
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("Submit: persisting graded attempt failed")
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	m.FinishSubmit(true)

	// Deletion strictly last: the graded attempt is already durable, so a
	// failure here leaves a recoverable session, never a lost score.
	if err := s.sessionRepo.Delete(candidateID); err != nil {
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("Submit: attempt persisted but session cleanup failed; next submit will recover")
	}

	log.Info().
		Str("candidate_id", candidateID).
		Int("score", score).
		Bool("passed", passed).
		Int("questions", len(frozen)).
		Msg("test attempt scored")

	return attemptDetail(attempt), nil
}

func (s *submissionService) GetAttempts(candidateID string) ([]dto.AttemptSummaryDTO, error) {
	attempts, err := s.attemptRepo.FindAllByCandidate(candidateID)
	if err != nil {
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("GetAttempts: repository error")
		return nil, fmt.Errorf("error fetching attempts: %w", err)
	}
	summaries := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for _, attempt := range attempts {
		var summary dto.AttemptSummaryDTO
		if err := copier.Copy(&summary, &attempt); err != nil {
			log.Error().Err(err).Uint("attempt_id", attempt.ID).Msg("GetAttempts: failed to copy attempt to summary")
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *submissionService) GetAttemptDetail(candidateID string, attemptID uint) (*dto.AttemptDetailDTO, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, fmt.Errorf("attempt not found with ID %d: %w", attemptID, err)
	}
	if attempt.CandidateID != candidateID {
		// Do not leak other candidates' attempts.
		return nil, fmt.Errorf("attempt not found with ID %d: %w", attemptID, gorm.ErrRecordNotFound)
	}
	return attemptDetail(attempt), nil
}

func (s *submissionService) loadOrInitProfile(candidateID string) (*model.CandidateProfile, error) {
	profile, err := s.candidateRepo.FindByID(candidateID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("profile lookup failed")
		return nil, err
	}
	// Entitlement middleware normally creates the profile; tolerate its
	// absence rather than dropping a graded attempt on the floor.
	return &model.CandidateProfile{CandidateID: candidateID, Entitled: true}, nil
}

func (s *submissionService) begin(candidateID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[candidateID]; busy {
		return false
	}
	s.inFlight[candidateID] = struct{}{}
	return true
}

func (s *submissionService) end(candidateID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, candidateID)
}

func attemptDetail(attempt *model.TestAttempt) *dto.AttemptDetailDTO {
	detail := &dto.AttemptDetailDTO{
		ID:             attempt.ID,
		CandidateID:    attempt.CandidateID,
		AssignedExamID: attempt.AssignedExamID,
		Score:          attempt.Score,
		Passed:         attempt.Passed,
		CompletedAt:    attempt.CompletedAt,
	}
	records := attempt.Answers.Data()
	detail.Answers = make([]dto.AnswerRecordDTO, len(records))
	for i, rec := range records {
		detail.Answers[i] = dto.AnswerRecordDTO{
			QuestionID: rec.QuestionID,
			Selected:   rec.Selected,
			Correct:    rec.Correct,
			IsCorrect:  rec.IsCorrect,
		}
	}
	return detail
}
