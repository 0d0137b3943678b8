package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ptmquan/certprep/internal/dto"
	"github.com/ptmquan/certprep/internal/engine"
	"github.com/ptmquan/certprep/internal/model"
	"github.com/ptmquan/certprep/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionService owns the resumable session state: create-or-resume before
// the lobby, start, answer recording and periodic checkpoints. Upserts are
// idempotent last-write-wins keyed by candidate, so a buffered checkpoint
// replayed after an offline period is harmless.
type SessionService interface {
	// Resume resolves the candidate's exam plan and restores an existing
	// compatible session, or creates a fresh lobby session. A persisted
	// session whose frozen question set no longer matches the freshly
	// resolved plan is discarded: new draw wins, never a merge.
	Resume(candidateID string) (*dto.SessionViewDTO, error)
	// Start leaves the lobby and anchors the countdown.
	Start(candidateID string) (*dto.SessionViewDTO, error)
	// Answer records one selection and reports whether the budget expired.
	Answer(candidateID string, req dto.AnswerRequestDTO) (*dto.SessionViewDTO, bool, error)
	// Checkpoint persists a whole-state client snapshot and reports expiry.
	Checkpoint(candidateID string, req dto.CheckpointRequestDTO) (*dto.SessionViewDTO, bool, error)
}

type sessionService struct {
	assignmentSvc AssignmentService
	bankSvc       QuestionBankService
	sessionRepo   repository.SessionRepository
	clock         engine.Clock

	// Write-ahead buffer for checkpoints that failed to persist. Whole-state
	// last-write-wins snapshots, so keeping only the newest per candidate
	// loses nothing; it is flushed on the next read or successful write.
	mu       sync.Mutex
	buffered map[string]*model.OngoingTestSession
}

func NewSessionService(
	assignmentSvc AssignmentService,
	bankSvc QuestionBankService,
	sessionRepo repository.SessionRepository,
	clock engine.Clock,
) SessionService {
	return &sessionService{
		assignmentSvc: assignmentSvc,
		bankSvc:       bankSvc,
		sessionRepo:   sessionRepo,
		clock:         clock,
		buffered:      map[string]*model.OngoingTestSession{},
	}
}

func (s *sessionService) Resume(candidateID string) (*dto.SessionViewDTO, error) {
	plan, err := s.assignmentSvc.Resolve(candidateID)
	if err != nil {
		return nil, err
	}
	frozen, err := s.bankSvc.Draw(plan)
	if err != nil {
		return nil, err
	}

	existing, err := s.find(candidateID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("Resume: session lookup failed")
		return nil, fmt.Errorf("error loading session: %w", err)
	}

	stale := false
	if existing != nil {
		if s.compatible(existing, plan, len(frozen)) {
			return s.view(existing, true, false), nil
		}
		// Recoverable consistency condition, e.g. the exam was re-assigned
		// mid-attempt. The stale session loses.
		stale = true
		log.Warn().
			Str("candidate_id", candidateID).
			Int("persisted_questions", len(existing.Snapshot.Data())).
			Int("resolved_questions", len(frozen)).
			Msg("Resume: discarding stale session in favor of a fresh draw")
	}

	session := s.freshSession(candidateID, plan, frozen)
	if err := s.persist(session); err != nil {
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("Resume: failed to persist fresh session")
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	return s.view(session, false, stale), nil
}

func (s *sessionService) Start(candidateID string) (*dto.SessionViewDTO, error) {
	session, err := s.load(candidateID)
	if err != nil {
		return nil, err
	}

	m := sessionMachine(session, s.clock)
	snap, err := m.Start()
	if err != nil {
		if errors.Is(err, engine.ErrAlreadyStarted) {
			// Starting an already-running session is a no-op resume; the
			// clock never resets.
			return s.view(session, true, false), nil
		}
		return nil, err
	}

	s.apply(session, snap)
	if err := s.persist(session); err != nil {
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("Start: failed to persist started session")
		return nil, fmt.Errorf("error starting session: %w", err)
	}
	return s.view(session, false, false), nil
}

func (s *sessionService) Answer(candidateID string, req dto.AnswerRequestDTO) (*dto.SessionViewDTO, bool, error) {
	session, err := s.load(candidateID)
	if err != nil {
		return nil, false, err
	}

	m := sessionMachine(session, s.clock)
	if _, err := m.Answer(req.QuestionID, req.Choice); err != nil {
		return nil, false, err
	}
	remaining, expired := m.Tick()

	s.apply(session, m.Snapshot())
	if err := s.persist(session); err != nil {
		// Buffered server-side and replayed on the next access; the answer
		// is not lost.
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("Answer: checkpoint write failed, buffered for replay")
		return nil, false, fmt.Errorf("error persisting answer: %w", err)
	}

	log.Debug().Str("candidate_id", candidateID).Uint("question_id", req.QuestionID).Int("remaining_sec", remaining).Msg("answer recorded")
	return s.view(session, false, false), expired, nil
}

func (s *sessionService) Checkpoint(candidateID string, req dto.CheckpointRequestDTO) (*dto.SessionViewDTO, bool, error) {
	session, err := s.load(candidateID)
	if err != nil {
		return nil, false, err
	}
	if !session.Started {
		return nil, false, engine.ErrNotStarted
	}

	frozen := session.Snapshot.Data()
	qset := make(map[uint]struct{}, len(frozen))
	for _, q := range frozen {
		qset[q.QuestionID] = struct{}{}
	}

	answers := make(map[uint]string, len(req.Answers))
	for qid, choice := range req.Answers {
		if _, ok := qset[qid]; !ok {
			log.Warn().Str("candidate_id", candidateID).Uint("question_id", qid).Msg("Checkpoint: answer for question outside the frozen set, skipping")
			continue
		}
		letter := strings.ToUpper(strings.TrimSpace(choice))
		switch letter {
		case "A", "B", "C", "D":
			answers[qid] = letter
		case "":
			// cleared answer, drop it
		default:
			return nil, false, engine.ErrInvalidChoice
		}
	}

	cursor := req.Cursor
	if cursor >= len(frozen) {
		cursor = len(frozen) - 1
	}

	// The server clock is authoritative: a client may report more time than
	// the wall clock allows (suspended tab, tampering), never less than
	// what it actually has left.
	now := s.clock.Now()
	remaining := engine.Remaining(session.RemainingSec, session.RemainingAsOf, now)
	if req.RemainingSec < remaining {
		remaining = req.RemainingSec
	}

	session.Answers = datatypes.NewJSONType(answers)
	session.Cursor = cursor
	session.RemainingSec = remaining
	session.RemainingAsOf = now
	if err := s.persist(session); err != nil {
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("Checkpoint: write failed, buffered for replay")
		return nil, false, fmt.Errorf("error persisting checkpoint: %w", err)
	}
	return s.view(session, false, false), remaining == 0, nil
}

func (s *sessionService) load(candidateID string) (*model.OngoingTestSession, error) {
	session, err := s.find(candidateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSession
		}
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("session lookup failed")
		return nil, fmt.Errorf("error loading session: %w", err)
	}
	return session, nil
}

// find returns the candidate's session, preferring a buffered snapshot whose
// persist failed: the buffer is newer than the stored row by construction.
// A successful replay flushes the buffer. A missing stored row means the
// session was submitted and deleted; any leftover buffer is dropped so it
// cannot resurrect a finished session.
func (s *sessionService) find(candidateID string) (*model.OngoingTestSession, error) {
	s.mu.Lock()
	buf := s.buffered[candidateID]
	s.mu.Unlock()

	stored, err := s.sessionRepo.FindByCandidate(candidateID)
	if buf == nil {
		return stored, err
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.mu.Lock()
			delete(s.buffered, candidateID)
			s.mu.Unlock()
		}
		return nil, err
	}

	cp := *buf
	if uerr := s.sessionRepo.Upsert(&cp); uerr != nil {
		log.Warn().Err(uerr).Str("candidate_id", candidateID).Msg("buffered checkpoint replay failed, serving buffered state")
	} else {
		s.mu.Lock()
		delete(s.buffered, candidateID)
		s.mu.Unlock()
		log.Info().Str("candidate_id", candidateID).Msg("buffered checkpoint replayed")
	}
	return &cp, nil
}

// persist writes the session; on failure the snapshot is buffered so no
// answer is lost even though the caller sees the error.
func (s *sessionService) persist(session *model.OngoingTestSession) error {
	if err := s.sessionRepo.Upsert(session); err != nil {
		cp := *session
		s.mu.Lock()
		s.buffered[session.CandidateID] = &cp
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	delete(s.buffered, session.CandidateID)
	s.mu.Unlock()
	return nil
}

// compatible reports whether a persisted session still matches the freshly
// resolved plan: same assignment identity and same frozen question count.
func (s *sessionService) compatible(session *model.OngoingTestSession, plan *ExamPlan, resolvedCount int) bool {
	if len(session.Snapshot.Data()) != resolvedCount {
		return false
	}
	planAssigned := uint(0)
	if plan.Assigned != nil {
		planAssigned = plan.Assigned.ID
	}
	sessionAssigned := uint(0)
	if session.AssignedExamID != nil {
		sessionAssigned = *session.AssignedExamID
	}
	return planAssigned == sessionAssigned
}

func (s *sessionService) freshSession(candidateID string, plan *ExamPlan, frozen []model.SnapshotQuestion) *model.OngoingTestSession {
	now := s.clock.Now()
	session := &model.OngoingTestSession{
		CandidateID:   candidateID,
		Snapshot:      datatypes.NewJSONType(frozen),
		TimeLimitSec:  plan.TimeLimitSec,
		PassingScore:  plan.PassingScore,
		Answers:       datatypes.NewJSONType(map[uint]string{}),
		RemainingSec:  plan.TimeLimitSec,
		RemainingAsOf: now,
	}
	if plan.Assigned != nil {
		id := plan.Assigned.ID
		session.AssignedExamID = &id
	}
	return session
}

// sessionMachine rehydrates the state machine from a persisted session.
func sessionMachine(session *model.OngoingTestSession, clock engine.Clock) *engine.Machine {
	frozen := session.Snapshot.Data()
	ids := make([]uint, len(frozen))
	for i, q := range frozen {
		ids[i] = q.QuestionID
	}
	return engine.New(engine.Snapshot{
		QuestionIDs:   ids,
		Answers:       session.Answers.Data(),
		Cursor:        session.Cursor,
		RemainingSec:  session.RemainingSec,
		RemainingAsOf: session.RemainingAsOf,
		Started:       session.Started,
		StartedAt:     session.StartedAt,
	}, clock)
}

func (s *sessionService) apply(session *model.OngoingTestSession, snap engine.Snapshot) {
	session.Answers = datatypes.NewJSONType(snap.Answers)
	session.Cursor = snap.Cursor
	session.RemainingSec = snap.RemainingSec
	session.RemainingAsOf = snap.RemainingAsOf
	session.Started = snap.Started
	session.StartedAt = snap.StartedAt
}

func (s *sessionService) view(session *model.OngoingTestSession, resumed, stale bool) *dto.SessionViewDTO {
	frozen := session.Snapshot.Data()
	questions := make([]dto.SessionQuestionDTO, len(frozen))
	for i, q := range frozen {
		questions[i] = dto.SessionQuestionDTO{
			QuestionID: q.QuestionID,
			Prompt:     q.Prompt,
			ChoiceA:    q.ChoiceA,
			ChoiceB:    q.ChoiceB,
			ChoiceC:    q.ChoiceC,
			ChoiceD:    q.ChoiceD,
		}
	}

	state := "lobby"
	remaining := session.RemainingSec
	if session.Started {
		state = "running"
		remaining = engine.Remaining(session.RemainingSec, session.RemainingAsOf, s.clock.Now())
	}

	answers := session.Answers.Data()
	if answers == nil {
		answers = map[uint]string{}
	}

	return &dto.SessionViewDTO{
		State:          state,
		Questions:      questions,
		QuestionCount:  len(questions),
		Answers:        answers,
		Cursor:         session.Cursor,
		RemainingSec:   remaining,
		TimeLimitSec:   session.TimeLimitSec,
		PassingScore:   session.PassingScore,
		Started:        session.Started,
		StartedAt:      session.StartedAt,
		AssignedExamID: session.AssignedExamID,
		Resumed:        resumed,
		StaleDiscarded: stale,
	}
}
