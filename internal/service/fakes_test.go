package service

import (
	"errors"
	"sync"
	"time"

	"github.com/ptmquan/certprep/internal/model"
	"github.com/ptmquan/certprep/internal/repository"
	"gorm.io/gorm"
)

/* ---------------- In-memory fakes satisfying the repository interfaces ---------------- */

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeQuestionRepo struct {
	questions []model.Question
}

func (r *fakeQuestionRepo) Create(q *model.Question) error {
	q.ID = uint(len(r.questions) + 1)
	r.questions = append(r.questions, *q)
	return nil
}

func (r *fakeQuestionRepo) FindByID(id uint) (*model.Question, error) {
	for i := range r.questions {
		if r.questions[i].ID == id {
			q := r.questions[i]
			return &q, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeQuestionRepo) FindActive() ([]model.Question, error) {
	var active []model.Question
	for _, q := range r.questions {
		if q.Active {
			active = append(active, q)
		}
	}
	return active, nil
}

func (r *fakeQuestionRepo) FindByIDs(ids []uint) ([]model.Question, error) {
	want := map[uint]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var found []model.Question
	for _, q := range r.questions {
		if _, ok := want[q.ID]; ok {
			found = append(found, q)
		}
	}
	return found, nil
}

func (r *fakeQuestionRepo) Update(q *model.Question) error { return nil }
func (r *fakeQuestionRepo) Delete(id uint) error           { return nil }

type fakeAssignmentRepo struct {
	pending map[string]*model.AssignedExam // candidate -> uncompleted assignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{pending: map[string]*model.AssignedExam{}}
}

func (r *fakeAssignmentRepo) CreateConfiguration(cfg *model.ExamConfiguration) error { return nil }

func (r *fakeAssignmentRepo) FindConfigurationByID(id uint) (*model.ExamConfiguration, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAssignmentRepo) Assign(a *model.AssignedExam) error {
	r.pending[a.CandidateID] = a
	return nil
}

func (r *fakeAssignmentRepo) FindPendingByCandidate(candidateID string) (*model.AssignedExam, error) {
	a, ok := r.pending[candidateID]
	if !ok || a.Completed {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

type fakeSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]model.OngoingTestSession
	failWrite bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]model.OngoingTestSession{}}
}

func (r *fakeSessionRepo) FindByCandidate(candidateID string) (*model.OngoingTestSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[candidateID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := s
	return &cp, nil
}

func (r *fakeSessionRepo) Upsert(session *model.OngoingTestSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite {
		return errors.New("store unreachable")
	}
	r.sessions[session.CandidateID] = *session
	return nil
}

func (r *fakeSessionRepo) Delete(candidateID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite {
		return errors.New("store unreachable")
	}
	delete(r.sessions, candidateID)
	return nil
}

func (r *fakeSessionRepo) FindExpired(now time.Time) ([]model.OngoingTestSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []model.OngoingTestSession
	for _, s := range r.sessions {
		if s.Started && !s.RemainingAsOf.Add(time.Duration(s.RemainingSec)*time.Second).After(now) {
			expired = append(expired, s)
		}
	}
	return expired, nil
}

// fakeSubmissionRepo mirrors the transactional PersistOutcome semantics:
// attempt + assignment completion + profile land together or not at all.
type fakeSubmissionRepo struct {
	assignments *fakeAssignmentRepo
	candidates  *fakeCandidateRepo
	attempts    *fakeAttemptRepo
	failPersist bool
}

func (r *fakeSubmissionRepo) PersistOutcome(attempt *model.TestAttempt, profile *model.CandidateProfile) error {
	if r.failPersist {
		return errors.New("transaction failed")
	}
	if attempt.AssignedExamID != nil {
		var target *model.AssignedExam
		for _, a := range r.assignments.pending {
			if a.ID == *attempt.AssignedExamID {
				target = a
				break
			}
		}
		if target == nil || target.Completed {
			return repository.ErrAssignmentCompleted
		}
		target.Completed = true
		t := attempt.CompletedAt
		target.CompletedAt = &t
		score := attempt.Score
		target.Score = &score
		passed := attempt.Passed
		target.Passed = &passed
	}
	r.attempts.create(attempt)
	r.candidates.profiles[profile.CandidateID] = *profile
	return nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []model.TestAttempt
}

func (r *fakeAttemptRepo) create(attempt *model.TestAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt.ID = uint(len(r.attempts) + 1)
	r.attempts = append(r.attempts, *attempt)
}

func (r *fakeAttemptRepo) FindByID(id uint) (*model.TestAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.attempts {
		if r.attempts[i].ID == id {
			cp := r.attempts[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAttemptRepo) FindLatestByCandidate(candidateID string) (*model.TestAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.attempts) - 1; i >= 0; i-- {
		if r.attempts[i].CandidateID == candidateID {
			cp := r.attempts[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAttemptRepo) FindAllByCandidate(candidateID string) ([]model.TestAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.TestAttempt
	for i := len(r.attempts) - 1; i >= 0; i-- {
		if r.attempts[i].CandidateID == candidateID {
			out = append(out, r.attempts[i])
		}
	}
	return out, nil
}

type fakeCandidateRepo struct {
	mu       sync.Mutex
	profiles map[string]model.CandidateProfile
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{profiles: map[string]model.CandidateProfile{}}
}

func (r *fakeCandidateRepo) FindByID(candidateID string) (*model.CandidateProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[candidateID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := p
	return &cp, nil
}

func (r *fakeCandidateRepo) Save(profile *model.CandidateProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.CandidateID] = *profile
	return nil
}

func (r *fakeCandidateRepo) IssueCertificate(candidateID, ref string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[candidateID]
	if !ok || p.CertificateIssued || p.CertificateAvailableAt == nil || now.Before(*p.CertificateAvailableAt) {
		return false, nil
	}
	p.CertificateIssued = true
	p.CertificateRef = ref
	r.profiles[candidateID] = p
	return true, nil
}

func (r *fakeCandidateRepo) FindCertificateDue(now time.Time) ([]model.CandidateProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []model.CandidateProfile
	for _, p := range r.profiles {
		if !p.CertificateIssued && p.CertificateAvailableAt != nil && !now.Before(*p.CertificateAvailableAt) {
			due = append(due, p)
		}
	}
	return due, nil
}
