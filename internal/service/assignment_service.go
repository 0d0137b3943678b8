package service

import (
	"errors"
	"fmt"

	"github.com/ptmquan/certprep/config"
	"github.com/ptmquan/certprep/internal/engine"
	"github.com/ptmquan/certprep/internal/model"
	"github.com/ptmquan/certprep/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ExamPlan is the resolved rule set for a candidate's next attempt: either
// a specifically assigned exam or the default random draw.
type ExamPlan struct {
	Assigned     *model.AssignedExam // nil for a random draw
	QuestionIDs  []uint              // nil for a random draw
	SampleSize   int                 // random draw only
	TimeLimitSec int
	PassingScore int
}

// RandomDraw reports whether the plan falls back to the default rules.
func (p *ExamPlan) RandomDraw() bool { return p.Assigned == nil }

// AssignmentService decides which exam a candidate takes. Pure read,
// idempotent; the availability window is checked once, at resolution.
type AssignmentService interface {
	Resolve(candidateID string) (*ExamPlan, error)
}

type assignmentService struct {
	assignmentRepo repository.ExamAssignmentRepository
	cfg            *config.Config
	clock          engine.Clock
}

func NewAssignmentService(assignmentRepo repository.ExamAssignmentRepository, cfg *config.Config, clock engine.Clock) AssignmentService {
	return &assignmentService{assignmentRepo: assignmentRepo, cfg: cfg, clock: clock}
}

func (s *assignmentService) Resolve(candidateID string) (*ExamPlan, error) {
	assignment, err := s.assignmentRepo.FindPendingByCandidate(candidateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ExamPlan{
				SampleSize:   s.cfg.Exam.DefaultSampleSize,
				TimeLimitSec: s.cfg.Exam.DefaultTimeLimitSec,
				PassingScore: s.cfg.Exam.DefaultPassingScore,
			}, nil
		}
		log.Error().Err(err).Str("candidate_id", candidateID).Msg("Resolve: assignment lookup failed")
		return nil, fmt.Errorf("error resolving exam assignment: %w", err)
	}

	cfg := assignment.ExamConfiguration
	now := s.clock.Now()
	if cfg.OpensAt != nil && now.Before(*cfg.OpensAt) {
		return nil, ErrNotYetAvailable
	}
	if cfg.ClosesAt != nil && now.After(*cfg.ClosesAt) {
		return nil, ErrExpired
	}

	return &ExamPlan{
		Assigned:     assignment,
		QuestionIDs:  []uint(cfg.QuestionIDs),
		TimeLimitSec: cfg.TimeLimitSec,
		PassingScore: cfg.PassingScore,
	}, nil
}
