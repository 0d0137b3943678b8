package service

import (
	"fmt"
	"math/rand"

	"github.com/ptmquan/certprep/internal/model"
	"github.com/ptmquan/certprep/internal/repository"
	"github.com/rs/zerolog/log"
)

// QuestionBankService turns an ExamPlan into the frozen question list a
// session is built from. The returned snapshot is by-value; later bank
// mutations never reach an in-progress or completed attempt.
type QuestionBankService interface {
	Draw(plan *ExamPlan) ([]model.SnapshotQuestion, error)
}

type questionBankService struct {
	questionRepo repository.QuestionRepository
}

func NewQuestionBankService(questionRepo repository.QuestionRepository) QuestionBankService {
	return &questionBankService{questionRepo: questionRepo}
}

func (s *questionBankService) Draw(plan *ExamPlan) ([]model.SnapshotQuestion, error) {
	if plan.RandomDraw() {
		return s.randomDraw(plan.SampleSize)
	}
	return s.assignedDraw(plan.QuestionIDs)
}

func (s *questionBankService) randomDraw(sampleSize int) ([]model.SnapshotQuestion, error) {
	questions, err := s.questionRepo.FindActive()
	if err != nil {
		log.Error().Err(err).Msg("randomDraw: failed to load active questions")
		return nil, fmt.Errorf("error loading question bank: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrEmptyQuestionSet
	}

	// Unbiased Fisher-Yates; a comparator-based sort over random values
	// favors positional subsets and must not be used here.
	rand.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})

	if sampleSize > len(questions) {
		sampleSize = len(questions)
	}
	return freeze(questions[:sampleSize]), nil
}

func (s *questionBankService) assignedDraw(ids []uint) ([]model.SnapshotQuestion, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyQuestionSet
	}
	questions, err := s.questionRepo.FindByIDs(ids)
	if err != nil {
		log.Error().Err(err).Msg("assignedDraw: failed to load assigned questions")
		return nil, fmt.Errorf("error loading assigned questions: %w", err)
	}

	// Preserve the configuration's order; anything the bank no longer has
	// is dropped and logged rather than failing the whole draw.
	byID := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			log.Warn().Uint("question_id", id).Msg("assignedDraw: configured question missing from bank, skipping")
			continue
		}
		ordered = append(ordered, q)
	}
	if len(ordered) == 0 {
		return nil, ErrEmptyQuestionSet
	}
	return freeze(ordered), nil
}

func freeze(questions []model.Question) []model.SnapshotQuestion {
	frozen := make([]model.SnapshotQuestion, len(questions))
	for i, q := range questions {
		frozen[i] = q.Snapshot()
	}
	return frozen
}
