package service

import (
	"math"
	"strings"

	"github.com/ptmquan/certprep/internal/model"
)

// scoreAnswers grades a frozen question set against an answer map. Pure and
// local: it only fails on an empty question set. Unanswered questions count
// as incorrect, never as excluded, and the letter comparison is
// case-insensitive.
func scoreAnswers(frozen []model.SnapshotQuestion, answers map[uint]string) ([]model.AnswerRecord, int, error) {
	if len(frozen) == 0 {
		return nil, 0, ErrEmptyQuestionSet
	}

	records := make([]model.AnswerRecord, len(frozen))
	correctCount := 0
	for i, q := range frozen {
		selected := strings.ToUpper(strings.TrimSpace(answers[q.QuestionID]))
		correct := strings.ToUpper(strings.TrimSpace(q.CorrectChoice))
		isCorrect := selected != "" && selected == correct
		if isCorrect {
			correctCount++
		}
		records[i] = model.AnswerRecord{
			QuestionID: q.QuestionID,
			Selected:   selected,
			Correct:    correct,
			IsCorrect:  isCorrect,
		}
	}

	score := int(math.Round(100 * float64(correctCount) / float64(len(frozen))))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return records, score, nil
}
