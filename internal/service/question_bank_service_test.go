package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ptmquan/certprep/internal/model"
)

func seededBank(n int) *fakeQuestionRepo {
	repo := &fakeQuestionRepo{}
	for i := 1; i <= n; i++ {
		repo.questions = append(repo.questions, model.Question{
			ID:            uint(i),
			Prompt:        fmt.Sprintf("question %d", i),
			ChoiceA:       "a", ChoiceB: "b", ChoiceC: "c", ChoiceD: "d",
			CorrectChoice: "A",
			Active:        true,
		})
	}
	return repo
}

func TestDrawRandomSampleSize(t *testing.T) {
	svc := NewQuestionBankService(seededBank(50))

	frozen, err := svc.Draw(&ExamPlan{SampleSize: 30})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(frozen) != 30 {
		t.Fatalf("got %d questions, want 30", len(frozen))
	}
	seen := map[uint]bool{}
	for _, q := range frozen {
		if seen[q.QuestionID] {
			t.Errorf("question %d drawn twice", q.QuestionID)
		}
		seen[q.QuestionID] = true
	}
}

func TestDrawTruncatesToBankSize(t *testing.T) {
	svc := NewQuestionBankService(seededBank(10))

	frozen, err := svc.Draw(&ExamPlan{SampleSize: 30})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(frozen) != 10 {
		t.Fatalf("got %d questions, want the whole bank of 10", len(frozen))
	}
}

func TestDrawSkipsInactiveQuestions(t *testing.T) {
	repo := seededBank(5)
	repo.questions[2].Active = false
	svc := NewQuestionBankService(repo)

	frozen, err := svc.Draw(&ExamPlan{SampleSize: 5})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(frozen) != 4 {
		t.Fatalf("got %d questions, want 4 active ones", len(frozen))
	}
	for _, q := range frozen {
		if q.QuestionID == 3 {
			t.Error("inactive question 3 was drawn")
		}
	}
}

func TestDrawEmptyBank(t *testing.T) {
	svc := NewQuestionBankService(&fakeQuestionRepo{})
	if _, err := svc.Draw(&ExamPlan{SampleSize: 30}); !errors.Is(err, ErrEmptyQuestionSet) {
		t.Fatalf("Draw() error = %v, want ErrEmptyQuestionSet", err)
	}
}

// TestDrawHasNoPositionalBias hammers the shuffle and checks that every
// question lands in the sample at close to the expected rate. A biased
// shuffle, like sorting on a random comparator, fails this by a wide
// margin for questions at the ends of the bank.
func TestDrawHasNoPositionalBias(t *testing.T) {
	const (
		bankSize   = 10
		sampleSize = 5
		rounds     = 2000
	)
	svc := NewQuestionBankService(seededBank(bankSize))

	hits := map[uint]int{}
	for i := 0; i < rounds; i++ {
		frozen, err := svc.Draw(&ExamPlan{SampleSize: sampleSize})
		if err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
		for _, q := range frozen {
			hits[q.QuestionID]++
		}
	}

	// Every question should be drawn in about half the rounds. A 10 point
	// tolerance is far wider than the binomial noise at these counts.
	expected := float64(rounds) * float64(sampleSize) / float64(bankSize)
	for id := uint(1); id <= bankSize; id++ {
		rate := float64(hits[id]) / expected
		if rate < 0.9 || rate > 1.1 {
			t.Errorf("question %d drawn %d times, expected about %.0f", id, hits[id], expected)
		}
	}
}

func TestDrawAssignedPreservesConfiguredOrder(t *testing.T) {
	svc := NewQuestionBankService(seededBank(10))
	ids := []uint{7, 2, 9, 4}

	frozen, err := svc.Draw(&ExamPlan{Assigned: &model.AssignedExam{ID: 1}, QuestionIDs: ids})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(frozen) != len(ids) {
		t.Fatalf("got %d questions, want %d", len(frozen), len(ids))
	}
	for i, id := range ids {
		if frozen[i].QuestionID != id {
			t.Errorf("frozen[%d].QuestionID = %d, want %d", i, frozen[i].QuestionID, id)
		}
	}
}

func TestDrawAssignedSkipsMissingQuestions(t *testing.T) {
	svc := NewQuestionBankService(seededBank(5))

	frozen, err := svc.Draw(&ExamPlan{Assigned: &model.AssignedExam{ID: 1}, QuestionIDs: []uint{2, 99, 4}})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(frozen) != 2 {
		t.Fatalf("got %d questions, want 2 resolvable ones", len(frozen))
	}
	if frozen[0].QuestionID != 2 || frozen[1].QuestionID != 4 {
		t.Errorf("frozen order = [%d, %d], want [2, 4]", frozen[0].QuestionID, frozen[1].QuestionID)
	}
}

func TestDrawAssignedEmptyConfiguration(t *testing.T) {
	svc := NewQuestionBankService(seededBank(5))
	if _, err := svc.Draw(&ExamPlan{Assigned: &model.AssignedExam{ID: 1}}); !errors.Is(err, ErrEmptyQuestionSet) {
		t.Fatalf("Draw() error = %v, want ErrEmptyQuestionSet", err)
	}
}

func TestDrawSnapshotIsFrozen(t *testing.T) {
	repo := seededBank(3)
	svc := NewQuestionBankService(repo)

	frozen, err := svc.Draw(&ExamPlan{SampleSize: 3})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	// Bank edits after the draw must not reach the snapshot.
	for i := range repo.questions {
		repo.questions[i].Prompt = "edited"
		repo.questions[i].CorrectChoice = "D"
	}
	for _, q := range frozen {
		if q.Prompt == "edited" || q.CorrectChoice == "D" {
			t.Fatal("snapshot reflects a bank edit made after the draw")
		}
	}
}
