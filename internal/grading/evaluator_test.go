package grading

import (
	"testing"

	"github.com/aznacademy/aznexam-backend/internal/model"
)

func question(t model.QuestionType, correct []string, marks float64) model.Question {
	return model.Question{Type: t, CorrectAnswers: correct, Marks: marks}
}

func TestEvaluate_SingleChoice(t *testing.T) {
	tests := []struct {
		name    string
		correct []string
		answer  []string
		want    bool
	}{
		{name: "exact match", correct: []string{"B"}, answer: []string{"B"}, want: true},
		{name: "wrong option", correct: []string{"B"}, answer: []string{"A"}, want: false},
		{name: "unanswered", correct: []string{"B"}, answer: nil, want: false},
		{name: "multiple selections rejected", correct: []string{"B"}, answer: []string{"A", "B"}, want: false},
		{name: "no answer key", correct: nil, answer: []string{"B"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(question(model.QuestionTypeSingleChoice, tc.correct, 2), tc.answer)
			assertCorrectness(t, got, tc.want)
			if tc.want && got.MarksAwarded != 2 {
				t.Errorf("MarksAwarded = %v, want 2", got.MarksAwarded)
			}
		})
	}
}

func TestEvaluate_TrueFalse(t *testing.T) {
	q := question(model.QuestionTypeTrueFalse, []string{"true"}, 1)

	if got := Evaluate(q, []string{"true"}); got.IsCorrect == nil || !*got.IsCorrect {
		t.Errorf("Evaluate(true) = %+v, want correct", got)
	}
	if got := Evaluate(q, []string{"false"}); got.IsCorrect == nil || *got.IsCorrect {
		t.Errorf("Evaluate(false) = %+v, want wrong", got)
	}
}

func TestEvaluate_MultiChoice(t *testing.T) {
	tests := []struct {
		name    string
		correct []string
		answer  []string
		want    bool
	}{
		{name: "order independent", correct: []string{"A", "C"}, answer: []string{"C", "A"}, want: true},
		{name: "subset is wrong", correct: []string{"A", "C"}, answer: []string{"A"}, want: false},
		{name: "superset is wrong", correct: []string{"A", "C"}, answer: []string{"A", "C", "D"}, want: false},
		{name: "same size different members", correct: []string{"A", "C"}, answer: []string{"A", "D"}, want: false},
		{name: "unanswered", correct: []string{"A", "C"}, answer: nil, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(question(model.QuestionTypeMultiChoice, tc.correct, 4), tc.answer)
			assertCorrectness(t, got, tc.want)
		})
	}
}

func TestEvaluate_FillBlank(t *testing.T) {
	tests := []struct {
		name          string
		correct       string
		caseSensitive bool
		answer        string
		want          bool
	}{
		{name: "case insensitive trimmed", correct: "Paris", answer: "  paris ", want: true},
		{name: "case insensitive wrong word", correct: "Paris", answer: "London", want: false},
		{name: "case sensitive exact", correct: "Paris", caseSensitive: true, answer: "Paris", want: true},
		{name: "case sensitive mismatch", correct: "Paris", caseSensitive: true, answer: "paris", want: false},
		{name: "case sensitive padded answer rejected", correct: "Paris", caseSensitive: true, answer: "  Paris ", want: false},
		{name: "case insensitive padding tolerated", correct: "Paris", answer: "  Paris ", want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := question(model.QuestionTypeFillBlank, []string{tc.correct}, 1)
			q.CaseSensitive = tc.caseSensitive
			assertCorrectness(t, Evaluate(q, []string{tc.answer}), tc.want)
		})
	}
}

func TestEvaluate_Numeric(t *testing.T) {
	tests := []struct {
		name    string
		correct string
		answer  string
		want    bool
	}{
		{name: "equal after parse", correct: "3.0", answer: "3", want: true},
		{name: "unparseable answer", correct: "3.0", answer: "abc", want: false},
		{name: "close but not equal", correct: "3.0", answer: "3.0001", want: false},
		{name: "unparseable key", correct: "three", answer: "3", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(question(model.QuestionTypeNumeric, []string{tc.correct}, 1), []string{tc.answer})
			assertCorrectness(t, got, tc.want)
		})
	}
}

func TestEvaluate_ManualReviewTypes(t *testing.T) {
	for _, qt := range []model.QuestionType{model.QuestionTypeShortText, model.QuestionTypeParagraph} {
		got := Evaluate(question(qt, nil, 5), []string{"an essay of sorts"})
		if got.IsCorrect != nil {
			t.Errorf("%s: IsCorrect = %v, want nil (pending review)", qt, *got.IsCorrect)
		}
		if got.MarksAwarded != 0 {
			t.Errorf("%s: MarksAwarded = %v, want 0", qt, got.MarksAwarded)
		}
	}
}

func TestEvaluate_UnknownType(t *testing.T) {
	got := Evaluate(question(model.QuestionType("BOGUS"), []string{"x"}, 5), []string{"x"})
	if got.IsCorrect == nil || *got.IsCorrect {
		t.Errorf("unknown type should grade as wrong, got %+v", got)
	}
	if got.MarksAwarded != 0 {
		t.Errorf("MarksAwarded = %v, want 0", got.MarksAwarded)
	}
}

func TestTally(t *testing.T) {
	yes, no := true, false
	evals := []Evaluation{
		{IsCorrect: &yes, MarksAwarded: 5},
		{IsCorrect: &no, MarksAwarded: 0},
		{IsCorrect: nil, MarksAwarded: 0},
	}

	got := Tally(evals)

	if got.Score != 5 {
		t.Errorf("Score = %v, want 5", got.Score)
	}
	if got.CorrectCount != 1 || got.WrongCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", got.CorrectCount, got.WrongCount)
	}
	if !got.NeedsManualReview {
		t.Error("NeedsManualReview = false, want true")
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(5, 10); got != 50 {
		t.Errorf("Percentage(5,10) = %v, want 50", got)
	}
	if got := Percentage(5, 0); got != 0 {
		t.Errorf("Percentage(5,0) = %v, want 0", got)
	}
}

func assertCorrectness(t *testing.T, got Evaluation, want bool) {
	t.Helper()
	if got.IsCorrect == nil {
		t.Fatalf("IsCorrect = nil, want %v", want)
	}
	if *got.IsCorrect != want {
		t.Errorf("IsCorrect = %v, want %v", *got.IsCorrect, want)
	}
}
