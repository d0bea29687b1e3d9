// Package grading implements the pure answer evaluator. It has no side
// effects and no knowledge of persistence; the session service feeds it
// captured answers and stores whatever it returns.
package grading

import (
	"sort"
	"strconv"
	"strings"

	"github.com/aznacademy/aznexam-backend/internal/model"
)

// Evaluation is the outcome of grading a single answer. IsCorrect is
// tri-state: nil means the answer needs manual review.
type Evaluation struct {
	IsCorrect    *bool
	MarksAwarded float64
}

// Summary aggregates the evaluations of one attempt.
type Summary struct {
	Score             float64
	CorrectCount      int
	WrongCount        int
	NeedsManualReview bool
}

type strategy func(q model.Question, answer []string) bool

var strategies = map[model.QuestionType]strategy{
	model.QuestionTypeSingleChoice: exactSingle,
	model.QuestionTypeTrueFalse:    exactSingle,
	model.QuestionTypeMultiChoice:  setEqual,
	model.QuestionTypeFillBlank:    fillBlank,
	model.QuestionTypeNumeric:      numericEqual,
}

// Evaluate grades one question against the student's captured answer.
// Free-text types are always deferred to manual review with zero marks;
// unknown types grade as wrong rather than panicking mid-submit.
func Evaluate(q model.Question, answer []string) Evaluation {
	if !q.Type.AutoGradable() {
		return Evaluation{IsCorrect: nil, MarksAwarded: 0}
	}

	s, ok := strategies[q.Type]
	if !ok {
		return Evaluation{IsCorrect: boolPtr(false), MarksAwarded: 0}
	}

	if s(q, answer) {
		return Evaluation{IsCorrect: boolPtr(true), MarksAwarded: q.Marks}
	}
	return Evaluation{IsCorrect: boolPtr(false), MarksAwarded: 0}
}

// Tally sums an attempt's evaluations into its aggregate result.
func Tally(evals []Evaluation) Summary {
	var s Summary
	for _, e := range evals {
		s.Score += e.MarksAwarded
		switch {
		case e.IsCorrect == nil:
			s.NeedsManualReview = true
		case *e.IsCorrect:
			s.CorrectCount++
		default:
			s.WrongCount++
		}
	}
	return s
}

// Percentage computes score/total*100, guarding the zero-total case.
func Percentage(score, totalMarks float64) float64 {
	if totalMarks <= 0 {
		return 0
	}
	return score / totalMarks * 100
}

func exactSingle(q model.Question, answer []string) bool {
	if len(q.CorrectAnswers) == 0 || len(answer) != 1 {
		return false
	}
	return answer[0] == q.CorrectAnswers[0]
}

// setEqual compares the answer and the correct set order-independently by
// sorting copies of both and comparing element-wise. Sizes must match.
func setEqual(q model.Question, answer []string) bool {
	if len(answer) == 0 || len(answer) != len(q.CorrectAnswers) {
		return false
	}

	got := append([]string(nil), answer...)
	want := append([]string(nil), q.CorrectAnswers...)
	sort.Strings(got)
	sort.Strings(want)

	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// fillBlank compares the answer against the key. Case-sensitive questions
// require an exact match, whitespace included; the lenient branch trims and
// folds case.
func fillBlank(q model.Question, answer []string) bool {
	if len(q.CorrectAnswers) == 0 || len(answer) != 1 {
		return false
	}
	if q.CaseSensitive {
		return answer[0] == q.CorrectAnswers[0]
	}
	return strings.EqualFold(
		strings.TrimSpace(answer[0]),
		strings.TrimSpace(q.CorrectAnswers[0]),
	)
}

// numericEqual parses both sides as floats; correct iff both parse and are
// numerically equal. No tolerance.
func numericEqual(q model.Question, answer []string) bool {
	if len(q.CorrectAnswers) == 0 || len(answer) != 1 {
		return false
	}
	want, err := strconv.ParseFloat(strings.TrimSpace(q.CorrectAnswers[0]), 64)
	if err != nil {
		return false
	}
	got, err := strconv.ParseFloat(strings.TrimSpace(answer[0]), 64)
	if err != nil {
		return false
	}
	return got == want
}

func boolPtr(b bool) *bool { return &b }
