package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTI_CHOICE"
	QuestionTypeFillBlank    QuestionType = "FILL_BLANK"
	QuestionTypeTrueFalse    QuestionType = "TRUE_FALSE"
	QuestionTypeNumeric      QuestionType = "NUMERIC"
	QuestionTypeShortText    QuestionType = "SHORT_TEXT"
	QuestionTypeParagraph    QuestionType = "PARAGRAPH"
)

// AutoGradable reports whether answers of this type can be graded without
// manual review. Free-text types always go to manual review.
func (t QuestionType) AutoGradable() bool {
	switch t {
	case QuestionTypeShortText, QuestionTypeParagraph:
		return false
	default:
		return true
	}
}

// HasOptions reports whether this type carries a shuffleable option list.
// TRUE_FALSE has fixed options and is deliberately excluded.
func (t QuestionType) HasOptions() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultiChoice
}

// Question represents a single test question. Options and CorrectAnswers
// carry only the values meaningful for the question's type: an option list
// plus correct subset for choice types, a single expected value for
// fill-blank/numeric/true-false, and nothing for free-text types.
type Question struct {
	ID             uuid.UUID    `json:"id"`
	TestID         uuid.UUID    `json:"test_id"`
	Number         int          `json:"number"`
	Type           QuestionType `json:"type"`
	Text           string       `json:"text"`
	Options        []string     `json:"options"`
	CorrectAnswers []string     `json:"correct_answers"`
	Marks          float64      `json:"marks"`
	CaseSensitive  bool         `json:"case_sensitive"`
}

// AddQuestionRequest is the payload for one question in a bulk replace.
type AddQuestionRequest struct {
	Number         int      `json:"number" binding:"min=0"`
	Type           string   `json:"type" binding:"required,oneof=SINGLE_CHOICE MULTI_CHOICE FILL_BLANK TRUE_FALSE NUMERIC SHORT_TEXT PARAGRAPH"`
	Text           string   `json:"text" binding:"required,min=1,max=2000"`
	Options        []string `json:"options" binding:"omitempty,dive,max=500"`
	CorrectAnswers []string `json:"correct_answers" binding:"omitempty,dive,max=500"`
	Marks          float64  `json:"marks" binding:"required,gt=0"`
	CaseSensitive  bool     `json:"case_sensitive"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a test's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// QuestionForStudent is a question without its correct answers, as handed to
// a test-taking session.
type QuestionForStudent struct {
	ID      uuid.UUID    `json:"id"`
	Number  int          `json:"number"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Options []string     `json:"options"`
	Marks   float64      `json:"marks"`
}
