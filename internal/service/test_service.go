package service

import (
	"context"
	"fmt"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
)

// TestCatalog is the persistence surface of the test service.
// *repository.TestRepository satisfies it.
type TestCatalog interface {
	Create(ctx context.Context, t *model.Test) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
	List(ctx context.Context, publishedOnly bool) ([]model.Test, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateTestRequest) error
	SetPublished(ctx context.Context, id uuid.UUID, published bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// QuestionCatalog is the question persistence surface of the test service.
// *repository.QuestionRepository satisfies it.
type QuestionCatalog interface {
	ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error)
	ReplaceAll(ctx context.Context, testID uuid.UUID, questions []model.Question) error
}

// TestService handles the admin side of test setup: CRUD, question
// authoring, and the publish switch.
type TestService struct {
	tests     TestCatalog
	questions QuestionCatalog
}

// NewTestService creates a new TestService.
func NewTestService(tests TestCatalog, questions QuestionCatalog) *TestService {
	return &TestService{tests: tests, questions: questions}
}

// Create creates a new test in unpublished state.
func (s *TestService) Create(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error) {
	t := &model.Test{
		Title:             req.Title,
		DurationMinutes:   req.DurationMinutes,
		PassingPercentage: req.PassingPercentage,
	}
	if err := s.tests.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}
	return t, nil
}

// Get retrieves a single test.
func (s *TestService) Get(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.tests.GetByID(ctx, id)
}

// List retrieves all tests, or only published ones for the student entry
// screen.
func (s *TestService) List(ctx context.Context, publishedOnly bool) ([]model.Test, error) {
	return s.tests.List(ctx, publishedOnly)
}

// Update applies a partial update to a test.
func (s *TestService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateTestRequest) (*model.Test, error) {
	if err := s.tests.Update(ctx, id, req); err != nil {
		return nil, fmt.Errorf("update test: %w", err)
	}
	return s.tests.GetByID(ctx, id)
}

// Delete removes a test and everything hanging off it.
func (s *TestService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tests.Delete(ctx, id)
}

// SetPublished flips the publish flag. Publishing requires at least one
// question; unpublishing has no precondition.
func (s *TestService) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	if published {
		questions, err := s.questions.ListByTest(ctx, id)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		if len(questions) == 0 {
			return ErrNoQuestions
		}
	}
	return s.tests.SetPublished(ctx, id, published)
}

// ListQuestions retrieves a test's questions with correct answers included.
func (s *TestService) ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	return s.questions.ListByTest(ctx, testID)
}

// ReplaceQuestions validates and swaps out a test's question set. Numbers
// are assigned sequentially when the request leaves them at zero.
func (s *TestService) ReplaceQuestions(ctx context.Context, testID uuid.UUID, req *model.ReplaceQuestionsRequest) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(req.Questions))
	for i, qr := range req.Questions {
		q := model.Question{
			Number:         qr.Number,
			Type:           model.QuestionType(qr.Type),
			Text:           qr.Text,
			Options:        qr.Options,
			CorrectAnswers: qr.CorrectAnswers,
			Marks:          qr.Marks,
			CaseSensitive:  qr.CaseSensitive,
		}
		if q.Number == 0 {
			q.Number = i + 1
		}
		if err := validateQuestion(&q); err != nil {
			return nil, fmt.Errorf("question %d: %w", q.Number, err)
		}
		questions = append(questions, q)
	}

	if err := s.questions.ReplaceAll(ctx, testID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}
	return questions, nil
}

// validateQuestion enforces the per-type shape rules that binding tags
// cannot express.
func validateQuestion(q *model.Question) error {
	switch q.Type {
	case model.QuestionTypeSingleChoice, model.QuestionTypeMultiChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("choice question needs at least 2 options, got %d", len(q.Options))
		}
		if len(q.CorrectAnswers) == 0 {
			return fmt.Errorf("choice question needs at least one correct answer")
		}
		if q.Type == model.QuestionTypeSingleChoice && len(q.CorrectAnswers) != 1 {
			return fmt.Errorf("single-choice question needs exactly one correct answer, got %d", len(q.CorrectAnswers))
		}
		for _, c := range q.CorrectAnswers {
			if !containsString(q.Options, c) {
				return fmt.Errorf("correct answer %q is not among the options", c)
			}
		}
	case model.QuestionTypeTrueFalse:
		if len(q.CorrectAnswers) != 1 || (q.CorrectAnswers[0] != "true" && q.CorrectAnswers[0] != "false") {
			return fmt.Errorf("true/false question needs exactly one correct answer of true or false")
		}
	case model.QuestionTypeFillBlank, model.QuestionTypeNumeric:
		if len(q.CorrectAnswers) != 1 {
			return fmt.Errorf("%s question needs exactly one correct answer, got %d", q.Type, len(q.CorrectAnswers))
		}
	case model.QuestionTypeShortText, model.QuestionTypeParagraph:
		// Manual-review types carry no correct answer.
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
