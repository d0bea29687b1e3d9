package service

import (
	"context"
	"fmt"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
)

// ResultStore is the persistence surface of the result service.
// *repository.SubmissionRepository satisfies it.
type ResultStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	ListByTest(ctx context.Context, testID uuid.UUID, page, perPage int, status *model.SubmissionStatus, slotNumber *int, needsReview *bool) ([]model.Submission, int64, error)
	ListAnswers(ctx context.Context, submissionID uuid.UUID) ([]model.Answer, error)
}

// ResultFilter narrows the admin submission listing.
type ResultFilter struct {
	Status      *model.SubmissionStatus
	SlotNumber  *int
	NeedsReview *bool
}

// ResultService exposes graded submissions to the admin surface.
type ResultService struct {
	submissions ResultStore
}

// NewResultService creates a new ResultService.
func NewResultService(submissions ResultStore) *ResultService {
	return &ResultService{submissions: submissions}
}

// List retrieves a page of a test's submissions plus the unpaged total.
func (s *ResultService) List(ctx context.Context, testID uuid.UUID, page, perPage int, filter ResultFilter) ([]model.Submission, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.submissions.ListByTest(ctx, testID, page, perPage, filter.Status, filter.SlotNumber, filter.NeedsReview)
}

// Detail retrieves one submission with its per-question answer rows.
func (s *ResultService) Detail(ctx context.Context, submissionID uuid.UUID) (*model.Submission, []model.Answer, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get submission: %w", err)
	}
	answers, err := s.submissions.ListAnswers(ctx, submissionID)
	if err != nil {
		return nil, nil, fmt.Errorf("list answers: %w", err)
	}
	return sub, answers, nil
}
