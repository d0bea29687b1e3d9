package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	retestKeyLength = 8
	retestKeyTTL    = 24 * time.Hour
)

// RetestKeyStore is the persistence surface of the retest-key service.
// *repository.RetestKeyRepository satisfies it.
type RetestKeyStore interface {
	Create(ctx context.Context, k *model.RetestKey) error
	FindActive(ctx context.Context, key string, testID uuid.UUID, now time.Time) (*model.RetestKey, error)
	FindActiveGlobal(ctx context.Context, key string, now time.Time) (*model.RetestKey, error)
	MarkUsed(ctx context.Context, keyID, submissionID uuid.UUID) error
	ListByTest(ctx context.Context, testID uuid.UUID) ([]model.RetestKey, error)
}

// SubmissionReader is the read surface retest issuance needs.
type SubmissionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error)
}

// RetestService issues and validates one-time retest authorization keys.
type RetestService struct {
	keys        RetestKeyStore
	submissions SubmissionReader
	masterKey   string
	now         func() time.Time
}

// NewRetestService creates a new RetestService. masterKey is the permanent
// override literal; it bypasses lookup entirely and is never persisted.
func NewRetestService(keys RetestKeyStore, submissions SubmissionReader, masterKey string) *RetestService {
	return &RetestService{
		keys:        keys,
		submissions: submissions,
		masterKey:   masterKey,
		now:         time.Now,
	}
}

// RetestGrant is a successful retest authorization carried through a
// session. A master grant has no key to consume.
type RetestGrant struct {
	IsMasterKey bool
	Key         *model.RetestKey
}

// Validate checks a retest key. The master key short-circuits without any
// lookup. With a test pre-selected the lookup is scoped to it; without one
// the key is resolved globally and the bound test/slot/student come from the
// key row (student-convenience path, weakens per-test scoping).
func (s *RetestService) Validate(ctx context.Context, key string, testID *uuid.UUID) (*RetestGrant, error) {
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.masterKey)) == 1 {
		return &RetestGrant{IsMasterKey: true}, nil
	}

	var (
		k   *model.RetestKey
		err error
	)
	if testID != nil {
		k, err = s.keys.FindActive(ctx, key, *testID, s.now())
	} else {
		k, err = s.keys.FindActiveGlobal(ctx, key, s.now())
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRetestKeyInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("find retest key: %w", err)
	}

	return &RetestGrant{Key: k}, nil
}

// Issue creates a retest key for an existing submission of the given test.
func (s *RetestService) Issue(ctx context.Context, testID, submissionID uuid.UUID) (*model.RetestKey, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub.TestID != testID {
		return nil, fmt.Errorf("submission %s does not belong to test %s", submissionID, testID)
	}

	k := &model.RetestKey{
		TestID:       testID,
		SubmissionID: sub.ID,
		SlotNumber:   sub.SlotNumber,
		StudentName:  sub.StudentName,
		Key:          randomCode(retestKeyLength),
		ExpiresAt:    s.now().Add(retestKeyTTL),
	}
	if err := s.keys.Create(ctx, k); err != nil {
		return nil, fmt.Errorf("create retest key: %w", err)
	}
	return k, nil
}

// ListByTest returns all keys issued for a test.
func (s *RetestService) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.RetestKey, error) {
	return s.keys.ListByTest(ctx, testID)
}
