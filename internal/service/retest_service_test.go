package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
)

func newRetestFixture() (*RetestService, *memKeyStore, *memSubmissionStore) {
	keys := &memKeyStore{}
	subs := &memSubmissionStore{}
	svc := NewRetestService(keys, subs, "MASTERKEY")
	svc.now = func() time.Time { return testClock }
	return svc, keys, subs
}

func TestValidateMasterKey(t *testing.T) {
	svc, _, _ := newRetestFixture()

	grant, err := svc.Validate(context.Background(), "MASTERKEY", nil)
	if err != nil {
		t.Fatalf("Validate master: %v", err)
	}
	if !grant.IsMasterKey || grant.Key != nil {
		t.Errorf("grant = %+v, want master grant with no key", grant)
	}
}

func TestValidateIssuedKey(t *testing.T) {
	svc, keys, _ := newRetestFixture()
	ctx := context.Background()
	testID := uuid.New()

	key := &model.RetestKey{
		TestID:    testID,
		Key:       "RTK12345",
		ExpiresAt: testClock.Add(time.Hour),
	}
	if err := keys.Create(ctx, key); err != nil {
		t.Fatal(err)
	}

	// Scoped lookup.
	grant, err := svc.Validate(ctx, "RTK12345", &testID)
	if err != nil {
		t.Fatalf("Validate scoped: %v", err)
	}
	if grant.IsMasterKey || grant.Key == nil || grant.Key.Key != "RTK12345" {
		t.Errorf("grant = %+v, want issued-key grant", grant)
	}

	// Scoped lookup against the wrong test misses.
	otherID := uuid.New()
	if _, err := svc.Validate(ctx, "RTK12345", &otherID); !errors.Is(err, ErrRetestKeyInvalid) {
		t.Errorf("wrong-test error = %v, want ErrRetestKeyInvalid", err)
	}

	// Global lookup resolves the key without a test pre-selected.
	grant, err = svc.Validate(ctx, "RTK12345", nil)
	if err != nil {
		t.Fatalf("Validate global: %v", err)
	}
	if grant.Key.TestID != testID {
		t.Errorf("global grant test = %s, want %s", grant.Key.TestID, testID)
	}
}

func TestValidateRejectsUsedAndExpiredKeys(t *testing.T) {
	svc, keys, _ := newRetestFixture()
	ctx := context.Background()
	testID := uuid.New()

	used := &model.RetestKey{TestID: testID, Key: "USED0001", IsUsed: true, ExpiresAt: testClock.Add(time.Hour)}
	expired := &model.RetestKey{TestID: testID, Key: "EXPIRED1", ExpiresAt: testClock.Add(-time.Minute)}
	keys.keys = append(keys.keys, used, expired)

	for _, k := range []string{"USED0001", "EXPIRED1", "MISSING1"} {
		if _, err := svc.Validate(ctx, k, &testID); !errors.Is(err, ErrRetestKeyInvalid) {
			t.Errorf("Validate(%q) error = %v, want ErrRetestKeyInvalid", k, err)
		}
	}
}

func TestIssueKey(t *testing.T) {
	svc, keys, subs := newRetestFixture()
	ctx := context.Background()
	testID := uuid.New()

	subs.subs = append(subs.subs, model.Submission{
		ID:          uuid.New(),
		TestID:      testID,
		SlotNumber:  3,
		StudentName: "Ali Khan",
	})
	sub := subs.subs[0]

	key, err := svc.Issue(ctx, testID, sub.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(key.Key) != retestKeyLength {
		t.Errorf("key %q length = %d, want %d", key.Key, len(key.Key), retestKeyLength)
	}
	if !key.ExpiresAt.Equal(testClock.Add(24 * time.Hour)) {
		t.Errorf("expires = %v, want issue+24h", key.ExpiresAt)
	}
	if key.SlotNumber != 3 || key.StudentName != "Ali Khan" {
		t.Errorf("key binds %d/%q, want the submission's slot and student", key.SlotNumber, key.StudentName)
	}
	if len(keys.keys) != 1 {
		t.Errorf("stored keys = %d, want 1", len(keys.keys))
	}
}

func TestIssueKeyRejectsForeignSubmission(t *testing.T) {
	svc, _, subs := newRetestFixture()
	ctx := context.Background()

	subs.subs = append(subs.subs, model.Submission{ID: uuid.New(), TestID: uuid.New()})
	if _, err := svc.Issue(ctx, uuid.New(), subs.subs[0].ID); err == nil {
		t.Error("Issue accepted a submission from another test")
	}
}
