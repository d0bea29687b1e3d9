package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/aznacademy/aznexam-backend/internal/queue"
	"github.com/aznacademy/aznexam-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// testClock is a fixed instant (10:30 local) used across the service tests.
// With 120-minute slots anchored at midnight this falls in slot 6.
var testClock = time.Date(2026, 9, 1, 10, 30, 0, 0, time.Local)

const testAccessCode = "K7XP2Q"

// ─── In-memory fakes ─────────────────────────────────────────────────

type fakeTestStore struct {
	tests map[uuid.UUID]*model.Test
}

func (f *fakeTestStore) GetByID(_ context.Context, id uuid.UUID) (*model.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t, nil
}

type fakeQuestionStore struct {
	questions []model.Question
}

func (f *fakeQuestionStore) ListByTest(_ context.Context, _ uuid.UUID) ([]model.Question, error) {
	return f.questions, nil
}

type memSlotStore struct {
	slots map[string]*model.Slot
	codes []repository.SlotCode
}

func slotKey(testID uuid.UUID, n int) string { return fmt.Sprintf("%s:%d", testID, n) }

func (m *memSlotStore) GetByTestAndNumber(_ context.Context, testID uuid.UUID, slotNumber int) (*model.Slot, error) {
	s, ok := m.slots[slotKey(testID, slotNumber)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (m *memSlotStore) Create(_ context.Context, s *model.Slot) error {
	key := slotKey(s.TestID, s.SlotNumber)
	if _, ok := m.slots[key]; ok {
		// Mirrors ON CONFLICT DO NOTHING RETURNING: no row comes back.
		return pgx.ErrNoRows
	}
	s.ID = uuid.New()
	m.slots[key] = s
	return nil
}

func (m *memSlotStore) ListCodesByTest(_ context.Context, _ uuid.UUID) ([]repository.SlotCode, error) {
	return m.codes, nil
}

func (m *memSlotStore) HasSlots(_ context.Context, _ uuid.UUID) (bool, error) {
	return len(m.slots) > 0, nil
}

type memCodeStore struct {
	codes []*model.AccessCode
}

func (m *memCodeStore) GetValidBySlot(_ context.Context, slotID uuid.UUID, now time.Time) (*model.AccessCode, error) {
	for _, c := range m.codes {
		if c.SlotID == slotID && now.Before(c.ValidUntil) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memCodeStore) Create(_ context.Context, c *model.AccessCode) error {
	for _, existing := range m.codes {
		if existing.Code == c.Code {
			return repository.ErrDuplicateAccessCode
		}
	}
	c.ID = uuid.New()
	m.codes = append(m.codes, c)
	return nil
}

type memKeyStore struct {
	keys []*model.RetestKey
}

func (m *memKeyStore) Create(_ context.Context, k *model.RetestKey) error {
	k.ID = uuid.New()
	k.CreatedAt = testClock
	m.keys = append(m.keys, k)
	return nil
}

func (m *memKeyStore) FindActive(_ context.Context, key string, testID uuid.UUID, now time.Time) (*model.RetestKey, error) {
	for _, k := range m.keys {
		if k.Key == key && k.TestID == testID && !k.IsUsed && now.Before(k.ExpiresAt) {
			return k, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memKeyStore) FindActiveGlobal(_ context.Context, key string, now time.Time) (*model.RetestKey, error) {
	for _, k := range m.keys {
		if k.Key == key && !k.IsUsed && now.Before(k.ExpiresAt) {
			return k, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memKeyStore) MarkUsed(_ context.Context, keyID, submissionID uuid.UUID) error {
	for _, k := range m.keys {
		if k.ID == keyID {
			k.IsUsed = true
			k.UsedBySubmissionID = &submissionID
		}
	}
	return nil
}

func (m *memKeyStore) ListByTest(_ context.Context, testID uuid.UUID) ([]model.RetestKey, error) {
	var out []model.RetestKey
	for _, k := range m.keys {
		if k.TestID == testID {
			out = append(out, *k)
		}
	}
	return out, nil
}

type memSubmissionStore struct {
	subs        []model.Submission
	answerRows  int
	createCalls int
	dupFailures int
	attempted   bool
	serial      int
}

func (m *memSubmissionStore) CreateWithAnswers(_ context.Context, s *model.Submission, answers []model.Answer) error {
	m.createCalls++
	if m.dupFailures > 0 {
		m.dupFailures--
		return repository.ErrDuplicateStudentCode
	}
	s.ID = uuid.New()
	s.SubmittedAt = testClock
	m.subs = append(m.subs, *s)
	m.answerRows += len(answers)
	return nil
}

func (m *memSubmissionStore) ExistsCompleted(_ context.Context, _ uuid.UUID, _ int, _, _ string) (bool, error) {
	return m.attempted, nil
}

func (m *memSubmissionStore) CountByTestSlotClass(_ context.Context, _ uuid.UUID, _ int, _ string) (int, error) {
	return m.serial, nil
}

func (m *memSubmissionStore) GetByID(_ context.Context, id uuid.UUID) (*model.Submission, error) {
	for i := range m.subs {
		if m.subs[i].ID == id {
			return &m.subs[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeDispatcher struct {
	retestTasks []queue.RetestTask
	violations  []queue.ViolationEvent
	saved       map[uuid.UUID][]string
	cached      map[string][]string
	cleared     int
	events      []queue.MonitorEvent
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		saved:  make(map[uuid.UUID][]string),
		cached: make(map[string][]string),
	}
}

func (f *fakeDispatcher) EnqueueRetestTask(_ context.Context, task queue.RetestTask) error {
	f.retestTasks = append(f.retestTasks, task)
	return nil
}

func (f *fakeDispatcher) EnqueueViolation(_ context.Context, ev queue.ViolationEvent) error {
	f.violations = append(f.violations, ev)
	return nil
}

func (f *fakeDispatcher) SaveAnswer(_ context.Context, _, questionID uuid.UUID, answer []string) error {
	f.saved[questionID] = answer
	return nil
}

func (f *fakeDispatcher) LoadAnswers(_ context.Context, _ uuid.UUID) (map[string][]string, error) {
	return f.cached, nil
}

func (f *fakeDispatcher) ClearAnswers(_ context.Context, _ uuid.UUID) error {
	f.cleared++
	return nil
}

func (f *fakeDispatcher) PublishMonitorEvent(_ context.Context, ev queue.MonitorEvent) error {
	f.events = append(f.events, ev)
	return nil
}

// ─── Fixture ─────────────────────────────────────────────────────────

type sessionFixture struct {
	svc      *SessionService
	testID   uuid.UUID
	q1, q2   model.Question
	subs     *memSubmissionStore
	keys     *memKeyStore
	dispatch *fakeDispatcher
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	clock := func() time.Time { return testClock }
	testID := uuid.New()

	test := &model.Test{
		ID:              testID,
		Title:           "Entrance Test Class 8",
		DurationMinutes: 60,
		TotalMarks:      5,
		IsPublished:     true,
	}

	q1 := model.Question{
		ID: uuid.New(), TestID: testID, Number: 1,
		Type: model.QuestionTypeSingleChoice, Text: "2+2?",
		Options: []string{"3", "4", "5"}, CorrectAnswers: []string{"4"}, Marks: 2,
	}
	q2 := model.Question{
		ID: uuid.New(), TestID: testID, Number: 2,
		Type: model.QuestionTypeFillBlank, Text: "Capital of France?",
		CorrectAnswers: []string{"Paris"}, Marks: 3,
	}

	slotNumber := SlotNumberAt(testClock)
	slot := &model.Slot{ID: uuid.New(), TestID: testID, SlotNumber: slotNumber}
	slots := &memSlotStore{
		slots: map[string]*model.Slot{slotKey(testID, slotNumber): slot},
		codes: []repository.SlotCode{{
			SlotID:     slot.ID,
			SlotNumber: slotNumber,
			Code:       testAccessCode,
			ValidUntil: testClock.Add(time.Hour),
		}},
	}

	subs := &memSubmissionStore{}
	keys := &memKeyStore{}
	dispatch := newFakeDispatcher()

	slotSvc := NewSlotService(slots)
	slotSvc.now = clock
	codeSvc := NewAccessCodeService(slots, &memCodeStore{})
	codeSvc.now = clock
	retestSvc := NewRetestService(keys, subs, "MASTERKEY")
	retestSvc.now = clock

	svc := NewSessionService(
		&fakeTestStore{tests: map[uuid.UUID]*model.Test{testID: test}},
		&fakeQuestionStore{questions: []model.Question{q1, q2}},
		slotSvc, codeSvc, retestSvc, subs, dispatch, zerolog.Nop(),
	)
	svc.now = clock

	return &sessionFixture{
		svc: svc, testID: testID, q1: q1, q2: q2,
		subs: subs, keys: keys, dispatch: dispatch,
	}
}

func (f *sessionFixture) startRequest() *model.StartSessionRequest {
	return &model.StartSessionRequest{
		TestID:           &f.testID,
		StudentName:      "Ali Khan",
		FatherName:       "Imran Khan",
		ClassApplyingFor: "Class 8",
		AccessCode:       testAccessCode,
	}
}

func (f *sessionFixture) start(t *testing.T) *TestSession {
	t.Helper()
	sess, err := f.svc.Start(context.Background(), f.startRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return sess
}

// ─── Tests ───────────────────────────────────────────────────────────

func TestStartSession(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.start(t)

	if sess.SlotNumber != SlotNumberAt(testClock) {
		t.Errorf("slot number = %d, want %d", sess.SlotNumber, SlotNumberAt(testClock))
	}
	if len(sess.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(sess.Questions))
	}
	if !strings.HasPrefix(sess.StudentCode, "AZN-8-AK-001-") {
		t.Errorf("student code = %q, want AZN-8-AK-001-* prefix", sess.StudentCode)
	}
	if !sess.Deadline.Equal(testClock.Add(60 * time.Minute)) {
		t.Errorf("deadline = %v, want start+60m", sess.Deadline)
	}
	for _, q := range sess.Questions {
		if len(q.CorrectAnswers) == 0 && q.Type != model.QuestionTypeFillBlank {
			t.Errorf("question %d lost its correct answers in shuffle", q.Number)
		}
	}
	if len(f.dispatch.events) != 1 || f.dispatch.events[0].Type != queue.MonitorEventStarted {
		t.Errorf("expected one session_started monitor event, got %+v", f.dispatch.events)
	}
}

func TestStartSessionRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *sessionFixture, req *model.StartSessionRequest)
		wantErr error
	}{
		{
			name:    "missing access code",
			mutate:  func(f *sessionFixture, req *model.StartSessionRequest) { req.AccessCode = "" },
			wantErr: ErrAccessCodeRequired,
		},
		{
			name:    "wrong access code",
			mutate:  func(f *sessionFixture, req *model.StartSessionRequest) { req.AccessCode = "WRONG1" },
			wantErr: ErrAccessCodeInvalid,
		},
		{
			name: "unpublished test",
			mutate: func(f *sessionFixture, req *model.StartSessionRequest) {
				f.svc.tests.(*fakeTestStore).tests[f.testID].IsPublished = false
			},
			wantErr: ErrTestNotPublished,
		},
		{
			name: "no test selected",
			mutate: func(f *sessionFixture, req *model.StartSessionRequest) {
				req.TestID = nil
			},
			wantErr: ErrTestRequired,
		},
		{
			name: "already attempted",
			mutate: func(f *sessionFixture, req *model.StartSessionRequest) {
				f.subs.attempted = true
			},
			wantErr: ErrAlreadyAttempted,
		},
		{
			name: "invalid retest key",
			mutate: func(f *sessionFixture, req *model.StartSessionRequest) {
				req.RetestKey = "NOPE1234"
			},
			wantErr: ErrRetestKeyInvalid,
		},
		{
			name: "no questions",
			mutate: func(f *sessionFixture, req *model.StartSessionRequest) {
				f.svc.questions.(*fakeQuestionStore).questions = nil
			},
			wantErr: ErrNoQuestions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			req := f.startRequest()
			tt.mutate(f, req)
			if _, err := f.svc.Start(context.Background(), req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Start error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpiredAccessCode(t *testing.T) {
	f := newSessionFixture(t)
	slots := f.svc.slots.slots.(*memSlotStore)
	slots.codes[0].ValidUntil = testClock.Add(-time.Minute)

	_, err := f.svc.Start(context.Background(), f.startRequest())
	if !errors.Is(err, ErrAccessCodeExpired) {
		t.Errorf("Start error = %v, want ErrAccessCodeExpired", err)
	}
}

func TestSaveAnswerAndState(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.start(t)
	ctx := context.Background()

	if err := f.svc.SaveAnswer(ctx, sess.ID, f.q1.ID, []string{"4"}); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}
	if got := f.dispatch.saved[f.q1.ID]; len(got) != 1 || got[0] != "4" {
		t.Errorf("autosave mirror = %v, want [4]", got)
	}

	if err := f.svc.SaveAnswer(ctx, sess.ID, uuid.New(), []string{"x"}); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("foreign question error = %v, want ErrUnknownQuestion", err)
	}

	state, err := f.svc.State(ctx, sess.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.RemainingSeconds != 3600 {
		t.Errorf("remaining = %d, want 3600", state.RemainingSeconds)
	}
	if got := state.Answers[f.q1.ID.String()]; len(got) != 1 || got[0] != "4" {
		t.Errorf("state answers = %v, want q1 -> [4]", state.Answers)
	}
	if state.Submitted {
		t.Error("state reports submitted before submit")
	}
}

func TestStateRecoversAutosavedAnswers(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.start(t)
	ctx := context.Background()

	// q2 exists only in the autosave cache; the cache also carries junk
	// that must not leak into the session.
	f.dispatch.cached[f.q2.ID.String()] = []string{"Paris"}
	f.dispatch.cached[uuid.NewString()] = []string{"stray"}
	f.dispatch.cached["not-a-uuid"] = []string{"junk"}

	// The in-memory answer for q1 wins over a stale cached one.
	if err := f.svc.SaveAnswer(ctx, sess.ID, f.q1.ID, []string{"4"}); err != nil {
		t.Fatal(err)
	}
	f.dispatch.cached[f.q1.ID.String()] = []string{"3"}

	state, err := f.svc.State(ctx, sess.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if got := state.Answers[f.q2.ID.String()]; len(got) != 1 || got[0] != "Paris" {
		t.Errorf("cached q2 answer not recovered: %v", state.Answers)
	}
	if got := state.Answers[f.q1.ID.String()]; len(got) != 1 || got[0] != "4" {
		t.Errorf("in-memory q1 answer overridden by cache: %v", got)
	}
	if len(state.Answers) != 2 {
		t.Errorf("answers = %v, want exactly q1 and q2", state.Answers)
	}

	// The recovered answer reaches grading.
	sub, err := f.svc.Submit(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Score != 5 || sub.CorrectCount != 2 {
		t.Errorf("score=%v correct=%d, want 5/2 with the recovered answer graded", sub.Score, sub.CorrectCount)
	}
}

func TestEvictDropsSubmittedSession(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.start(t)
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Result(sess.ID); err != nil {
		t.Fatalf("Result before eviction: %v", err)
	}

	f.svc.evict(sess.ID)
	if _, err := f.svc.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after eviction = %v, want ErrSessionNotFound", err)
	}
	// Idempotent; a second tick is harmless.
	f.svc.evict(sess.ID)

	// The persisted submission is untouched.
	if len(f.subs.subs) != 1 {
		t.Errorf("persisted submissions = %d, want 1", len(f.subs.subs))
	}
}

func TestSubmitGradesAndIsIdempotent(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.start(t)
	ctx := context.Background()

	if err := f.svc.SaveAnswer(ctx, sess.ID, f.q1.ID, []string{"4"}); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.SaveAnswer(ctx, sess.ID, f.q2.ID, []string{" paris "}); err != nil {
		t.Fatal(err)
	}

	sub, err := f.svc.Submit(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Score != 5 || sub.CorrectCount != 2 || sub.WrongCount != 0 {
		t.Errorf("score=%v correct=%d wrong=%d, want 5/2/0", sub.Score, sub.CorrectCount, sub.WrongCount)
	}
	if sub.Percentage != 100 {
		t.Errorf("percentage = %v, want 100", sub.Percentage)
	}
	if sub.Status != model.SubmissionStatusCompleted {
		t.Errorf("status = %s, want completed", sub.Status)
	}
	if sub.MalpracticeDetected {
		t.Error("clean run flagged as malpractice")
	}
	if !strings.HasPrefix(sub.StudentCode, sess.StudentCode+"-") {
		t.Errorf("submitted code %q does not extend session code %q", sub.StudentCode, sess.StudentCode)
	}
	if f.subs.answerRows != 2 {
		t.Errorf("answer rows = %d, want 2", f.subs.answerRows)
	}
	if f.dispatch.cleared != 1 {
		t.Errorf("autosave cleared %d times, want 1", f.dispatch.cleared)
	}

	// Second submit returns the same result without another insert.
	again, err := f.svc.Submit(ctx, sess.ID)
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if again != sub {
		t.Error("second submit returned a different submission")
	}
	if f.subs.createCalls != 1 {
		t.Errorf("create calls = %d, want 1", f.subs.createCalls)
	}
	if err := f.svc.SaveAnswer(ctx, sess.ID, f.q1.ID, []string{"3"}); !errors.Is(err, ErrSessionSubmitted) {
		t.Errorf("post-submit save error = %v, want ErrSessionSubmitted", err)
	}
}

func TestSubmitRetriesOnStudentCodeConflict(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.start(t)
	f.subs.dupFailures = 2

	sub, err := f.svc.Submit(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if f.subs.createCalls != 3 {
		t.Errorf("create calls = %d, want 3 (two conflicts then success)", f.subs.createCalls)
	}
	if sub.Status != model.SubmissionStatusCompleted {
		t.Errorf("status = %s, want completed", sub.Status)
	}
}

func TestSubmitExhaustsRetriesThenRecovers(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.start(t)
	ctx := context.Background()
	f.subs.dupFailures = 3

	if _, err := f.svc.Submit(ctx, sess.ID); !errors.Is(err, ErrStudentCodeConflict) {
		t.Fatalf("Submit error = %v, want ErrStudentCodeConflict", err)
	}
	if len(f.subs.subs) != 0 {
		t.Fatalf("submissions persisted despite exhaustion: %d", len(f.subs.subs))
	}

	// The gate must be released so a manual retry can still succeed.
	sub, err := f.svc.Submit(ctx, sess.ID)
	if err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if sub.Status != model.SubmissionStatusCompleted {
		t.Errorf("status = %s, want completed", sub.Status)
	}
}

func TestViolationThresholds(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.start(t)
	ctx := context.Background()

	// Two violations of any kind are tolerated.
	st, err := f.svc.RecordViolation(ctx, sess.ID, ViolationTabSwitch)
	if err != nil || st.Terminated {
		t.Fatalf("violation 1: err=%v terminated=%v", err, st.Terminated)
	}
	st, err = f.svc.RecordViolation(ctx, sess.ID, ViolationTabSwitch)
	if err != nil || st.Terminated {
		t.Fatalf("violation 2: err=%v terminated=%v", err, st.Terminated)
	}

	// The third one, regardless of kind, terminates the session.
	st, err = f.svc.RecordViolation(ctx, sess.ID, ViolationFullscreenExit)
	if err != nil {
		t.Fatalf("violation 3: %v", err)
	}
	if !st.Terminated || st.TotalCount != 3 {
		t.Errorf("violation 3 status = %+v, want terminated with total 3", st)
	}

	if len(f.subs.subs) != 1 {
		t.Fatalf("submissions = %d, want 1 forced submission", len(f.subs.subs))
	}
	sub := f.subs.subs[0]
	if sub.Status != model.SubmissionStatusAutoSubmit {
		t.Errorf("status = %s, want auto_submitted", sub.Status)
	}
	if !sub.MalpracticeDetected {
		t.Error("forced submission not flagged as malpractice")
	}
	if sub.TabSwitchCount != 2 {
		t.Errorf("tab switch count = %d, want 2 (fullscreen exits counted separately)", sub.TabSwitchCount)
	}
	if len(f.dispatch.violations) != 3 {
		t.Errorf("queued violation events = %d, want 3", len(f.dispatch.violations))
	}
	last := f.dispatch.events[len(f.dispatch.events)-1]
	if last.Type != queue.MonitorEventTerminated {
		t.Errorf("last monitor event = %s, want terminated_malpractice", last.Type)
	}
}

func TestThirdFullscreenExitTerminates(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.start(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		st, err := f.svc.RecordViolation(ctx, sess.ID, ViolationFullscreenExit)
		if err != nil || st.Terminated {
			t.Fatalf("fullscreen exit %d: err=%v terminated=%v", i+1, err, st.Terminated)
		}
	}
	st, err := f.svc.RecordViolation(ctx, sess.ID, ViolationFullscreenExit)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Terminated || st.FullscreenExitCount != 3 {
		t.Errorf("status = %+v, want terminated with 3 fullscreen exits", st)
	}
}

func TestSingleViolationFlagsMalpractice(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.start(t)
	ctx := context.Background()

	if _, err := f.svc.RecordViolation(ctx, sess.ID, ViolationTabSwitch); err != nil {
		t.Fatal(err)
	}
	sub, err := f.svc.Submit(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !sub.MalpracticeDetected {
		t.Error("submission with one tab switch not flagged as malpractice")
	}
	if sub.Status != model.SubmissionStatusCompleted {
		t.Errorf("status = %s, want completed (manual submit)", sub.Status)
	}
}

func TestDeadlineExpiryAutoSubmits(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.start(t)

	f.svc.expire(sess.ID)

	if len(f.subs.subs) != 1 {
		t.Fatalf("submissions = %d, want 1", len(f.subs.subs))
	}
	sub := f.subs.subs[0]
	if sub.Status != model.SubmissionStatusAutoSubmit {
		t.Errorf("status = %s, want auto_submitted", sub.Status)
	}
	if sub.MalpracticeDetected {
		t.Error("timeout submission flagged as malpractice without violations")
	}
}

func TestRetestKeyFlow(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.subs.attempted = true

	key := &model.RetestKey{
		TestID:      f.testID,
		SlotNumber:  SlotNumberAt(testClock),
		StudentName: "Ali Khan",
		Key:         "RTK12345",
		ExpiresAt:   testClock.Add(24 * time.Hour),
	}
	if err := f.keys.Create(ctx, key); err != nil {
		t.Fatal(err)
	}

	req := f.startRequest()
	req.RetestKey = "RTK12345"
	sess, err := f.svc.Start(ctx, req)
	if err != nil {
		t.Fatalf("Start with retest key: %v", err)
	}

	sub, err := f.svc.Submit(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.RetestKeyUsed == nil || *sub.RetestKeyUsed != "RTK12345" {
		t.Errorf("retest key used = %v, want RTK12345", sub.RetestKeyUsed)
	}

	var actions []queue.RetestAction
	for _, task := range f.dispatch.retestTasks {
		actions = append(actions, task.Action)
	}
	if len(actions) != 2 || actions[0] != queue.ActionInvalidatePrevious || actions[1] != queue.ActionConsumeKey {
		t.Errorf("retest tasks = %v, want [invalidate_previous consume_key]", actions)
	}
}

func TestGlobalRetestKeyResolvesTest(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	key := &model.RetestKey{
		TestID:      f.testID,
		SlotNumber:  SlotNumberAt(testClock),
		StudentName: "Ali Khan",
		Key:         "RTKGLOBL",
		ExpiresAt:   testClock.Add(24 * time.Hour),
	}
	if err := f.keys.Create(ctx, key); err != nil {
		t.Fatal(err)
	}

	req := f.startRequest()
	req.TestID = nil
	req.AccessCode = ""
	req.RetestKey = "RTKGLOBL"

	sess, err := f.svc.Start(ctx, req)
	if err != nil {
		t.Fatalf("Start with global key: %v", err)
	}
	if sess.Test.ID != f.testID {
		t.Errorf("resolved test = %s, want %s", sess.Test.ID, f.testID)
	}
}

func TestMasterRetestKey(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.subs.attempted = true

	req := f.startRequest()
	req.RetestKey = "MASTERKEY"
	sess, err := f.svc.Start(ctx, req)
	if err != nil {
		t.Fatalf("Start with master key: %v", err)
	}

	sub, err := f.svc.Submit(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.RetestKeyUsed != nil {
		t.Errorf("master key recorded on submission: %v", *sub.RetestKeyUsed)
	}

	// Previous attempt still gets invalidated; no key gets consumed.
	var actions []queue.RetestAction
	for _, task := range f.dispatch.retestTasks {
		actions = append(actions, task.Action)
	}
	if len(actions) != 1 || actions[0] != queue.ActionInvalidatePrevious {
		t.Errorf("retest tasks = %v, want [invalidate_previous]", actions)
	}
}
