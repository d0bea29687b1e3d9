package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/grading"
	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/aznacademy/aznexam-backend/internal/queue"
	"github.com/aznacademy/aznexam-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// submitCodeAttempts bounds the student-code regenerate-and-retry loop on
// unique-constraint conflicts at submission insert.
const submitCodeAttempts = 3

// sessionRetention keeps a submitted session in the registry long enough
// for the client to fetch its result; after that the entry is dropped so a
// full exam day does not accumulate every attempt in memory.
const sessionRetention = 30 * time.Minute

type submitMode int

const (
	submitManual submitMode = iota
	submitTimeout
	submitViolation
)

// TestStore is the test read surface of the session service.
type TestStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
}

// QuestionStore is the question read surface of the session service.
type QuestionStore interface {
	ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error)
}

// SubmissionStore is the write surface of the submit path.
// *repository.SubmissionRepository satisfies it.
type SubmissionStore interface {
	CreateWithAnswers(ctx context.Context, s *model.Submission, answers []model.Answer) error
	ExistsCompleted(ctx context.Context, testID uuid.UUID, slotNumber int, studentName, fatherName string) (bool, error)
	CountByTestSlotClass(ctx context.Context, testID uuid.UUID, slotNumber int, class string) (int, error)
}

// Dispatcher decouples best-effort side effects (retest bookkeeping,
// violation persistence, autosave, monitor fan-out) from the critical
// submit path. *queue.RedisDispatcher satisfies it.
type Dispatcher interface {
	EnqueueRetestTask(ctx context.Context, task queue.RetestTask) error
	EnqueueViolation(ctx context.Context, ev queue.ViolationEvent) error
	SaveAnswer(ctx context.Context, sessionID, questionID uuid.UUID, answer []string) error
	LoadAnswers(ctx context.Context, sessionID uuid.UUID) (map[string][]string, error)
	ClearAnswers(ctx context.Context, sessionID uuid.UUID) error
	PublishMonitorEvent(ctx context.Context, ev queue.MonitorEvent) error
}

// SessionService orchestrates the test-taking state machine: entry
// validation, paper shuffling, the countdown, violation tracking, and the
// idempotent submit sequence.
type SessionService struct {
	tests       TestStore
	questions   QuestionStore
	slots       *SlotService
	codes       *AccessCodeService
	retests     *RetestService
	submissions SubmissionStore
	dispatch    Dispatcher
	log         zerolog.Logger
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*TestSession
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	tests TestStore,
	questions QuestionStore,
	slots *SlotService,
	codes *AccessCodeService,
	retests *RetestService,
	submissions SubmissionStore,
	dispatch Dispatcher,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		tests:       tests,
		questions:   questions,
		slots:       slots,
		codes:       codes,
		retests:     retests,
		submissions: submissions,
		dispatch:    dispatch,
		log:         log.With().Str("component", "session_service").Logger(),
		now:         time.Now,
		sessions:    make(map[uuid.UUID]*TestSession),
	}
}

// Start validates entry (access code, optional retest key, duplicate
// attempt check), loads and shuffles the paper, and arms the deadline
// timer. The returned session is Active.
func (s *SessionService) Start(ctx context.Context, req *model.StartSessionRequest) (*TestSession, error) {
	var grant *RetestGrant
	testID := req.TestID

	if req.RetestKey != "" {
		g, err := s.retests.Validate(ctx, req.RetestKey, testID)
		if err != nil {
			return nil, err
		}
		grant = g
		if testID == nil && grant.Key != nil {
			id := grant.Key.TestID
			testID = &id
		}
	}
	if testID == nil {
		return nil, ErrTestRequired
	}

	test, err := s.tests.GetByID(ctx, *testID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	if !test.IsPublished {
		return nil, ErrTestNotPublished
	}

	// Slot binding. The slot number validated from the access code is
	// authoritative; only the key-resolved entry path (no code entered)
	// falls back to the allocator's current slot.
	var slotNumber int
	switch {
	case req.AccessCode != "":
		v, err := s.codes.ValidateAccessCode(ctx, test.ID, req.AccessCode)
		if err != nil {
			return nil, err
		}
		slotNumber = v.SlotNumber
	case grant != nil && grant.Key != nil:
		// Key alone is enough on the global-lookup convenience path.
	default:
		return nil, ErrAccessCodeRequired
	}

	slot, err := s.slots.GetOrCreateSlot(ctx, test.ID)
	if err != nil {
		return nil, err
	}
	if slotNumber == 0 {
		slotNumber = slot.SlotNumber
	}

	// The duplicate-attempt gate only applies when no retest override is
	// in effect; a valid key means the prior attempt gets invalidated at
	// submit instead of blocking entry.
	if grant == nil {
		attempted, err := s.submissions.ExistsCompleted(ctx, test.ID, slotNumber, req.StudentName, req.FatherName)
		if err != nil {
			return nil, fmt.Errorf("check attempted: %w", err)
		}
		if attempted {
			return nil, ErrAlreadyAttempted
		}
	}

	serial, err := s.submissions.CountByTestSlotClass(ctx, test.ID, slotNumber, req.ClassApplyingFor)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}

	questions, err := s.questions.ListByTest(ctx, test.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	now := s.now()
	sess := &TestSession{
		ID:               uuid.New(),
		Test:             test,
		Slot:             slot,
		SlotNumber:       slotNumber,
		StudentName:      req.StudentName,
		FatherName:       req.FatherName,
		ClassApplyingFor: req.ClassApplyingFor,
		StudentCode:      BuildStudentCode(req.ClassApplyingFor, req.StudentName, serial+1),
		Questions:        shufflePaper(questions),
		StartedAt:        now,
		Deadline:         now.Add(time.Duration(test.DurationMinutes) * time.Minute),
		grant:            grant,
		phase:            phaseActive,
		answers:          make(map[uuid.UUID][]string),
	}
	sess.timer = time.AfterFunc(sess.Deadline.Sub(now), func() {
		s.expire(sess.ID)
	})

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.publish(ctx, queue.MonitorEvent{
		Type:        queue.MonitorEventStarted,
		TestID:      test.ID,
		SessionID:   sess.ID,
		StudentName: sess.StudentName,
		StudentCode: sess.StudentCode,
		Timestamp:   now.Unix(),
	})

	return sess, nil
}

// Get returns a live session by ID.
func (s *SessionService) Get(sessionID uuid.UUID) (*TestSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// SaveAnswer captures one answer in session memory and mirrors it to the
// autosave cache. Cache failures are logged, never surfaced; the in-memory
// copy is what grading reads.
func (s *SessionService) SaveAnswer(ctx context.Context, sessionID, questionID uuid.UUID, answer []string) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.phase != phaseActive {
		sess.mu.Unlock()
		return ErrSessionSubmitted
	}
	if !sess.hasQuestion(questionID) {
		sess.mu.Unlock()
		return ErrUnknownQuestion
	}
	sess.answers[questionID] = answer
	sess.mu.Unlock()

	if err := s.dispatch.SaveAnswer(ctx, sessionID, questionID, answer); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Answer autosave failed")
	}
	return nil
}

// RecordViolation increments the counter for the given kind and, past the
// thresholds, force-submits the session with the malpractice flag. Counters
// mutate synchronously here, independent of any pending I/O.
func (s *SessionService) RecordViolation(ctx context.Context, sessionID uuid.UUID, kind ViolationKind) (*ViolationStatus, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.phase != phaseActive {
		status := &ViolationStatus{
			TabSwitchCount:      sess.tabSwitches,
			FullscreenExitCount: sess.fullscreenExits,
			TotalCount:          sess.tabSwitches + sess.fullscreenExits,
			Terminated:          true,
		}
		sess.mu.Unlock()
		return status, nil
	}

	switch kind {
	case ViolationFullscreenExit:
		sess.fullscreenExits++
	default:
		sess.tabSwitches++
	}
	tabs, exits := sess.tabSwitches, sess.fullscreenExits
	total := tabs + exits
	forced := exits > maxFullscreenExits || total > maxTotalViolations
	sess.mu.Unlock()

	count := tabs
	if kind == ViolationFullscreenExit {
		count = exits
	}
	if err := s.dispatch.EnqueueViolation(ctx, queue.ViolationEvent{
		SessionID:   sess.ID,
		TestID:      sess.Test.ID,
		StudentName: sess.StudentName,
		StudentCode: sess.StudentCode,
		Kind:        string(kind),
		Count:       count,
		Timestamp:   s.now().Unix(),
	}); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Violation enqueue failed")
	}
	s.publish(ctx, queue.MonitorEvent{
		Type:        queue.MonitorEventViolation,
		TestID:      sess.Test.ID,
		SessionID:   sess.ID,
		StudentName: sess.StudentName,
		StudentCode: sess.StudentCode,
		Detail:      string(kind),
		Timestamp:   s.now().Unix(),
	})

	if forced {
		if _, err := s.submit(ctx, sess, submitViolation); err != nil && !errors.Is(err, ErrSubmitInFlight) {
			s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Violation auto-submit failed")
		}
	}

	return &ViolationStatus{
		TabSwitchCount:      tabs,
		FullscreenExitCount: exits,
		TotalCount:          total,
		Terminated:          forced,
	}, nil
}

// State returns the recovery snapshot for a reconnecting client. The
// session's answers are reconciled against the autosave hash first, so an
// answer that survived only in the cache flows back into the session and
// from there into grading. In-memory answers win on conflict.
func (s *SessionService) State(ctx context.Context, sessionID uuid.UUID) (*SessionState, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	cached, err := s.dispatch.LoadAnswers(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Autosave load failed")
		cached = nil
	}

	remaining := int(sess.Deadline.Sub(s.now()).Seconds())
	if remaining < 0 {
		remaining = 0
	}

	sess.mu.Lock()
	if sess.phase == phaseActive {
		for qid, a := range cached {
			id, err := uuid.Parse(qid)
			if err != nil {
				continue
			}
			if _, ok := sess.answers[id]; ok {
				continue
			}
			if sess.hasQuestion(id) {
				sess.answers[id] = a
			}
		}
	}
	answers := make(map[string][]string, len(sess.answers))
	for qid, a := range sess.answers {
		answers[qid.String()] = a
	}
	state := &SessionState{
		RemainingSeconds:    remaining,
		Answers:             answers,
		TabSwitchCount:      sess.tabSwitches,
		FullscreenExitCount: sess.fullscreenExits,
		Submitted:           sess.phase == phaseSubmitted,
	}
	sess.mu.Unlock()

	return state, nil
}

// Submit performs a manual submission.
func (s *SessionService) Submit(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, sess, submitManual)
}

// Result returns the submission of a submitted session.
func (s *SessionService) Result(sessionID uuid.UUID) (*model.Submission, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sub := sess.submission
	sess.mu.Unlock()

	if sub == nil {
		return nil, ErrSessionNotFound
	}
	return sub, nil
}

// evict drops a session from the registry once its retention window ends.
// Idempotent; the result endpoint answers 404 afterwards and the persisted
// submission remains reachable through the admin surface.
func (s *SessionService) evict(sessionID uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// expire is the deadline timer callback: a non-cancelable auto-submit.
func (s *SessionService) expire(sessionID uuid.UUID) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return
	}
	if _, err := s.submit(context.Background(), sess, submitTimeout); err != nil && !errors.Is(err, ErrSubmitInFlight) {
		s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Timeout auto-submit failed")
	}
}

// submit runs the submission sequence. The phase flag is the idempotency
// gate: only one caller proceeds past it at a time, and a call arriving
// after completion just gets the existing submission back.
func (s *SessionService) submit(ctx context.Context, sess *TestSession, mode submitMode) (*model.Submission, error) {
	// Step 1: gate, then freeze the latest answers and counters.
	sess.mu.Lock()
	switch sess.phase {
	case phaseSubmitting:
		sess.mu.Unlock()
		return nil, ErrSubmitInFlight
	case phaseSubmitted:
		sub := sess.submission
		sess.mu.Unlock()
		return sub, nil
	}
	sess.phase = phaseSubmitting
	answers := make(map[uuid.UUID][]string, len(sess.answers))
	for qid, a := range sess.answers {
		answers[qid] = a
	}
	tabs, exits := sess.tabSwitches, sess.fullscreenExits
	sess.mu.Unlock()

	// Step 2: evaluate every question against its captured answer.
	evals := make([]grading.Evaluation, 0, len(sess.Questions))
	answerRows := make([]model.Answer, 0, len(sess.Questions))
	for _, q := range sess.Questions {
		ans := answers[q.ID]
		ev := grading.Evaluate(q, ans)
		evals = append(evals, ev)
		answerRows = append(answerRows, model.Answer{
			QuestionID:    q.ID,
			StudentAnswer: ans,
			IsCorrect:     ev.IsCorrect,
			MarksAwarded:  ev.MarksAwarded,
		})
	}
	summary := grading.Tally(evals)

	// Step 3: malpractice flag.
	forced := mode == submitViolation
	malpractice := forced || tabs+exits > 0

	// Step 4: best-effort invalidation of the superseded attempt.
	if sess.grant != nil {
		if err := s.dispatch.EnqueueRetestTask(ctx, queue.RetestTask{
			Action:      queue.ActionInvalidatePrevious,
			TestID:      sess.Test.ID.String(),
			SlotNumber:  sess.SlotNumber,
			StudentName: sess.StudentName,
			FatherName:  sess.FatherName,
		}); err != nil {
			s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Invalidation enqueue failed")
		}
	}

	status := model.SubmissionStatusCompleted
	if mode != submitManual {
		status = model.SubmissionStatusAutoSubmit
	}
	var retestKeyUsed *string
	if sess.grant != nil && sess.grant.Key != nil {
		retestKeyUsed = &sess.grant.Key.Key
	}

	sub := &model.Submission{
		TestID:              sess.Test.ID,
		StudentName:         sess.StudentName,
		FatherName:          sess.FatherName,
		ClassApplyingFor:    sess.ClassApplyingFor,
		SlotNumber:          sess.SlotNumber,
		TabSwitchCount:      tabs,
		TimeTakenSeconds:    int(s.now().Sub(sess.StartedAt).Seconds()),
		Score:               summary.Score,
		TotalMarks:          sess.Test.TotalMarks,
		Percentage:          grading.Percentage(summary.Score, sess.Test.TotalMarks),
		CorrectCount:        summary.CorrectCount,
		WrongCount:          summary.WrongCount,
		NeedsManualReview:   summary.NeedsManualReview,
		MalpracticeDetected: malpractice,
		Status:              status,
		RetestKeyUsed:       retestKeyUsed,
	}

	// Step 5: insert with a fresh code suffix per attempt; retry only on
	// the unique-constraint conflict, sequentially, three attempts total.
	var insertErr error
	for attempt := 1; attempt <= submitCodeAttempts; attempt++ {
		sub.StudentCode = sess.StudentCode + "-" + submitSuffix(s.now())
		insertErr = s.submissions.CreateWithAnswers(ctx, sub, answerRows)
		if insertErr == nil {
			break
		}
		if !errors.Is(insertErr, repository.ErrDuplicateStudentCode) {
			break
		}
	}
	if insertErr != nil {
		// Release the gate so the student can retry after a hard failure.
		sess.mu.Lock()
		sess.phase = phaseActive
		sess.mu.Unlock()
		if errors.Is(insertErr, repository.ErrDuplicateStudentCode) {
			return nil, ErrStudentCodeConflict
		}
		return nil, fmt.Errorf("persist submission: %w", insertErr)
	}

	// Step 6: best-effort key consumption, linked to the new submission.
	if sess.grant != nil && sess.grant.Key != nil {
		if err := s.dispatch.EnqueueRetestTask(ctx, queue.RetestTask{
			Action:       queue.ActionConsumeKey,
			RetestKeyID:  sess.grant.Key.ID.String(),
			SubmissionID: sub.ID.String(),
		}); err != nil {
			s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Key consumption enqueue failed")
		}
	}

	// Terminal transition; stop the countdown, drop the autosave cache,
	// and rearm the timer to evict the registry entry after retention.
	sess.mu.Lock()
	sess.phase = phaseSubmitted
	sess.submission = sub
	if sess.timer != nil {
		sess.timer.Stop()
	}
	sess.timer = time.AfterFunc(sessionRetention, func() {
		s.evict(sess.ID)
	})
	sess.mu.Unlock()

	if err := s.dispatch.ClearAnswers(ctx, sess.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Autosave clear failed")
	}

	eventType := queue.MonitorEventSubmitted
	if forced {
		eventType = queue.MonitorEventTerminated
	}
	s.publish(ctx, queue.MonitorEvent{
		Type:        eventType,
		TestID:      sess.Test.ID,
		SessionID:   sess.ID,
		StudentName: sess.StudentName,
		StudentCode: sub.StudentCode,
		Timestamp:   s.now().Unix(),
	})

	return sub, nil
}

func (s *SessionService) publish(ctx context.Context, ev queue.MonitorEvent) {
	if err := s.dispatch.PublishMonitorEvent(ctx, ev); err != nil {
		s.log.Debug().Err(err).Msg("Monitor publish failed")
	}
}
