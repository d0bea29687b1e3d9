package service

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
)

// ViolationKind enumerates the tracked anti-cheat violations.
type ViolationKind string

const (
	ViolationTabSwitch      ViolationKind = "tab_switch"
	ViolationFullscreenExit ViolationKind = "fullscreen_exit"
)

// Auto-submit fires on the 3rd fullscreen exit, or on the 3rd violation of
// any tracked kind combined.
const (
	maxFullscreenExits = 2
	maxTotalViolations = 2
)

type sessionPhase int

const (
	phaseActive sessionPhase = iota
	phaseSubmitting
	phaseSubmitted
)

// TestSession is one live attempt: shuffled paper, captured answers,
// violation counters, and the deadline timer. All mutable state is guarded
// by mu and changes only through SessionService transition methods, so the
// submit path always reads current values rather than stale captures.
type TestSession struct {
	ID               uuid.UUID
	Test             *model.Test
	Slot             *model.Slot
	SlotNumber       int // authoritative binding from access-code validation
	StudentName      string
	FatherName       string
	ClassApplyingFor string
	StudentCode      string
	Questions        []model.Question
	StartedAt        time.Time
	Deadline         time.Time

	grant *RetestGrant

	mu              sync.Mutex
	phase           sessionPhase
	answers         map[uuid.UUID][]string
	tabSwitches     int
	fullscreenExits int
	timer           *time.Timer
	submission      *model.Submission
}

// hasQuestion reports whether the question belongs to this session's paper.
func (s *TestSession) hasQuestion(questionID uuid.UUID) bool {
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return true
		}
	}
	return false
}

// shufflePaper returns a per-session shuffled copy of the question list
// (Fisher–Yates, uniform). Option lists of choice questions are shuffled
// too; true/false keeps its fixed order. Nothing here is persisted and
// there is no reproducibility requirement, so the default PRNG is fine.
func shufflePaper(questions []model.Question) []model.Question {
	shuffled := make([]model.Question, len(questions))
	copy(shuffled, questions)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for i := range shuffled {
		if !shuffled[i].Type.HasOptions() {
			continue
		}
		opts := make([]string, len(shuffled[i].Options))
		copy(opts, shuffled[i].Options)
		rand.Shuffle(len(opts), func(a, b int) {
			opts[a], opts[b] = opts[b], opts[a]
		})
		shuffled[i].Options = opts
	}

	return shuffled
}

// SessionView is what the client receives when a session starts.
type SessionView struct {
	SessionID       uuid.UUID                  `json:"session_id"`
	TestID          uuid.UUID                  `json:"test_id"`
	Title           string                     `json:"title"`
	DurationMinutes int                        `json:"duration_minutes"`
	TotalMarks      float64                    `json:"total_marks"`
	SlotNumber      int                        `json:"slot_number"`
	StudentCode     string                     `json:"student_code"`
	StartedAt       time.Time                  `json:"started_at"`
	Deadline        time.Time                  `json:"deadline"`
	Questions       []model.QuestionForStudent `json:"questions"`
}

// View builds the student-facing projection of the session, with correct
// answers stripped from every question.
func (s *TestSession) View() *SessionView {
	questions := make([]model.QuestionForStudent, 0, len(s.Questions))
	for _, q := range s.Questions {
		questions = append(questions, model.QuestionForStudent{
			ID:      q.ID,
			Number:  q.Number,
			Type:    q.Type,
			Text:    q.Text,
			Options: q.Options,
			Marks:   q.Marks,
		})
	}
	return &SessionView{
		SessionID:       s.ID,
		TestID:          s.Test.ID,
		Title:           s.Test.Title,
		DurationMinutes: s.Test.DurationMinutes,
		TotalMarks:      s.Test.TotalMarks,
		SlotNumber:      s.SlotNumber,
		StudentCode:     s.StudentCode,
		StartedAt:       s.StartedAt,
		Deadline:        s.Deadline,
		Questions:       questions,
	}
}

// SessionState is the recovery snapshot returned to a reconnecting client.
type SessionState struct {
	RemainingSeconds    int                 `json:"remaining_seconds"`
	Answers             map[string][]string `json:"answers"`
	TabSwitchCount      int                 `json:"tab_switch_count"`
	FullscreenExitCount int                 `json:"fullscreen_exit_count"`
	Submitted           bool                `json:"submitted"`
}

// ViolationStatus reports the counters after recording a violation, and
// whether the session was force-terminated by it.
type ViolationStatus struct {
	TabSwitchCount      int  `json:"tab_switch_count"`
	FullscreenExitCount int  `json:"fullscreen_exit_count"`
	TotalCount          int  `json:"total_count"`
	Terminated          bool `json:"terminated"`
}
