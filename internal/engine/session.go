package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/score"
	"trivia-session-service/internal/store"
)

// Status is the lifecycle state of a session.
//
// loading -> playing <-> paused -> completed (terminal). A session whose
// selection matches zero published questions goes straight from loading
// to completed.
type Status string

const (
	StatusLoading   Status = "loading"
	StatusPlaying   Status = "playing"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// TimerMode selects how the countdown behaves. The two modes are
// mutually exclusive and fixed at session start.
type TimerMode string

const (
	// TimerOff disables the countdown entirely.
	TimerOff TimerMode = ""
	// TimerTotal runs one countdown for the whole session; expiry submits.
	TimerTotal TimerMode = "total"
	// TimerPerQuestion resets the countdown whenever the current question
	// changes; expiry auto-advances, or submits on the last question.
	TimerPerQuestion TimerMode = "per-question"
)

// ParseTimerMode maps a raw selection string to a TimerMode.
func ParseTimerMode(raw string) (TimerMode, bool) {
	switch TimerMode(raw) {
	case TimerOff, TimerTotal, TimerPerQuestion:
		return TimerMode(raw), true
	}
	return TimerOff, false
}

// DefaultBudget returns the stock per-level countdown in seconds, used
// when no explicit time limit and no config override apply.
func DefaultBudget(level domain.Level) int {
	switch level {
	case domain.LevelEasy:
		return 30
	case domain.LevelMedium:
		return 45
	case domain.LevelHard:
		return 60
	case domain.LevelExpert:
		return 90
	default:
		return 120
	}
}

// Params is the selection that starts a session.
type Params struct {
	Subject     string
	SubjectName string
	Chapter     string
	Level       domain.Level
	TimeLimit   int // seconds; overrides the level budget when > 0
	TimerMode   TimerMode
}

// Recorder persists a completed session and recomputes the derived
// aggregates.
type Recorder interface {
	SaveQuizResult(ctx context.Context, sess domain.QuizSession) error
}

// QuestionSource supplies the session's questions.
type QuestionSource interface {
	LoadInitial(ctx context.Context, subject, chapter string, level domain.Level) ([]domain.Question, error)
	LoadAdditional(ctx context.Context, subject, chapter string, level domain.Level, excludeIDs []int, count int) ([]domain.Question, error)
}

// Deps are the collaborators a session runs against.
type Deps struct {
	Questions QuestionSource
	Store     store.KV
	Recorder  Recorder
	Scheduler Scheduler
	// Budget resolves the per-level countdown in seconds; nil falls back
	// to DefaultBudget.
	Budget func(domain.Level) int
}

// State is a point-in-time view of a session, safe to hand to
// subscribers and transports.
type State struct {
	Session       domain.QuizSession `json:"session"`
	Index         int                `json:"index"`
	TimeRemaining int                `json:"timeRemaining"`
	Status        Status             `json:"status"`
	NoContent     bool               `json:"noContent"`
}

// Session is the quiz state machine. All mutations are synchronous,
// guarded by one mutex, and followed by a mirror write of the session
// document to the durable store. Once completed, every mutation becomes
// a no-op.
type Session struct {
	params Params
	deps   Deps
	now    func() time.Time

	mu            sync.Mutex
	sess          domain.QuizSession
	index         int
	timeRemaining int
	status        Status
	noContent     bool
	subscribers   map[chan State]struct{}
}

func New(params Params, deps Deps) *Session {
	return NewWithClock(params, deps, time.Now)
}

// NewWithClock allows deterministic timestamps in tests.
func NewWithClock(params Params, deps Deps, now func() time.Time) *Session {
	return &Session{
		params:      params,
		deps:        deps,
		now:         now,
		status:      StatusLoading,
		subscribers: make(map[chan State]struct{}),
	}
}

// ID returns the session's UUID. Empty until Start has run.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.ID
}

// Start loads the initial question batch and begins play. A selection
// with no published questions completes immediately; callers can
// distinguish that terminal state via State.NoContent.
func (s *Session) Start(ctx context.Context) error {
	questions, err := s.deps.Questions.LoadInitial(ctx, s.params.Subject, s.params.Chapter, s.params.Level)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusLoading {
		return nil
	}

	now := s.now()
	s.sess = domain.QuizSession{
		ID:          uuid.NewString(),
		Subject:     s.params.Subject,
		SubjectName: s.params.SubjectName,
		Chapter:     s.params.Chapter,
		Level:       s.params.Level,
		Questions:   questions,
		Answers:     make(map[int]string),
		MaxScore:    len(questions),
		StartedAt:   now,
		Status:      domain.SessionInProgress,
	}

	if len(questions) == 0 {
		s.noContent = true
		s.status = StatusCompleted
		s.sess.Status = domain.SessionCompleted
		completed := now
		s.sess.CompletedAt = &completed
		s.broadcastLocked()
		return nil
	}

	s.status = StatusPlaying
	if s.timerEnabled() {
		s.timeRemaining = s.budget()
		s.deps.Scheduler.Start(time.Second, s.tick)
	}
	s.persistLocked(ctx)
	s.broadcastLocked()
	return nil
}

// SelectAnswer records an option for the current question. Re-answering
// overwrites the earlier choice; single-selection is a UI concern, not
// enforced here.
func (s *Session) SelectAnswer(ctx context.Context, option string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutableLocked() {
		return
	}
	current := s.sess.Questions[s.index]
	s.sess.Answers[current.ID] = option
	s.sess.Score = score.Calculate(s.sess.Questions, s.sess.Answers)
	s.persistLocked(ctx)
	s.broadcastLocked()
}

// GoToNext moves to the next question, clamped at the last one.
func (s *Session) GoToNext(ctx context.Context) {
	s.navigate(ctx, s.index+1)
}

// GoToPrevious moves to the previous question, clamped at the first one.
// Answers already given stay recorded.
func (s *Session) GoToPrevious(ctx context.Context) {
	s.navigate(ctx, s.index-1)
}

func (s *Session) navigate(ctx context.Context, target int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutableLocked() {
		return
	}
	if target < 0 {
		target = 0
	}
	if last := len(s.sess.Questions) - 1; target > last {
		target = last
	}
	if target == s.index {
		return
	}
	s.index = target
	if s.params.TimerMode == TimerPerQuestion {
		s.timeRemaining = s.budget()
	}
	s.persistLocked(ctx)
	s.broadcastLocked()
}

// Extend appends up to n unseen questions to the session and raises
// MaxScore to match. No supply left means no change at all.
func (s *Session) Extend(ctx context.Context, n int) error {
	s.mu.Lock()
	if !s.mutableLocked() {
		s.mu.Unlock()
		return nil
	}
	exclude := make([]int, 0, len(s.sess.Questions))
	for _, q := range s.sess.Questions {
		exclude = append(exclude, q.ID)
	}
	s.mu.Unlock()

	more, err := s.deps.Questions.LoadAdditional(ctx, s.params.Subject, s.params.Chapter, s.params.Level, exclude, n)
	if err != nil {
		return err
	}
	if len(more) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutableLocked() {
		return nil
	}
	s.sess.Questions = append(s.sess.Questions, more...)
	s.sess.MaxScore = len(s.sess.Questions)
	s.sess.Score = score.Calculate(s.sess.Questions, s.sess.Answers)
	s.persistLocked(ctx)
	s.broadcastLocked()
	return nil
}

// Pause suspends the countdown. Only meaningful in a timed session;
// TimeRemaining is kept, not reset.
func (s *Session) Pause(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.timerEnabled() || s.status != StatusPlaying {
		return
	}
	s.status = StatusPaused
	s.deps.Scheduler.Stop()
	s.persistLocked(ctx)
	s.broadcastLocked()
}

// Resume continues a paused countdown from where it stopped.
func (s *Session) Resume(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.timerEnabled() || s.status != StatusPaused {
		return
	}
	s.status = StatusPlaying
	s.deps.Scheduler.Start(time.Second, s.tick)
	s.persistLocked(ctx)
	s.broadcastLocked()
}

// Submit finishes the session: stamps the time taken, appends the
// snapshot to history, and removes the in-progress mirror. Calling it
// again after completion is a no-op.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusCompleted || s.status == StatusLoading {
		return nil
	}
	return s.submitLocked(ctx)
}

func (s *Session) submitLocked(ctx context.Context) error {
	s.deps.Scheduler.Stop()

	now := s.now()
	s.status = StatusCompleted
	s.sess.Status = domain.SessionCompleted
	s.sess.TimeTaken = int(now.Sub(s.sess.StartedAt).Seconds())
	completed := now
	s.sess.CompletedAt = &completed
	s.sess.Score = score.Calculate(s.sess.Questions, s.sess.Answers)

	err := s.deps.Recorder.SaveQuizResult(ctx, s.snapshotSessionLocked())
	_ = s.deps.Store.Delete(ctx, store.KeyCurrentSession)
	s.broadcastLocked()
	return err
}

// tick advances the countdown by one second. Ticks are event-counted,
// not deadline-checked, so a throttled scheduler stretches the countdown
// in real time; TimeTaken on submit is wall-clock regardless.
func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPlaying || !s.timerEnabled() {
		return
	}

	s.timeRemaining--
	if s.timeRemaining > 0 {
		s.broadcastLocked()
		return
	}

	switch s.params.TimerMode {
	case TimerTotal:
		if err := s.submitLocked(context.Background()); err != nil {
			log.Printf("auto-submit on expiry failed: %v", err)
		}
	case TimerPerQuestion:
		if s.index == len(s.sess.Questions)-1 {
			if err := s.submitLocked(context.Background()); err != nil {
				log.Printf("auto-submit on expiry failed: %v", err)
			}
			return
		}
		s.index++
		s.timeRemaining = s.budget()
		s.persistLocked(context.Background())
		s.broadcastLocked()
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Subscribe returns a channel receiving a state snapshot after every
// change, starting with the current one. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.stateLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the scheduler without completing the session. The mirror
// stays in the store so a reconnecting client can pick the run back up.
func (s *Session) Close() {
	s.deps.Scheduler.Stop()
}

func (s *Session) mutableLocked() bool {
	return s.status == StatusPlaying || s.status == StatusPaused
}

func (s *Session) timerEnabled() bool {
	return s.params.TimerMode == TimerTotal || s.params.TimerMode == TimerPerQuestion
}

func (s *Session) budget() int {
	if s.params.TimeLimit > 0 {
		return s.params.TimeLimit
	}
	if s.deps.Budget != nil {
		if b := s.deps.Budget(s.params.Level); b > 0 {
			return b
		}
	}
	return DefaultBudget(s.params.Level)
}

func (s *Session) persistLocked(ctx context.Context) {
	if s.status == StatusCompleted {
		return
	}
	// Best effort: a failed mirror write must not fail the mutation.
	if err := s.deps.Store.Set(ctx, store.KeyCurrentSession, s.snapshotSessionLocked()); err != nil {
		log.Printf("persist session mirror: %v", err)
	}
}

func (s *Session) snapshotSessionLocked() domain.QuizSession {
	snap := s.sess
	snap.Questions = append([]domain.Question(nil), s.sess.Questions...)
	snap.Answers = make(map[int]string, len(s.sess.Answers))
	for id, answer := range s.sess.Answers {
		snap.Answers[id] = answer
	}
	return snap
}

func (s *Session) stateLocked() State {
	return State{
		Session:       s.snapshotSessionLocked(),
		Index:         s.index,
		TimeRemaining: s.timeRemaining,
		Status:        s.status,
		NoContent:     s.noContent,
	}
}

func (s *Session) broadcastLocked() {
	state := s.stateLocked()
	for ch := range s.subscribers {
		select {
		case ch <- state:
		default:
			// Drop the stale update so a slow subscriber never blocks a mutation.
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}
