package domain

import "time"

// Level is a difficulty tier. It selects the default timer budget for
// timed sessions and groups questions inside a chapter.
type Level string

const (
	LevelEasy    Level = "easy"
	LevelMedium  Level = "medium"
	LevelHard    Level = "hard"
	LevelExpert  Level = "expert"
	LevelExtreme Level = "extreme"
)

// Levels lists all difficulty tiers in ascending order.
var Levels = []Level{LevelEasy, LevelMedium, LevelHard, LevelExpert, LevelExtreme}

// Valid reports whether l is a known difficulty tier.
func (l Level) Valid() bool {
	for _, known := range Levels {
		if l == known {
			return true
		}
	}
	return false
}

// QuestionStatus is the publication state of a question. Only published
// questions are eligible for sessions.
type QuestionStatus string

const (
	QuestionDraft     QuestionStatus = "draft"
	QuestionPublished QuestionStatus = "published"
	QuestionTrash     QuestionStatus = "trash"
)

// Question is one multiple-choice question from a subject's bank.
// Questions are immutable once loaded into a session; only the bank copy
// is mutated, by bulk status actions.
type Question struct {
	ID            int            `json:"id"`
	Subject       string         `json:"subject"`
	Chapter       string         `json:"chapter"`
	Level         Level          `json:"level"`
	OptionA       string         `json:"optionA"`
	OptionB       string         `json:"optionB"`
	OptionC       string         `json:"optionC"`
	OptionD       string         `json:"optionD"`
	CorrectAnswer string         `json:"correctAnswer"` // option key "A".."D"
	Status        QuestionStatus `json:"status"`
}

// SessionStatus distinguishes the live in-progress mirror from history entries.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in-progress"
	SessionCompleted  SessionStatus = "completed"
)

// QuizSession is one run through a sequence of questions, either the live
// in-progress mirror or an immutable history entry.
//
// Questions holds insertion order (load order, never reshuffled) and only
// grows via extension. Answers maps question ID to the chosen option key;
// later writes overwrite earlier ones. Score is always a full recount of
// matching answers, never an incrementally tracked counter.
type QuizSession struct {
	ID          string         `json:"id"`
	Subject     string         `json:"subject"`
	SubjectName string         `json:"subjectName"`
	Chapter     string         `json:"chapter"`
	Level       Level          `json:"level"`
	Questions   []Question     `json:"questions"`
	Answers     map[int]string `json:"answers"`
	Score       int            `json:"score"`
	MaxScore    int            `json:"maxScore"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	TimeTaken   int            `json:"timeTaken"` // seconds
	Status      SessionStatus  `json:"status"`
}

// ChapterProgress is the derived aggregate for one subject:chapter pair,
// updated on every completed session.
type ChapterProgress struct {
	Subject       string    `json:"subject"`
	Chapter       string    `json:"chapter"`
	Attempts      int       `json:"attempts"`
	BestScore     int       `json:"bestScore"`
	LastScore     int       `json:"lastScore"`
	AverageScore  float64   `json:"averageScore"`
	Completed     bool      `json:"completed"` // sticky once any attempt scores > 0
	LastAttemptAt time.Time `json:"lastAttemptAt"`
}

// SubjectProgress rolls up all chapter aggregates sharing a subject.
type SubjectProgress struct {
	Subject           string    `json:"subject"`
	Chapters          int       `json:"chapters"`
	CompletedChapters int       `json:"completedChapters"`
	Attempts          int       `json:"attempts"`
	BestScore         int       `json:"bestScore"`
	Accuracy          float64   `json:"accuracy"` // percent, weighted by questions asked
	LastAttemptAt     time.Time `json:"lastAttemptAt"`
}

// AchievementCondition describes when an achievement unlocks.
type AchievementCondition struct {
	Type      string `json:"type"`
	Threshold int    `json:"threshold"`
}

// Achievement is a one-way unlockable flag derived from history statistics.
type Achievement struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Condition   AchievementCondition `json:"condition"`
	UnlockedAt  *time.Time           `json:"unlockedAt,omitempty"`
}

// TotalStats summarizes the full session history.
type TotalStats struct {
	TotalQuizzes   int     `json:"totalQuizzes"`
	TotalQuestions int     `json:"totalQuestions"` // sum of MaxScore
	AverageScore   float64 `json:"averageScore"`   // mean percentage
	BestStreak     int     `json:"bestStreak"`     // longest consecutive-day run
}

// StatusCounts is the per-status breakdown of a subject's question bank.
type StatusCounts struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Draft     int `json:"draft"`
	Trash     int `json:"trash"`
}

// BulkAction is an administrative status change applied to a set of
// questions at once.
type BulkAction string

const (
	BulkPublish BulkAction = "publish"
	BulkDraft   BulkAction = "draft"
	BulkTrash   BulkAction = "trash"
	BulkDelete  BulkAction = "delete"
	BulkRestore BulkAction = "restore" // trash back to draft
)
