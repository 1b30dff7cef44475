package history

import (
	"context"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/store"
)

// Achievement condition types evaluated against history and aggregates.
const (
	CondQuizCount       = "quiz_count"
	CondPerfectScore    = "perfect_score"
	CondSpeedRun        = "speed_run"
	CondChapterComplete = "chapter_complete"
	CondSubjectExplore  = "subject_explore"
	CondAccuracy        = "accuracy"
	CondRetry           = "retry"
	// CondStreak is the challenge-mode correct-answer streak. The
	// condition exists in the catalog but the evaluator has no case for
	// it; challenge-mode streaks never reach history.
	CondStreak = "streak"
)

// Catalog returns the built-in achievement definitions.
func Catalog() []domain.Achievement {
	return []domain.Achievement{
		{ID: "first_quiz", Name: "First Steps", Description: "Complete your first quiz", Condition: domain.AchievementCondition{Type: CondQuizCount, Threshold: 1}},
		{ID: "quiz_veteran", Name: "Quiz Veteran", Description: "Complete 10 quizzes", Condition: domain.AchievementCondition{Type: CondQuizCount, Threshold: 10}},
		{ID: "perfectionist", Name: "Perfectionist", Description: "Score 100% on a quiz", Condition: domain.AchievementCondition{Type: CondPerfectScore, Threshold: 1}},
		{ID: "speed_runner", Name: "Speed Runner", Description: "Finish a quiz in under a minute", Condition: domain.AchievementCondition{Type: CondSpeedRun, Threshold: 60}},
		{ID: "chapter_champion", Name: "Chapter Champion", Description: "Complete 5 chapters", Condition: domain.AchievementCondition{Type: CondChapterComplete, Threshold: 5}},
		{ID: "explorer", Name: "Explorer", Description: "Play quizzes in 3 different subjects", Condition: domain.AchievementCondition{Type: CondSubjectExplore, Threshold: 3}},
		{ID: "sharpshooter", Name: "Sharpshooter", Description: "Keep your overall accuracy at 90% or above", Condition: domain.AchievementCondition{Type: CondAccuracy, Threshold: 90}},
		{ID: "persistent", Name: "Persistent", Description: "Attempt the same chapter 3 times", Condition: domain.AchievementCondition{Type: CondRetry, Threshold: 3}},
		{ID: "streak_master", Name: "Streak Master", Description: "Answer 5 questions correctly in a row in challenge mode", Condition: domain.AchievementCondition{Type: CondStreak, Threshold: 5}},
	}
}

// Unlocked returns the set of unlocked achievements keyed by ID.
func (r *Recorder) Unlocked(ctx context.Context) map[string]domain.Achievement {
	unlocked := make(map[string]domain.Achievement)
	r.kv.Get(ctx, store.KeyAchievements, &unlocked)
	return unlocked
}

// evaluateAchievements scans history and aggregates for newly met
// conditions. Unlocks are write-once: an achievement already in the
// unlocked set is never re-evaluated or revoked.
func (r *Recorder) evaluateAchievements(ctx context.Context, hist []domain.QuizSession, chapters map[string]domain.ChapterProgress) error {
	unlocked := r.Unlocked(ctx)

	changed := false
	for _, a := range r.catalog {
		if _, ok := unlocked[a.ID]; ok {
			continue
		}
		if !conditionMet(a.Condition, hist, chapters) {
			continue
		}
		now := r.now()
		a.UnlockedAt = &now
		unlocked[a.ID] = a
		changed = true
	}
	if !changed {
		return nil
	}
	return r.kv.Set(ctx, store.KeyAchievements, unlocked)
}

func conditionMet(cond domain.AchievementCondition, hist []domain.QuizSession, chapters map[string]domain.ChapterProgress) bool {
	switch cond.Type {
	case CondQuizCount:
		return len(hist) >= cond.Threshold
	case CondPerfectScore:
		perfect := 0
		for _, sess := range hist {
			if sess.MaxScore > 0 && sess.Score == sess.MaxScore {
				perfect++
			}
		}
		return perfect >= cond.Threshold
	case CondSpeedRun:
		for _, sess := range hist {
			if sess.MaxScore > 0 && sess.Score > 0 && sess.TimeTaken > 0 && sess.TimeTaken <= cond.Threshold {
				return true
			}
		}
		return false
	case CondChapterComplete:
		completed := 0
		for _, cp := range chapters {
			if cp.Completed {
				completed++
			}
		}
		return completed >= cond.Threshold
	case CondSubjectExplore:
		subjects := make(map[string]struct{})
		for _, sess := range hist {
			subjects[sess.Subject] = struct{}{}
		}
		return len(subjects) >= cond.Threshold
	case CondAccuracy:
		stats := computeTotals(hist)
		return stats.TotalQuizzes > 0 && stats.AverageScore >= float64(cond.Threshold)
	case CondRetry:
		for _, cp := range chapters {
			if cp.Attempts >= cond.Threshold {
				return true
			}
		}
		return false
	}
	// No evaluator for this condition type (notably streak); leave locked.
	return false
}
