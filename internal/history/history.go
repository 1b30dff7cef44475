// Package history persists completed sessions and maintains the derived
// aggregates: chapter and subject progress, total stats, and achievement
// unlocks. Aggregates are recomputed by rescanning history on every
// save rather than patched incrementally; O(history) per write buys
// consistency-by-construction at the data volumes involved.
package history

import (
	"context"
	"sort"
	"strings"
	"time"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/store"
)

// Recorder owns the history and progress collections in the durable store.
type Recorder struct {
	kv      store.KV
	now     func() time.Time
	catalog []domain.Achievement
}

func NewRecorder(kv store.KV) *Recorder {
	return NewRecorderWithClock(kv, time.Now)
}

// NewRecorderWithClock allows deterministic timestamps in tests.
func NewRecorderWithClock(kv store.KV, now func() time.Time) *Recorder {
	return &Recorder{kv: kv, now: now, catalog: Catalog()}
}

// SaveQuizResult appends a completed session to history, updates the
// owning chapter's aggregate, recomputes the subject rollup, and
// evaluates achievement unlocks.
func (r *Recorder) SaveQuizResult(ctx context.Context, sess domain.QuizSession) error {
	var hist []domain.QuizSession
	r.kv.Get(ctx, store.KeyHistory, &hist)
	hist = append(hist, sess)
	if err := r.kv.Set(ctx, store.KeyHistory, hist); err != nil {
		return err
	}

	chapters := r.updateChapter(ctx, sess)
	if err := r.kv.Set(ctx, store.KeyChapterProgress, chapters); err != nil {
		return err
	}

	subjects := make(map[string]domain.SubjectProgress)
	r.kv.Get(ctx, store.KeySubjectProgress, &subjects)
	subjects[sess.Subject] = rollupSubject(sess.Subject, chapters, hist)
	if err := r.kv.Set(ctx, store.KeySubjectProgress, subjects); err != nil {
		return err
	}

	return r.evaluateAchievements(ctx, hist, chapters)
}

func (r *Recorder) updateChapter(ctx context.Context, sess domain.QuizSession) map[string]domain.ChapterProgress {
	chapters := make(map[string]domain.ChapterProgress)
	r.kv.Get(ctx, store.KeyChapterProgress, &chapters)

	key := ChapterKey(sess.Subject, sess.Chapter)
	cp := chapters[key]
	cp.Subject = sess.Subject
	cp.Chapter = sess.Chapter
	cp.AverageScore = (cp.AverageScore*float64(cp.Attempts) + float64(sess.Score)) / float64(cp.Attempts+1)
	cp.Attempts++
	if sess.Score > cp.BestScore {
		cp.BestScore = sess.Score
	}
	cp.LastScore = sess.Score
	if sess.Score > 0 {
		cp.Completed = true
	}
	if sess.CompletedAt != nil {
		cp.LastAttemptAt = *sess.CompletedAt
	} else {
		cp.LastAttemptAt = r.now()
	}
	chapters[key] = cp
	return chapters
}

// rollupSubject recomputes a subject's aggregate from all of its chapter
// entries plus a history scan for the accuracy mass.
func rollupSubject(subject string, chapters map[string]domain.ChapterProgress, hist []domain.QuizSession) domain.SubjectProgress {
	sp := domain.SubjectProgress{Subject: subject}
	prefix := subject + ":"
	for key, cp := range chapters {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		sp.Chapters++
		if cp.Completed {
			sp.CompletedChapters++
		}
		sp.Attempts += cp.Attempts
		if cp.BestScore > sp.BestScore {
			sp.BestScore = cp.BestScore
		}
		if cp.LastAttemptAt.After(sp.LastAttemptAt) {
			sp.LastAttemptAt = cp.LastAttemptAt
		}
	}

	scored, asked := 0, 0
	for _, sess := range hist {
		if sess.Subject != subject {
			continue
		}
		scored += sess.Score
		asked += sess.MaxScore
	}
	if asked > 0 {
		sp.Accuracy = float64(scored) / float64(asked) * 100
	}
	return sp
}

// GetTotalStats scans the full history for the headline numbers.
func (r *Recorder) GetTotalStats(ctx context.Context) domain.TotalStats {
	var hist []domain.QuizSession
	r.kv.Get(ctx, store.KeyHistory, &hist)
	return computeTotals(hist)
}

func computeTotals(hist []domain.QuizSession) domain.TotalStats {
	stats := domain.TotalStats{TotalQuizzes: len(hist)}
	percentSum := 0.0
	graded := 0
	for _, sess := range hist {
		stats.TotalQuestions += sess.MaxScore
		if sess.MaxScore > 0 {
			percentSum += float64(sess.Score) / float64(sess.MaxScore) * 100
			graded++
		}
	}
	if graded > 0 {
		stats.AverageScore = percentSum / float64(graded)
	}
	stats.BestStreak = bestDailyStreak(hist)
	return stats
}

// bestDailyStreak finds the longest run of consecutive calendar days
// among the distinct StartedAt dates.
func bestDailyStreak(hist []domain.QuizSession) int {
	if len(hist) == 0 {
		return 0
	}
	seen := make(map[string]time.Time)
	for _, sess := range hist {
		day := sess.StartedAt.Truncate(24 * time.Hour)
		seen[day.Format("2006-01-02")] = day
	}
	days := make([]time.Time, 0, len(seen))
	for _, day := range seen {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	best, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}
	return best
}

// ChapterProgress returns the aggregate for one subject:chapter pair.
func (r *Recorder) ChapterProgress(ctx context.Context, subject, chapter string) (domain.ChapterProgress, bool) {
	chapters := make(map[string]domain.ChapterProgress)
	r.kv.Get(ctx, store.KeyChapterProgress, &chapters)
	cp, ok := chapters[ChapterKey(subject, chapter)]
	return cp, ok
}

// SubjectProgress returns the rollup for one subject.
func (r *Recorder) SubjectProgress(ctx context.Context, subject string) (domain.SubjectProgress, bool) {
	subjects := make(map[string]domain.SubjectProgress)
	r.kv.Get(ctx, store.KeySubjectProgress, &subjects)
	sp, ok := subjects[subject]
	return sp, ok
}

// History returns all completed sessions, oldest first.
func (r *Recorder) History(ctx context.Context) []domain.QuizSession {
	var hist []domain.QuizSession
	r.kv.Get(ctx, store.KeyHistory, &hist)
	return hist
}

// ChapterKey builds the aggregate key for a subject:chapter pair.
func ChapterKey(subject, chapter string) string {
	return subject + ":" + chapter
}
