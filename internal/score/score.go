// Package score computes session scores. The calculation is a full
// recount over the answer map on every call; no incremental counter is
// kept anywhere, so the score can never drift from the answers.
package score

import "trivia-session-service/internal/domain"

// Calculate returns the number of questions whose recorded answer
// matches the correct option key.
func Calculate(questions []domain.Question, answers map[int]string) int {
	total := 0
	for _, q := range questions {
		if answer, ok := answers[q.ID]; ok && answer == q.CorrectAnswer {
			total++
		}
	}
	return total
}
