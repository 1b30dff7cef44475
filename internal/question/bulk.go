package question

import (
	"context"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/store"
)

// StatusCounts returns the per-status breakdown of a subject's bank for
// the admin toolbar.
func (r *Repository) StatusCounts(ctx context.Context, subject string) (domain.StatusCounts, error) {
	bank, err := r.bank(ctx, subject)
	if err != nil {
		return domain.StatusCounts{}, err
	}
	counts := domain.StatusCounts{Total: len(bank)}
	for _, q := range bank {
		switch q.Status {
		case domain.QuestionPublished:
			counts.Published++
		case domain.QuestionDraft:
			counts.Draft++
		case domain.QuestionTrash:
			counts.Trash++
		}
	}
	return counts, nil
}

// ApplyBulkAction changes the status of the identified questions in a
// subject's bank and writes the bank back. It returns how many rows were
// affected. Sessions observe the change on their next load because they
// filter the same persisted collection by published status.
func (r *Repository) ApplyBulkAction(ctx context.Context, subject string, action domain.BulkAction, ids []int) (int, error) {
	switch action {
	case domain.BulkPublish, domain.BulkDraft, domain.BulkTrash, domain.BulkRestore, domain.BulkDelete:
	default:
		return 0, domain.ErrUnknownBulkAction
	}

	bank, err := r.bank(ctx, subject)
	if err != nil {
		return 0, err
	}

	targets := idSet(ids)
	affected := 0
	updated := make([]domain.Question, 0, len(bank))
	for _, q := range bank {
		if _, ok := targets[q.ID]; !ok {
			updated = append(updated, q)
			continue
		}
		switch action {
		case domain.BulkPublish:
			q.Status = domain.QuestionPublished
		case domain.BulkDraft:
			q.Status = domain.QuestionDraft
		case domain.BulkTrash:
			q.Status = domain.QuestionTrash
		case domain.BulkRestore:
			if q.Status == domain.QuestionTrash {
				q.Status = domain.QuestionDraft
			}
		case domain.BulkDelete:
			affected++
			continue
		}
		affected++
		updated = append(updated, q)
	}

	if err := r.kv.Set(ctx, store.BankKey(subject), updated); err != nil {
		return 0, err
	}
	return affected, nil
}
