package question

import (
	"context"

	"golang.org/x/sync/singleflight"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/store"
)

// DefaultInitialCap bounds how many questions an initial load returns.
const DefaultInitialCap = 10

// BankLoader fetches a subject's full question bank from a backing store
// (Postgres, static fixtures, ...).
type BankLoader interface {
	LoadBank(ctx context.Context, subject string) ([]domain.Question, error)
}

// Repository answers session queries over question banks. Banks are
// cached write-through in the KV under bank:{subject}; cache misses fall
// back to the loader, with singleflight collapsing concurrent fills.
//
// Queries preserve storage order and perform no randomization.
type Repository struct {
	loader     BankLoader
	kv         store.KV
	initialCap int
	sf         singleflight.Group
}

func NewRepository(loader BankLoader, kv store.KV, initialCap int) *Repository {
	if initialCap <= 0 {
		initialCap = DefaultInitialCap
	}
	return &Repository{loader: loader, kv: kv, initialCap: initialCap}
}

// LoadInitial returns up to the configured cap of published questions
// matching chapter and level, in storage order. An empty result means
// the selection has no content; it is not an error.
func (r *Repository) LoadInitial(ctx context.Context, subject, chapter string, level domain.Level) ([]domain.Question, error) {
	bank, err := r.bank(ctx, subject)
	if err != nil {
		return nil, err
	}
	matched := filter(bank, chapter, level, nil)
	if len(matched) > r.initialCap {
		matched = matched[:r.initialCap]
	}
	return matched, nil
}

// LoadAdditional returns up to count published questions matching the
// selection whose IDs are not in excludeIDs.
func (r *Repository) LoadAdditional(ctx context.Context, subject, chapter string, level domain.Level, excludeIDs []int, count int) ([]domain.Question, error) {
	if count <= 0 {
		return nil, nil
	}
	bank, err := r.bank(ctx, subject)
	if err != nil {
		return nil, err
	}
	matched := filter(bank, chapter, level, idSet(excludeIDs))
	if len(matched) > count {
		matched = matched[:count]
	}
	return matched, nil
}

// CountAvailable reports how many unseen published questions remain for
// the selection.
func (r *Repository) CountAvailable(ctx context.Context, subject, chapter string, level domain.Level, excludeIDs []int) (int, error) {
	bank, err := r.bank(ctx, subject)
	if err != nil {
		return 0, err
	}
	return len(filter(bank, chapter, level, idSet(excludeIDs))), nil
}

func (r *Repository) bank(ctx context.Context, subject string) ([]domain.Question, error) {
	key := store.BankKey(subject)

	var cached []domain.Question
	if r.kv.Get(ctx, key, &cached) && len(cached) > 0 {
		return cached, nil
	}

	result, err, _ := r.sf.Do(subject, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		var cached []domain.Question
		if r.kv.Get(ctx, key, &cached) && len(cached) > 0 {
			return cached, nil
		}

		bank, err := r.loader.LoadBank(ctx, subject)
		if err != nil {
			return nil, err
		}
		_ = r.kv.Set(ctx, key, bank)
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func filter(bank []domain.Question, chapter string, level domain.Level, exclude map[int]struct{}) []domain.Question {
	matched := make([]domain.Question, 0, len(bank))
	for _, q := range bank {
		if q.Chapter != chapter || q.Level != level || q.Status != domain.QuestionPublished {
			continue
		}
		if _, skip := exclude[q.ID]; skip {
			continue
		}
		matched = append(matched, q)
	}
	return matched
}

func idSet(ids []int) map[int]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// StaticBankLoader serves banks from an in-memory map (tests/demos).
type StaticBankLoader struct {
	banks map[string][]domain.Question
}

func NewStaticBankLoader(banks map[string][]domain.Question) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, subject string) ([]domain.Question, error) {
	if bank, ok := l.banks[subject]; ok {
		return bank, nil
	}
	return nil, domain.ErrBankNotFound
}
