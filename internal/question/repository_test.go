package question

import (
	"context"
	"testing"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
	"trivia-session-service/internal/store"
)

func testBank() []domain.Question {
	bank := make([]domain.Question, 0, 20)
	for i := 1; i <= 20; i++ {
		q := domain.Question{
			ID:            i,
			Subject:       "math",
			Chapter:       "1",
			Level:         domain.LevelEasy,
			CorrectAnswer: "A",
			Status:        domain.QuestionPublished,
		}
		if i%5 == 0 {
			q.Status = domain.QuestionDraft
		}
		if i > 15 {
			q.Chapter = "2"
		}
		bank = append(bank, q)
	}
	return bank
}

func newTestRepo(bank []domain.Question) (*Repository, *memory.KV) {
	kv := memory.NewKV()
	repo := NewRepository(NewStaticBankLoader(map[string][]domain.Question{"math": bank}), kv, 0)
	return repo, kv
}

func TestLoadInitialFiltersAndCaps(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(testBank())

	got, err := repo.LoadInitial(ctx, "math", "1", domain.LevelEasy)
	if err != nil {
		t.Fatalf("load initial: %v", err)
	}
	// Chapter 1 has 15 questions, 3 of them drafts; cap trims to 10.
	if len(got) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(got))
	}
	for i, q := range got {
		if q.Status != domain.QuestionPublished {
			t.Fatalf("unpublished question %d leaked", q.ID)
		}
		if i > 0 && got[i-1].ID > q.ID {
			t.Fatalf("storage order not preserved: %d before %d", got[i-1].ID, q.ID)
		}
	}
}

func TestLoadInitialEmptySelection(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(testBank())

	got, err := repo.LoadInitial(ctx, "math", "9", domain.LevelEasy)
	if err != nil {
		t.Fatalf("empty selection must not error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestLoadAdditionalExcludesSeen(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(testBank())

	initial, _ := repo.LoadInitial(ctx, "math", "1", domain.LevelEasy)
	exclude := make([]int, 0, len(initial))
	for _, q := range initial {
		exclude = append(exclude, q.ID)
	}

	more, err := repo.LoadAdditional(ctx, "math", "1", domain.LevelEasy, exclude, 5)
	if err != nil {
		t.Fatalf("load additional: %v", err)
	}
	// Chapter 1 has 12 published questions; 10 are excluded.
	if len(more) != 2 {
		t.Fatalf("expected 2 additional questions, got %d", len(more))
	}
	seen := make(map[int]struct{}, len(exclude))
	for _, id := range exclude {
		seen[id] = struct{}{}
	}
	for _, q := range more {
		if _, dup := seen[q.ID]; dup {
			t.Fatalf("excluded question %d returned", q.ID)
		}
	}
}

func TestCountAvailable(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(testBank())

	count, err := repo.CountAvailable(ctx, "math", "1", domain.LevelEasy, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 9 {
		t.Fatalf("expected 9 available, got %d", count)
	}
}

func TestUnknownSubject(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(testBank())

	if _, err := repo.LoadInitial(ctx, "chemistry", "1", domain.LevelEasy); err != domain.ErrBankNotFound {
		t.Fatalf("expected bank-not-found, got %v", err)
	}
}

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, subject string) ([]domain.Question, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, subject)
}

func TestBankCachedWriteThrough(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{BankLoader: NewStaticBankLoader(map[string][]domain.Question{"math": testBank()})}
	kv := memory.NewKV()
	repo := NewRepository(loader, kv, 0)

	if _, err := repo.LoadInitial(ctx, "math", "1", domain.LevelEasy); err != nil {
		t.Fatalf("load initial: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second query hits the KV copy.
	if _, err := repo.CountAvailable(ctx, "math", "1", domain.LevelEasy, nil); err != nil {
		t.Fatalf("count: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	var cached []domain.Question
	if !kv.Get(ctx, store.BankKey("math"), &cached) || len(cached) != 20 {
		t.Fatalf("expected full bank cached in KV, got %d", len(cached))
	}
}

func TestStatusCounts(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(testBank())

	counts, err := repo.StatusCounts(ctx, "math")
	if err != nil {
		t.Fatalf("status counts: %v", err)
	}
	want := domain.StatusCounts{Total: 20, Published: 16, Draft: 4, Trash: 0}
	if counts != want {
		t.Fatalf("expected %+v, got %+v", want, counts)
	}
}

func TestBulkActions(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(testBank())

	affected, err := repo.ApplyBulkAction(ctx, "math", domain.BulkTrash, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("trash: %v", err)
	}
	if affected != 3 {
		t.Fatalf("expected 3 affected, got %d", affected)
	}
	counts, _ := repo.StatusCounts(ctx, "math")
	if counts.Trash != 3 || counts.Published != 13 {
		t.Fatalf("unexpected counts after trash: %+v", counts)
	}

	// Restore only moves trashed rows back to draft.
	affected, err = repo.ApplyBulkAction(ctx, "math", domain.BulkRestore, []int{1, 2, 4})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if affected != 3 {
		t.Fatalf("expected 3 targeted rows, got %d", affected)
	}
	counts, _ = repo.StatusCounts(ctx, "math")
	if counts.Trash != 1 {
		t.Fatalf("expected 1 still trashed, got %+v", counts)
	}

	affected, err = repo.ApplyBulkAction(ctx, "math", domain.BulkDelete, []int{3})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 deleted, got %d", affected)
	}
	counts, _ = repo.StatusCounts(ctx, "math")
	if counts.Total != 19 {
		t.Fatalf("expected 19 remaining, got %+v", counts)
	}
}

func TestBulkActionUnknown(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(testBank())

	if _, err := repo.ApplyBulkAction(ctx, "math", "archive", []int{1}); err != domain.ErrUnknownBulkAction {
		t.Fatalf("expected unknown-action error, got %v", err)
	}
}

func TestBulkActionVisibleToSessions(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(testBank())

	before, _ := repo.CountAvailable(ctx, "math", "1", domain.LevelEasy, nil)
	if _, err := repo.ApplyBulkAction(ctx, "math", domain.BulkDraft, []int{1, 2}); err != nil {
		t.Fatalf("draft: %v", err)
	}
	after, _ := repo.CountAvailable(ctx, "math", "1", domain.LevelEasy, nil)
	if after != before-2 {
		t.Fatalf("session queries should see %d published, got %d", before-2, after)
	}
}
