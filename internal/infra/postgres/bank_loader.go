package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-session-service/internal/domain"
)

// BankLoader loads question banks stored as one JSONB row per subject.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, subject string) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE subject=$1`, subject).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBankNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	var bank []domain.Question
	if err := json.Unmarshal(raw, &bank); err != nil {
		return nil, fmt.Errorf("unmarshal bank: %w", err)
	}
	return bank, nil
}

// SaveBank upserts a subject's bank, used by seeding and tests.
func (l *BankLoader) SaveBank(ctx context.Context, subject string, bank []domain.Question) error {
	raw, err := json.Marshal(bank)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO question_banks (subject, data) VALUES ($1, $2)
		 ON CONFLICT (subject) DO UPDATE SET data = EXCLUDED.data`,
		subject, raw)
	if err != nil {
		return fmt.Errorf("save bank: %w", err)
	}
	return nil
}
