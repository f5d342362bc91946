package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seetuai/seetu/internal/domain"
)

// CreditLedgerPG implements domain.CreditLedger on top of a conditional
// balance decrement plus an append-only ledger. The decrement carries a
// credit_units >= $2 guard so two concurrent debits whose sum exceeds the
// balance can never both commit.
type CreditLedgerPG struct {
	pool *pgxpool.Pool
}

// NewCreditLedger creates a credit ledger backed by PostgreSQL.
func NewCreditLedger(pool *pgxpool.Pool) *CreditLedgerPG {
	return &CreditLedgerPG{pool: pool}
}

// Balance returns the user's current credit balance.
func (r *CreditLedgerPG) Balance(ctx context.Context, userID string) (int, error) {
	query := `SELECT credit_units FROM users WHERE id = $1;`
	var balance int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

// Debit withdraws units from the user's balance. The idempotency reference is
// unique per ledger entry, so a replayed debit for the same reference returns
// the already-recorded balance without charging twice.
func (r *CreditLedgerPG) Debit(ctx context.Context, userID string, units int, idempotencyRef, description string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	// Replay check first: a retried worker must observe its earlier debit.
	var recordedBalance int
	replay := `SELECT balance_after FROM credit_ledger WHERE idempotency_ref = $1;`
	err = tx.QueryRow(ctx, replay, idempotencyRef).Scan(&recordedBalance)
	if err == nil {
		return recordedBalance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	decrement := `
UPDATE users
SET credit_units = credit_units - $2
WHERE id = $1 AND credit_units >= $2
RETURNING credit_units;
`
	var newBalance int
	if err := tx.QueryRow(ctx, decrement, userID, units).Scan(&newBalance); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, err
		}
		available, berr := balanceIn(ctx, tx, userID)
		if berr != nil {
			return 0, berr
		}
		return 0, &domain.InsufficientCreditsError{Needed: units, Available: available}
	}

	record := `
INSERT INTO credit_ledger (user_id, delta, balance_after, idempotency_ref, description)
VALUES ($1, $2, $3, $4, $5);
`
	if _, err := tx.Exec(ctx, record, userID, -units, newBalance, idempotencyRef, description); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Grant credits units to the user and records the ledger entry.
func (r *CreditLedgerPG) Grant(ctx context.Context, userID string, units int, description string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	increment := `
UPDATE users
SET credit_units = credit_units + $2
WHERE id = $1
RETURNING credit_units;
`
	var newBalance int
	if err := tx.QueryRow(ctx, increment, userID, units).Scan(&newBalance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}

	record := `
INSERT INTO credit_ledger (user_id, delta, balance_after, description)
VALUES ($1, $2, $3, $4);
`
	if _, err := tx.Exec(ctx, record, userID, units, newBalance, description); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func balanceIn(ctx context.Context, tx pgx.Tx, userID string) (int, error) {
	var balance int
	err := tx.QueryRow(ctx, `SELECT credit_units FROM users WHERE id = $1;`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return balance, err
}
