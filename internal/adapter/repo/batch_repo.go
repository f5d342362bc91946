package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seetuai/seetu/internal/domain"
)

// BatchRepositoryPG implements domain.BatchRepository.
//
// Counter updates ride along item transitions inside a single statement so a
// crashed worker or a duplicate dispatch can never leave processed_count out
// of step with the item rows.
type BatchRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewBatchRepository creates a batch repository backed by PostgreSQL.
func NewBatchRepository(pool *pgxpool.Pool) *BatchRepositoryPG {
	return &BatchRepositoryPG{pool: pool}
}

const batchJobColumns = `
id, user_id, product_ids, style_json, status, total_products,
processed_count, success_count, failed_count, estimated_credits,
used_credits, created_at, completed_at`

// CreateJob persists the job and its items in one transaction.
func (r *BatchRepositoryPG) CreateJob(ctx context.Context, job *domain.BatchJob, items []domain.BatchItem) error {
	styleJSON, err := json.Marshal(job.Style)
	if err != nil {
		return fmt.Errorf("encode style: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insertJob := `
INSERT INTO batch_jobs (id, user_id, product_ids, style_json, status, total_products, estimated_credits)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	if _, err := tx.Exec(ctx, insertJob,
		job.ID,
		job.UserID,
		job.ProductIDs,
		styleJSON,
		job.Status,
		job.TotalProducts,
		job.EstimatedCredits,
	); err != nil {
		return err
	}

	insertItem := `
INSERT INTO batch_items (id, batch_job_id, product_id, status, credits_cost)
VALUES ($1, $2, $3, $4, $5);
`
	for _, item := range items {
		if _, err := tx.Exec(ctx, insertItem,
			item.ID,
			item.BatchJobID,
			item.ProductID,
			item.Status,
			item.CreditsCost,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// JobByID fetches a job by its identifier.
func (r *BatchRepositoryPG) JobByID(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	query := `SELECT ` + batchJobColumns + ` FROM batch_jobs WHERE id = $1;`
	return scanBatchJob(r.pool.QueryRow(ctx, query, jobID))
}

// JobForUser fetches a job only when it belongs to userID.
func (r *BatchRepositoryPG) JobForUser(ctx context.Context, jobID, userID string) (*domain.BatchJob, error) {
	query := `SELECT ` + batchJobColumns + ` FROM batch_jobs WHERE id = $1 AND user_id = $2;`
	return scanBatchJob(r.pool.QueryRow(ctx, query, jobID, userID))
}

// ListJobs returns the user's jobs newest first.
func (r *BatchRepositoryPG) ListJobs(ctx context.Context, userID string, limit, offset int) ([]domain.BatchJob, error) {
	query := `
SELECT ` + batchJobColumns + `
FROM batch_jobs
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]domain.BatchJob, 0, limit)
	for rows.Next() {
		job, err := scanBatchJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ItemsByJob returns the job's items in creation order.
func (r *BatchRepositoryPG) ItemsByJob(ctx context.Context, jobID string) ([]domain.BatchItem, error) {
	query := `
SELECT id, batch_job_id, product_id, status, output_url, caption, error_message, credits_cost, created_at, completed_at
FROM batch_items
WHERE batch_job_id = $1
ORDER BY created_at ASC, id ASC;
`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.BatchItem
	for rows.Next() {
		var item domain.BatchItem
		if err := rows.Scan(
			&item.ID,
			&item.BatchJobID,
			&item.ProductID,
			&item.Status,
			&item.OutputURL,
			&item.Caption,
			&item.ErrorMessage,
			&item.CreditsCost,
			&item.CreatedAt,
			&item.CompletedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ItemProgress joins items with product display fields for polling clients.
func (r *BatchRepositoryPG) ItemProgress(ctx context.Context, jobID string) ([]domain.BatchItemProgress, error) {
	query := `
SELECT i.id, i.batch_job_id, i.product_id, i.status, i.output_url, i.caption,
       i.error_message, i.credits_cost, i.created_at, i.completed_at,
       p.name, p.thumbnail_url
FROM batch_items i
JOIN products p ON p.id = i.product_id
WHERE i.batch_job_id = $1
ORDER BY i.created_at ASC, i.id ASC;
`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var progress []domain.BatchItemProgress
	for rows.Next() {
		var entry domain.BatchItemProgress
		if err := rows.Scan(
			&entry.ID,
			&entry.BatchJobID,
			&entry.ProductID,
			&entry.Status,
			&entry.OutputURL,
			&entry.Caption,
			&entry.ErrorMessage,
			&entry.CreditsCost,
			&entry.CreatedAt,
			&entry.CompletedAt,
			&entry.ProductName,
			&entry.ProductThumbnail,
		); err != nil {
			return nil, err
		}
		progress = append(progress, entry)
	}
	return progress, rows.Err()
}

// MarkJobProcessing flips a pending job to processing. Already-processing jobs
// are left alone so redelivered dispatch tasks can resume safely.
func (r *BatchRepositoryPG) MarkJobProcessing(ctx context.Context, jobID string) error {
	query := `
UPDATE batch_jobs
SET status = 'processing'
WHERE id = $1 AND status = 'pending';
`
	_, err := r.pool.Exec(ctx, query, jobID)
	return err
}

// MarkItemProcessing flips a queued item to processing.
func (r *BatchRepositoryPG) MarkItemProcessing(ctx context.Context, itemID string) (bool, error) {
	query := `
UPDATE batch_items
SET status = 'processing'
WHERE id = $1 AND status = 'queued';
`
	tag, err := r.pool.Exec(ctx, query, itemID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteItem finalizes a processing item as completed and increments the
// owning job's processed/success/used-credit counters in the same statement.
func (r *BatchRepositoryPG) CompleteItem(ctx context.Context, itemID, outputURL, caption string) (bool, error) {
	query := `
WITH done AS (
    UPDATE batch_items
    SET status = 'completed',
        output_url = $2,
        caption = $3,
        completed_at = NOW()
    WHERE id = $1 AND status = 'processing'
    RETURNING batch_job_id, credits_cost
)
UPDATE batch_jobs j
SET processed_count = processed_count + 1,
    success_count = success_count + 1,
    used_credits = used_credits + done.credits_cost
FROM done
WHERE j.id = done.batch_job_id;
`
	tag, err := r.pool.Exec(ctx, query, itemID, outputURL, caption)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FailItem finalizes a processing or queued item as failed and increments the
// owning job's processed/failed counters in the same statement.
func (r *BatchRepositoryPG) FailItem(ctx context.Context, itemID, message string) (bool, error) {
	query := `
WITH done AS (
    UPDATE batch_items
    SET status = 'failed',
        error_message = $2,
        completed_at = NOW()
    WHERE id = $1 AND status IN ('queued', 'processing')
    RETURNING batch_job_id
)
UPDATE batch_jobs j
SET processed_count = processed_count + 1,
    failed_count = failed_count + 1
FROM done
WHERE j.id = done.batch_job_id;
`
	tag, err := r.pool.Exec(ctx, query, itemID, message)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FinalizeJob stamps the terminal status. The status = 'processing' guard
// ensures only one caller transitions the job out of processing.
func (r *BatchRepositoryPG) FinalizeJob(ctx context.Context, jobID string, status domain.BatchJobStatus) (bool, error) {
	query := `
UPDATE batch_jobs
SET status = $2,
    completed_at = NOW()
WHERE id = $1 AND status = 'processing';
`
	tag, err := r.pool.Exec(ctx, query, jobID, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CancelJob force-fails every still-queued item and marks the job failed.
// Counters are left untouched; in-flight items finish on their own and the
// runner's completion check becomes a no-op once the job left processing.
func (r *BatchRepositoryPG) CancelJob(ctx context.Context, jobID string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	markJob := `
UPDATE batch_jobs
SET status = 'failed',
    completed_at = NOW()
WHERE id = $1 AND status IN ('pending', 'processing');
`
	tag, err := tx.Exec(ctx, markJob, jobID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	failQueued := `
UPDATE batch_items
SET status = 'failed',
    error_message = $2,
    completed_at = NOW()
WHERE batch_job_id = $1 AND status = 'queued';
`
	if _, err := tx.Exec(ctx, failQueued, jobID, domain.CancelledByUserMessage); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// MarkJobFailedToStart terminally fails a job the dispatcher gave up on,
// stamping completed_at and recording reason on every still-queued item so
// the stall is visible to the user and to operators. The pending/processing
// guard keeps it from clobbering a job a worker did finish.
func (r *BatchRepositoryPG) MarkJobFailedToStart(ctx context.Context, jobID, reason string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	markJob := `
UPDATE batch_jobs
SET status = 'failed',
    completed_at = NOW()
WHERE id = $1 AND status IN ('pending', 'processing');
`
	tag, err := tx.Exec(ctx, markJob, jobID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	failQueued := `
UPDATE batch_items
SET status = 'failed',
    error_message = $2,
    completed_at = NOW()
WHERE batch_job_id = $1 AND status = 'queued';
`
	if _, err := tx.Exec(ctx, failQueued, jobID, reason); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatchJob(row rowScanner) (*domain.BatchJob, error) {
	var (
		job       domain.BatchJob
		styleJSON []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.ProductIDs,
		&styleJSON,
		&job.Status,
		&job.TotalProducts,
		&job.ProcessedCount,
		&job.SuccessCount,
		&job.FailedCount,
		&job.EstimatedCredits,
		&job.UsedCredits,
		&job.CreatedAt,
		&job.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(styleJSON) > 0 {
		if err := json.Unmarshal(styleJSON, &job.Style); err != nil {
			return nil, fmt.Errorf("decode style: %w", err)
		}
	}
	return &job, nil
}
