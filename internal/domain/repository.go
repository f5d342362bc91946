package domain

import "context"

// BatchRepository persists batch jobs and their items.
//
// Item transition methods are guarded by the current status in a single
// statement so duplicate dispatches of the same job become no-ops instead of
// corrupting counters; the applied return value reports whether the
// transition took effect.
type BatchRepository interface {
	// CreateJob persists the job and its items in one transaction.
	CreateJob(ctx context.Context, job *BatchJob, items []BatchItem) error
	JobByID(ctx context.Context, jobID string) (*BatchJob, error)
	// JobForUser returns the job only when owned by userID.
	JobForUser(ctx context.Context, jobID, userID string) (*BatchJob, error)
	// ListJobs returns the user's jobs newest first.
	ListJobs(ctx context.Context, userID string, limit, offset int) ([]BatchJob, error)
	ItemsByJob(ctx context.Context, jobID string) ([]BatchItem, error)
	// ItemProgress joins items with product display fields for polling
	// clients.
	ItemProgress(ctx context.Context, jobID string) ([]BatchItemProgress, error)

	// MarkJobProcessing flips a pending job to processing.
	MarkJobProcessing(ctx context.Context, jobID string) error
	// MarkItemProcessing flips a queued item to processing.
	MarkItemProcessing(ctx context.Context, itemID string) (applied bool, err error)
	// CompleteItem finalizes a processing item as completed and atomically
	// increments the owning job's processed/success/used-credit counters.
	CompleteItem(ctx context.Context, itemID, outputURL, caption string) (applied bool, err error)
	// FailItem finalizes a processing or queued item as failed and
	// atomically increments the owning job's processed/failed counters.
	FailItem(ctx context.Context, itemID, message string) (applied bool, err error)
	// FinalizeJob stamps the terminal status, guarded so only one caller
	// can transition the job out of processing.
	FinalizeJob(ctx context.Context, jobID string, status BatchJobStatus) (applied bool, err error)
	// CancelJob force-fails every still-queued item and marks the job
	// failed. Counters are intentionally left alone; in-flight items finish
	// on their own.
	CancelJob(ctx context.Context, jobID string) (cancelled bool, err error)
	// MarkJobFailedToStart surfaces a job the dispatcher gave up on as
	// terminally failed, recording reason on its still-queued items. Guarded
	// like CancelJob so a job a worker did finish is left alone.
	MarkJobFailedToStart(ctx context.Context, jobID, reason string) (applied bool, err error)
}

// BatchItemProgress is the read model returned to polling clients.
type BatchItemProgress struct {
	BatchItem
	ProductName      string
	ProductThumbnail string
}

// CreditLedger exposes the debit contract the batch engine consumes. Debit
// must be an atomic conditional decrement: concurrent debits against the same
// user never both succeed when their sum exceeds the balance.
type CreditLedger interface {
	Balance(ctx context.Context, userID string) (int, error)
	// Debit withdraws units, recording idempotencyRef so a retried call
	// for the same ref cannot double-charge. Returns
	// *InsufficientCreditsError when the balance cannot cover units.
	Debit(ctx context.Context, userID string, units int, idempotencyRef, description string) (newBalance int, err error)
	// Grant credits units to the user (operator tooling, top-ups).
	Grant(ctx context.Context, userID string, units int, description string) (newBalance int, err error)
}

// ProductRepository provides product lookups scoped to ownership.
type ProductRepository interface {
	// ListOwned returns, among productIDs, the products owned by userID
	// through one of their brands.
	ListOwned(ctx context.Context, userID string, productIDs []string) ([]Product, error)
	// DefaultBrand returns the user's default brand or ErrNotFound.
	DefaultBrand(ctx context.Context, userID string) (*Brand, error)
}

// UserRepository defines access methods for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
