package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/seetuai/seetu/internal/dispatch"
	"github.com/seetuai/seetu/internal/domain"
	"github.com/seetuai/seetu/internal/providers/caption"
	"github.com/seetuai/seetu/internal/providers/image"
	"github.com/seetuai/seetu/internal/storage"
)

// scriptedGenerator fails prompts containing any configured substring and
// invokes afterCall after every attempt.
type scriptedGenerator struct {
	mu             sync.Mutex
	failSubstrings []string
	calls          int
	afterCall      func(calls int)
}

func (g *scriptedGenerator) Generate(ctx context.Context, req image.GenerateRequest) (*image.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.calls++
	calls := g.calls
	after := g.afterCall
	fail := ""
	for _, s := range g.failSubstrings {
		if strings.Contains(req.Prompt, s) {
			fail = s
			break
		}
	}
	g.mu.Unlock()

	if after != nil {
		after(calls)
	}
	if fail != "" {
		return nil, errors.New("provider rejected prompt")
	}
	return &image.Asset{Data: []byte("png-bytes"), Format: "image/png", Width: 1024, Height: 1024}, nil
}

type runnerFixture struct {
	runner    *Runner
	repo      *memoryBatchRepo
	ledger    *memoryLedger
	users     *memoryUsers
	generator *scriptedGenerator
}

func newRunnerFixture(t *testing.T, productCount, balance int) *runnerFixture {
	t.Helper()
	repo := newMemoryBatchRepo()
	ledger := newMemoryLedger()
	if _, err := ledger.Grant(context.Background(), testUserID, balance, "seed"); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	generator := &scriptedGenerator{}
	users := newMemoryUsers(testUserID, "fr")
	runner := NewRunner(
		repo,
		newMemoryProducts(testUserID, productCount),
		ledger,
		users,
		generator,
		caption.StaticWriter{},
		store,
		nopLogger(),
		"http://localhost:8080/static",
		0, 0,
	)
	return &runnerFixture{runner: runner, repo: repo, ledger: ledger, users: users, generator: generator}
}

func (f *runnerFixture) seedJob(t *testing.T, productIDs ...string) *domain.BatchJob {
	t.Helper()
	job := &domain.BatchJob{
		ID:               uuid.NewString(),
		UserID:           testUserID,
		ProductIDs:       productIDs,
		Style:            domain.StyleConfiguration{Presentation: domain.PresentationProductOnly, SceneType: domain.SceneStudio},
		Status:           domain.BatchJobStatusPending,
		TotalProducts:    len(productIDs),
		EstimatedCredits: len(productIDs),
	}
	items := make([]domain.BatchItem, 0, len(productIDs))
	for _, pid := range productIDs {
		items = append(items, domain.BatchItem{
			ID:          uuid.NewString(),
			BatchJobID:  job.ID,
			ProductID:   pid,
			Status:      domain.BatchItemStatusQueued,
			CreditsCost: 1,
		})
	}
	if err := f.repo.CreateJob(context.Background(), job, items); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func (f *runnerFixture) run(t *testing.T, jobID string) {
	t.Helper()
	if err := f.runner.Run(context.Background(), dispatch.Task{BatchJobID: jobID, UserID: testUserID}); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunnerCompletesAllItems(t *testing.T) {
	f := newRunnerFixture(t, 3, 10)
	job := f.seedJob(t, "prod-1", "prod-2", "prod-3")

	f.run(t, job.ID)

	final, _ := f.repo.JobByID(context.Background(), job.ID)
	if final.Status != domain.BatchJobStatusCompleted {
		t.Fatalf("status = %s, want completed", final.Status)
	}
	if final.ProcessedCount != 3 || final.SuccessCount != 3 || final.FailedCount != 0 {
		t.Fatalf("counters = %+v", final)
	}
	if final.UsedCredits != 3 {
		t.Fatalf("used credits = %d, want 3", final.UsedCredits)
	}
	if final.CompletedAt == nil {
		t.Fatal("completed_at not stamped")
	}

	items, _ := f.repo.ItemsByJob(context.Background(), job.ID)
	for _, item := range items {
		if item.Status != domain.BatchItemStatusCompleted {
			t.Fatalf("item %s = %s", item.ID, item.Status)
		}
		if !strings.HasPrefix(item.OutputURL, "http://localhost:8080/static/batches/") {
			t.Fatalf("output url = %q", item.OutputURL)
		}
		if item.Caption == "" {
			t.Fatal("caption missing")
		}
	}

	if balance, _ := f.ledger.Balance(context.Background(), testUserID); balance != 7 {
		t.Fatalf("balance = %d, want 7", balance)
	}
}

func TestRunnerRecordsPartialFailure(t *testing.T) {
	f := newRunnerFixture(t, 3, 10)
	f.generator.failSubstrings = []string{"Product 2"}
	job := f.seedJob(t, "prod-1", "prod-2", "prod-3")

	f.run(t, job.ID)

	final, _ := f.repo.JobByID(context.Background(), job.ID)
	if final.Status != domain.BatchJobStatusPartial {
		t.Fatalf("status = %s, want partial", final.Status)
	}
	if final.ProcessedCount != 3 || final.SuccessCount != 2 || final.FailedCount != 1 {
		t.Fatalf("counters = %+v", final)
	}

	items, _ := f.repo.ItemsByJob(context.Background(), job.ID)
	var failed int
	for _, item := range items {
		if item.Status == domain.BatchItemStatusFailed {
			failed++
			if item.ErrorMessage == "" {
				t.Fatal("failed item missing error message")
			}
		}
	}
	if failed != 1 {
		t.Fatalf("failed items = %d, want 1", failed)
	}

	// Generation failures still consume the debited credit.
	if final.UsedCredits != 2 {
		t.Fatalf("used credits = %d, want 2", final.UsedCredits)
	}
	if balance, _ := f.ledger.Balance(context.Background(), testUserID); balance != 7 {
		t.Fatalf("balance = %d, want 7 (no refunds)", balance)
	}
}

func TestRunnerMarksJobFailedWhenNothingSucceeds(t *testing.T) {
	f := newRunnerFixture(t, 2, 10)
	f.generator.failSubstrings = []string{"Product"}
	job := f.seedJob(t, "prod-1", "prod-2")

	f.run(t, job.ID)

	final, _ := f.repo.JobByID(context.Background(), job.ID)
	if final.Status != domain.BatchJobStatusFailed {
		t.Fatalf("status = %s, want failed", final.Status)
	}
	if final.SuccessCount != 0 || final.FailedCount != 2 {
		t.Fatalf("counters = %+v", final)
	}
}

func TestRunnerAbortsBatchOnCreditExhaustion(t *testing.T) {
	f := newRunnerFixture(t, 5, 2)
	job := f.seedJob(t, "prod-1", "prod-2", "prod-3", "prod-4", "prod-5")

	f.run(t, job.ID)

	final, _ := f.repo.JobByID(context.Background(), job.ID)
	if final.Status != domain.BatchJobStatusPartial {
		t.Fatalf("status = %s, want partial", final.Status)
	}
	if final.ProcessedCount != 5 || final.SuccessCount != 2 || final.FailedCount != 3 {
		t.Fatalf("counters = %+v", final)
	}

	items, _ := f.repo.ItemsByJob(context.Background(), job.ID)
	for i, item := range items {
		if i < 2 {
			if item.Status != domain.BatchItemStatusCompleted {
				t.Fatalf("item %d = %s, want completed", i, item.Status)
			}
			continue
		}
		if item.Status != domain.BatchItemStatusFailed {
			t.Fatalf("item %d = %s, want failed", i, item.Status)
		}
		if item.ErrorMessage != insufficientCreditsMessage {
			t.Fatalf("item %d message = %q", i, item.ErrorMessage)
		}
	}

	// Only two generations should have been attempted.
	if f.generator.calls != 2 {
		t.Fatalf("generator calls = %d, want 2", f.generator.calls)
	}
	if balance, _ := f.ledger.Balance(context.Background(), testUserID); balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestRunnerStopsWhenJobCancelledMidBatch(t *testing.T) {
	f := newRunnerFixture(t, 3, 10)
	job := f.seedJob(t, "prod-1", "prod-2", "prod-3")

	f.generator.afterCall = func(calls int) {
		if calls == 1 {
			if _, err := f.repo.CancelJob(context.Background(), job.ID); err != nil {
				t.Errorf("cancel: %v", err)
			}
		}
	}

	f.run(t, job.ID)

	final, _ := f.repo.JobByID(context.Background(), job.ID)
	if final.Status != domain.BatchJobStatusFailed {
		t.Fatalf("status = %s, want failed after cancel", final.Status)
	}
	// The in-flight item finishes; queued items carry the cancel message and
	// do not touch the counters.
	if final.ProcessedCount != 1 || final.SuccessCount != 1 {
		t.Fatalf("counters = %+v", final)
	}
	if f.generator.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", f.generator.calls)
	}

	items, _ := f.repo.ItemsByJob(context.Background(), job.ID)
	cancelledItems := 0
	for _, item := range items {
		if item.ErrorMessage == domain.CancelledByUserMessage {
			cancelledItems++
		}
	}
	if cancelledItems != 2 {
		t.Fatalf("cancelled items = %d, want 2", cancelledItems)
	}
}

func TestRunnerRedeliveryIsHarmless(t *testing.T) {
	f := newRunnerFixture(t, 2, 10)
	job := f.seedJob(t, "prod-1", "prod-2")

	f.run(t, job.ID)
	f.run(t, job.ID)

	final, _ := f.repo.JobByID(context.Background(), job.ID)
	if final.ProcessedCount != 2 || final.SuccessCount != 2 {
		t.Fatalf("counters after redelivery = %+v", final)
	}
	if f.generator.calls != 2 {
		t.Fatalf("generator calls = %d, want 2", f.generator.calls)
	}
	if balance, _ := f.ledger.Balance(context.Background(), testUserID); balance != 8 {
		t.Fatalf("balance = %d, want 8", balance)
	}
}

func TestRunnerCaptionsFollowUserLocale(t *testing.T) {
	f := newRunnerFixture(t, 1, 5)
	job := f.seedJob(t, "prod-1")

	f.run(t, job.ID)

	items, _ := f.repo.ItemsByJob(context.Background(), job.ID)
	if !strings.HasPrefix(items[0].Caption, "Découvrez") {
		t.Fatalf("caption = %q, want French for fr account", items[0].Caption)
	}

	f = newRunnerFixture(t, 1, 5)
	f.users.user.Locale = "en"
	job = f.seedJob(t, "prod-1")

	f.run(t, job.ID)

	items, _ = f.repo.ItemsByJob(context.Background(), job.ID)
	if !strings.HasPrefix(items[0].Caption, "Discover") {
		t.Fatalf("caption = %q, want English for en account", items[0].Caption)
	}
}

func TestDispatchExhaustionSurfacesJobAsFailed(t *testing.T) {
	f := newRunnerFixture(t, 2, 10)
	job := f.seedJob(t, "prod-1", "prod-2")

	// A handler that never succeeds stands in for a worker that cannot reach
	// its dependencies.
	d := dispatch.NewInProcDispatcher(func(_ context.Context, _ dispatch.Task) error {
		return errors.New("db unavailable")
	}, f.repo, dispatch.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, nopLogger())

	if err := d.Enqueue(context.Background(), dispatch.Task{BatchJobID: job.ID, UserID: testUserID}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	d.Close()

	final, _ := f.repo.JobByID(context.Background(), job.ID)
	if final.Status != domain.BatchJobStatusFailed {
		t.Fatalf("status = %s, want failed once dispatch gave up", final.Status)
	}
	if final.CompletedAt == nil {
		t.Fatal("completed_at not stamped")
	}

	items, _ := f.repo.ItemsByJob(context.Background(), job.ID)
	for _, item := range items {
		if item.Status != domain.BatchItemStatusFailed {
			t.Fatalf("item %s = %s, want failed", item.ID, item.Status)
		}
		if item.ErrorMessage != domain.FailedToStartMessage {
			t.Fatalf("item message = %q", item.ErrorMessage)
		}
	}
}

func TestRunnerDropsUnknownJob(t *testing.T) {
	f := newRunnerFixture(t, 1, 1)
	if err := f.runner.Run(context.Background(), dispatch.Task{BatchJobID: fmt.Sprintf("missing-%s", uuid.NewString())}); err != nil {
		t.Fatalf("unknown job should not error: %v", err)
	}
}
