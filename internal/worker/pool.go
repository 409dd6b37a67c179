package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"learningdash-backend/internal/adapters"
	"learningdash-backend/internal/models"
	"learningdash-backend/internal/services"
)

// AssetStore is the persistence surface the pool drives assets through.
type AssetStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.LearningAsset, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, meta models.AssetMetadata, content *string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateEnrichment(ctx context.Context, id uuid.UUID, summary string, takeaways, topics []string) error
}

// JobStore tracks the pipeline job rows the pool reports progress on.
type JobStore interface {
	Create(ctx context.Context, j *models.IngestJob) error
	LiveByAsset(ctx context.Context, assetID uuid.UUID, jobType string) (*models.IngestJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string) error
}

// EventPublisher fans asset lifecycle events out to listeners.
type EventPublisher interface {
	Publish(ctx context.Context, userID *string, msg models.WSMessage)
}

// Pool drains the ingestion and enrichment queues. Each dequeued asset is
// guarded by a per-asset Redis lock so concurrent workers (or duplicate
// enqueues) never process the same asset twice.
type Pool struct {
	redis    *redis.Client
	adapters *adapters.Registry
	enricher services.Enricher // nil when no API key is configured
	assets   AssetStore
	jobs     JobStore
	queue    services.Queue
	events   EventPublisher

	workerCount    int
	adapterTimeout time.Duration
	enrichTimeout  time.Duration

	stopChan chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	registry *adapters.Registry,
	enricher services.Enricher,
	assets AssetStore,
	jobs JobStore,
	queue services.Queue,
	events EventPublisher,
	workerCount int,
	adapterTimeout, enrichTimeout time.Duration,
) *Pool {
	return &Pool{
		redis:          redisClient,
		adapters:       registry,
		enricher:       enricher,
		assets:         assets,
		jobs:           jobs,
		queue:          queue,
		events:         events,
		workerCount:    workerCount,
		adapterTimeout: adapterTimeout,
		enrichTimeout:  enrichTimeout,
		stopChan:       make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		services.QueueIngestion,
		services.QueueEnrichment,
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}
		queue, payload := result[0], result[1]

		assetID, err := uuid.Parse(payload)
		if err != nil {
			log.Printf("Worker %d: bad queue payload %q: %v", id, payload, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("asset_lock:%s", assetID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			// Another worker holds this asset. Put the work back instead of
			// dropping it; the holder releases the lock when it finishes.
			p.redis.RPush(ctx, queue, payload)
			time.Sleep(time.Second)
			continue
		}

		switch queue {
		case services.QueueIngestion:
			task, err := p.processIngestion(ctx, id, assetID)
			if err != nil {
				log.Printf("Worker %d: ingestion of %s failed: %v", id, assetID, err)
			}
			p.redis.Del(ctx, lockKey)
			// Enqueue only after the asset lock is released: an idle worker
			// pops the job immediately, and must be able to take the lock.
			if task != nil {
				p.enqueueEnrichment(ctx, id, task)
			}
		case services.QueueEnrichment:
			if err := p.processEnrichment(ctx, id, assetID); err != nil {
				log.Printf("Worker %d: enrichment of %s failed: %v", id, assetID, err)
			}
			p.redis.Del(ctx, lockKey)
		default:
			p.redis.Del(ctx, lockKey)
		}
	}
}

// enrichmentTask is the follow-up work an ingestion leaves behind: the
// enrichment job row exists, the queue push is still pending.
type enrichmentTask struct {
	jobID   uuid.UUID
	assetID uuid.UUID
}

// processIngestion runs one asset through its source adapter:
// PENDING → PROCESSING → COMPLETED, or FAILED on any error. A cancelled asset
// is detected through the conditional status updates and simply dropped. The
// returned task, if any, must be enqueued by the caller after the asset lock
// is released.
func (p *Pool) processIngestion(ctx context.Context, workerID int, assetID uuid.UUID) (*enrichmentTask, error) {
	asset, err := p.assets.GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("Worker %d: asset %s no longer exists, dropping", workerID, assetID)
			return nil, nil
		}
		return nil, fmt.Errorf("load asset: %w", err)
	}

	if asset.Status != models.StatusPending {
		// Cancelled or already picked up elsewhere.
		return nil, nil
	}

	job, err := p.jobs.LiveByAsset(ctx, assetID, models.JobTypeIngestion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // cancelled between enqueue and dequeue
		}
		return nil, fmt.Errorf("load job: %w", err)
	}

	if missing := asset.Metadata.MissingFields(asset.SourceType); len(missing) > 0 {
		return nil, p.failAsset(ctx, asset, job, fmt.Sprintf("missing required metadata: %v", missing))
	}

	adapter, ok := p.adapters.Get(asset.SourceType)
	if !ok {
		return nil, p.failAsset(ctx, asset, job, fmt.Sprintf("no adapter for source type %s", asset.SourceType))
	}

	advanced, err := p.assets.MarkProcessing(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	if !advanced {
		return nil, nil // lost the race, most likely a cancellation
	}
	p.jobs.UpdateStatus(ctx, job.ID, "processing")
	p.publishStatus(ctx, asset, job, models.StatusProcessing, "fetching source")

	fetchCtx, cancel := context.WithTimeout(ctx, p.adapterTimeout)
	frag, err := adapter.Fetch(fetchCtx, asset.SourceURL)
	cancel()
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("fetch timed out after %s", p.adapterTimeout)
		}
		return nil, p.failAsset(ctx, asset, job, reason)
	}

	merged := asset.Metadata.Merge(frag.Metadata)
	var content *string
	if frag.Content != "" {
		content = &frag.Content
	}

	completed, err := p.assets.MarkCompleted(ctx, assetID, merged, content)
	if err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}
	if !completed {
		return nil, nil // cancelled mid-fetch; CancelByAsset already closed the job
	}
	p.jobs.UpdateStatus(ctx, job.ID, "completed")

	asset.Metadata = merged
	asset.Content = content
	p.publishStatus(ctx, asset, job, models.StatusCompleted, "ingestion complete")

	if p.enricher == nil {
		return nil, nil
	}

	ejob := &models.IngestJob{
		AssetID: asset.ID,
		Type:    models.JobTypeEnrichment,
		UserID:  job.UserID,
	}
	if err := p.jobs.Create(ctx, ejob); err != nil {
		log.Printf("Worker %d: failed to create enrichment job for %s: %v", workerID, asset.ID, err)
		return nil, nil
	}
	return &enrichmentTask{jobID: ejob.ID, assetID: asset.ID}, nil
}

func (p *Pool) enqueueEnrichment(ctx context.Context, workerID int, task *enrichmentTask) {
	if err := p.queue.Enqueue(ctx, services.QueueEnrichment, task.assetID); err != nil {
		log.Printf("Worker %d: failed to enqueue enrichment for %s: %v", workerID, task.assetID, err)
		p.jobs.UpdateError(ctx, task.jobID, "failed to enqueue enrichment job")
	}
}

// processEnrichment attaches AI summary/takeaways/topics to a COMPLETED asset.
// Failures are recorded on the job and logged; the asset keeps COMPLETED.
func (p *Pool) processEnrichment(ctx context.Context, workerID int, assetID uuid.UUID) error {
	if p.enricher == nil {
		return nil
	}

	asset, err := p.assets.GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load asset: %w", err)
	}
	if asset.Status != models.StatusCompleted {
		return nil
	}

	job, err := p.jobs.LiveByAsset(ctx, assetID, models.JobTypeEnrichment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load job: %w", err)
	}
	p.jobs.UpdateStatus(ctx, job.ID, "processing")

	enrichCtx, cancel := context.WithTimeout(ctx, p.enrichTimeout)
	enrichment, err := p.enricher.Enrich(enrichCtx, asset)
	cancel()
	if err != nil {
		log.Printf("Worker %d: enrichment of %s failed: %v", workerID, assetID, err)
		p.jobs.UpdateError(ctx, job.ID, err.Error())
		p.publishError(ctx, asset, job, "enrichment", err.Error())
		return nil
	}

	if err := p.assets.UpdateEnrichment(ctx, assetID, enrichment.Summary, enrichment.KeyTakeaways, enrichment.Topics); err != nil {
		p.jobs.UpdateError(ctx, job.ID, "failed to store enrichment")
		return fmt.Errorf("store enrichment: %w", err)
	}
	p.jobs.UpdateStatus(ctx, job.ID, "completed")
	p.publishStatus(ctx, asset, job, models.StatusCompleted, "enrichment complete")

	return nil
}

// failAsset moves the asset to FAILED, records the reason on the job row and
// notifies listeners. The asset row itself never stores error text.
func (p *Pool) failAsset(ctx context.Context, asset *models.LearningAsset, job *models.IngestJob, reason string) error {
	if _, err := p.assets.MarkFailed(ctx, asset.ID); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if err := p.jobs.UpdateError(ctx, job.ID, reason); err != nil {
		log.Printf("failed to record error for job %s: %v", job.ID, err)
	}
	p.publishError(ctx, asset, job, "ingestion", reason)
	return nil
}

func (p *Pool) publishStatus(ctx context.Context, asset *models.LearningAsset, job *models.IngestJob, status models.ProcessingStatus, stage string) {
	p.events.Publish(ctx, job.UserID, models.WSMessage{
		Type: "asset_status",
		Payload: models.AssetStatusEvent{
			AssetID: asset.ID,
			Status:  status,
			Stage:   stage,
		},
	})
}

func (p *Pool) publishError(ctx context.Context, asset *models.LearningAsset, job *models.IngestJob, stage, reason string) {
	p.events.Publish(ctx, job.UserID, models.WSMessage{
		Type: "asset_error",
		Payload: models.AssetErrorEvent{
			AssetID:      asset.ID,
			Stage:        stage,
			ErrorMessage: reason,
		},
	})
}
