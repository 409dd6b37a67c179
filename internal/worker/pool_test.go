package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learningdash-backend/internal/adapters"
	"learningdash-backend/internal/models"
	"learningdash-backend/internal/services"
)

type fakeAssets struct {
	assets map[uuid.UUID]*models.LearningAsset
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{assets: make(map[uuid.UUID]*models.LearningAsset)}
}

func (f *fakeAssets) GetByID(_ context.Context, id uuid.UUID) (*models.LearningAsset, error) {
	a, ok := f.assets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssets) MarkProcessing(_ context.Context, id uuid.UUID) (bool, error) {
	a, ok := f.assets[id]
	if !ok || a.Status != models.StatusPending {
		return false, nil
	}
	a.Status = models.StatusProcessing
	return true, nil
}

func (f *fakeAssets) MarkCompleted(_ context.Context, id uuid.UUID, meta models.AssetMetadata, content *string) (bool, error) {
	a, ok := f.assets[id]
	if !ok || a.Status != models.StatusProcessing {
		return false, nil
	}
	now := time.Now()
	a.Status = models.StatusCompleted
	a.Metadata = meta
	a.Content = content
	a.ProcessedAt = &now
	return true, nil
}

func (f *fakeAssets) MarkFailed(_ context.Context, id uuid.UUID) (bool, error) {
	a, ok := f.assets[id]
	if !ok || a.Status.Terminal() {
		return false, nil
	}
	now := time.Now()
	a.Status = models.StatusFailed
	a.ProcessedAt = &now
	return true, nil
}

func (f *fakeAssets) UpdateEnrichment(_ context.Context, id uuid.UUID, summary string, takeaways, topics []string) error {
	a, ok := f.assets[id]
	if !ok || a.Status != models.StatusCompleted {
		return nil
	}
	a.Summary = &summary
	a.KeyTakeaways = takeaways
	a.Topics = topics
	return nil
}

type fakeJobs struct {
	jobs map[uuid.UUID]*models.IngestJob
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[uuid.UUID]*models.IngestJob)}
}

func (f *fakeJobs) Create(_ context.Context, j *models.IngestJob) error {
	j.ID = uuid.New()
	j.Status = "pending"
	j.CreatedAt = time.Now()
	f.jobs[j.ID] = j
	return nil
}

func (f *fakeJobs) LiveByAsset(_ context.Context, assetID uuid.UUID, jobType string) (*models.IngestJob, error) {
	for _, j := range f.jobs {
		if j.AssetID == assetID && j.Type == jobType && (j.Status == "pending" || j.Status == "processing") {
			return j, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeJobs) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	if j, ok := f.jobs[id]; ok {
		j.Status = status
	}
	return nil
}

func (f *fakeJobs) UpdateError(_ context.Context, id uuid.UUID, errMsg string) error {
	if j, ok := f.jobs[id]; ok {
		j.Status = "failed"
		j.ErrorMessage = &errMsg
	}
	return nil
}

func (f *fakeJobs) byType(jobType string) *models.IngestJob {
	for _, j := range f.jobs {
		if j.Type == jobType {
			return j
		}
	}
	return nil
}

type fakeQueue struct {
	enqueued []string
	err      error
}

func (f *fakeQueue) Enqueue(_ context.Context, queue string, _ uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, queue)
	return nil
}

type fakeEvents struct {
	messages []models.WSMessage
}

func (f *fakeEvents) Publish(_ context.Context, _ *string, msg models.WSMessage) {
	f.messages = append(f.messages, msg)
}

func (f *fakeEvents) lastOfType(msgType string) *models.WSMessage {
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].Type == msgType {
			return &f.messages[i]
		}
	}
	return nil
}

type fakeAdapter struct {
	fetch func(ctx context.Context, sourceURL string) (*adapters.Fragment, error)
}

func (f *fakeAdapter) Fetch(ctx context.Context, sourceURL string) (*adapters.Fragment, error) {
	return f.fetch(ctx, sourceURL)
}

type fakeEnricher struct {
	enrich func(ctx context.Context, asset *models.LearningAsset) (*services.Enrichment, error)
}

func (f *fakeEnricher) Enrich(ctx context.Context, asset *models.LearningAsset) (*services.Enrichment, error) {
	return f.enrich(ctx, asset)
}

func (f *fakeEnricher) Close() {}

type poolFixture struct {
	pool   *Pool
	assets *fakeAssets
	jobs   *fakeJobs
	queue  *fakeQueue
	events *fakeEvents
}

func newPoolFixture(adapter adapters.Adapter, enricher services.Enricher) *poolFixture {
	registry := adapters.NewRegistry()
	if adapter != nil {
		registry.Register(models.SourceArticle, adapter)
	}

	assets := newFakeAssets()
	jobs := newFakeJobs()
	queue := &fakeQueue{}
	events := &fakeEvents{}

	return &poolFixture{
		pool:   NewPool(nil, registry, enricher, assets, jobs, queue, events, 1, 50*time.Millisecond, 50*time.Millisecond),
		assets: assets,
		jobs:   jobs,
		queue:  queue,
		events: events,
	}
}

func (fx *poolFixture) seedPendingAsset(t *testing.T) *models.LearningAsset {
	t.Helper()
	url := "https://example.com/post"
	asset := &models.LearningAsset{
		ID:         uuid.New(),
		Title:      "article",
		SourceType: models.SourceArticle,
		SourceURL:  url,
		Metadata:   models.AssetMetadata{URL: &url},
		Status:     models.StatusPending,
	}
	fx.assets.assets[asset.ID] = asset
	require.NoError(t, fx.jobs.Create(context.Background(), &models.IngestJob{
		AssetID: asset.ID,
		Type:    models.JobTypeIngestion,
	}))
	return asset
}

func TestProcessIngestionTimeout(t *testing.T) {
	adapter := &fakeAdapter{
		fetch: func(ctx context.Context, _ string) (*adapters.Fragment, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	fx := newPoolFixture(adapter, nil)
	asset := fx.seedPendingAsset(t)

	task, err := fx.pool.processIngestion(context.Background(), 0, asset.ID)
	require.NoError(t, err)
	assert.Nil(t, task)

	got := fx.assets.assets[asset.ID]
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.NotNil(t, got.ProcessedAt)

	job := fx.jobs.byType(models.JobTypeIngestion)
	require.NotNil(t, job)
	assert.Equal(t, "failed", job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "fetch timed out after")

	errEvent := fx.events.lastOfType("asset_error")
	require.NotNil(t, errEvent)
}

func TestProcessIngestionSuccessSchedulesEnrichment(t *testing.T) {
	author := "Jean Doe"
	adapter := &fakeAdapter{
		fetch: func(_ context.Context, _ string) (*adapters.Fragment, error) {
			return &adapters.Fragment{
				Metadata: models.AssetMetadata{Author: &author},
				Content:  "article body",
			}, nil
		},
	}
	enricher := &fakeEnricher{}
	fx := newPoolFixture(adapter, enricher)
	asset := fx.seedPendingAsset(t)

	task, err := fx.pool.processIngestion(context.Background(), 0, asset.ID)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, asset.ID, task.assetID)

	got := fx.assets.assets[asset.ID]
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.Metadata.Author)
	assert.Equal(t, author, *got.Metadata.Author)
	// Fragment merge keeps the submitted URL
	require.NotNil(t, got.Metadata.URL)
	require.NotNil(t, got.Content)
	assert.Equal(t, "article body", *got.Content)

	assert.Equal(t, "completed", fx.jobs.byType(models.JobTypeIngestion).Status)

	ejob := fx.jobs.byType(models.JobTypeEnrichment)
	require.NotNil(t, ejob, "enrichment job row created")
	assert.Equal(t, "pending", ejob.Status)
	assert.Equal(t, ejob.ID, task.jobID)
	// The queue push is the caller's job, after the asset lock is released
	assert.Empty(t, fx.queue.enqueued)

	fx.pool.enqueueEnrichment(context.Background(), 0, task)
	assert.Equal(t, []string{services.QueueEnrichment}, fx.queue.enqueued)
}

func TestProcessIngestionSkipsCancelledAsset(t *testing.T) {
	adapter := &fakeAdapter{
		fetch: func(_ context.Context, _ string) (*adapters.Fragment, error) {
			t.Fatal("adapter must not run for a terminal asset")
			return nil, nil
		},
	}
	fx := newPoolFixture(adapter, nil)
	asset := fx.seedPendingAsset(t)
	fx.assets.assets[asset.ID].Status = models.StatusFailed

	task, err := fx.pool.processIngestion(context.Background(), 0, asset.ID)
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.Equal(t, models.StatusFailed, fx.assets.assets[asset.ID].Status)
}

func TestProcessIngestionCancelledMidFetch(t *testing.T) {
	var fx *poolFixture
	var assetID uuid.UUID
	adapter := &fakeAdapter{
		fetch: func(_ context.Context, _ string) (*adapters.Fragment, error) {
			// Cancellation lands while the fetch is in flight
			fx.assets.assets[assetID].Status = models.StatusFailed
			return &adapters.Fragment{Content: "too late"}, nil
		},
	}
	fx = newPoolFixture(adapter, &fakeEnricher{})
	asset := fx.seedPendingAsset(t)
	assetID = asset.ID

	task, err := fx.pool.processIngestion(context.Background(), 0, asset.ID)
	require.NoError(t, err)

	assert.Nil(t, task, "no enrichment for a cancelled asset")
	assert.Equal(t, models.StatusFailed, fx.assets.assets[asset.ID].Status)
	assert.Nil(t, fx.assets.assets[asset.ID].Content)
}

func TestProcessIngestionMissingMetadata(t *testing.T) {
	fx := newPoolFixture(nil, nil)
	asset := fx.seedPendingAsset(t)
	fx.assets.assets[asset.ID].Metadata = models.AssetMetadata{}

	task, err := fx.pool.processIngestion(context.Background(), 0, asset.ID)
	require.NoError(t, err)
	assert.Nil(t, task)

	assert.Equal(t, models.StatusFailed, fx.assets.assets[asset.ID].Status)
	job := fx.jobs.byType(models.JobTypeIngestion)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "missing required metadata")
}

func seedCompletedAsset(t *testing.T, fx *poolFixture) *models.LearningAsset {
	t.Helper()
	asset := fx.seedPendingAsset(t)
	content := "article body"
	a := fx.assets.assets[asset.ID]
	a.Status = models.StatusCompleted
	a.Content = &content
	require.NoError(t, fx.jobs.Create(context.Background(), &models.IngestJob{
		AssetID: asset.ID,
		Type:    models.JobTypeEnrichment,
	}))
	return asset
}

func TestProcessEnrichmentSuccess(t *testing.T) {
	enricher := &fakeEnricher{
		enrich: func(_ context.Context, _ *models.LearningAsset) (*services.Enrichment, error) {
			return &services.Enrichment{
				Summary:      "a summary",
				KeyTakeaways: []string{"one"},
				Topics:       []string{"go"},
			}, nil
		},
	}
	fx := newPoolFixture(nil, enricher)
	asset := seedCompletedAsset(t, fx)

	require.NoError(t, fx.pool.processEnrichment(context.Background(), 0, asset.ID))

	got := fx.assets.assets[asset.ID]
	require.NotNil(t, got.Summary)
	assert.Equal(t, "a summary", *got.Summary)
	assert.Equal(t, []string{"go"}, got.Topics)
	assert.Equal(t, "completed", fx.jobs.byType(models.JobTypeEnrichment).Status)
}

func TestProcessEnrichmentFailureKeepsCompleted(t *testing.T) {
	enricher := &fakeEnricher{
		enrich: func(_ context.Context, _ *models.LearningAsset) (*services.Enrichment, error) {
			return nil, errors.New("model unavailable")
		},
	}
	fx := newPoolFixture(nil, enricher)
	asset := seedCompletedAsset(t, fx)

	require.NoError(t, fx.pool.processEnrichment(context.Background(), 0, asset.ID))

	got := fx.assets.assets[asset.ID]
	assert.Equal(t, models.StatusCompleted, got.Status, "enrichment failure never reverts status")
	assert.Nil(t, got.Summary)

	job := fx.jobs.byType(models.JobTypeEnrichment)
	assert.Equal(t, "failed", job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "model unavailable")
}

func TestEnqueueEnrichmentFailureRecordedOnJob(t *testing.T) {
	fx := newPoolFixture(nil, &fakeEnricher{})
	fx.queue.err = errors.New("redis down")

	ejob := &models.IngestJob{AssetID: uuid.New(), Type: models.JobTypeEnrichment}
	require.NoError(t, fx.jobs.Create(context.Background(), ejob))

	fx.pool.enqueueEnrichment(context.Background(), 0, &enrichmentTask{jobID: ejob.ID, assetID: ejob.AssetID})

	assert.Equal(t, "failed", fx.jobs.jobs[ejob.ID].Status)
	require.NotNil(t, fx.jobs.jobs[ejob.ID].ErrorMessage)
	assert.Contains(t, *fx.jobs.jobs[ejob.ID].ErrorMessage, "failed to enqueue")
}
