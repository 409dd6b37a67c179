package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"learningdash-backend/internal/adapters"
	"learningdash-backend/internal/models"
)

// Redis list keys the worker pool blocks on.
const (
	QueueIngestion  = "queue:asset-ingestion"
	QueueEnrichment = "queue:asset-enrichment"
)

const (
	maxTitleLen       = 500
	maxDescriptionLen = 5000
	defaultListLimit  = 10
	maxListLimit      = 100
)

// AssetStore is the persistence surface the ingest service needs.
type AssetStore interface {
	Create(ctx context.Context, a *models.LearningAsset) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.LearningAsset, error)
	List(ctx context.Context, q models.ListLearningAssetsQuery) ([]*models.LearningAsset, int, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
}

// JobStore tracks pipeline jobs and their failure reasons.
type JobStore interface {
	Create(ctx context.Context, j *models.IngestJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.IngestJob, error)
	CancelByAsset(ctx context.Context, assetID uuid.UUID, reason string) error
	LatestErrorByAsset(ctx context.Context, assetID uuid.UUID) (*string, error)
}

// Queue hands asset IDs to the worker pool.
type Queue interface {
	Enqueue(ctx context.Context, queue string, assetID uuid.UUID) error
}

type IngestService struct {
	assets AssetStore
	jobs   JobStore
	queue  Queue
}

func NewIngestService(assets AssetStore, jobs JobStore, queue Queue) *IngestService {
	return &IngestService{assets: assets, jobs: jobs, queue: queue}
}

// Submit validates the request, seeds URL-derivable metadata, persists the
// asset as PENDING and enqueues an ingestion job. Validation collects every
// violated field before returning.
func (s *IngestService) Submit(ctx context.Context, req *models.CreateLearningAssetRequest) (*models.LearningAsset, error) {
	fields := map[string]string{}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		fields["title"] = "title is required"
	} else if len(title) > maxTitleLen {
		fields["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLen)
	}

	if req.Description != nil && len(*req.Description) > maxDescriptionLen {
		fields["description"] = fmt.Sprintf("description must be at most %d characters", maxDescriptionLen)
	}

	if req.SourceType == "" {
		fields["sourceType"] = "sourceType is required"
	} else if !req.SourceType.Valid() {
		fields["sourceType"] = fmt.Sprintf("unsupported source type %q", req.SourceType)
	}

	sourceURL := strings.TrimSpace(req.SourceURL)
	if sourceURL == "" {
		fields["sourceUrl"] = "sourceUrl is required"
	} else if err := adapters.ValidateHTTPURL(sourceURL); err != nil {
		fields["sourceUrl"] = err.Error()
	}

	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		fields["rating"] = "rating must be between 1 and 5"
	}

	meta := models.AssetMetadata{}
	if req.Metadata != nil {
		meta = *req.Metadata
		if meta.Difficulty != nil && !meta.Difficulty.Valid() {
			fields["metadata.difficulty"] = "difficulty must be beginner, intermediate or advanced"
		}
	}

	// Required per-source fields are all derivable from the URL, so a bare
	// URL submission is enough; explicit metadata still wins.
	if req.SourceType.Valid() && sourceURL != "" {
		seedMetadata(&meta, req.SourceType, sourceURL)
		for _, f := range meta.MissingFields(req.SourceType) {
			fields["metadata."+f] = fmt.Sprintf("%s could not be derived from sourceUrl", f)
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	now := time.Now()
	asset := &models.LearningAsset{
		ID:          uuid.New(),
		Title:       title,
		Description: req.Description,
		SourceType:  req.SourceType,
		SourceURL:   sourceURL,
		Metadata:    meta,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		UserID:      req.UserID,
		Notes:       req.Notes,
		Rating:      req.Rating,
	}

	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}

	job := &models.IngestJob{
		AssetID: asset.ID,
		Type:    models.JobTypeIngestion,
		UserID:  req.UserID,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create ingestion job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, QueueIngestion, asset.ID); err != nil {
		// The asset row exists but no worker will pick it up; fail it so
		// the caller sees a terminal state rather than a stuck PENDING.
		if _, ferr := s.assets.MarkFailed(ctx, asset.ID); ferr != nil {
			log.Printf("failed to mark asset %s failed after enqueue error: %v", asset.ID, ferr)
		}
		if cerr := s.jobs.CancelByAsset(ctx, asset.ID, "failed to enqueue ingestion job"); cerr != nil {
			log.Printf("failed to record enqueue error for asset %s: %v", asset.ID, cerr)
		}
		return nil, fmt.Errorf("enqueue ingestion job: %w", err)
	}

	return asset, nil
}

// seedMetadata fills required fields that are derivable from the source URL,
// never overwriting values the caller supplied.
func seedMetadata(meta *models.AssetMetadata, st models.SourceType, sourceURL string) {
	switch st {
	case models.SourceYouTubeVideo:
		if meta.VideoID == nil || *meta.VideoID == "" {
			if id := adapters.ExtractVideoID(sourceURL); id != "" {
				meta.VideoID = &id
			}
		}
	case models.SourceArticle, models.SourcePDFDocument:
		if meta.URL == nil || *meta.URL == "" {
			u := sourceURL
			meta.URL = &u
		}
	case models.SourceGitHubRepo:
		owner, name, err := adapters.ParseGitHubRepoURL(sourceURL)
		if err != nil {
			return
		}
		if meta.RepoOwner == nil || *meta.RepoOwner == "" {
			meta.RepoOwner = &owner
		}
		if meta.RepoName == nil || *meta.RepoName == "" {
			meta.RepoName = &name
		}
		if meta.RepoURL == nil || *meta.RepoURL == "" {
			u := sourceURL
			meta.RepoURL = &u
		}
	case models.SourceTweet:
		username, tweetID, err := adapters.ParseTweetURL(sourceURL)
		if err != nil {
			return
		}
		if meta.Username == nil || *meta.Username == "" {
			meta.Username = &username
		}
		if meta.TweetID == nil || *meta.TweetID == "" {
			meta.TweetID = &tweetID
		}
	}
}

func (s *IngestService) Get(ctx context.Context, id uuid.UUID) (*models.LearningAsset, error) {
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "asset not found"}
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}

	// The asset row never stores error text; the failure reason rides along
	// from the jobs table on reads of failed assets.
	if asset.Status == models.StatusFailed {
		if reason, err := s.jobs.LatestErrorByAsset(ctx, id); err == nil {
			asset.LastError = reason
		}
	}

	return asset, nil
}

// List normalizes pagination, validates filters and sort parameters, and runs
// the query. Defaults: limit 10 (cap 100), newest first.
func (s *IngestService) List(ctx context.Context, q models.ListLearningAssetsQuery) (*models.ListLearningAssetsResponse, error) {
	fields := map[string]string{}

	if q.Limit < 0 {
		fields["limit"] = "limit must not be negative"
	}
	if q.Offset < 0 {
		fields["offset"] = "offset must not be negative"
	}
	if q.SourceType != nil && !q.SourceType.Valid() {
		fields["sourceType"] = fmt.Sprintf("unsupported source type %q", *q.SourceType)
	}
	if q.Status != nil && !q.Status.Valid() {
		fields["status"] = fmt.Sprintf("unknown status %q", *q.Status)
	}
	if q.SortBy != "" {
		if _, ok := models.SortColumn(q.SortBy); !ok {
			fields["sortBy"] = fmt.Sprintf("cannot sort by %q", q.SortBy)
		}
	}
	if q.SortOrder != "" && q.SortOrder != "asc" && q.SortOrder != "desc" {
		fields["sortOrder"] = "sortOrder must be asc or desc"
	}

	if len(fields) > 0 {
		return nil, &InvalidQueryError{Fields: fields}
	}

	if q.Limit == 0 {
		q.Limit = defaultListLimit
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	if q.SortBy == "" {
		q.SortBy = "createdAt"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}

	assets, total, err := s.assets.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	if assets == nil {
		assets = []*models.LearningAsset{}
	}

	return &models.ListLearningAssetsResponse{
		Assets: assets,
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	}, nil
}

// Cancel stops a PENDING or PROCESSING asset: the asset goes to FAILED and its
// live jobs record "cancelled". Cancelling a terminal asset is a no-op; the
// current state is returned with Cancelled=false.
func (s *IngestService) Cancel(ctx context.Context, id uuid.UUID) (*models.CancelAssetResponse, error) {
	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if asset.Status.Terminal() {
		return &models.CancelAssetResponse{
			Asset:     asset,
			Cancelled: false,
			Message:   fmt.Sprintf("asset already %s", asset.Status),
		}, nil
	}

	// The conditional update loses the race against a worker finishing the
	// asset; in that case report the final state instead of a cancellation.
	cancelled, err := s.assets.MarkFailed(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cancel asset: %w", err)
	}
	if cancelled {
		if err := s.jobs.CancelByAsset(ctx, id, "cancelled"); err != nil {
			log.Printf("failed to cancel jobs for asset %s: %v", id, err)
		}
	}

	asset, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	msg := "asset cancelled"
	if !cancelled {
		msg = fmt.Sprintf("asset already %s", asset.Status)
	}
	return &models.CancelAssetResponse{Asset: asset, Cancelled: cancelled, Message: msg}, nil
}

// GetJob returns a pipeline job with its failure reason, if any.
func (s *IngestService) GetJob(ctx context.Context, id uuid.UUID) (*models.IngestJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "job not found"}
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}
