package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"learningdash-backend/internal/models"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func (r *JobRepo) Create(ctx context.Context, j *models.IngestJob) error {
	j.ID = uuid.New()
	j.Status = "pending"

	query := `INSERT INTO asset_jobs (id, asset_id, type, user_id, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		j.ID, j.AssetID, j.Type, j.UserID, j.Status,
	).Scan(&j.CreatedAt)
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.IngestJob, error) {
	j := &models.IngestJob{}
	query := `SELECT id, asset_id, type, user_id, status, error_message, created_at, completed_at
		FROM asset_jobs WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.AssetID, &j.Type, &j.UserID, &j.Status,
		&j.ErrorMessage, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if status == "completed" || status == "failed" {
		now := time.Now()
		_, err := r.pool.Exec(ctx,
			"UPDATE asset_jobs SET status = $1, completed_at = $2 WHERE id = $3",
			status, now, id,
		)
		return err
	}
	_, err := r.pool.Exec(ctx, "UPDATE asset_jobs SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *JobRepo) UpdateError(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE asset_jobs SET status = 'failed', error_message = $1, completed_at = NOW() WHERE id = $2",
		errMsg, id,
	)
	return err
}

// LiveByAsset finds the newest pending or processing job of the given type for
// an asset. Workers dequeue asset IDs, not job IDs, so this is how a worker
// picks up the row it should report progress on.
func (r *JobRepo) LiveByAsset(ctx context.Context, assetID uuid.UUID, jobType string) (*models.IngestJob, error) {
	j := &models.IngestJob{}
	query := `SELECT id, asset_id, type, user_id, status, error_message, created_at, completed_at
		FROM asset_jobs
		WHERE asset_id = $1 AND type = $2 AND status IN ('pending', 'processing')
		ORDER BY created_at DESC LIMIT 1`

	err := r.pool.QueryRow(ctx, query, assetID, jobType).Scan(
		&j.ID, &j.AssetID, &j.Type, &j.UserID, &j.Status,
		&j.ErrorMessage, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// CancelByAsset fails every live job for the asset with the given reason.
// Used when a caller cancels an asset mid-flight.
func (r *JobRepo) CancelByAsset(ctx context.Context, assetID uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE asset_jobs SET status = 'failed', error_message = $1, completed_at = NOW()
		 WHERE asset_id = $2 AND status IN ('pending', 'processing')`,
		reason, assetID,
	)
	return err
}

// LatestErrorByAsset surfaces the most recent failure reason recorded for an
// asset, if any.
func (r *JobRepo) LatestErrorByAsset(ctx context.Context, assetID uuid.UUID) (*string, error) {
	var msg *string
	err := r.pool.QueryRow(ctx,
		`SELECT error_message FROM asset_jobs
		 WHERE asset_id = $1 AND error_message IS NOT NULL
		 ORDER BY created_at DESC LIMIT 1`,
		assetID,
	).Scan(&msg)
	if err != nil {
		return nil, err
	}
	return msg, nil
}
