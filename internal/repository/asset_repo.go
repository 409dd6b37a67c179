package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"learningdash-backend/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const assetColumns = `id, title, description, source_type, source_url, metadata, status,
	created_at, updated_at, processed_at, summary, key_takeaways, topics,
	user_id, notes, rating, content`

type AssetRepo struct {
	pool *pgxpool.Pool
}

func NewAssetRepo(pool *pgxpool.Pool) *AssetRepo {
	return &AssetRepo{pool: pool}
}

func (r *AssetRepo) Create(ctx context.Context, a *models.LearningAsset) error {
	query := `INSERT INTO learning_assets
		(id, title, description, source_type, source_url, metadata, status,
		 created_at, updated_at, user_id, notes, rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Title, a.Description, a.SourceType, a.SourceURL, a.Metadata,
		a.Status, a.CreatedAt, a.UpdatedAt, a.UserID, a.Notes, a.Rating,
	)
	return err
}

func (r *AssetRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.LearningAsset, error) {
	query := "SELECT " + assetColumns + " FROM learning_assets WHERE id = $1"

	a := &models.LearningAsset{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Title, &a.Description, &a.SourceType, &a.SourceURL, &a.Metadata,
		&a.Status, &a.CreatedAt, &a.UpdatedAt, &a.ProcessedAt, &a.Summary,
		&a.KeyTakeaways, &a.Topics, &a.UserID, &a.Notes, &a.Rating, &a.Content,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List runs the filtered/paginated query. The caller validates the query
// first; sort fields reaching this point are assumed to be allow-listed.
func (r *AssetRepo) List(ctx context.Context, q models.ListLearningAssetsQuery) ([]*models.LearningAsset, int, error) {
	countSQL, countArgs, err := buildCountQuery(q)
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := buildListQuery(q)
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var assets []*models.LearningAsset
	for rows.Next() {
		a := &models.LearningAsset{}
		err := rows.Scan(
			&a.ID, &a.Title, &a.Description, &a.SourceType, &a.SourceURL, &a.Metadata,
			&a.Status, &a.CreatedAt, &a.UpdatedAt, &a.ProcessedAt, &a.Summary,
			&a.KeyTakeaways, &a.Topics, &a.UserID, &a.Notes, &a.Rating, &a.Content,
		)
		if err != nil {
			return nil, 0, err
		}
		assets = append(assets, a)
	}

	return assets, total, rows.Err()
}

func applyFilters(b sq.SelectBuilder, q models.ListLearningAssetsQuery) sq.SelectBuilder {
	if q.SourceType != nil {
		b = b.Where(sq.Eq{"source_type": *q.SourceType})
	}
	if q.Status != nil {
		b = b.Where(sq.Eq{"status": *q.Status})
	}
	if q.UserID != nil {
		b = b.Where(sq.Eq{"user_id": *q.UserID})
	}
	return b
}

func buildCountQuery(q models.ListLearningAssetsQuery) (string, []interface{}, error) {
	return applyFilters(psql.Select("COUNT(*)").From("learning_assets"), q).ToSql()
}

func buildListQuery(q models.ListLearningAssetsQuery) (string, []interface{}, error) {
	col, ok := models.SortColumn(q.SortBy)
	if !ok {
		col = "created_at"
	}

	dir := "DESC"
	if q.SortOrder == "asc" {
		dir = "ASC"
	}

	order := fmt.Sprintf("%s %s", col, dir)
	if col == "rating" {
		order += " NULLS LAST"
	}

	b := applyFilters(psql.Select(assetColumns).From("learning_assets"), q).
		OrderBy(order, "id ASC"). // id tiebreak keeps pagination stable
		Limit(uint64(q.Limit)).
		Offset(uint64(q.Offset))

	return b.ToSql()
}

// MarkProcessing advances PENDING → PROCESSING. Returns false when the asset
// already left PENDING; transitions never run backwards.
func (r *AssetRepo) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE learning_assets SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		models.StatusProcessing, id, models.StatusPending,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCompleted advances PROCESSING → COMPLETED with the merged metadata and
// extracted content. A cancelled asset (already FAILED) is left untouched.
func (r *AssetRepo) MarkCompleted(ctx context.Context, id uuid.UUID, meta models.AssetMetadata, content *string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE learning_assets
		 SET status = $1, metadata = $2, content = $3, processed_at = NOW(), updated_at = NOW()
		 WHERE id = $4 AND status = $5`,
		models.StatusCompleted, meta, content, id, models.StatusProcessing,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed moves a non-terminal asset to FAILED (adapter failure, timeout or
// cancellation). Terminal assets are untouched.
func (r *AssetRepo) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE learning_assets SET status = $1, processed_at = NOW(), updated_at = NOW()
		 WHERE id = $2 AND status = ANY($3)`,
		models.StatusFailed, id, []string{string(models.StatusPending), string(models.StatusProcessing)},
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateEnrichment attaches the AI-derived fields to a COMPLETED asset.
func (r *AssetRepo) UpdateEnrichment(ctx context.Context, id uuid.UUID, summary string, takeaways, topics []string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE learning_assets
		 SET summary = $1, key_takeaways = $2, topics = $3, updated_at = NOW()
		 WHERE id = $4 AND status = $5`,
		summary, takeaways, topics, id, models.StatusCompleted,
	)
	return err
}
