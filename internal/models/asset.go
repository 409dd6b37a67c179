package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceType is the closed set of ingestion sources.
type SourceType string

const (
	SourceYouTubeVideo SourceType = "YOUTUBE_VIDEO"
	SourceArticle      SourceType = "ARTICLE"
	SourceGitHubRepo   SourceType = "GITHUB_REPO"
	SourcePDFDocument  SourceType = "PDF_DOCUMENT"
	SourceTweet        SourceType = "TWEET"
)

// AllSourceTypes lists every supported source, in capability-listing order.
var AllSourceTypes = []SourceType{
	SourceYouTubeVideo,
	SourceArticle,
	SourceGitHubRepo,
	SourcePDFDocument,
	SourceTweet,
}

func (s SourceType) Valid() bool {
	switch s {
	case SourceYouTubeVideo, SourceArticle, SourceGitHubRepo, SourcePDFDocument, SourceTweet:
		return true
	}
	return false
}

// ProcessingStatus is a linear state machine:
// PENDING → PROCESSING → (COMPLETED | FAILED). Terminal states absorb.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition. PENDING→FAILED is allowed so a queued asset can be cancelled
// before a worker picks it up.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// AssetMetadata is the shared metadata envelope; which fields are populated
// depends on the asset's SourceType. Wire names are camelCase to match the
// cross-service schema contract.
type AssetMetadata struct {
	// YouTube
	VideoID     *string `json:"videoId,omitempty"`
	ChannelName *string `json:"channelName,omitempty"`
	Duration    *int    `json:"duration,omitempty"`

	// Article
	URL         *string `json:"url,omitempty"`
	Author      *string `json:"author,omitempty"`
	PublishDate *string `json:"publishDate,omitempty"`

	// GitHub
	RepoURL   *string `json:"repoUrl,omitempty"`
	RepoOwner *string `json:"repoOwner,omitempty"`
	RepoName  *string `json:"repoName,omitempty"`
	Stars     *int    `json:"stars,omitempty"`
	Language  *string `json:"language,omitempty"`

	// PDF
	FileSize  *int `json:"fileSize,omitempty"`
	PageCount *int `json:"pageCount,omitempty"`

	// Tweet
	TweetID  *string `json:"tweetId,omitempty"`
	Username *string `json:"username,omitempty"`

	// Common
	Tags          []string    `json:"tags,omitempty"`
	Difficulty    *Difficulty `json:"difficulty,omitempty"`
	EstimatedTime *int        `json:"estimatedTime,omitempty"`
}

// requiredMetadataFields maps each source type to the metadata fields that must
// be present before an asset may advance to PROCESSING. All of them are
// derivable from the source URL at submit time.
var requiredMetadataFields = map[SourceType][]string{
	SourceYouTubeVideo: {"videoId"},
	SourceArticle:      {"url"},
	SourceGitHubRepo:   {"repoUrl", "repoOwner", "repoName"},
	SourcePDFDocument:  {"url"},
	SourceTweet:        {"tweetId", "username"},
}

// RequiredMetadataFields returns the wire names of the fields a source type
// needs before processing can start.
func RequiredMetadataFields(st SourceType) []string {
	return requiredMetadataFields[st]
}

// MissingFields returns the required fields for st that are absent or empty.
func (m AssetMetadata) MissingFields(st SourceType) []string {
	var missing []string
	for _, field := range requiredMetadataFields[st] {
		if !m.hasField(field) {
			missing = append(missing, field)
		}
	}
	return missing
}

func (m AssetMetadata) hasField(name string) bool {
	switch name {
	case "videoId":
		return m.VideoID != nil && *m.VideoID != ""
	case "url":
		return m.URL != nil && *m.URL != ""
	case "repoUrl":
		return m.RepoURL != nil && *m.RepoURL != ""
	case "repoOwner":
		return m.RepoOwner != nil && *m.RepoOwner != ""
	case "repoName":
		return m.RepoName != nil && *m.RepoName != ""
	case "tweetId":
		return m.TweetID != nil && *m.TweetID != ""
	case "username":
		return m.Username != nil && *m.Username != ""
	}
	return false
}

// Merge overlays an adapter-produced fragment on top of m. Fragment fields win
// on overlap; fields the fragment leaves nil keep their submitted value.
func (m AssetMetadata) Merge(frag AssetMetadata) AssetMetadata {
	out := m

	if frag.VideoID != nil {
		out.VideoID = frag.VideoID
	}
	if frag.ChannelName != nil {
		out.ChannelName = frag.ChannelName
	}
	if frag.Duration != nil {
		out.Duration = frag.Duration
	}
	if frag.URL != nil {
		out.URL = frag.URL
	}
	if frag.Author != nil {
		out.Author = frag.Author
	}
	if frag.PublishDate != nil {
		out.PublishDate = frag.PublishDate
	}
	if frag.RepoURL != nil {
		out.RepoURL = frag.RepoURL
	}
	if frag.RepoOwner != nil {
		out.RepoOwner = frag.RepoOwner
	}
	if frag.RepoName != nil {
		out.RepoName = frag.RepoName
	}
	if frag.Stars != nil {
		out.Stars = frag.Stars
	}
	if frag.Language != nil {
		out.Language = frag.Language
	}
	if frag.FileSize != nil {
		out.FileSize = frag.FileSize
	}
	if frag.PageCount != nil {
		out.PageCount = frag.PageCount
	}
	if frag.TweetID != nil {
		out.TweetID = frag.TweetID
	}
	if frag.Username != nil {
		out.Username = frag.Username
	}
	if frag.Tags != nil {
		out.Tags = frag.Tags
	}
	if frag.Difficulty != nil {
		out.Difficulty = frag.Difficulty
	}
	if frag.EstimatedTime != nil {
		out.EstimatedTime = frag.EstimatedTime
	}

	return out
}

// LearningAsset is the aggregate root for a single ingested learning item.
type LearningAsset struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	SourceType  SourceType       `json:"sourceType"`
	SourceURL   string           `json:"sourceUrl"`
	Metadata    AssetMetadata    `json:"metadata"`
	Status      ProcessingStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	ProcessedAt *time.Time       `json:"processedAt,omitempty"`

	// AI-generated, populated only after COMPLETED
	Summary      *string  `json:"summary,omitempty"`
	KeyTakeaways []string `json:"keyTakeaways,omitempty"`
	Topics       []string `json:"topics,omitempty"`

	// User interaction
	UserID *string `json:"userId,omitempty"`
	Notes  *string `json:"notes,omitempty"`
	Rating *int    `json:"rating,omitempty"`

	// Most recent failure reason from the jobs table; populated on reads of
	// FAILED assets, never stored on the asset row itself.
	LastError *string `json:"lastError,omitempty"`

	// Raw extracted text feeding enrichment; never serialized to clients.
	Content *string `json:"-"`
}

type CreateLearningAssetRequest struct {
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	SourceType  SourceType     `json:"sourceType"`
	SourceURL   string         `json:"sourceUrl"`
	Metadata    *AssetMetadata `json:"metadata,omitempty"`
	UserID      *string        `json:"userId,omitempty"`
	Notes       *string        `json:"notes,omitempty"`
	Rating      *int           `json:"rating,omitempty"`
}

type CreateLearningAssetResponse struct {
	Asset   *LearningAsset `json:"asset"`
	Message string         `json:"message"`
}

// sortFieldColumns is the static wire-name → internal-name table backing the
// sort allow-list. Both camelCase wire names and internal snake_case spellings
// are accepted.
var sortFieldColumns = map[string]string{
	"createdAt":  "created_at",
	"created_at": "created_at",
	"updatedAt":  "updated_at",
	"updated_at": "updated_at",
	"title":      "title",
	"rating":     "rating",
}

// SortColumn resolves a caller-supplied sort field against the allow-list.
func SortColumn(field string) (string, bool) {
	col, ok := sortFieldColumns[field]
	return col, ok
}

type ListLearningAssetsQuery struct {
	SourceType *SourceType       `json:"sourceType,omitempty"`
	Status     *ProcessingStatus `json:"status,omitempty"`
	UserID     *string           `json:"userId,omitempty"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
	SortBy     string            `json:"sortBy"`
	SortOrder  string            `json:"sortOrder"`
}

type ListLearningAssetsResponse struct {
	Assets []*LearningAsset `json:"assets"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type CancelAssetResponse struct {
	Asset     *LearningAsset `json:"asset"`
	Cancelled bool           `json:"cancelled"`
	Message   string         `json:"message"`
}

// SourceCapability describes one entry of the static /sources listing.
type SourceCapability struct {
	Type           SourceType `json:"type"`
	Description    string     `json:"description"`
	RequiredFields []string   `json:"required_fields"`
}
