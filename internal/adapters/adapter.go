package adapters

import (
	"context"
	"fmt"

	"learningdash-backend/internal/models"
)

// Fragment is what one fetch produces: the normalized metadata for the source
// plus the raw text (transcript, article body, README, ...) that feeds the
// enrichment stage. Content may be empty when a source exposes no text.
type Fragment struct {
	Metadata models.AssetMetadata
	Content  string
}

// Adapter turns a source URL into a metadata fragment. Implementations must be
// safe for concurrent use and honor ctx cancellation; fetching the same URL
// twice is side-effect free.
type Adapter interface {
	Fetch(ctx context.Context, sourceURL string) (*Fragment, error)
}

// AdapterError marks a source fetch failure. It is recorded against the asset
// (status FAILED) rather than propagated as a pipeline crash.
type AdapterError struct {
	Source models.SourceType
	Reason string
	Err    error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s adapter: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s adapter: %s", e.Source, e.Reason)
}

func (e *AdapterError) Unwrap() error { return e.Err }

func fetchErr(source models.SourceType, reason string, err error) error {
	return &AdapterError{Source: source, Reason: reason, Err: err}
}

// Registry maps each source type to its adapter. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	adapters map[models.SourceType]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.SourceType]Adapter)}
}

func (r *Registry) Register(st models.SourceType, a Adapter) {
	r.adapters[st] = a
}

func (r *Registry) Get(st models.SourceType) (Adapter, bool) {
	a, ok := r.adapters[st]
	return a, ok
}

// NewDefaultRegistry wires the production adapter for every supported source.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(models.SourceYouTubeVideo, NewYouTubeAdapter())
	r.Register(models.SourceArticle, NewArticleAdapter(nil))
	r.Register(models.SourceGitHubRepo, NewGitHubAdapter(nil))
	r.Register(models.SourcePDFDocument, NewPDFAdapter(nil))
	r.Register(models.SourceTweet, NewTweetAdapter(nil))
	return r
}
