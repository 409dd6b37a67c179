package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"learningdash-backend/internal/models"
)

// Enrichment is the AI-derived layer attached to a completed asset.
type Enrichment struct {
	Summary      string   `json:"summary"`
	KeyTakeaways []string `json:"keyTakeaways"`
	Topics       []string `json:"topics"`
}

// Enricher produces the enrichment for a completed asset. Best-effort: a
// failure here never changes the asset's status.
type Enricher interface {
	Enrich(ctx context.Context, asset *models.LearningAsset) (*Enrichment, error)
	Close()
}

type GeminiEnricher struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiEnricher(apiKey string, concurrentReqs int) (*GeminiEnricher, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiEnricher{client: client, model: model, rateChan: rateChan}, nil
}

func (s *GeminiEnricher) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiEnricher) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiEnricher) releaseRate() {
	s.rateChan <- struct{}{}
}

const maxEnrichInputChars = 60000

func (s *GeminiEnricher) Enrich(ctx context.Context, asset *models.LearningAsset) (*Enrichment, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, &EnrichmentError{Err: err}
	}
	defer s.releaseRate()

	prompt := buildEnrichmentPrompt(asset)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, &EnrichmentError{Err: fmt.Errorf("generate content: %w", err)}
	}

	raw := extractText(resp)
	if raw == "" {
		return nil, &EnrichmentError{Err: fmt.Errorf("empty model response")}
	}

	// Models wrap JSON in markdown fences despite instructions
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var out Enrichment
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &EnrichmentError{Err: fmt.Errorf("parse model response: %w", err)}
	}
	if out.Summary == "" {
		return nil, &EnrichmentError{Err: fmt.Errorf("model returned no summary")}
	}

	return &out, nil
}

func buildEnrichmentPrompt(asset *models.LearningAsset) string {
	var b strings.Builder
	b.WriteString("You are summarizing a learning resource for a personal learning dashboard.\n\n")
	fmt.Fprintf(&b, "Resource type: %s\nTitle: %s\n", asset.SourceType, asset.Title)
	if asset.Description != nil && *asset.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", *asset.Description)
	}

	content := ""
	if asset.Content != nil {
		content = *asset.Content
	}
	if len(content) > maxEnrichInputChars {
		content = content[:maxEnrichInputChars]
	}
	if content != "" {
		fmt.Fprintf(&b, "\nExtracted content:\n%s\n", content)
	} else {
		b.WriteString("\nNo extracted content is available; work from the title, description and metadata.\n")
		if meta, err := json.Marshal(asset.Metadata); err == nil {
			fmt.Fprintf(&b, "Metadata: %s\n", meta)
		}
	}

	b.WriteString(`
Return ONLY a JSON object with this exact shape, no markdown fences:
{
  "summary": "2-4 sentence summary of the resource",
  "keyTakeaways": ["3 to 5 key takeaways"],
  "topics": ["3 to 8 topic keywords"]
}`)
	return b.String()
}

// extractText flattens the text parts of a Gemini response.
func extractText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}
