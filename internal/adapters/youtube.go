package adapters

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"

	"learningdash-backend/internal/models"
)

// YouTubeAdapter resolves a video URL into video id, channel and duration, and
// fetches the caption track as raw content for enrichment.
type YouTubeAdapter struct {
	ytClient      *yt.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	httpClient    *http.Client
}

func NewYouTubeAdapter() *YouTubeAdapter {
	return &YouTubeAdapter{
		ytClient:      &yt.Client{},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *YouTubeAdapter) Fetch(ctx context.Context, sourceURL string) (*Fragment, error) {
	videoID := ExtractVideoID(sourceURL)
	if videoID == "" {
		return nil, fetchErr(models.SourceYouTubeVideo, "URL does not identify a video", nil)
	}

	frag := &Fragment{Metadata: models.AssetMetadata{VideoID: &videoID}}

	video, err := a.ytClient.GetVideoContext(ctx, sourceURL)
	if err != nil {
		// Metadata fallback via oEmbed; fails the fetch only if both paths die.
		if oerr := a.fetchOEmbed(ctx, videoID, frag); oerr != nil {
			return nil, fetchErr(models.SourceYouTubeVideo, "video metadata unavailable", err)
		}
	} else {
		channel := video.Author
		duration := int(video.Duration / time.Second)
		frag.Metadata.ChannelName = &channel
		frag.Metadata.Duration = &duration
	}

	if err := ctx.Err(); err != nil {
		return nil, fetchErr(models.SourceYouTubeVideo, "fetch cancelled", err)
	}

	// Captions are best-effort content for the enrichment stage.
	if transcript, err := a.fetchTranscript(videoID); err != nil {
		log.Printf("youtube adapter: no transcript for %s: %v", videoID, err)
	} else {
		frag.Content = transcript
	}

	return frag, nil
}

func (a *YouTubeAdapter) fetchTranscript(videoID string) (string, error) {
	transcript, err := a.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		// Fallback: any available language
		transcript, err = a.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			return "", err
		}
	}

	var b strings.Builder
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString(" ")
	}

	return strings.TrimSpace(b.String()), nil
}

func (a *YouTubeAdapter) fetchOEmbed(ctx context.Context, videoID string, frag *Fragment) error {
	oembedURL := "https://www.youtube.com/oembed?url=https://www.youtube.com/watch?v=" + videoID + "&format=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oembedURL, nil)
	if err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fetchErr(models.SourceYouTubeVideo, "oembed returned "+resp.Status, nil)
	}

	var oembed struct {
		Title      string `json:"title"`
		AuthorName string `json:"author_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oembed); err != nil {
		return err
	}

	if oembed.AuthorName != "" {
		frag.Metadata.ChannelName = &oembed.AuthorName
	}
	return nil
}
