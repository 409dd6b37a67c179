package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	urlpkg "net/url"
	"regexp"
	"strings"
	"time"

	"learningdash-backend/internal/models"
)

const tweetOEmbedBase = "https://publish.twitter.com/oembed"

// TweetAdapter resolves a status URL via the public oEmbed endpoint; the id
// and handle come straight from the URL so a fetch can still normalize
// metadata when the oEmbed call is rate-limited.
type TweetAdapter struct {
	client     *http.Client
	oembedBase string
}

func NewTweetAdapter(client *http.Client) *TweetAdapter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &TweetAdapter{client: client, oembedBase: tweetOEmbedBase}
}

var tweetHTMLTags = regexp.MustCompile(`<[^>]+>`)

func (a *TweetAdapter) Fetch(ctx context.Context, sourceURL string) (*Fragment, error) {
	username, tweetID, err := ParseTweetURL(sourceURL)
	if err != nil {
		return nil, fetchErr(models.SourceTweet, "URL does not name a tweet", err)
	}

	frag := &Fragment{
		Metadata: models.AssetMetadata{
			TweetID:  &tweetID,
			Username: &username,
		},
	}

	oembedURL := a.oembedBase + "?omit_script=1&url=" + urlpkg.QueryEscape(sourceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oembedURL, nil)
	if err != nil {
		return nil, fetchErr(models.SourceTweet, "build request", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fetchErr(models.SourceTweet, "oembed fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The URL itself already yielded the required fields.
		return frag, nil
	}

	var oembed struct {
		AuthorName string `json:"author_name"`
		HTML       string `json:"html"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oembed); err != nil {
		return frag, nil
	}

	if text := strings.TrimSpace(tweetHTMLTags.ReplaceAllString(oembed.HTML, " ")); text != "" {
		frag.Content = strings.Join(strings.Fields(text), " ")
	}

	return frag, nil
}
