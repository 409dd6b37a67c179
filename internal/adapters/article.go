package adapters

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"learningdash-backend/internal/models"
)

// ArticleAdapter fetches a web article and extracts author, publish date and
// body text from the document.
type ArticleAdapter struct {
	client *http.Client
}

func NewArticleAdapter(client *http.Client) *ArticleAdapter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArticleAdapter{client: client}
}

func (a *ArticleAdapter) Fetch(ctx context.Context, sourceURL string) (*Fragment, error) {
	if err := ValidateHTTPURL(sourceURL); err != nil {
		return nil, fetchErr(models.SourceArticle, "invalid article URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fetchErr(models.SourceArticle, "build request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; learningdash/1.0)")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fetchErr(models.SourceArticle, "fetch article", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fetchErr(models.SourceArticle, "article returned "+resp.Status, nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fetchErr(models.SourceArticle, "parse HTML", err)
	}

	frag := &Fragment{Metadata: models.AssetMetadata{URL: &sourceURL}}

	if author := extractArticleAuthor(doc); author != "" {
		frag.Metadata.Author = &author
	}
	if published := extractArticleDate(doc); published != "" {
		frag.Metadata.PublishDate = &published
	}
	frag.Content = extractArticleText(doc)

	return frag, nil
}

func extractArticleAuthor(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok && v != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`meta[property="article:author"]`).Attr("content"); ok && v != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(doc.Find(`[rel="author"]`).First().Text())
}

func extractArticleDate(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok && v != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`time[datetime]`).First().Attr("datetime"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// extractArticleText prefers <article> content and falls back to the body with
// boilerplate elements stripped.
func extractArticleText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, noscript").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var parts []string
	root.Find("p, h1, h2, h3, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})

	return strings.Join(parts, "\n")
}
