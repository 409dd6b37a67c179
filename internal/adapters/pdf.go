package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"learningdash-backend/internal/models"
)

const maxPDFBytes = 50 * 1024 * 1024 // 50MB safety cap

// PDFAdapter downloads a PDF, records size and page count and extracts the
// plain text for enrichment.
type PDFAdapter struct {
	client *http.Client
}

func NewPDFAdapter(client *http.Client) *PDFAdapter {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &PDFAdapter{client: client}
}

func (a *PDFAdapter) Fetch(ctx context.Context, sourceURL string) (*Fragment, error) {
	if err := ValidateHTTPURL(sourceURL); err != nil {
		return nil, fetchErr(models.SourcePDFDocument, "invalid document URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fetchErr(models.SourcePDFDocument, "build request", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fetchErr(models.SourcePDFDocument, "download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fetchErr(models.SourcePDFDocument, "download returned "+resp.Status, nil)
	}

	limited := io.LimitReader(resp.Body, maxPDFBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fetchErr(models.SourcePDFDocument, "read document body", err)
	}
	if len(data) > maxPDFBytes {
		return nil, fetchErr(models.SourcePDFDocument,
			fmt.Sprintf("document exceeds %d MB limit", maxPDFBytes/(1024*1024)), nil)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fetchErr(models.SourcePDFDocument, "malformed PDF", err)
	}

	fileSize := len(data)
	pageCount := reader.NumPage()

	frag := &Fragment{
		Metadata: models.AssetMetadata{
			URL:       &sourceURL,
			FileSize:  &fileSize,
			PageCount: &pageCount,
		},
	}

	var b strings.Builder
	for pageIndex := 1; pageIndex <= pageCount; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	frag.Content = strings.TrimSpace(b.String())

	return frag, nil
}
