package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <meta name="author" content="Jane Writer">
  <meta property="article:published_time" content="2024-03-01T10:00:00Z">
  <title>Understanding Goroutines</title>
</head>
<body>
  <nav>Home | About</nav>
  <article>
    <h1>Understanding Goroutines</h1>
    <p>Goroutines are lightweight threads.</p>
    <p>They are multiplexed onto OS threads.</p>
  </article>
  <footer>Copyright</footer>
</body>
</html>`

func TestArticleAdapterFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	adapter := NewArticleAdapter(srv.Client())
	frag, err := adapter.Fetch(context.Background(), srv.URL+"/post")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if frag.Metadata.URL == nil || *frag.Metadata.URL != srv.URL+"/post" {
		t.Errorf("metadata url = %v, want %s/post", frag.Metadata.URL, srv.URL)
	}
	if frag.Metadata.Author == nil || *frag.Metadata.Author != "Jane Writer" {
		t.Errorf("author = %v, want Jane Writer", frag.Metadata.Author)
	}
	if frag.Metadata.PublishDate == nil || *frag.Metadata.PublishDate != "2024-03-01T10:00:00Z" {
		t.Errorf("publishDate = %v", frag.Metadata.PublishDate)
	}
	if frag.Content == "" {
		t.Fatal("expected extracted body text")
	}
	if contains := "Goroutines are lightweight threads."; !strings.Contains(frag.Content, contains) {
		t.Errorf("content %q should contain %q", frag.Content, contains)
	}
	if strings.Contains(frag.Content, "Copyright") {
		t.Error("boilerplate footer text should be stripped")
	}
}

func TestArticleAdapterFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	adapter := NewArticleAdapter(srv.Client())
	_, err := adapter.Fetch(context.Background(), srv.URL+"/missing")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}

	var aerr *AdapterError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected *AdapterError, got %T", err)
	}
}

func TestArticleAdapterRejectsBadURL(t *testing.T) {
	adapter := NewArticleAdapter(nil)
	if _, err := adapter.Fetch(context.Background(), "not-a-url"); err == nil {
		t.Fatal("expected error for relative URL")
	}
}
