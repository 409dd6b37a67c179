package adapters

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGitHubAdapterFetch(t *testing.T) {
	readme := base64.StdEncoding.EncodeToString([]byte("# go\nThe Go programming language."))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/repos/golang/go":
			w.Write([]byte(`{
				"full_name": "golang/go",
				"description": "The Go programming language",
				"stargazers_count": 120000,
				"language": "Go",
				"html_url": "https://github.com/golang/go"
			}`))
		case "/repos/golang/go/readme":
			w.Write([]byte(`{"content": "` + readme + `", "encoding": "base64"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	adapter := &GitHubAdapter{client: srv.Client(), apiBase: srv.URL}
	frag, err := adapter.Fetch(context.Background(), "https://github.com/golang/go")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	meta := frag.Metadata
	if meta.RepoOwner == nil || *meta.RepoOwner != "golang" {
		t.Errorf("repoOwner = %v, want golang", meta.RepoOwner)
	}
	if meta.RepoName == nil || *meta.RepoName != "go" {
		t.Errorf("repoName = %v, want go", meta.RepoName)
	}
	if meta.Stars == nil || *meta.Stars != 120000 {
		t.Errorf("stars = %v, want 120000", meta.Stars)
	}
	if meta.Language == nil || *meta.Language != "Go" {
		t.Errorf("language = %v, want Go", meta.Language)
	}
	if !strings.Contains(frag.Content, "The Go programming language.") {
		t.Errorf("content should carry the decoded README, got %q", frag.Content)
	}
}

func TestGitHubAdapterRepoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	adapter := &GitHubAdapter{client: srv.Client(), apiBase: srv.URL}
	if _, err := adapter.Fetch(context.Background(), "https://github.com/nobody/nothing"); err == nil {
		t.Fatal("expected error when the repository lookup 404s")
	}
}

func TestGitHubAdapterRejectsNonRepoURL(t *testing.T) {
	adapter := NewGitHubAdapter(nil)
	if _, err := adapter.Fetch(context.Background(), "https://github.com/justanowner"); err == nil {
		t.Fatal("expected error for URL without a repository")
	}
}
