package adapters

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"learningdash-backend/internal/models"
)

const githubAPIBase = "https://api.github.com"

// GitHubAdapter reads repository facts (stars, primary language, description)
// from the GitHub REST API and pulls the README as raw content.
type GitHubAdapter struct {
	client  *http.Client
	apiBase string
}

func NewGitHubAdapter(client *http.Client) *GitHubAdapter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &GitHubAdapter{client: client, apiBase: githubAPIBase}
}

type githubRepoResponse struct {
	FullName        string `json:"full_name"`
	Description     string `json:"description"`
	StargazersCount int    `json:"stargazers_count"`
	Language        string `json:"language"`
	HTMLURL         string `json:"html_url"`
}

type githubReadmeResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (a *GitHubAdapter) Fetch(ctx context.Context, sourceURL string) (*Fragment, error) {
	owner, name, err := ParseGitHubRepoURL(sourceURL)
	if err != nil {
		return nil, fetchErr(models.SourceGitHubRepo, "URL does not name a repository", err)
	}

	var repo githubRepoResponse
	repoURL := fmt.Sprintf("%s/repos/%s/%s", a.apiBase, owner, name)
	if err := a.getJSON(ctx, repoURL, &repo); err != nil {
		return nil, fetchErr(models.SourceGitHubRepo, "repository lookup failed", err)
	}

	frag := &Fragment{
		Metadata: models.AssetMetadata{
			RepoURL:   &repo.HTMLURL,
			RepoOwner: &owner,
			RepoName:  &name,
			Stars:     &repo.StargazersCount,
		},
	}
	if repo.HTMLURL == "" {
		frag.Metadata.RepoURL = &sourceURL
	}
	if repo.Language != "" {
		frag.Metadata.Language = &repo.Language
	}

	// README is best-effort content; many repos have none.
	var readme githubReadmeResponse
	readmeURL := fmt.Sprintf("%s/repos/%s/%s/readme", a.apiBase, owner, name)
	if err := a.getJSON(ctx, readmeURL, &readme); err == nil && readme.Encoding == "base64" {
		// The API wraps base64 payloads in newlines
		raw := strings.ReplaceAll(readme.Content, "\n", "")
		if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
			frag.Content = string(decoded)
		}
	}
	if frag.Content == "" && repo.Description != "" {
		frag.Content = repo.Description
	}

	return frag, nil
}

func (a *GitHubAdapter) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "learningdash/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github API returned %s for %s", resp.Status, url)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
