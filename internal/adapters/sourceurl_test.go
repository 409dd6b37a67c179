package adapters

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch URL", "https://youtube.com/watch?v=abc123def45", "abc123def45"},
		{"watch URL with short id", "https://youtube.com/watch?v=abc123", "abc123"},
		{"watch URL with www", "https://www.youtube.com/watch?v=abc123def45&t=10s", "abc123def45"},
		{"short link", "https://youtu.be/abc123def45", "abc123def45"},
		{"shorts", "https://www.youtube.com/shorts/abc123def45", "abc123def45"},
		{"embed", "https://www.youtube.com/embed/abc123def45", "abc123def45"},
		{"not a video page", "https://www.youtube.com/feed/subscriptions", ""},
		{"wrong host", "https://vimeo.com/123456", ""},
		{"garbage", "not a url at all", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractVideoID(tc.url); got != tc.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestParseGitHubRepoURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantName  string
		wantErr   bool
	}{
		{"plain repo", "https://github.com/golang/go", "golang", "go", false},
		{"trailing slash", "https://github.com/golang/go/", "golang", "go", false},
		{"git suffix", "https://github.com/golang/go.git", "golang", "go", false},
		{"deep path", "https://github.com/golang/go/tree/master/src", "golang", "go", false},
		{"owner only", "https://github.com/golang", "", "", true},
		{"wrong host", "https://gitlab.com/golang/go", "", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			owner, name, err := ParseGitHubRepoURL(tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if owner != tc.wantOwner || name != tc.wantName {
				t.Errorf("got %s/%s, want %s/%s", owner, name, tc.wantOwner, tc.wantName)
			}
		})
	}
}

func TestParseTweetURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		wantUsername string
		wantID       string
		wantErr      bool
	}{
		{"twitter.com", "https://twitter.com/golang/status/1354757978858876928", "golang", "1354757978858876928", false},
		{"x.com", "https://x.com/golang/status/1354757978858876928", "golang", "1354757978858876928", false},
		{"legacy statuses path", "https://twitter.com/golang/statuses/42", "golang", "42", false},
		{"profile URL", "https://twitter.com/golang", "", "", true},
		{"wrong host", "https://mastodon.social/@golang/123", "", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			username, id, err := ParseTweetURL(tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if username != tc.wantUsername || id != tc.wantID {
				t.Errorf("got %s/%s, want %s/%s", username, id, tc.wantUsername, tc.wantID)
			}
		})
	}
}

func TestValidateHTTPURL(t *testing.T) {
	valid := []string{"https://example.com/post", "http://example.com"}
	for _, u := range valid {
		if err := ValidateHTTPURL(u); err != nil {
			t.Errorf("ValidateHTTPURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{"", "ftp://example.com/file.pdf", "example.com/post", "https://"}
	for _, u := range invalid {
		if err := ValidateHTTPURL(u); err == nil {
			t.Errorf("ValidateHTTPURL(%q) = nil, want error", u)
		}
	}
}
