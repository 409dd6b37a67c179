package adapters

import (
	"fmt"
	urlpkg "net/url"
	"regexp"
	"strings"
)

// URL parsing shared by submit-time validation and the adapters themselves.
// Validation uses these to seed the metadata fields an asset must carry before
// it may advance to PROCESSING.

var videoIDPattern = regexp.MustCompile(`(?:v=|\/v\/|youtu\.be\/|embed\/|shorts\/)([a-zA-Z0-9_-]{11})`)

// ExtractVideoID pulls the 11-character video id out of the common YouTube URL
// forms. Returns "" when the URL does not identify a video.
func ExtractVideoID(url string) string {
	parsed, err := urlpkg.Parse(url)
	if err == nil {
		host := strings.ToLower(parsed.Host)
		path := strings.Trim(parsed.Path, "/")

		// youtube.com/watch?v=VIDEO_ID. The v param is taken as-is rather
		// than length-checked; what the site accepts there is its business.
		if strings.Contains(host, "youtube.com") {
			if v := parsed.Query().Get("v"); v != "" {
				return v
			}

			parts := strings.Split(path, "/")
			if len(parts) >= 2 {
				switch parts[0] {
				case "shorts", "embed", "v":
					if len(parts[1]) == 11 {
						return parts[1]
					}
				}
			}
		}

		// youtu.be/VIDEO_ID
		if strings.Contains(host, "youtu.be") {
			candidate := strings.Split(path, "/")[0]
			if len(candidate) == 11 {
				return candidate
			}
		}
	}

	// Fallback for unusual URL forms
	if m := videoIDPattern.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}

	return ""
}

// ParseGitHubRepoURL splits a GitHub repository URL into owner and name.
func ParseGitHubRepoURL(url string) (owner, name string, err error) {
	parsed, err := urlpkg.Parse(url)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	host := strings.ToLower(parsed.Host)
	if host != "github.com" && host != "www.github.com" {
		return "", "", fmt.Errorf("not a github.com URL: %s", url)
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("URL does not name an owner and repository: %s", url)
	}

	name = strings.TrimSuffix(parts[1], ".git")
	return parts[0], name, nil
}

var tweetPathPattern = regexp.MustCompile(`^([A-Za-z0-9_]{1,15})/status(?:es)?/(\d+)$`)

// ParseTweetURL extracts the author handle and status id from a twitter.com
// or x.com status URL.
func ParseTweetURL(url string) (username, tweetID string, err error) {
	parsed, err := urlpkg.Parse(url)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	switch host {
	case "twitter.com", "x.com", "mobile.twitter.com":
	default:
		return "", "", fmt.Errorf("not a twitter.com/x.com URL: %s", url)
	}

	m := tweetPathPattern.FindStringSubmatch(strings.Trim(parsed.Path, "/"))
	if m == nil {
		return "", "", fmt.Errorf("URL does not name a tweet status: %s", url)
	}

	return m[1], m[2], nil
}

// ValidateHTTPURL checks that raw is an absolute http(s) URL with a host.
func ValidateHTTPURL(raw string) error {
	parsed, err := urlpkg.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must use http or https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL has no host: %s", raw)
	}
	return nil
}
