// Package github is a minimal GitHub REST client covering the repository
// probe and pull request merge the loop needs, plus parsing of repository
// and pull request references.
package github

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseRepo splits an "owner/name" repository reference.
//
// Examples:
//   - "acme/widgets" → ("acme", "widgets", nil)
//   - "acme" → ("", "", error)
//   - "acme/widgets/extra" → ("", "", error)
func ParseRepo(ref string) (owner, name string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", fmt.Errorf("empty repository reference")
	}
	parts := strings.Split(ref, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected 'owner/name'", ref)
	}
	return parts[0], parts[1], nil
}

// ParsePullNumber extracts the pull request number from a pull request
// URL, taking the last path segment.
//
// Examples:
//   - "https://github.com/acme/widgets/pull/42" → (42, nil)
//   - "https://github.com/acme/widgets/pull/42/" → (42, nil)
//   - "https://github.com/acme/widgets/pull/abc" → (0, error)
func ParsePullNumber(prURL string) (int, error) {
	if prURL == "" {
		return 0, fmt.Errorf("empty pull request URL")
	}

	path := prURL
	if u, err := url.Parse(prURL); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	last := path[strings.LastIndex(path, "/")+1:]

	number, err := strconv.Atoi(last)
	if err != nil {
		return 0, fmt.Errorf("invalid pull request number %q in %q: %w", last, prURL, err)
	}
	if number <= 0 {
		return 0, fmt.Errorf("pull request number must be positive, got %d", number)
	}
	return number, nil
}

// PullURL returns the web URL of pull request number in owner/name.
func PullURL(owner, name string, number int) string {
	return fmt.Sprintf("https://github.com/%s/%s/pull/%d", owner, name, number)
}
