// Package jules is a minimal client for the handful of Jules API calls the
// loop makes: credential probe, source discovery, session creation, and
// session polling.
package jules

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/CodexForgeBR/jules-loop/internal/transport"
)

// DefaultBaseURL is the production Jules endpoint.
const DefaultBaseURL = "https://jules.googleapis.com"

const apiVersion = "/v1alpha"

// AutomationAutoCreatePR asks Jules to open a pull request when done.
const AutomationAutoCreatePR = "AUTO_CREATE_PR"

// Client calls the Jules API. Every method returns a *transport.APIError
// for non-2xx responses and for bodies that do not decode.
type Client struct {
	BaseURL   string
	Transport *transport.Client
}

// New returns a Client authenticating with apiKey.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Transport: transport.New(&transport.APIKeyHeader{
			HeaderName: "x-goog-api-key",
			APIKey:     apiKey,
		}),
	}
}

// Session is a Jules session as returned by create and get.
type Session struct {
	Name    string   `json:"name"`
	ID      string   `json:"id"`
	Title   string   `json:"title,omitempty"`
	State   string   `json:"state,omitempty"`
	Outputs []Output `json:"outputs,omitempty"`
}

// Output is one artifact produced by a session.
type Output struct {
	PullRequest *PullRequest `json:"pullRequest,omitempty"`
}

// PullRequest is the change request a session opened.
type PullRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// PullRequestURL returns the first pull request URL among the outputs.
func (s *Session) PullRequestURL() string {
	for _, o := range s.Outputs {
		if o.PullRequest != nil && o.PullRequest.URL != "" {
			return o.PullRequest.URL
		}
	}
	return ""
}

// Source is a repository known to Jules.
type Source struct {
	Name       string     `json:"name"`
	ID         string     `json:"id,omitempty"`
	GithubRepo GithubRepo `json:"githubRepo"`
}

// GithubRepo identifies the repository behind a Source.
type GithubRepo struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Prompt         string        `json:"prompt"`
	Title          string        `json:"title"`
	AutomationMode string        `json:"automationMode"`
	SourceContext  SourceContext `json:"sourceContext"`
}

// SourceContext binds a session to a source and starting branch.
type SourceContext struct {
	Source            string            `json:"source"`
	GithubRepoContext GithubRepoContext `json:"githubRepoContext"`
}

// GithubRepoContext selects the branch a session starts from.
type GithubRepoContext struct {
	StartingBranch string `json:"startingBranch"`
}

// Probe lists sessions to verify the API key. Only the status matters.
func (c *Client) Probe(ctx context.Context) transport.Response {
	return c.do(ctx, http.MethodGet, "/sessions", nil)
}

// ListSources returns one page of sources and the token for the next page.
func (c *Client) ListSources(ctx context.Context, pageToken string) ([]Source, string, error) {
	path := "/sources"
	if pageToken != "" {
		path += "?pageToken=" + url.QueryEscape(pageToken)
	}
	resp := c.do(ctx, http.MethodGet, path, nil)
	if !resp.OK() {
		return nil, "", transport.ErrorFromResponse(resp)
	}

	var page struct {
		Sources       []Source `json:"sources"`
		NextPageToken string   `json:"nextPageToken"`
	}
	if err := decode(resp, &page); err != nil {
		return nil, "", err
	}
	return page.Sources, page.NextPageToken, nil
}

// FindSource walks every page of sources and returns the name of the one
// bound to owner/repo, or "" if there is none.
func (c *Client) FindSource(ctx context.Context, owner, repo string) (string, error) {
	token := ""
	for {
		sources, next, err := c.ListSources(ctx, token)
		if err != nil {
			return "", err
		}
		for _, s := range sources {
			if s.GithubRepo.Owner == owner && s.GithubRepo.Repo == repo && s.Name != "" {
				return s.Name, nil
			}
		}
		if next == "" || next == token {
			return "", nil
		}
		token = next
	}
}

// CreateSession starts a new session.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp := c.do(ctx, http.MethodPost, "/sessions", body)
	if !resp.OK() {
		return nil, transport.ErrorFromResponse(resp)
	}
	var s Session
	if err := decode(resp, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession fetches a session by its resource name ("sessions/<id>").
func (c *Client) GetSession(ctx context.Context, name string) (*Session, error) {
	resp := c.do(ctx, http.MethodGet, "/"+strings.TrimPrefix(name, "/"), nil)
	if !resp.OK() {
		return nil, transport.ErrorFromResponse(resp)
	}
	var s Session
	if err := decode(resp, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) transport.Response {
	headers := map[string]string{"Content-Type": "application/json"}
	return c.Transport.Do(ctx, method, c.BaseURL+apiVersion+path, headers, body)
}

func decode(resp transport.Response, v any) error {
	body := resp.Body
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &transport.APIError{
			StatusCode: resp.Status,
			Message:    "malformed response: " + err.Error(),
			Body:       resp.Body,
		}
	}
	return nil
}
