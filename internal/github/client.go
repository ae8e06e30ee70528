package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/CodexForgeBR/jules-loop/internal/transport"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

// MergeMethodSquash squashes the pull request into a single commit.
const MergeMethodSquash = "squash"

// Client calls the GitHub REST API.
type Client struct {
	BaseURL   string
	Transport *transport.Client
}

// New returns a Client authenticating with token.
func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Transport: transport.New(&transport.BearerToken{
			Token: token,
			ExtraHeaders: map[string]string{
				"Accept":               "application/vnd.github+json",
				"X-GitHub-Api-Version": "2022-11-28",
			},
		}),
	}
}

// ProbeRepo fetches the repository to verify the token and that the
// repository exists. Only the status matters.
func (c *Client) ProbeRepo(ctx context.Context, owner, name string) transport.Response {
	return c.Transport.Do(ctx, http.MethodGet, fmt.Sprintf("%s/repos/%s/%s", c.BaseURL, owner, name), nil, nil)
}

// MergeResult is GitHub's response to a merge request.
type MergeResult struct {
	Merged  bool   `json:"merged"`
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// MergePull merges pull request number with the given method. err is a
// *transport.APIError for non-2xx statuses, for undecodable bodies, and
// for a 2xx that does not acknowledge "merged": true; its status tells the
// caller how to classify the failure.
func (c *Client) MergePull(ctx context.Context, owner, name string, number int, method string) (*MergeResult, error) {
	body, err := json.Marshal(map[string]string{"merge_method": method})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/merge", c.BaseURL, owner, name, number)
	resp := c.Transport.Do(ctx, http.MethodPut, url, nil, body)

	var result MergeResult
	if len(resp.Body) > 0 {
		// Error bodies carry a message too; a decode failure only matters
		// for an otherwise successful response.
		if decodeErr := json.Unmarshal(resp.Body, &result); decodeErr != nil && resp.OK() {
			return nil, &transport.APIError{
				StatusCode: resp.Status,
				Message:    "malformed response: " + decodeErr.Error(),
				Body:       resp.Body,
			}
		}
	}

	if !resp.OK() {
		return &result, transport.ErrorFromResponse(resp)
	}
	if !result.Merged {
		msg := result.Message
		if msg == "" {
			msg = "merge not acknowledged"
		}
		return &result, &transport.APIError{StatusCode: resp.Status, Message: msg, Body: resp.Body}
	}
	return &result, nil
}
