// Package transport issues the raw HTTP calls made to the Jules and GitHub
// APIs. Network failures are normalized to a reserved status instead of
// being returned as errors; retrying is left to the caller.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// StatusNetworkError is the status reported when no HTTP response was
// received (DNS failure, refused connection, timeout). Callers must treat
// it as transient.
const StatusNetworkError = 0

// DefaultTimeout bounds every request issued by a Client.
const DefaultTimeout = 30 * time.Second

// Response is the status and raw body of a completed request. For network
// failures Status is StatusNetworkError and Body holds the diagnostic.
type Response struct {
	Status int
	Body   []byte
}

// OK reports whether the response carries a 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client sends requests signed by Signer.
type Client struct {
	HTTP   *http.Client
	Signer Signer
}

// New returns a Client with the default timeout and the given signer.
func New(signer Signer) *Client {
	return &Client{
		HTTP:   &http.Client{Timeout: DefaultTimeout},
		Signer: signer,
	}
}

// Do sends one request and returns its status and body. It never returns
// an error: every failure to obtain a response becomes StatusNetworkError.
//
// Cancelling ctx does not abort a request already in flight; only the
// client timeout bounds it. Callers check ctx between requests.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) Response {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), method, url, reader)
	if err != nil {
		return Response{Status: StatusNetworkError, Body: []byte(err.Error())}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Signer != nil {
		if err := c.Signer.Sign(req); err != nil {
			return Response{Status: StatusNetworkError, Body: []byte(err.Error())}
		}
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return Response{Status: StatusNetworkError, Body: []byte(err.Error())}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{Status: StatusNetworkError, Body: []byte(err.Error())}
	}
	return Response{Status: resp.StatusCode, Body: data}
}
