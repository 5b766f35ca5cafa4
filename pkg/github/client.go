package github

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultAPIURL is the REST endpoint for github.com
const DefaultAPIURL = "https://api.github.com"

// requestTimeout bounds every outbound call. An unbounded upstream
// call would hang the caller's request indefinitely.
const requestTimeout = 30 * time.Second

// Client makes authenticated requests against the GitHub App REST
// surface. Safe for concurrent use; the only shared state is the
// reused App JWT, which is guarded by the token source.
type Client struct {
	baseURL    string
	appTokens  oauth2.TokenSource
	httpClient *http.Client
}

// NewClient creates a Client authenticating as the given App. baseURL
// may be empty for github.com; GitHub Enterprise callers pass their
// API endpoint.
func NewClient(baseURL, appID string, privateKey *rsa.PrivateKey) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		appTokens: newAppTokenSource(appID, privateKey),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// appAuthorization returns the Authorization header value for App-level
// requests, generating or reusing the App JWT
func (c *Client) appAuthorization() (string, error) {
	token, err := c.appTokens.Token()
	if err != nil {
		return "", err
	}
	return "Bearer " + token.AccessToken, nil
}

// do makes one authenticated request and decodes a 2xx JSON response
// into out. Non-2xx responses are returned as an *APIError with
// GitHub's structured error body.
func (c *Client) do(ctx context.Context, method, path, authorization string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("github: marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("github: creating request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "github-token-broker")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("github: decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// decodeAPIError converts a non-2xx response into an *APIError,
// tolerating non-JSON error bodies
func decodeAPIError(resp *http.Response) error {
	apiError := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Message          string `json:"message"`
		DocumentationURL string `json:"documentation_url"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err == nil {
		apiError.Message = body.Message
		apiError.DocumentationURL = body.DocumentationURL
	}
	return apiError
}
