// Package bugzilla provides a client for the Bugzilla REST API, covering
// the handful of operations the exception workflow needs: searching site
// report bugs, closing them, and requesting needinfo from reporters.
package bugzilla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/privacytools/ucx/internal/retry"
)

// DefaultBaseURL is the public Bugzilla REST endpoint.
const DefaultBaseURL = "https://bugzilla.mozilla.org/rest"

// searchFields is the field set requested for bug searches.
const searchFields = "id,last_change_time,summary,platform,url,whiteboard,status,resolution,severity,priority,creator,cf_user_story"

// Client provides HTTP access to Bugzilla. The API key is only required
// for mutating calls (close, needinfo); searches work anonymously.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a Bugzilla client.
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL returns a copy of the client pointed at a different server.
func (c *Client) WithBaseURL(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     c.APIKey,
		HTTPClient: c.HTTPClient,
	}
}

// APIError is a non-2xx response from Bugzilla.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bugzilla: HTTP %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the failure is worth retrying.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, payload interface{}) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	reqURL := c.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var respBody []byte
	err := retry.Do(ctx, func() error {
		var body io.Reader
		if reqBody != nil {
			body = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.APIKey != "" {
			req.Header.Set("X-BUGZILLA-API-KEY", c.APIKey)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err = io.ReadAll(io.LimitReader(resp.Body, 50*1024*1024))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// SearchBugs returns all unresolved bugs in the given product/component.
func (c *Client) SearchBugs(ctx context.Context, product, component string) ([]Bug, error) {
	params := url.Values{}
	params.Set("product", product)
	params.Set("component", component)
	params.Set("resolution", "---")
	params.Set("query_format", "advanced")
	params.Set("include_fields", searchFields)

	body, err := c.doRequest(ctx, http.MethodGet, "/bug", params, nil)
	if err != nil {
		return nil, fmt.Errorf("search bugs: %w", err)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	return result.Bugs, nil
}

// FetchCreator returns the reporter of the given bug.
func (c *Client) FetchCreator(ctx context.Context, id int64) (string, error) {
	params := url.Values{}
	params.Set("include_fields", "creator")

	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/bug/%d", id), params, nil)
	if err != nil {
		return "", fmt.Errorf("fetch creator of bug %d: %w", id, err)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse bug response: %w", err)
	}
	if len(result.Bugs) == 0 {
		return "", fmt.Errorf("bug %d not found", id)
	}
	return result.Bugs[0].Creator, nil
}

// CloseBug resolves a bug with the given resolution and comment.
func (c *Client) CloseBug(ctx context.Context, id int64, resolution, comment string) error {
	payload := map[string]interface{}{
		"status":     "RESOLVED",
		"resolution": resolution,
		"comment":    map[string]string{"body": comment},
	}

	if _, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/bug/%d", id), nil, payload); err != nil {
		return fmt.Errorf("close bug %d: %w", id, err)
	}
	return nil
}

// NeedInfo sets a needinfo flag on the bug for the given requestee,
// attaching the message as a comment.
func (c *Client) NeedInfo(ctx context.Context, id int64, message, requestee string) error {
	payload := map[string]interface{}{
		"flags": []map[string]string{
			{
				"name":      "needinfo",
				"status":    "?",
				"requestee": requestee,
			},
		},
		"comment": map[string]string{"body": message},
	}

	if _, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/bug/%d", id), nil, payload); err != nil {
		return fmt.Errorf("needinfo %s on bug %d: %w", requestee, id, err)
	}
	return nil
}
