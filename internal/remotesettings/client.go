// Package remotesettings provides a client for the Kinto-style remote
// settings service that stores URL-classifier exception records.
package remotesettings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/privacytools/ucx/internal/retry"
)

// Collection review statuses understood by the settings service.
const (
	StatusWorkInProgress = "work-in-progress"
	StatusToReview       = "to-review"
	StatusToSign         = "to-sign"
)

// Client provides HTTP access to a remote-settings (Kinto) server.
type Client struct {
	BaseURL    string
	AuthToken  string
	Bucket     string
	Collection string
	HTTPClient *http.Client
}

// NewClient creates a client for the given server and collection.
func NewClient(baseURL, authToken, bucket, collection string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		AuthToken:  authToken,
		Bucket:     bucket,
		Collection: collection,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the settings server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote settings: HTTP %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the failure is worth retrying.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func (c *Client) collectionPath() string {
	return fmt.Sprintf("/buckets/%s/collections/%s", c.Bucket, c.Collection)
}

// doRequest performs an authenticated request with retry for transient
// failures. The settings service wraps payloads in a "data" envelope.
func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var respBody []byte
	err := retry.Do(ctx, func() error {
		var body io.Reader
		if reqBody != nil {
			body = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.AuthToken != "" {
			// Tokens may already carry a scheme ("Bearer xyz", "Basic ...").
			if strings.Contains(c.AuthToken, " ") {
				req.Header.Set("Authorization", c.AuthToken)
			} else {
				req.Header.Set("Authorization", "Bearer "+c.AuthToken)
			}
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err = io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
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

// ListRecords fetches every record in the collection.
func (c *Client) ListRecords(ctx context.Context) ([]Record, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.collectionPath()+"/records", nil)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	var result struct {
		Data []Record `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse records response: %w", err)
	}
	return result.Data, nil
}

// CreateRecord writes a record to the collection. A record without an ID
// gets a generated one. The write is a PUT so re-running after a partial
// failure is safe.
func (c *Client) CreateRecord(ctx context.Context, record Record) (Record, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Category == "" {
		record.Category = DefaultCategory
	}

	payload := struct {
		Data Record `json:"data"`
	}{Data: record}

	path := fmt.Sprintf("%s/records/%s", c.collectionPath(), record.ID)
	if _, err := c.doRequest(ctx, http.MethodPut, path, payload); err != nil {
		return Record{}, fmt.Errorf("create record %s: %w", record.ID, err)
	}
	return record, nil
}

// DeleteRecord removes a record by ID.
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	path := fmt.Sprintf("%s/records/%s", c.collectionPath(), id)
	if _, err := c.doRequest(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	return nil
}

// CollectionStatus returns the review status of the collection.
func (c *Client) CollectionStatus(ctx context.Context) (string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.collectionPath(), nil)
	if err != nil {
		return "", fmt.Errorf("get collection: %w", err)
	}

	var result struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse collection response: %w", err)
	}
	return result.Data.Status, nil
}

// RequestReview moves pending changes into the review pipeline. Dev
// servers have review disabled, so changes are self-approved there. Safe
// to call when nothing changed: the collection is only patched while in
// work-in-progress.
func (c *Client) RequestReview(ctx context.Context, isDev bool) error {
	status, err := c.CollectionStatus(ctx)
	if err != nil {
		return err
	}
	if status != StatusWorkInProgress {
		return nil
	}

	target := StatusToReview
	if isDev {
		target = StatusToSign
	}
	payload := struct {
		Data map[string]string `json:"data"`
	}{Data: map[string]string{"status": target}}

	if _, err := c.doRequest(ctx, http.MethodPatch, c.collectionPath(), payload); err != nil {
		return fmt.Errorf("request review: %w", err)
	}
	return nil
}

// FetchPublished downloads the approved, publicly served records from the
// given records endpoint (the read-side of the settings service).
func FetchPublished(ctx context.Context, httpClient *http.Client, recordsURL string) ([]Record, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	var records []Record
	err := retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordsURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		var result struct {
			Data []Record `json:"data"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("parse records response: %w", err)
		}
		records = result.Data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch published records: %w", err)
	}
	return records, nil
}
