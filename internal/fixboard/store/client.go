// Package store is the typed wrapper around the hosted issues collection.
// It speaks the PostgREST dialect the backend exposes: filters in query
// parameters, mutations returning representations, bearer-key auth.
// Every call is a fresh round trip: no retries, no caching.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/yshiraki/fixboard/internal/fixboard/issue"
)

const collectionPath = "/rest/v1/issues"

// ErrNotFound reports a record id that no longer exists in the collection.
var ErrNotFound = errors.New("issue not found")

// StatusError carries the HTTP status of a failed call so callers can
// decide what to surface. The body is kept for diagnostics.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed with HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client issues list/get/create/update/delete calls against the backend
// collection.
type Client struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// New creates a client for the collection hosted at baseURL,
// authenticating every call with the static anon key.
func New(baseURL, anonKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{},
	}
}

// List returns the full record set, newest first (the backend's default
// listing order).
func (c *Client) List(ctx context.Context) ([]issue.Issue, error) {
	query := url.Values{"select": {"*"}, "order": {"created_at.desc"}}
	body, err := c.do(ctx, http.MethodGet, query, nil, "list issues")
	if err != nil {
		return nil, err
	}

	var issues []issue.Issue
	if err := json.Unmarshal(body, &issues); err != nil {
		return nil, fmt.Errorf("cannot decode issue list: %w", err)
	}
	return issues, nil
}

// Get fetches a single record by id. Returns ErrNotFound when the record
// is no longer present.
func (c *Client) Get(ctx context.Context, id string) (*issue.Issue, error) {
	query := url.Values{"select": {"*"}, "id": {"eq." + id}}
	body, err := c.do(ctx, http.MethodGet, query, nil, fmt.Sprintf("get issue %s", id))
	if err != nil {
		return nil, err
	}

	var issues []issue.Issue
	if err := json.Unmarshal(body, &issues); err != nil {
		return nil, fmt.Errorf("cannot decode issue %s: %w", id, err)
	}
	if len(issues) == 0 {
		return nil, ErrNotFound
	}
	return &issues[0], nil
}

// Create inserts a new record and returns it with the server-assigned id
// and timestamps.
func (c *Client) Create(ctx context.Context, draft issue.Draft) (*issue.Issue, error) {
	body, err := c.mutate(ctx, http.MethodPost, nil, draft, "create issue")
	if err != nil {
		return nil, err
	}
	return firstOf(body, "created issue")
}

// Update replaces the client-controlled fields of a record with a full
// form resubmission.
func (c *Client) Update(ctx context.Context, id string, draft issue.Draft) (*issue.Issue, error) {
	query := url.Values{"id": {"eq." + id}}
	body, err := c.mutate(ctx, http.MethodPatch, query, draft, fmt.Sprintf("update issue %s", id))
	if err != nil {
		return nil, err
	}
	return firstOf(body, fmt.Sprintf("updated issue %s", id))
}

// Apply patches individual fields of a record, as the inline status
// changer does.
func (c *Client) Apply(ctx context.Context, id string, patch issue.Patch) (*issue.Issue, error) {
	query := url.Values{"id": {"eq." + id}}
	body, err := c.mutate(ctx, http.MethodPatch, query, patch, fmt.Sprintf("patch issue %s", id))
	if err != nil {
		return nil, err
	}
	return firstOf(body, fmt.Sprintf("patched issue %s", id))
}

// Delete removes a record. Deleting an id that is already gone succeeds:
// the backend removes zero rows and reports no error.
func (c *Client) Delete(ctx context.Context, id string) error {
	query := url.Values{"id": {"eq." + id}}
	_, err := c.do(ctx, http.MethodDelete, query, nil, fmt.Sprintf("delete issue %s", id))
	return err
}

func (c *Client) mutate(ctx context.Context, method string, query url.Values, payload any, op string) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cannot encode %s payload: %w", op, err)
	}
	return c.do(ctx, method, query, encoded, op)
}

func (c *Client) do(ctx context.Context, method string, query url.Values, payload []byte, op string) ([]byte, error) {
	endpoint := c.baseURL + collectionPath
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("cannot build %s request: %w", op, err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// firstOf unwraps the single-element array PostgREST returns for
// representation-returning mutations.
func firstOf(body []byte, what string) (*issue.Issue, error) {
	var issues []issue.Issue
	if err := json.Unmarshal(body, &issues); err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", what, err)
	}
	if len(issues) == 0 {
		return nil, fmt.Errorf("backend returned no %s", what)
	}
	return &issues[0], nil
}
