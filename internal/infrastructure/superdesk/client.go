// Package superdesk calls the host newsroom platform over its REST API.
package superdesk

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

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

// Client links assignments and reads vocabularies through the host API.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

var (
	_ ports.AssignmentLinker = (*Client)(nil)
	_ ports.Vocabularies     = (*Client)(nil)
)

// NewClient creates a reusable HTTP client. token is sent as a bearer token when set.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Link posts to the assignments_link service.
func (c *Client) Link(ctx context.Context, link domain.AssignmentLink) error {
	payload := map[string]any{
		"assignment_id":       link.AssignmentID,
		"item_id":             link.ItemID,
		"skip_archive_update": link.SkipArchiveUpdate,
	}
	if err := c.do(ctx, http.MethodPost, "/assignments/link", payload, nil); err != nil {
		return fmt.Errorf("link %s to %s: %w", link.AssignmentID, link.ItemID, err)
	}
	return nil
}

// Items fetches a vocabulary. A missing vocabulary wraps domain.ErrNotFound.
func (c *Client) Items(ctx context.Context, id string) ([]domain.VocabularyItem, error) {
	var vocab domain.Vocabulary
	if err := c.do(ctx, http.MethodGet, "/vocabularies/"+url.PathEscape(id), nil, &vocab); err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", id, err)
	}
	return vocab.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, v any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
