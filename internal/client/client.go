package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claude/repflow/internal/advisor"
	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

// Client talks to the RepFlow server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the server at serverURL. The API key is
// only sent on write requests.
func New(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// FetchTemplate retrieves one template by ID.
func (c *Client) FetchTemplate(templateID uuid.UUID) (*models.Template, error) {
	var t models.Template
	if err := c.getJSON("/api/v1/templates/"+templateID.String(), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// FetchSuggestions retrieves progressive overload suggestions for a template.
func (c *Client) FetchSuggestions(templateID uuid.UUID) ([]advisor.Suggestion, error) {
	var suggestions []advisor.Suggestion
	err := c.getJSON("/api/v1/templates/"+templateID.String()+"/suggestions", &suggestions)
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

// SendSession POSTs a finished session to the server. Retries up to 3
// times with exponential backoff; the server deduplicates on session
// ID, so a retry after a half-received request is safe.
func (c *Client) SendSession(rec models.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
		}

		req, err := http.NewRequest(http.MethodPost, c.serverURL+"/api/v1/sessions", bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}
		lastErr = fmt.Errorf("save failed (status %d): %s", resp.StatusCode, body)
	}

	return fmt.Errorf("after 3 attempts: %w", lastErr)
}

func (c *Client) getJSON(path string, out any) error {
	resp, err := c.httpClient.Get(c.serverURL + path)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request %s failed (status %d): %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
