// Package upstream is the HTTP client for the external grading backend:
// the visit-logging beacon, the submission endpoint and the history
// endpoint. The backend's storage and grading semantics are outside this
// engine; only the wire contract lives here.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/model"
)

const (
	beaconPath = "/log"
	submitPath = "/submit"
)

// ErrSubmitRejected wraps the backend's error message for a rejected
// submission. The visitor may retry; resubmission overwrites.
var ErrSubmitRejected = errors.New("submission rejected")

// Client talks to the grading backend.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "upstream_client").Logger(),
	}
}

// envelope is the backend's {data} | {error} response shape.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// LogVisit implements the fire-and-forget beacon. Failures are logged at
// debug and swallowed; a broken beacon never blocks a session.
func (c *Client) LogVisit(ctx context.Context, quiz, email string) {
	body, _ := json.Marshal(map[string]string{"quiz": quiz, "email": email})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+beaconPath, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("quiz", quiz).Msg("Visit beacon failed")
		return
	}
	resp.Body.Close()
}

// Submit POSTs a signed submission. A transport failure or an {error}
// body yields an error carrying the underlying message.
func (c *Client) Submit(ctx context.Context, sub *model.SignedSubmission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode submit response (status %d): %w", resp.StatusCode, err)
	}
	if env.Error != "" {
		return fmt.Errorf("%w: %s", ErrSubmitRejected, env.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrSubmitRejected, resp.StatusCode)
	}
	return nil
}

// History fetches up to limit most recent save/submission records for
// (quiz, email), newest first.
func (c *Client) History(ctx context.Context, quiz, email string, limit int) ([]model.HistoryRecord, error) {
	q := url.Values{}
	q.Set("quiz", quiz)
	q.Set("email", email)
	q.Set("history", "1")
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+submitPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}
	if env.Error != "" {
		return nil, fmt.Errorf("history: %s", env.Error)
	}

	var records []model.HistoryRecord
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &records); err != nil {
			return nil, fmt.Errorf("decode history records: %w", err)
		}
	}
	return records, nil
}
