// ABOUTME: Follow-up collaborator invoked after a call is completed
// ABOUTME: Posts the call notes to a configured HTTP function endpoint
package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
)

type FollowUpRequest struct {
	ActivityID int    `json:"activityId"`
	Notes      string `json:"notes"`
	DealID     int    `json:"dealId"`
}

type FollowUpResult struct {
	Success bool `json:"success"`
	Data    struct {
		Message string `json:"message"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// FollowUpProcessor turns a completed call into follow-up work.
type FollowUpProcessor interface {
	ProcessCallCompletion(ctx context.Context, req FollowUpRequest) (FollowUpResult, error)
}

// HTTPFollowUp posts follow-up requests as JSON to URL.
type HTTPFollowUp struct {
	URL    string
	Client *http.Client
}

func NewHTTPFollowUp(url string) *HTTPFollowUp {
	return &HTTPFollowUp{URL: url, Client: &http.Client{Timeout: 15 * time.Second}}
}

func (h *HTTPFollowUp) ProcessCallCompletion(ctx context.Context, req FollowUpRequest) (FollowUpResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return FollowUpResult{}, fmt.Errorf("failed to encode follow-up request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return FollowUpResult{}, fmt.Errorf("failed to build follow-up request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", ulid.Make().String())

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return FollowUpResult{}, fmt.Errorf("follow-up request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return FollowUpResult{}, fmt.Errorf("failed to read follow-up response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return FollowUpResult{}, fmt.Errorf("follow-up endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out FollowUpResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return FollowUpResult{}, fmt.Errorf("failed to decode follow-up response: %w", err)
	}
	return out, nil
}
