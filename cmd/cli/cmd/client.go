package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cronplane/pkg/api"
)

// SchedulerClient handles API calls to the cronplane scheduler.
type SchedulerClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewSchedulerClient creates a new client with the given base URL and token.
func NewSchedulerClient(baseURL, token string) *SchedulerClient {
	return &SchedulerClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// CreateJob sends POST /jobs to create a new job record.
func (c *SchedulerClient) CreateJob(req api.CreateJobRequest) (*api.CreateJobResponse, error) {
	var result api.CreateJobResponse
	if err := c.do(http.MethodPost, "/jobs", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TriggerJob sends POST /jobs/{id}/trigger to force-run a job.
func (c *SchedulerClient) TriggerJob(jobID string) (*api.TriggerResponse, error) {
	var result api.TriggerResponse
	if err := c.do(http.MethodPost, fmt.Sprintf("/jobs/%s/trigger", jobID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJob sends GET /jobs/{id} to retrieve a job record.
func (c *SchedulerClient) GetJob(jobID string) (*api.JobResponse, error) {
	var result api.JobResponse
	if err := c.do(http.MethodGet, fmt.Sprintf("/jobs/%s", jobID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelJob sends POST /jobs/{id}/cancel.
func (c *SchedulerClient) CancelJob(jobID string) (*api.CancelResponse, error) {
	var result api.CancelResponse
	if err := c.do(http.MethodPost, fmt.Sprintf("/jobs/%s/cancel", jobID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Dispatch sends POST /internal/dispatch to fire a dispatch cycle.
// The secret replaces the operator token on this path.
func (c *SchedulerClient) Dispatch(secret string) (*api.DispatchSummary, error) {
	saved := c.Token
	c.Token = secret
	defer func() { c.Token = saved }()

	var result api.DispatchSummary
	if err := c.do(http.MethodPost, "/internal/dispatch", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *SchedulerClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.Token != "" {
		httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
