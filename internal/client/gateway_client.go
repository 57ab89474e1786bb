package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storytovideo/companion/internal/config"
	"github.com/storytovideo/companion/internal/model"
)

// GatewayClient talks to the StoryToVideo gateway. Every method is
// fire-and-forget: the HTTP round-trip runs in its own goroutine and the
// outcome is delivered on the Events channel.
type GatewayClient struct {
	httpClient *http.Client
	baseURL    string
	events     chan Event
}

type createProjectResponse struct {
	ProjectID   string   `json:"project_id"`
	TextTaskID  string   `json:"text_task_id"`
	ShotTaskIDs []string `json:"shot_task_ids"`
}

type createTaskResponse struct {
	TaskID string `json:"task_id"`
	ShotID string `json:"shot_id"`
}

type shotListResponse struct {
	Shots []ShotPayload `json:"shots"`
}

type taskEnvelope struct {
	Task taskPayload `json:"task"`
}

type taskPayload struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id"`
	ShotID    string            `json:"shot_id"`
	Type      string            `json:"type"`
	Status    string            `json:"status"`
	Progress  int               `json:"progress"`
	Message   string            `json:"message"`
	Result    *model.TaskResult `json:"result"`
}

// NewGatewayClient creates a gateway client from configuration. Trailing
// slashes on the base URL are trimmed so path concatenation stays stable.
func NewGatewayClient(cfg *config.APIConfig) *GatewayClient {
	return &GatewayClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		events:  make(chan Event, 256),
	}
}

// Events returns the channel on which all request outcomes are delivered.
func (c *GatewayClient) Events() <-chan Event {
	return c.events
}

// BaseURL returns the gateway base URL (no trailing slash).
func (c *GatewayClient) BaseURL() string {
	return c.baseURL
}

// SubmitTextGeneration creates a project and its text generation task.
// Emits TextTaskCreated on success, NetworkError on failure.
func (c *GatewayClient) SubmitTextGeneration(ctx context.Context, storyText, style, title, description string) {
	go func() {
		q := url.Values{}
		q.Set("Title", title)
		q.Set("StoryText", storyText)
		q.Set("Style", style)
		q.Set("Description", description)

		var resp createProjectResponse
		if err := c.post(ctx, "/v1/api/projects?"+q.Encode(), nil, &resp); err != nil {
			c.emit(NetworkError{Reason: fmt.Sprintf("project creation failed: %v", err)})
			return
		}
		c.emit(TextTaskCreated{
			ProjectID:   resp.ProjectID,
			TextTaskID:  resp.TextTaskID,
			ShotTaskIDs: resp.ShotTaskIDs,
		})
	}()
}

// SubmitVideoCompilation starts video compilation for a project.
// Emits TaskCreated with an empty ShotID on success.
func (c *GatewayClient) SubmitVideoCompilation(ctx context.Context, projectID string) {
	go func() {
		endpoint := fmt.Sprintf("/v1/api/projects/%s/video", projectID)
		var resp createTaskResponse
		if err := c.post(ctx, endpoint, nil, &resp); err != nil {
			c.emit(NetworkError{Reason: fmt.Sprintf("video compilation request failed: %v", err)})
			return
		}
		c.emit(TaskCreated{TaskID: resp.TaskID, ProjectID: projectID})
	}()
}

// SubmitShotUpdate regenerates a single shot image. Emits TaskCreated with
// the shot identifier on success.
func (c *GatewayClient) SubmitShotUpdate(ctx context.Context, projectID, shotID, prompt, transition string) {
	go func() {
		endpoint := fmt.Sprintf("/v1/api/projects/%s/shots/%s", projectID, shotID)
		body := map[string]string{"prompt": prompt, "transition": transition}

		var resp createTaskResponse
		if err := c.post(ctx, endpoint, body, &resp); err != nil {
			c.emit(NetworkError{Reason: fmt.Sprintf("shot update request failed: %v", err)})
			return
		}
		created := TaskCreated{TaskID: resp.TaskID, ShotID: resp.ShotID, ProjectID: projectID}
		if created.ShotID == "" {
			created.ShotID = shotID
		}
		c.emit(created)
	}()
}

// FetchShotList retrieves the shot list of a project. Emits ShotListReceived
// on success.
func (c *GatewayClient) FetchShotList(ctx context.Context, projectID string) {
	go func() {
		endpoint := fmt.Sprintf("/v1/api/projects/%s/shots", projectID)
		var resp shotListResponse
		if err := c.get(ctx, endpoint, &resp); err != nil {
			c.emit(NetworkError{Reason: fmt.Sprintf("shot list request failed: %v", err)})
			return
		}
		c.emit(ShotListReceived{ProjectID: projectID, Shots: resp.Shots})
	}()
}

// PollStatus requests the current status of a task. A finished task emits
// TaskResultReceived, a failed one TaskRequestFailed, anything else
// TaskStatusReceived. Transport errors also emit TaskRequestFailed so the
// orchestrator can keep the task registered and retry.
func (c *GatewayClient) PollStatus(ctx context.Context, taskID string) {
	go func() {
		endpoint := fmt.Sprintf("/v1/api/tasks/%s", taskID)
		var envelope taskEnvelope
		if err := c.get(ctx, endpoint, &envelope); err != nil {
			c.emit(TaskRequestFailed{TaskID: taskID, Reason: err.Error()})
			return
		}

		task := envelope.Task
		switch task.Status {
		case model.TaskStatusFinished:
			result := model.TaskResult{}
			if task.Result != nil {
				result = *task.Result
			}
			if result.ShotID == "" {
				result.ShotID = task.ShotID
			}
			c.emit(TaskResultReceived{TaskID: taskID, Result: result})
		case model.TaskStatusFailed:
			reason := task.Message
			if reason == "" {
				reason = "task failed"
			}
			c.emit(TaskRequestFailed{TaskID: taskID, Reason: reason})
		default:
			c.emit(TaskStatusReceived{
				TaskID:   taskID,
				Progress: task.Progress,
				Status:   task.Status,
				Message:  task.Message,
			})
		}
	}()
}

// emit delivers an event without ever blocking a request goroutine. Dropping
// is acceptable for poll events: the next tick produces a fresh one.
func (c *GatewayClient) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		log.Printf("[Gateway API] Event channel full, dropping %T", ev)
	}
}

// post sends a POST request with an optional JSON body
func (c *GatewayClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = strings.NewReader(string(bodyBytes))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses the JSON response
func (c *GatewayClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *GatewayClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")

	log.Printf("[Gateway API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Gateway API] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Gateway API] ✗ %s %s — failed to read response: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Gateway API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
