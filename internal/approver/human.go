package approver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wardenhq/warden/internal/toolcall"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = 120
	maxErrorBodyBytes   = 4 << 10
)

// HumanConfig configures the human review client.
type HumanConfig struct {
	// BaseURL of the review service, e.g. "http://localhost:8080".
	BaseURL string
	// AgentID is an opaque identifier stable for the lifetime of one run.
	AgentID string
	// Token is an optional bearer token for the review service.
	Token string
	// PollInterval between status polls. Default 2s.
	PollInterval time.Duration
	// MaxAttempts bounds the number of status polls. Default 120.
	MaxAttempts int
}

// Human submits a tool call for human review over HTTP and blocks until a
// decision arrives or the polling budget is exhausted. Infrastructure
// failures escalate; they are never silently approved and never fatal.
type Human struct {
	cfg    HumanConfig
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewHuman builds a human review client.
func NewHuman(cfg HumanConfig) *Human {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	return &Human{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		sleep:  sleepContext,
	}
}

// SetHTTPClient overrides the HTTP client, for tests.
func (h *Human) SetHTTPClient(client *http.Client) {
	h.client = client
}

// SetSleep overrides the inter-poll sleep, for deterministic tests.
func (h *Human) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	h.sleep = sleep
}

// Name identifies the approver in logs and audit events.
func (h *Human) Name() string {
	return "human_review"
}

// Approve submits the call for review and polls until a terminal status.
// This is the only suspension point in the approval pipeline; waiting for the
// next poll holds no lock and blocks no other approval flow.
func (h *Human) Approve(ctx context.Context, call toolcall.ToolCall, state TaskState) Decision {
	reviewID, decision, submitted := h.submit(ctx, call, state)
	if !submitted {
		return decision
	}

	slog.Info("waiting for human review", "review_id", reviewID, "call_id", call.ID, "function", call.Function)

	for attempt := 0; attempt < h.cfg.MaxAttempts; attempt++ {
		decision, terminal := h.pollOnce(ctx, reviewID)
		if terminal {
			return decision
		}

		if err := h.sleep(ctx, h.cfg.PollInterval); err != nil {
			return Escalated(fmt.Sprintf("Failed to get approval status: %v", err))
		}
	}

	return Escalated("Timed out waiting for human approval")
}

// submit posts the review request and extracts the ticket id. The returned
// bool reports success; on failure the decision carries the escalation.
func (h *Human) submit(ctx context.Context, call toolcall.ToolCall, state TaskState) (string, Decision, bool) {
	taskState := map[string]any{}
	if state != nil {
		taskState = state.Snapshot()
	}

	body, err := json.Marshal(map[string]any{
		"agent_id":    h.cfg.AgentID,
		"task_state":  taskState,
		"tool_choice": call.Jsonable(),
	})
	if err != nil {
		return "", Escalated(fmt.Sprintf("Failed to encode approval request: %v", err)), false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.BaseURL+"/api/review", bytes.NewReader(body))
	if err != nil {
		return "", Escalated(fmt.Sprintf("Failed to submit approval request: %v", err)), false
	}
	req.Header.Set("Content-Type", "application/json")
	h.authorize(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", Escalated(fmt.Sprintf("Failed to submit approval request: %v", err)), false
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return "", Escalated(fmt.Sprintf("Failed to submit approval request: %v", err)), false
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", Escalated(fmt.Sprintf("Failed to submit approval request: %s", strings.TrimSpace(string(payload)))), false
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &created); err != nil || strings.TrimSpace(created.ID) == "" {
		return "", Escalated("Failed to get review ID from initial response"), false
	}

	return created.ID, Decision{}, true
}

// pollOnce performs one status poll. The returned bool reports whether the
// poll produced a terminal decision; a pending status returns false.
func (h *Human) pollOnce(ctx context.Context, reviewID string) (Decision, bool) {
	statusURL := h.cfg.BaseURL + "/api/review/status?id=" + url.QueryEscape(reviewID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return Escalated(fmt.Sprintf("Failed to get approval status: %v", err)), true
	}
	h.authorize(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return Escalated(fmt.Sprintf("Failed to get approval status: %v", err)), true
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return Escalated(fmt.Sprintf("Failed to get approval status: %v", err)), true
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Escalated(fmt.Sprintf("Failed to get approval status: %s", strings.TrimSpace(string(payload)))), true
	}

	var status struct {
		Status           string          `json:"status"`
		Decision         string          `json:"decision"`
		Explanation      string          `json:"explanation"`
		ModifiedToolCall json.RawMessage `json:"modified_tool_call"`
	}
	if err := json.Unmarshal(payload, &status); err != nil {
		return Escalated(fmt.Sprintf("Unexpected response from status endpoint: %s", strings.TrimSpace(string(payload)))), true
	}

	if status.Status == "pending" {
		return Decision{}, false
	}

	if strings.TrimSpace(status.Decision) != "" {
		return h.mapDecision(status.Decision, status.Explanation, status.ModifiedToolCall), true
	}

	// Neither a pending flag nor a decision field: an unexpected server
	// contract is never trusted into an approval.
	return Escalated(fmt.Sprintf("Unexpected response from status endpoint: %s", strings.TrimSpace(string(payload)))), true
}

func (h *Human) mapDecision(remote, explanation string, modified json.RawMessage) Decision {
	if strings.TrimSpace(explanation) == "" {
		explanation = "Human provided no explanation."
	}

	var replacement *toolcall.ToolCall
	if len(modified) > 0 && !bytes.Equal(bytes.TrimSpace(modified), []byte("null")) {
		parsed, err := toolcall.ParseJSON(modified)
		if err != nil {
			return Escalated(fmt.Sprintf("Failed to parse modified tool call: %v", err))
		}
		replacement = &parsed
	}

	switch Action(strings.ToLower(strings.TrimSpace(remote))) {
	case ActionApprove:
		return Decision{Action: ActionApprove, Explanation: explanation, Replacement: replacement}
	case ActionReject:
		return Rejected(explanation)
	case ActionEscalate:
		return Escalated(explanation)
	case ActionTerminate:
		return Terminated(explanation)
	default:
		return Escalated(fmt.Sprintf("Unknown decision from review service: %s", remote))
	}
}

func (h *Human) authorize(req *http.Request) {
	if strings.TrimSpace(h.cfg.Token) != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.Token)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
