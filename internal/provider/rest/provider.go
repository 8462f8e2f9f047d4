// Package rest implements the provider contract against a generic JSON/REST
// task tracker. Authentication is a bearer token treated as a black box; the
// OAuth flow that produced it is outside this package.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/okui/taskdeck/internal/domain"
)

// Ensure Provider implements the contracts.
var (
	_ domain.Provider        = (*Provider)(nil)
	_ domain.SubtaskProvider = (*Provider)(nil)
)

// Provider is a REST API client for one configured tracker.
type Provider struct {
	client  *http.Client
	name    string
	baseURL string
	project string
	token   string
}

// New creates a Provider from its configuration.
func New(name string, cfg domain.ProviderConfig) *Provider {
	client := http.DefaultClient
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client = oauth2.NewClient(context.Background(), ts)
	}
	return &Provider{
		name:    name,
		baseURL: cfg.BaseURL,
		project: cfg.Project,
		token:   cfg.Token,
		client:  client,
	}
}

// wireTask is the provider's JSON representation of a task.
type wireTask struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id,omitempty"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	Project     string    `json:"project,omitempty"`
	ParentID    string    `json:"parent_id,omitempty"`
	Due         string    `json:"due,omitempty"` // RFC 3339
	Labels      []string  `json:"labels,omitempty"`
	Priority    int       `json:"priority"` // 1 (none) .. 5 (urgent)
	Completed   bool      `json:"completed"`
}

type wireUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Name returns the configured provider name.
func (p *Provider) Name() string {
	return p.name
}

// IsConnected reports whether a token is configured.
func (p *Provider) IsConnected() bool {
	return p.token != "" && p.baseURL != ""
}

// TestConnection verifies the token against the remote service.
func (p *Provider) TestConnection(ctx context.Context) (domain.ConnectionStatus, error) {
	if !p.IsConnected() {
		return domain.ConnectionStatus{Err: "no token configured"}, nil
	}
	var user wireUser
	if err := p.do(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return domain.ConnectionStatus{Err: err.Error()}, nil
	}
	return domain.ConnectionStatus{OK: true, User: user.Name}, nil
}

// FetchTasks lists remote tasks, optionally limited to those updated since
// the given time.
func (p *Provider) FetchTasks(ctx context.Context, opts domain.FetchOptions) ([]domain.ExternalTask, error) {
	q := url.Values{}
	if p.project != "" {
		q.Set("project", p.project)
	}
	if !opts.UpdatedSince.IsZero() {
		q.Set("updated_since", opts.UpdatedSince.UTC().Format(time.RFC3339))
	}
	path := "/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var wire []wireTask
	if err := p.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.ExternalTask, 0, len(wire))
	for _, w := range wire {
		out = append(out, fromWire(w))
	}
	return out, nil
}

// CreateTask creates a remote task and returns its external ID.
func (p *Provider) CreateTask(ctx context.Context, t domain.ExternalTask) (string, error) {
	var created wireTask
	if err := p.do(ctx, http.MethodPost, "/tasks", toWire(t, p.project), &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// UpdateTask updates a remote task by external ID.
func (p *Provider) UpdateTask(ctx context.Context, externalID string, t domain.ExternalTask) error {
	return p.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(externalID), toWire(t, p.project), nil)
}

// CompleteTask marks a remote task completed. Idempotent on the server.
func (p *Provider) CompleteTask(ctx context.Context, externalID string) error {
	return p.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(externalID)+"/complete", nil, nil)
}

// ReopenTask marks a remote task not completed. Idempotent on the server.
func (p *Provider) ReopenTask(ctx context.Context, externalID string) error {
	return p.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(externalID)+"/reopen", nil, nil)
}

// DeleteTask removes a remote task.
func (p *Provider) DeleteTask(ctx context.Context, externalID string) error {
	return p.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(externalID), nil, nil)
}

// SupportsSubtasks reports that this API models hierarchy.
func (p *Provider) SupportsSubtasks() bool {
	return true
}

// FetchSubtasks lists the children of a remote task.
func (p *Provider) FetchSubtasks(ctx context.Context, parentExternalID string) ([]domain.ExternalTask, error) {
	var wire []wireTask
	path := "/tasks/" + url.PathEscape(parentExternalID) + "/subtasks"
	if err := p.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.ExternalTask, 0, len(wire))
	for _, w := range wire {
		out = append(out, fromWire(w))
	}
	return out, nil
}

// CreateSubtask creates a remote task under a parent.
func (p *Provider) CreateSubtask(ctx context.Context, parentExternalID string, t domain.ExternalTask) (string, error) {
	var created wireTask
	path := "/tasks/" + url.PathEscape(parentExternalID) + "/subtasks"
	if err := p.do(ctx, http.MethodPost, path, toWire(t, p.project), &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// MapToLocal translates a remote task to local fields. Pure.
func (p *Provider) MapToLocal(t domain.ExternalTask) domain.Task {
	status := domain.StatusTodo
	if t.Completed {
		status = domain.StatusDone
	}
	local := domain.Task{
		Title:       t.Title,
		Description: t.Description,
		Project:     t.Project,
		Status:      status,
		Priority:    t.Priority,
		Tags:        append([]string(nil), t.Tags...),
	}
	if !local.Priority.Valid() {
		local.Priority = domain.PriorityNone
	}
	if t.DueDate != nil {
		v := *t.DueDate
		local.DueDate = &v
	}
	return local
}

// MapToExternal translates a local task to remote fields. Pure.
func (p *Provider) MapToExternal(t domain.Task) domain.ExternalTask {
	ext := domain.ExternalTask{
		Title:       t.Title,
		Description: t.Description,
		Project:     t.Project,
		Priority:    t.Priority,
		Tags:        append([]string(nil), t.Tags...),
		Completed:   t.IsDone(),
		UpdatedAt:   t.UpdatedAt,
		CreatedAt:   t.CreatedAt,
	}
	if t.DueDate != nil {
		v := *t.DueDate
		ext.DueDate = &v
	}
	return ext
}

// do performs one API call, decoding the JSON response into out when non-nil.
func (p *Provider) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		content, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(content)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		content, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(content))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func fromWire(w wireTask) domain.ExternalTask {
	ext := domain.ExternalTask{
		ID:          w.ID,
		Title:       w.Content,
		Description: w.Description,
		Project:     w.Project,
		ParentID:    w.ParentID,
		Tags:        w.Labels,
		Priority:    priorityFromWire(w.Priority),
		Completed:   w.Completed,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	if w.Due != "" {
		if due, err := time.Parse(time.RFC3339, w.Due); err == nil {
			ext.DueDate = &due
		}
	}
	return ext
}

func toWire(t domain.ExternalTask, project string) wireTask {
	w := wireTask{
		ID:          t.ID,
		Content:     t.Title,
		Description: t.Description,
		Project:     t.Project,
		ParentID:    t.ParentID,
		Labels:      t.Tags,
		Priority:    priorityToWire(t.Priority),
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if w.Project == "" {
		w.Project = project
	}
	if t.DueDate != nil {
		w.Due = t.DueDate.UTC().Format(time.RFC3339)
	}
	return w
}

func priorityFromWire(p int) domain.Priority {
	switch p {
	case 2:
		return domain.PriorityLow
	case 3:
		return domain.PriorityMedium
	case 4:
		return domain.PriorityHigh
	case 5:
		return domain.PriorityUrgent
	default:
		return domain.PriorityNone
	}
}

func priorityToWire(p domain.Priority) int {
	return p.Rank() + 1
}
