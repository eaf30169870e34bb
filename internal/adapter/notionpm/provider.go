// Package notionpm implements a taskregistry.Provider for Notion databases
// via the Notion REST API.
package notionpm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/task"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/taskregistry"
)

const providerName = "notion"

// notionVersion is the API revision this adapter speaks.
const notionVersion = "2022-06-28"

// maxPageSize is the Notion query page cap.
const maxPageSize = 100

// propertyNames holds the database property names this adapter reads. They
// differ per workspace, so each is overridable through factory config.
type propertyNames struct {
	status      string
	priority    string
	typ         string
	agent       string
	agentID     string
	description string
}

func defaultProperties() propertyNames {
	return propertyNames{
		status:      "Status",
		priority:    "Priority",
		typ:         "Type",
		agent:       "Agent",
		agentID:     "Agent ID",
		description: "Description",
	}
}

// Provider implements taskregistry.Provider against one Notion database.
type Provider struct {
	baseURL    string
	token      string
	databaseID string
	// statusType is "status" or "select", whichever the database schema uses
	// for the status property. Writes must name the correct type.
	statusType string
	props      propertyNames
	httpClient *http.Client
}

// NewProvider creates a Notion provider for the given database.
func NewProvider(cfg map[string]string) (*Provider, error) {
	token := cfg["token"]
	if token == "" {
		return nil, errors.New("notionpm: token is required")
	}
	databaseID := cfg["database_id"]
	if databaseID == "" {
		return nil, errors.New("notionpm: database_id is required")
	}
	baseURL := cfg["base_url"]
	if baseURL == "" {
		baseURL = "https://api.notion.com"
	}
	statusType := cfg["status_type"]
	if statusType == "" {
		statusType = "status"
	}
	if statusType != "status" && statusType != "select" {
		return nil, fmt.Errorf("notionpm: status_type %q must be status or select", statusType)
	}

	props := defaultProperties()
	if v := cfg["status_property"]; v != "" {
		props.status = v
	}
	if v := cfg["priority_property"]; v != "" {
		props.priority = v
	}
	if v := cfg["type_property"]; v != "" {
		props.typ = v
	}
	if v := cfg["agent_property"]; v != "" {
		props.agent = v
	}
	if v := cfg["agent_id_property"]; v != "" {
		props.agentID = v
	}
	if v := cfg["description_property"]; v != "" {
		props.description = v
	}

	return &Provider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		databaseID: databaseID,
		statusType: statusType,
		props:      props,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Capabilities() taskregistry.Capabilities {
	return taskregistry.Capabilities{
		QueryTasks:   true,
		UpdateStatus: true,
		CreateTask:   true,
	}
}

// notionPage mirrors the page objects returned by the Notion API. Properties
// are parsed defensively: a missing or retyped property yields a zero value,
// never an error.
type notionPage struct {
	ID             string                    `json:"id"`
	URL            string                    `json:"url"`
	Archived       bool                      `json:"archived"`
	InTrash        bool                      `json:"in_trash"`
	LastEditedTime time.Time                 `json:"last_edited_time"`
	Properties     map[string]notionProperty `json:"properties"`
}

type notionProperty struct {
	Type     string           `json:"type"`
	Title    []notionRichText `json:"title,omitempty"`
	RichText []notionRichText `json:"rich_text,omitempty"`
	Select   *notionOption    `json:"select,omitempty"`
	Status   *notionOption    `json:"status,omitempty"`
	People   []notionPerson   `json:"people,omitempty"`
}

type notionRichText struct {
	PlainText string `json:"plain_text"`
}

type notionOption struct {
	Name string `json:"name"`
}

type notionPerson struct {
	Name string `json:"name"`
}

type queryResponse struct {
	Results    []notionPage `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor"`
}

// QueryTasks pages through the database query endpoint until limit tasks are
// collected or the cursor is exhausted. The request asks for priority
// ascending and last-edited descending; callers re-sort locally since select
// options do not order reliably server side.
func (p *Provider) QueryTasks(ctx context.Context, q taskregistry.Query) ([]task.Task, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = maxPageSize
	}

	var (
		tasks  []task.Task
		cursor string
	)
	for len(tasks) < limit {
		pageSize := limit - len(tasks)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
		body := p.queryBody(q.Statuses, pageSize, cursor)
		respBody, err := p.doRequest(ctx, http.MethodPost,
			fmt.Sprintf("%s/v1/databases/%s/query", p.baseURL, p.databaseID), body)
		if err != nil {
			return nil, fmt.Errorf("notion query: %w", err)
		}

		var resp queryResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("notion parse response: %w", err)
		}
		for i := range resp.Results {
			page := &resp.Results[i]
			if page.Archived || page.InTrash {
				continue
			}
			tasks = append(tasks, p.pageToTask(page))
			if len(tasks) == limit {
				break
			}
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	return tasks, nil
}

// queryBody builds the filter/sorts/pagination payload. An empty status set
// queries unfiltered; archived pages are excluded by the API itself.
func (p *Provider) queryBody(statuses []string, pageSize int, cursor string) map[string]any {
	body := map[string]any{
		"page_size": pageSize,
		"sorts": []map[string]any{
			{"property": p.props.priority, "direction": "ascending"},
			{"timestamp": "last_edited_time", "direction": "descending"},
		},
	}
	if cursor != "" {
		body["start_cursor"] = cursor
	}
	if len(statuses) > 0 {
		clauses := make([]map[string]any, 0, len(statuses))
		for _, s := range statuses {
			clauses = append(clauses, map[string]any{
				"property":   p.props.status,
				p.statusType: map[string]any{"equals": s},
			})
		}
		if len(clauses) == 1 {
			body["filter"] = clauses[0]
		} else {
			body["filter"] = map[string]any{"or": clauses}
		}
	}
	return body
}

// UpdateStatus patches the status property of one page.
func (p *Provider) UpdateStatus(ctx context.Context, taskID, status string) error {
	if taskID == "" {
		return errors.New("notionpm: task id is required")
	}
	body := map[string]any{
		"properties": map[string]any{
			p.props.status: map[string]any{
				p.statusType: map[string]any{"name": status},
			},
		},
	}
	_, err := p.doRequest(ctx, http.MethodPatch,
		fmt.Sprintf("%s/v1/pages/%s", p.baseURL, taskID), body)
	if err != nil {
		return fmt.Errorf("notion update status: %w", err)
	}
	return nil
}

// CreateTask inserts a new page into the database with title, status, and
// priority properties.
func (p *Provider) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	if t == nil || t.Title == "" {
		return nil, errors.New("notionpm: task title is required")
	}
	properties := map[string]any{
		"Name": map[string]any{
			"title": []map[string]any{
				{"text": map[string]any{"content": t.Title}},
			},
		},
	}
	if t.Status != "" {
		properties[p.props.status] = map[string]any{
			p.statusType: map[string]any{"name": t.Status},
		}
	}
	if t.Priority != "" {
		properties[p.props.priority] = map[string]any{
			"select": map[string]any{"name": string(t.Priority)},
		}
	}
	if t.Description != "" {
		properties[p.props.description] = map[string]any{
			"rich_text": []map[string]any{
				{"text": map[string]any{"content": t.Description}},
			},
		}
	}
	body := map[string]any{
		"parent":     map[string]any{"database_id": p.databaseID},
		"properties": properties,
	}
	respBody, err := p.doRequest(ctx, http.MethodPost, p.baseURL+"/v1/pages", body)
	if err != nil {
		return nil, fmt.Errorf("notion create task: %w", err)
	}
	var page notionPage
	if err := json.Unmarshal(respBody, &page); err != nil {
		return nil, fmt.Errorf("notion parse response: %w", err)
	}
	created := p.pageToTask(&page)
	return &created, nil
}

func (p *Provider) doRequest(ctx context.Context, method, reqURL string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Notion-Version", notionVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("notion API %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// pageToTask maps a Notion page to the domain snapshot. The title property is
// found by type so renamed title columns still map.
func (p *Provider) pageToTask(page *notionPage) task.Task {
	t := task.Task{
		ID:           page.ID,
		URL:          page.URL,
		Archived:     page.Archived || page.InTrash,
		LastEditedAt: page.LastEditedTime,
	}
	for _, prop := range page.Properties {
		if prop.Type == "title" {
			t.Title = joinPlainText(prop.Title)
			break
		}
	}
	t.Status = optionName(page.Properties[p.props.status])
	t.Priority = task.Priority(optionName(page.Properties[p.props.priority]))
	t.Type = optionName(page.Properties[p.props.typ])
	t.Description = joinPlainText(page.Properties[p.props.description].RichText)
	t.AgentID = joinPlainText(page.Properties[p.props.agentID].RichText)

	agentProp := page.Properties[p.props.agent]
	if name := optionName(agentProp); name != "" {
		t.AgentName = name
	} else if len(agentProp.People) > 0 {
		t.AgentName = agentProp.People[0].Name
	} else {
		t.AgentName = joinPlainText(agentProp.RichText)
	}
	return t
}

// optionName reads a status or select property, whichever is set.
func optionName(prop notionProperty) string {
	if prop.Status != nil {
		return prop.Status.Name
	}
	if prop.Select != nil {
		return prop.Select.Name
	}
	return ""
}

func joinPlainText(parts []notionRichText) string {
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}
