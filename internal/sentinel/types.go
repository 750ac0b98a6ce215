package sentinel

import (
	"time"
)

// listEnvelope is the backend's common list response shape.
type listEnvelope[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// IssueSummary is the compact issue block embedded in run rows.
type IssueSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Status   string `json:"status"`
}

// Run is one row of the run history list.
type Run struct {
	ID          string         `json:"id"`
	DisplayID   string         `json:"display_id"`
	StartedAt   *time.Time     `json:"started_at"`
	DurationMS  *int64         `json:"duration_ms"`
	DeviceID    string         `json:"device_id"`
	DeviceName  string         `json:"device_name"`
	NetworkID   string         `json:"network_id"`
	NetworkName string         `json:"network_name"`
	Locale      string         `json:"locale"`
	Status      string         `json:"status"`
	Result      string         `json:"result"`
	Issues      []IssueSummary `json:"issues"`
}

func (r Run) Key() string { return r.ID }

// RunningRun is one row of the in-progress run list.
type RunningRun struct {
	ID          string     `json:"id"`
	DisplayID   string     `json:"display_id"`
	StartedAt   *time.Time `json:"started_at"`
	DeviceID    string     `json:"device_id"`
	DeviceName  string     `json:"device_name"`
	NetworkID   string     `json:"network_id"`
	NetworkName string     `json:"network_name"`
}

func (r RunningRun) Key() string { return r.ID }

// Issue is one row of the issue list.
type Issue struct {
	Idx         int        `json:"idx"`
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    string     `json:"severity"`
	Category    string     `json:"category"`
	OwnerTeam   string     `json:"owner_team"`
	Status      string     `json:"status"`
	CreatedAt   *time.Time `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	RunID       string     `json:"run_id"`
	SlackURL    string     `json:"slack_url"`
	DeviceID    string     `json:"device_id"`
	DeviceName  string     `json:"device_name"`
	NetworkID   string     `json:"network_id"`
	NetworkName string     `json:"network_name"`
	Locale      string     `json:"locale"`
}

func (i Issue) Key() string { return i.ID }

// Media is one piece of captured evidence attached to an issue or run.
type Media struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	IssueID     string     `json:"issue_id"`
	Type        string     `json:"type"`
	StoragePath string     `json:"storage_path"`
	Label       string     `json:"label"`
	CreatedAt   *time.Time `json:"created_at"`
	URL         string     `json:"url"`
}

// IssueDetail is the full issue view including attached media.
type IssueDetail struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Severity     string     `json:"severity"`
	Category     string     `json:"category"`
	OwnerTeam    string     `json:"owner_team"`
	Status       string     `json:"status"`
	CreatedAt    *time.Time `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at"`
	RunID        string     `json:"run_id"`
	RunDisplayID string     `json:"run_display_id"`
	SlackURL     string     `json:"slack_url"`
	OwnerName    string     `json:"owner_name"`
	Media        []Media    `json:"media"`
}

// RunIssues bundles the issues and media captured during one run.
type RunIssues struct {
	ProjectID string  `json:"project_id"`
	RunID     string  `json:"run_id"`
	Issues    []Issue `json:"issues"`
	Media     []Media `json:"media"`
}

// Evidence is one row of the evidence gallery list.
type Evidence struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	RunID       string     `json:"run_id"`
	IssueID     string     `json:"issue_id"`
	IssueTitle  string     `json:"issue_title"`
	Type        string     `json:"type"`
	StoragePath string     `json:"storage_path"`
	Label       string     `json:"label"`
	CreatedAt   *time.Time `json:"created_at"`
	DeviceID    string     `json:"device_id"`
	DeviceName  string     `json:"device_name"`
	URL         string     `json:"url"`
}

func (e Evidence) Key() string { return e.ID }

// User is one row of the Slack-linked reviewer directory.
type User struct {
	Idx         int        `json:"idx"`
	ID          string     `json:"id"`
	SlackUserID string     `json:"slack_user_id"`
	DisplayName string     `json:"display_name"`
	RealName    string     `json:"real_name"`
	Email       string     `json:"email"`
	AvatarURL   string     `json:"avatar_url"`
	IsActive    *bool      `json:"is_active"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

func (u User) Key() string { return u.ID }

// Device is a device option for run configuration.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (d Device) Key() string { return d.ID }

// Network is a network option for run configuration.
type Network struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (n Network) Key() string { return n.ID }

// Project is a project option.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Environment string `json:"environment"`
}

func (p Project) Key() string { return p.ID }

// Category is one row of the issue-category list with its Slack owner.
type Category struct {
	Idx              int        `json:"idx"`
	ID               string     `json:"id"`
	ProjectID        string     `json:"project_id"`
	Category         string     `json:"category"`
	SlackUserID      string     `json:"slack_user_id"`
	CreatedAt        *time.Time `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
	SlackDisplayName string     `json:"slack_display_name"`
	SlackRealName    string     `json:"slack_real_name"`
}

func (c Category) Key() string { return c.ID }

// WidgetSummary is the per-day dashboard headline numbers for a project.
// Date is "YYYY-MM-DD" (UTC).
type WidgetSummary struct {
	ProjectID      string `json:"project_id"`
	Date           string `json:"date"`
	RunsCount      int    `json:"runs_count"`
	IssuesCount    int    `json:"issues_count"`
	P0Count        int    `json:"p0_count"`
	P1Count        int    `json:"p1_count"`
	AvgIssueTimeMS *int64 `json:"avg_issue_time_ms"`
}

// RunCreate is the payload for starting a new run.
type RunCreate struct {
	ProjectID string         `json:"project_id"`
	DeviceID  string         `json:"device_id"`
	NetworkID string         `json:"network_id"`
	Locale    string         `json:"locale"`
	Persona   string         `json:"persona,omitempty"`
	InputData map[string]any `json:"input_data,omitempty"`
}

// RunCreated is the backend's acknowledgment of a created run.
type RunCreated struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}
