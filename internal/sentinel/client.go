// Package sentinel is the typed client for the Sentinel dashboard API:
// runs, issues, evidence, users, and the option lists used by run
// configuration. All calls go through the shared authenticated executor.
package sentinel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ziyad188/sentinel-bot-webwic/internal/api"
	"github.com/ziyad188/sentinel-bot-webwic/internal/pager"
)

// DefaultPageSize matches the backend's default list page size.
const DefaultPageSize = 25

// Client exposes the dashboard's resource API.
type Client struct {
	api    *api.Client
	logger *slog.Logger
}

// NewClient wraps the shared executor.
func NewClient(apiClient *api.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{api: apiClient, logger: logger}
}

func pageQuery(q url.Values, page, pageSize int) url.Values {
	if q == nil {
		q = url.Values{}
	}

	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	return q
}

func setIfNonEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// listPage fetches one page of a list endpoint into a pager page.
func listPage[T pager.Item](ctx context.Context, c *Client, path string, q url.Values) (pager.Page[T], error) {
	var env listEnvelope[T]

	err := c.api.DoJSON(ctx, api.Request{Method: http.MethodGet, Path: path, Query: q}, &env)
	if err != nil {
		return pager.Page[T]{}, err
	}

	return pager.Page[T]{
		Items:    env.Items,
		Page:     env.Page,
		PageSize: env.PageSize,
		Total:    env.Total,
	}, nil
}

// RunFilter narrows the run history list. Zero values mean "no filter".
type RunFilter struct {
	Status   string
	Severity string
}

// ListRuns fetches one page of run history for a project.
func (c *Client) ListRuns(ctx context.Context, projectID string, f RunFilter, page, pageSize int) (pager.Page[Run], error) {
	q := url.Values{}
	q.Set("project_id", projectID)
	setIfNonEmpty(q, "status", f.Status)
	setIfNonEmpty(q, "severity", f.Severity)

	return listPage[Run](ctx, c, "/runs", pageQuery(q, page, pageSize))
}

// RunsLoader builds a loader over the project's run history. One loader per
// logical list — callers must not share it with other lists.
func (c *Client) RunsLoader(projectID string, f RunFilter, pageSize int) *pager.Loader[Run] {
	fetch := func(ctx context.Context, page, size int) (pager.Page[Run], error) {
		return c.ListRuns(ctx, projectID, f, page, size)
	}

	return pager.NewLoader(fetch, pageSize, c.logger)
}

// ListRunning fetches all in-progress runs. The endpoint is not paginated.
func (c *Client) ListRunning(ctx context.Context) ([]RunningRun, error) {
	var out struct {
		Items []RunningRun `json:"items"`
	}

	err := c.api.DoJSON(ctx, api.Request{Method: http.MethodGet, Path: "/runs/running"}, &out)
	if err != nil {
		return nil, err
	}

	return out.Items, nil
}

// CreateRun starts a new run.
func (c *Client) CreateRun(ctx context.Context, rc RunCreate) (*RunCreated, error) {
	var out RunCreated

	err := c.api.DoJSON(ctx, api.Request{Method: http.MethodPost, Path: "/runs", Body: rc}, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// RunIssues fetches the issues and media captured during one run.
func (c *Client) RunIssues(ctx context.Context, projectID, runID string) (*RunIssues, error) {
	q := url.Values{}
	q.Set("project_id", projectID)

	var out RunIssues

	err := c.api.DoJSON(ctx, api.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/runs/%s/issues", runID),
		Query:  q,
	}, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// IssueFilter narrows the issue list. Zero values mean "no filter".
type IssueFilter struct {
	Severity string
	Category string
	Status   string
}

// ListIssues fetches one page of issues for a project.
func (c *Client) ListIssues(ctx context.Context, projectID string, f IssueFilter, page, pageSize int) (pager.Page[Issue], error) {
	q := url.Values{}
	q.Set("project_id", projectID)
	setIfNonEmpty(q, "severity", f.Severity)
	setIfNonEmpty(q, "category", f.Category)
	setIfNonEmpty(q, "status", f.Status)

	return listPage[Issue](ctx, c, "/issues", pageQuery(q, page, pageSize))
}

// IssuesLoader builds a loader over the project's issue list.
func (c *Client) IssuesLoader(projectID string, f IssueFilter, pageSize int) *pager.Loader[Issue] {
	fetch := func(ctx context.Context, page, size int) (pager.Page[Issue], error) {
		return c.ListIssues(ctx, projectID, f, page, size)
	}

	return pager.NewLoader(fetch, pageSize, c.logger)
}

// Issue fetches the full detail view of one issue.
func (c *Client) Issue(ctx context.Context, projectID, issueID string) (*IssueDetail, error) {
	q := url.Values{}
	q.Set("project_id", projectID)

	var out IssueDetail

	err := c.api.DoJSON(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/issues/" + issueID,
		Query:  q,
	}, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// UpdateIssueStatus moves an issue between "investigating" and "resolved".
func (c *Client) UpdateIssueStatus(ctx context.Context, issueID, status string) error {
	body := struct {
		Status string `json:"status"`
	}{Status: status}

	return c.api.DoJSON(ctx, api.Request{
		Method: http.MethodPatch,
		Path:   fmt.Sprintf("/issues/%s/status", issueID),
		Body:   body,
	}, nil)
}

// ListCategories fetches one page of the project's issue categories with
// their Slack owners.
func (c *Client) ListCategories(ctx context.Context, projectID string, page, pageSize int) (pager.Page[Category], error) {
	q := url.Values{}
	q.Set("project_id", projectID)

	return listPage[Category](ctx, c, "/categories", pageQuery(q, page, pageSize))
}

// CategoriesLoader builds a loader over the project's category list.
func (c *Client) CategoriesLoader(projectID string, pageSize int) *pager.Loader[Category] {
	fetch := func(ctx context.Context, page, size int) (pager.Page[Category], error) {
		return c.ListCategories(ctx, projectID, page, size)
	}

	return pager.NewLoader(fetch, pageSize, c.logger)
}

// Summary fetches the dashboard widget numbers for one project and day.
// date is "YYYY-MM-DD" (UTC).
func (c *Client) Summary(ctx context.Context, projectID, date string) (*WidgetSummary, error) {
	body := struct {
		ProjectID string `json:"project_id"`
		Date      string `json:"date"`
	}{ProjectID: projectID, Date: date}

	var out WidgetSummary

	err := c.api.DoJSON(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/widgets/summary",
		Body:   body,
	}, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// ListEvidence fetches one page of the evidence gallery. mediaType filters
// to "screenshot" or "video"; empty means both.
func (c *Client) ListEvidence(ctx context.Context, projectID, mediaType string, page, pageSize int) (pager.Page[Evidence], error) {
	q := url.Values{}
	q.Set("project_id", projectID)
	setIfNonEmpty(q, "media_type", mediaType)

	return listPage[Evidence](ctx, c, "/evidence", pageQuery(q, page, pageSize))
}

// EvidenceLoader builds a loader over the project's evidence gallery.
func (c *Client) EvidenceLoader(projectID, mediaType string, pageSize int) *pager.Loader[Evidence] {
	fetch := func(ctx context.Context, page, size int) (pager.Page[Evidence], error) {
		return c.ListEvidence(ctx, projectID, mediaType, page, size)
	}

	return pager.NewLoader(fetch, pageSize, c.logger)
}

// ListUsers fetches one page of the reviewer directory.
func (c *Client) ListUsers(ctx context.Context, page, pageSize int) (pager.Page[User], error) {
	return listPage[User](ctx, c, "/users", pageQuery(nil, page, pageSize))
}

// UsersLoader builds a loader over the reviewer directory.
func (c *Client) UsersLoader(pageSize int) *pager.Loader[User] {
	fetch := func(ctx context.Context, page, size int) (pager.Page[User], error) {
		return c.ListUsers(ctx, page, size)
	}

	return pager.NewLoader(fetch, pageSize, c.logger)
}

// ListDevices fetches one page of device options.
func (c *Client) ListDevices(ctx context.Context, page, pageSize int) (pager.Page[Device], error) {
	return listPage[Device](ctx, c, "/list/devices", pageQuery(nil, page, pageSize))
}

// DevicesLoader builds a loader over the device options. Each run-config
// session gets its own loader instance.
func (c *Client) DevicesLoader(pageSize int) *pager.Loader[Device] {
	fetch := func(ctx context.Context, page, size int) (pager.Page[Device], error) {
		return c.ListDevices(ctx, page, size)
	}

	return pager.NewLoader(fetch, pageSize, c.logger)
}

// ListNetworks fetches one page of network options.
func (c *Client) ListNetworks(ctx context.Context, page, pageSize int) (pager.Page[Network], error) {
	return listPage[Network](ctx, c, "/list/networks", pageQuery(nil, page, pageSize))
}

// NetworksLoader builds a loader over the network options.
func (c *Client) NetworksLoader(pageSize int) *pager.Loader[Network] {
	fetch := func(ctx context.Context, page, size int) (pager.Page[Network], error) {
		return c.ListNetworks(ctx, page, size)
	}

	return pager.NewLoader(fetch, pageSize, c.logger)
}

// ListProjects fetches one page of project options.
func (c *Client) ListProjects(ctx context.Context, page, pageSize int) (pager.Page[Project], error) {
	return listPage[Project](ctx, c, "/list/projects", pageQuery(nil, page, pageSize))
}

// ProjectsLoader builds a loader over the project options.
func (c *Client) ProjectsLoader(pageSize int) *pager.Loader[Project] {
	fetch := func(ctx context.Context, page, size int) (pager.Page[Project], error) {
		return c.ListProjects(ctx, page, size)
	}

	return pager.NewLoader(fetch, pageSize, c.logger)
}
