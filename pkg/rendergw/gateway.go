package rendergw

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/reisbot/reisbot/pkg/failure"
	"github.com/reisbot/reisbot/pkg/logger"
)

const defaultBaseURL = "https://api.render.com/v1"

type ServiceStatus string

const (
	StatusUnknown  ServiceStatus = "unknown"
	StatusBuilding ServiceStatus = "building"
	StatusLive     ServiceStatus = "live"
	StatusFailed   ServiceStatus = "failed"
)

type Service struct {
	ID           string
	Name         string
	Status       ServiceStatus
	URL          string
	Branch       string
	BuildCommand string
	StartCommand string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type DeployStatus string

const (
	DeployQueued     DeployStatus = "queued"
	DeployInProgress DeployStatus = "build_in_progress"
	DeployLive       DeployStatus = "live"
	DeployFailed     DeployStatus = "failed"
)

type Deploy struct {
	ID         string
	Status     DeployStatus
	CreatedAt  time.Time
	FinishedAt *time.Time // nil while in progress
}

// Gateway wraps the Render API. No retries: one failed HTTP status
// surfaces as a single Transport failure carrying the status code.
type Gateway struct {
	client      *resty.Client
	ownerID     string
	branch      string
	environment string
}

func New(apiKey, ownerID, branch, environment string) *Gateway {
	return newGateway(defaultBaseURL, apiKey, ownerID, branch, environment)
}

// NewWithBaseURL exists for tests pointing at a stub server.
func NewWithBaseURL(baseURL, apiKey, ownerID string) *Gateway {
	return newGateway(baseURL, apiKey, ownerID, "main", "docker")
}

func newGateway(baseURL, apiKey, ownerID, branch, environment string) *Gateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &Gateway{
		client:      client,
		ownerID:     ownerID,
		branch:      branch,
		environment: environment,
	}
}

// ListServices returns the account's services, empty on provider error
// (failure is logged, the caller gets a clean empty listing).
func (g *Gateway) ListServices(ctx context.Context) []Service {
	resp, err := g.client.R().SetContext(ctx).Get("/services")
	if err != nil || resp.StatusCode() != 200 {
		logFailure("list_services", "", resp, err)
		return []Service{}
	}

	// Some API variants wrap each element as {"service": {...}, "cursor": ...}.
	items := gjson.ParseBytes(resp.Body()).Array()
	out := make([]Service, 0, len(items))
	for _, item := range items {
		if inner := item.Get("service"); inner.Exists() {
			item = inner
		}
		out = append(out, parseService(item))
	}
	return out
}

func (g *Gateway) GetServiceDetails(ctx context.Context, serviceID string) (Service, error) {
	resp, err := g.client.R().SetContext(ctx).Get("/services/" + serviceID)
	if err != nil {
		logFailure("get_service", serviceID, resp, err)
		return Service{}, failure.Wrap(failure.Transport, "get_service", serviceID, err)
	}
	switch resp.StatusCode() {
	case 200:
		return parseService(gjson.ParseBytes(resp.Body())), nil
	case 404:
		return Service{}, failure.New(failure.NotFound, "get_service", serviceID)
	default:
		logFailure("get_service", serviceID, resp, nil)
		return Service{}, failure.HTTP("get_service", serviceID, resp.StatusCode())
	}
}

// CreateService registers a web service backed by repoURL. The creation
// response may lack a usable id on some provider variants; callers that
// need the id should re-list and match by name.
func (g *Gateway) CreateService(ctx context.Context, name, repoURL, branch, environment string) (Service, error) {
	if branch == "" {
		branch = g.branch
	}
	if environment == "" {
		environment = g.environment
	}
	payload := map[string]interface{}{
		"name":        name,
		"type":        "web_service",
		"repo":        repoURL,
		"branch":      branch,
		"environment": environment,
		"plan":        "starter",
		"autoDeploy":  true,
		"ownerId":     g.ownerID,
	}

	resp, err := g.client.R().SetContext(ctx).SetBody(payload).Post("/services")
	if err != nil {
		logFailure("create_service", name, resp, err)
		return Service{}, failure.Wrap(failure.Transport, "create_service", name, err)
	}
	switch resp.StatusCode() {
	case 201:
		body := gjson.ParseBytes(resp.Body())
		if inner := body.Get("service"); inner.Exists() {
			body = inner
		}
		return parseService(body), nil
	case 409:
		return Service{}, failure.New(failure.AlreadyExists, "create_service", name)
	case 400, 422:
		logFailure("create_service", name, resp, nil)
		return Service{}, failure.New(failure.InvalidSpec, "create_service", name)
	default:
		logFailure("create_service", name, resp, nil)
		return Service{}, failure.HTTP("create_service", name, resp.StatusCode())
	}
}

// TriggerDeploy starts a new deploy and returns its id. Not idempotent:
// every call creates a new deploy record.
func (g *Gateway) TriggerDeploy(ctx context.Context, serviceID string) (string, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{}).
		Post("/services/" + serviceID + "/deploys")
	if err != nil {
		logFailure("trigger_deploy", serviceID, resp, err)
		return "", failure.Wrap(failure.Transport, "trigger_deploy", serviceID, err)
	}
	switch resp.StatusCode() {
	case 201:
		return gjson.GetBytes(resp.Body(), "id").String(), nil
	case 404:
		return "", failure.New(failure.NotFound, "trigger_deploy", serviceID)
	default:
		logFailure("trigger_deploy", serviceID, resp, nil)
		return "", failure.HTTP("trigger_deploy", serviceID, resp.StatusCode())
	}
}

// RestartService is an alias for TriggerDeploy: the provider has no
// dedicated restart primitive, so "restart" means "new deploy". In-flight
// state is not preserved and two calls produce two deploy records.
func (g *Gateway) RestartService(ctx context.Context, serviceID string) (string, error) {
	return g.TriggerDeploy(ctx, serviceID)
}

// ListDeploys returns up to limit deploys, newest first (provider order).
func (g *Gateway) ListDeploys(ctx context.Context, serviceID string, limit int) ([]Deploy, error) {
	if limit <= 0 {
		limit = 5
	}
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		Get("/services/" + serviceID + "/deploys")
	if err != nil {
		logFailure("list_deploys", serviceID, resp, err)
		return nil, failure.Wrap(failure.Transport, "list_deploys", serviceID, err)
	}
	if resp.StatusCode() != 200 {
		logFailure("list_deploys", serviceID, resp, nil)
		return nil, failure.HTTP("list_deploys", serviceID, resp.StatusCode())
	}

	items := gjson.ParseBytes(resp.Body()).Array()
	out := make([]Deploy, 0, len(items))
	for _, item := range items {
		if inner := item.Get("deploy"); inner.Exists() {
			item = inner
		}
		d := Deploy{
			ID:        item.Get("id").String(),
			Status:    mapDeployStatus(item.Get("status").String()),
			CreatedAt: parseTime(item.Get("createdAt").String()),
		}
		if fin := item.Get("finishedAt").String(); fin != "" {
			t := parseTime(fin)
			d.FinishedAt = &t
		}
		out = append(out, d)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetLogs returns raw log lines in provider order. The payload shape has
// shifted across API versions, so the parse is deliberately permissive.
func (g *Gateway) GetLogs(ctx context.Context, serviceID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		Get("/services/" + serviceID + "/logs")
	if err != nil {
		logFailure("get_logs", serviceID, resp, err)
		return nil, failure.Wrap(failure.Transport, "get_logs", serviceID, err)
	}
	if resp.StatusCode() != 200 {
		logFailure("get_logs", serviceID, resp, nil)
		return nil, failure.HTTP("get_logs", serviceID, resp.StatusCode())
	}

	body := gjson.ParseBytes(resp.Body())
	if logs := body.Get("logs"); logs.Exists() {
		body = logs
	}
	items := body.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		if msg := item.Get("message"); msg.Exists() {
			out = append(out, msg.String())
		} else {
			out = append(out, item.String())
		}
	}
	return out, nil
}

func (g *Gateway) UpdateEnvVars(ctx context.Context, serviceID string, vars map[string]string) error {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	envVars := make([]map[string]string, 0, len(vars))
	for _, k := range keys {
		envVars = append(envVars, map[string]string{"key": k, "value": vars[k]})
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"envVars": envVars}).
		Patch("/services/" + serviceID)
	if err != nil {
		logFailure("update_env_vars", serviceID, resp, err)
		return failure.Wrap(failure.Transport, "update_env_vars", serviceID, err)
	}
	switch resp.StatusCode() {
	case 200:
		return nil
	case 404:
		return failure.New(failure.NotFound, "update_env_vars", serviceID)
	default:
		logFailure("update_env_vars", serviceID, resp, nil)
		return failure.HTTP("update_env_vars", serviceID, resp.StatusCode())
	}
}

func parseService(item gjson.Result) Service {
	return Service{
		ID:           item.Get("id").String(),
		Name:         item.Get("name").String(),
		Status:       mapServiceStatus(item.Get("serviceDetails.status").String()),
		URL:          item.Get("serviceDetails.url").String(),
		Branch:       item.Get("branch").String(),
		BuildCommand: item.Get("buildCommand").String(),
		StartCommand: item.Get("startCommand").String(),
		CreatedAt:    parseTime(item.Get("createdAt").String()),
		UpdatedAt:    parseTime(item.Get("updatedAt").String()),
	}
}

func mapServiceStatus(raw string) ServiceStatus {
	switch raw {
	case "available", "live":
		return StatusLive
	case "build_in_progress", "deploying", "building":
		return StatusBuilding
	case "build_failed", "deactivated", "failed":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

func mapDeployStatus(raw string) DeployStatus {
	switch raw {
	case "created", "queued", "pre_deploy_in_progress":
		return DeployQueued
	case "build_in_progress", "update_in_progress":
		return DeployInProgress
	case "live":
		return DeployLive
	default:
		return DeployFailed
	}
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func logFailure(op, target string, resp *resty.Response, err error) {
	fields := map[string]interface{}{"op": op}
	if target != "" {
		fields["target"] = target
	}
	if resp != nil {
		fields["status"] = resp.StatusCode()
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	logger.ErrorCF("rendergw", "Render call failed", fields)
}
