// Package remote implements the single-resource client for the remote
// administrative API. It classifies transport and HTTP failures into the
// orchestrator's error taxonomy and performs no orchestration logic.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/orgforge/orgforge/pkg/orchestrator"
	"github.com/orgforge/orgforge/pkg/telemetry"
)

// TokenSource supplies a bearer token for remote API calls. Implemented
// by the auth package; the client itself never refreshes credentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config configures the remote API client.
type Config struct {
	// BaseURL is the admin API endpoint, e.g. "https://admin.example.com".
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// Tenant is the tenant identifier sent with every request.
	Tenant string `yaml:"tenant"`

	// Timeout bounds each individual HTTP call.
	Timeout time.Duration `yaml:"timeout"`
}

// Client talks to the remote administrative API. It satisfies
// orchestrator.ResourceClient.
type Client struct {
	http    *resty.Client
	tokens  TokenSource
	metrics *telemetry.Metrics
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource attaches a bearer-token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithMetrics attaches a metrics collector for per-call observations.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a remote API client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		metrics: telemetry.NewMetrics(telemetry.MetricsConfig{}),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.Tenant != "" {
		httpClient.SetHeader("X-Tenant-ID", cfg.Tenant)
	}

	// Resty's own retry stays off: retry policy lives in the orchestrator.
	httpClient.SetRetryCount(0)

	if c.tokens != nil {
		tokens := c.tokens
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			token, err := tokens.Token(req.Context())
			if err != nil {
				return orchestrator.NewAuthExpiredError("failed to acquire token", err)
			}
			req.SetAuthToken(token)
			return nil
		})
	}

	c.http = httpClient
	return c
}

// resourcePayload is the wire representation of a single remote resource.
type resourcePayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type listPayload struct {
	Items []resourcePayload `json:"items"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateResource creates one resource of the given kind.
func (c *Client) CreateResource(ctx context.Context, kind orchestrator.ResourceKind, attrs orchestrator.CreateAttrs) (orchestrator.ResourceRef, error) {
	path, err := collectionPath(kind)
	if err != nil {
		return orchestrator.ResourceRef{}, err
	}

	var out resourcePayload
	var apiErr apiError
	start := time.Now()

	resp, httpErr := c.http.R().
		SetContext(ctx).
		SetBody(createBody(kind, attrs)).
		SetResult(&out).
		SetError(&apiErr).
		Post(path)

	perr := c.classify(resp, httpErr, string(kind), "create", apiErr)
	c.observe(string(kind), "create", perr, time.Since(start))
	if perr != nil {
		return orchestrator.ResourceRef{}, perr
	}

	return refFromPayload(kind, out), nil
}

// DeleteResource removes one resource. Workspace teardown is issued as an
// archive: the remote API does not guarantee synchronous hard deletes for
// workspaces, and an archived workspace releases its identifier for the
// caller's purposes just as a deleted one does.
func (c *Client) DeleteResource(ctx context.Context, kind orchestrator.ResourceKind, remoteID string) error {
	path, err := collectionPath(kind)
	if err != nil {
		return err
	}

	var apiErr apiError
	start := time.Now()

	req := c.http.R().SetContext(ctx).SetError(&apiErr)

	var resp *resty.Response
	var httpErr error
	if kind == orchestrator.KindWorkspace {
		resp, httpErr = req.Post(fmt.Sprintf("%s/%s/archive", path, remoteID))
	} else {
		resp, httpErr = req.Delete(fmt.Sprintf("%s/%s", path, remoteID))
	}

	perr := c.classify(resp, httpErr, string(kind), "delete", apiErr)
	c.observe(string(kind), "delete", perr, time.Since(start))
	if perr != nil {
		return perr
	}
	return nil
}

// GetResource fetches one resource by ID.
func (c *Client) GetResource(ctx context.Context, kind orchestrator.ResourceKind, remoteID string) (orchestrator.ResourceRef, error) {
	path, err := collectionPath(kind)
	if err != nil {
		return orchestrator.ResourceRef{}, err
	}

	var out resourcePayload
	var apiErr apiError
	start := time.Now()

	resp, httpErr := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get(fmt.Sprintf("%s/%s", path, remoteID))

	perr := c.classify(resp, httpErr, string(kind), "get", apiErr)
	c.observe(string(kind), "get", perr, time.Since(start))
	if perr != nil {
		return orchestrator.ResourceRef{}, perr
	}
	return refFromPayload(kind, out), nil
}

// ListResources lists resources of one kind, optionally scoped to a
// workspace.
func (c *Client) ListResources(ctx context.Context, kind orchestrator.ResourceKind, workspaceID string) ([]orchestrator.ResourceRef, error) {
	path, err := collectionPath(kind)
	if err != nil {
		return nil, err
	}

	var out listPayload
	var apiErr apiError
	start := time.Now()

	req := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr)
	if workspaceID != "" {
		req.SetQueryParam("workspace_id", workspaceID)
	}

	resp, httpErr := req.Get(path)

	perr := c.classify(resp, httpErr, string(kind), "list", apiErr)
	c.observe(string(kind), "list", perr, time.Since(start))
	if perr != nil {
		return nil, perr
	}

	refs := make([]orchestrator.ResourceRef, 0, len(out.Items))
	for _, item := range out.Items {
		refs = append(refs, refFromPayload(kind, item))
	}
	return refs, nil
}

// ResolveAccount resolves an identifier (email) to an account reference.
func (c *Client) ResolveAccount(ctx context.Context, identifier string) (orchestrator.ResourceRef, error) {
	var out resourcePayload
	var apiErr apiError
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("identifier", identifier).
		SetResult(&out).
		SetError(&apiErr).
		Get("/v1/accounts/resolve")

	perr := c.classify(resp, err, string(orchestrator.KindAccount), "resolve", apiErr)
	c.observe(string(orchestrator.KindAccount), "resolve", perr, time.Since(start))
	if perr != nil {
		return orchestrator.ResourceRef{}, perr
	}
	return refFromPayload(orchestrator.KindAccount, out), nil
}

// classify maps a transport error or non-2xx response into the typed
// error taxonomy.
func (c *Client) classify(resp *resty.Response, err error, kind, op string, apiErr apiError) *orchestrator.ProvisionError {
	if err != nil {
		// Token acquisition failures arrive pre-classified.
		var perr *orchestrator.ProvisionError
		if errors.As(err, &perr) {
			return perr
		}
		return orchestrator.NewUnavailableError(
			fmt.Sprintf("%s %s: transport failure", op, kind), err).
			WithCode(orchestrator.ErrCodeRemoteCall)
	}
	if resp == nil || !resp.IsError() {
		return nil
	}

	msg := apiErr.Message
	if msg == "" {
		msg = fmt.Sprintf("%s %s: remote API returned %d", op, kind, resp.StatusCode())
	}

	var perr *orchestrator.ProvisionError
	switch resp.StatusCode() {
	case 400, 422:
		perr = orchestrator.NewValidationError(msg, nil)
	case 401:
		perr = orchestrator.NewAuthExpiredError(msg, nil)
	case 403:
		perr = orchestrator.NewPermissionDeniedError(msg, nil)
	case 404:
		perr = orchestrator.NewNotFoundError(msg, nil)
	case 409:
		perr = orchestrator.NewConflictError(msg, nil)
	case 429:
		perr = orchestrator.NewRateLimitedError(msg, nil)
		perr.RetryAfter = retryAfterHint(resp)
	default:
		if resp.StatusCode() >= 500 {
			perr = orchestrator.NewUnavailableError(msg, nil)
		} else {
			perr = orchestrator.NewInternalError(msg, nil)
		}
	}

	if apiErr.Code != "" {
		perr = perr.WithCode(apiErr.Code)
	}
	return perr.WithResource(kind)
}

func (c *Client) observe(kind, op string, perr *orchestrator.ProvisionError, d time.Duration) {
	outcome := "ok"
	if perr != nil {
		outcome = string(perr.Class)
		c.logger.Debug().
			Str("kind", kind).
			Str("operation", op).
			Str("class", outcome).
			Msg("remote call failed")
	}
	c.metrics.ObserveRemoteCall(kind, op, outcome, d.Seconds())
}

// retryAfterHint parses the Retry-After header as delay seconds.
func retryAfterHint(resp *resty.Response) time.Duration {
	raw := resp.Header().Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func collectionPath(kind orchestrator.ResourceKind) (string, *orchestrator.ProvisionError) {
	switch kind {
	case orchestrator.KindWorkspace:
		return "/v1/workspaces", nil
	case orchestrator.KindChannel:
		return "/v1/channels", nil
	case orchestrator.KindMembership:
		return "/v1/memberships", nil
	case orchestrator.KindAccount:
		return "/v1/accounts", nil
	default:
		return "", orchestrator.NewValidationError("unknown resource kind: "+string(kind), nil)
	}
}

func createBody(kind orchestrator.ResourceKind, attrs orchestrator.CreateAttrs) map[string]any {
	body := make(map[string]any)
	switch kind {
	case orchestrator.KindWorkspace:
		body["name"] = attrs.Name
		body["visibility"] = attrs.Visibility
		if attrs.Description != "" {
			body["description"] = attrs.Description
		}
	case orchestrator.KindChannel:
		body["workspace_id"] = attrs.WorkspaceID
		body["name"] = attrs.Name
		body["type"] = attrs.ChannelType
		if attrs.Description != "" {
			body["description"] = attrs.Description
		}
	case orchestrator.KindMembership:
		body["workspace_id"] = attrs.WorkspaceID
		body["account_id"] = attrs.AccountID
		body["role"] = attrs.Role
	}
	return body
}

func refFromPayload(kind orchestrator.ResourceKind, p resourcePayload) orchestrator.ResourceRef {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return orchestrator.ResourceRef{
		Kind:      kind,
		RemoteID:  p.ID,
		Name:      p.Name,
		CreatedAt: createdAt,
	}
}
