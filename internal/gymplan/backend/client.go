package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/gymplanner/internal/cache"
	"github.com/2beens/gymplanner/internal/gymplan/coordinator"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
)

const (
	apiPrefix         = "/api/v1"
	defaultTimeout    = 15 * time.Second
	maxErrorBodyBytes = 64 * 1024
)

var _ coordinator.Remote = (*Client)(nil)

type Params struct {
	BaseURL string
	Token   string
	// UserID is the owner of Token; empty resolves it through /users/me.
	UserID string
	// HTTPClient defaults to a client with a traced transport.
	HTTPClient *http.Client
	// Cache holds the exercise record list; nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration
}

// Client talks to the scheduling backend over its REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration

	userMu sync.Mutex
	userID string
}

func NewClient(params Params) (*Client, error) {
	u, err := url.Parse(params.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url must be absolute: [%s]", params.BaseURL)
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaultTimeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(params.BaseURL, "/") + apiPrefix,
		token:      params.Token,
		httpClient: httpClient,
		cache:      params.Cache,
		cacheTTL:   params.CacheTTL,
		userID:     params.UserID,
	}, nil
}

// request describes one backend call. out may be nil.
type request struct {
	method   string
	path     string
	query    url.Values
	body     any
	out      any
	resource string
}

func (c *Client) do(ctx context.Context, r request) error {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshal %s %s body: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(payload)
	}

	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log.Tracef("backend: %s %s", r.method, reqURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrRemoteUnavailable, r.method, r.path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return errorFromResponse(resp, r.resource)
	}
	if r.out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
		return fmt.Errorf("%w: decode %s %s response: %w", domain.ErrRemoteUnavailable, r.method, r.path, err)
	}
	return nil
}

func errorFromResponse(resp *http.Response, resource string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var errResp errorResponse
	detail := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &errResp); err == nil {
		if msg := errResp.message(); msg != "" {
			detail = msg
		}
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return domain.NewValidationError("", detail)
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusConflict:
		return domain.NewConflictError(resource, strings.ToLower(strings.TrimSuffix(detail, ".")))
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return domain.NewConflictError(resource, "not enough permissions")
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrRemoteUnavailable, resp.StatusCode, detail)
	}
}
