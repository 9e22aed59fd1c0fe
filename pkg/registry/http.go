package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient implements Client against a remote limits registry speaking
// JSON over HTTP. It provides connection pooling, retry with exponential
// backoff for transient failures, token authentication, and follows
// links.next pagination on list endpoints.
type HTTPClient struct {
	config HTTPConfig
	client *http.Client
	logger *slog.Logger
}

// HTTPConfig configures the HTTP registry client.
type HTTPConfig struct {
	// BaseURL is the registry's base URL (e.g., https://registry:5000/v3).
	BaseURL string

	// AuthToken is sent as the X-Auth-Token header on every request.
	AuthToken string

	// Timeout is the per-request timeout. Default: 30s.
	Timeout time.Duration

	// MaxRetries is the number of retries for transient failures. Default: 3.
	MaxRetries int

	// MaxIdleConns caps idle connections in the pool. Default: 10.
	MaxIdleConns int

	// IdleConnTimeout is how long idle connections are kept. Default: 90s.
	IdleConnTimeout time.Duration
}

// RequestError reports a non-2xx registry response that is not retryable.
type RequestError struct {
	// StatusCode is the HTTP status returned by the registry.
	StatusCode int

	// Message is the response body, if any.
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("registry request failed with status %d: %s", e.StatusCode, e.Message)
}

// NewHTTPClient creates an HTTP registry client.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("registry base url cannot be empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid registry base url %q: %w", cfg.BaseURL, err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 10
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:      cfg.MaxIdleConns,
		IdleConnTimeout:   cfg.IdleConnTimeout,
		ForceAttemptHTTP2: true,
	}

	return &HTTPClient{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: slog.Default().With("component", "registry.http"),
	}, nil
}

// Dial returns a DialFunc for use with NewSession. The dial verifies
// connectivity and credentials with a cheap request so that auth failures
// surface as SessionInitError instead of failing the first enforcement call
// with a less specific error.
func Dial(cfg HTTPConfig) DialFunc {
	return func(ctx context.Context) (Client, error) {
		client, err := NewHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
		if err := client.ping(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
}

// ping issues a minimal authenticated request to validate the session.
func (c *HTTPClient) ping(ctx context.Context) error {
	var resp struct{}
	return c.getJSON(ctx, c.endpoint("registered_limits", url.Values{"limit": []string{"1"}}), &resp)
}

// GetEndpoint resolves the deployment endpoint by its identifier.
func (c *HTTPClient) GetEndpoint(ctx context.Context, endpointID string) (*Endpoint, error) {
	var resp struct {
		Endpoint struct {
			ID        string `json:"id"`
			ServiceID string `json:"service_id"`
			RegionID  string `json:"region_id"`
		} `json:"endpoint"`
	}

	u := c.endpoint("endpoints/"+url.PathEscape(endpointID), nil)
	if err := c.getJSON(ctx, u, &resp); err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("endpoint %q: %w", endpointID, ErrEndpointNotFound)
		}
		return nil, err
	}

	return &Endpoint{
		ID:        resp.Endpoint.ID,
		ServiceID: resp.Endpoint.ServiceID,
		RegionID:  resp.Endpoint.RegionID,
	}, nil
}

// ListRegisteredLimits returns the registered limits in scope, optionally
// filtered to a single resource name.
func (c *HTTPClient) ListRegisteredLimits(ctx context.Context, serviceID, regionID, resourceName string) ([]RegisteredLimit, error) {
	query := url.Values{}
	query.Set("service_id", serviceID)
	query.Set("region_id", regionID)
	if resourceName != "" {
		query.Set("resource_name", resourceName)
	}

	var limits []RegisteredLimit
	next := c.endpoint("registered_limits", query)
	for next != "" {
		var page struct {
			RegisteredLimits []struct {
				ResourceName string `json:"resource_name"`
				DefaultLimit int64  `json:"default_limit"`
			} `json:"registered_limits"`
			Links struct {
				Next string `json:"next"`
			} `json:"links"`
		}

		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		for _, limit := range page.RegisteredLimits {
			limits = append(limits, RegisteredLimit{
				ResourceName: limit.ResourceName,
				DefaultLimit: limit.DefaultLimit,
			})
		}
		next = c.absoluteURL(page.Links.Next)
	}

	return limits, nil
}

// ListProjectLimits returns the project override limits for a resource in scope.
func (c *HTTPClient) ListProjectLimits(ctx context.Context, serviceID, regionID, resourceName, projectID string) ([]ProjectLimit, error) {
	query := url.Values{}
	query.Set("service_id", serviceID)
	query.Set("region_id", regionID)
	query.Set("resource_name", resourceName)
	query.Set("project_id", projectID)

	var limits []ProjectLimit
	next := c.endpoint("limits", query)
	for next != "" {
		var page struct {
			Limits []struct {
				ProjectID     string `json:"project_id"`
				ResourceName  string `json:"resource_name"`
				ResourceLimit int64  `json:"resource_limit"`
			} `json:"limits"`
			Links struct {
				Next string `json:"next"`
			} `json:"links"`
		}

		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		for _, limit := range page.Limits {
			limits = append(limits, ProjectLimit{
				ProjectID:     limit.ProjectID,
				ResourceName:  limit.ResourceName,
				ResourceLimit: limit.ResourceLimit,
			})
		}
		next = c.absoluteURL(page.Links.Next)
	}

	return limits, nil
}

// getJSON performs a GET with retry logic and decodes the JSON response.
// Transient failures (network errors, 5xx) are retried with exponential
// backoff; 4xx responses are returned immediately.
func (c *HTTPClient) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			c.logger.Debug("retrying registry request",
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.config.AuthToken != "" {
			req.Header.Set("X-Auth-Token", c.config.AuthToken)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			c.logger.Warn("registry request failed, will retry",
				"url", rawURL,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out != nil && len(body) > 0 {
				if err := json.Unmarshal(body, out); err != nil {
					return fmt.Errorf("failed to decode registry response: %w", err)
				}
			}
			return nil
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client error: not retryable
			return &RequestError{StatusCode: resp.StatusCode, Message: string(body)}
		}

		lastErr = &RequestError{StatusCode: resp.StatusCode, Message: string(body)}
		c.logger.Warn("registry returned error status, will retry",
			"url", rawURL,
			"status", resp.StatusCode,
			"attempt", attempt+1,
		)
	}

	return lastErr
}

// endpoint joins the base URL, a path, and query parameters.
func (c *HTTPClient) endpoint(path string, query url.Values) string {
	base := strings.TrimRight(c.config.BaseURL, "/")
	u := base + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// absoluteURL resolves a pagination link against the base URL. Registries
// may return either absolute or path-only next links.
func (c *HTTPClient) absoluteURL(link string) string {
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	base := strings.TrimRight(c.config.BaseURL, "/")
	return base + "/" + strings.TrimLeft(link, "/")
}
