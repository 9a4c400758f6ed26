// Package pinboard provides the Pinboard API client used to page through a
// user's bookmarks and to write corrected bookmarks back.
package pinboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for Pinboard API operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinboard_api_requests_total",
		Help: "Total Pinboard API requests by method and status",
	}, []string{"method", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pinboard_api_request_duration_seconds",
		Help:    "Pinboard API request duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinboard_api_errors_total",
		Help: "Total Pinboard API errors by class",
	}, []string{"class"})
)

// API methods.
const (
	methodPostsAll = "posts/all"
	methodPostsAdd = "posts/add"
)

// DefaultBaseURL is the public Pinboard API endpoint.
const DefaultBaseURL = "https://api.pinboard.in"

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, without the /v1 prefix.
	BaseURL string

	// Token is the user's API token ("user:HEX"). REQUIRED.
	Token string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per API request.
	Timeout time.Duration

	// MinInterval spaces consecutive API calls. 0 disables spacing.
	MinInterval time.Duration
}

// DefaultConfig returns a default configuration for the given token.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Token:     token,
		UserAgent: "pinboard-titles/0.1.0",
		Timeout:   30 * time.Second,
	}
}

// Client talks to the Pinboard v1 API. It is safe for sequential use; the
// pipeline never issues two calls at once.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *rate.Limiter
	config     Config
	logger     zerolog.Logger
}

// New creates a new Pinboard client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MinInterval < 0 {
		return nil, fmt.Errorf("min_interval must be >= 0 (got %s)", cfg.MinInterval)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		limiter:    rate.NewLimiter(limit, 1),
		config:     cfg,
		logger:     log.With().Str("component", "pinboard-client").Logger(),
	}, nil
}

// FetchPage issues exactly one /v1/posts/all request for the page starting
// at offset. It never retries. Every failure is returned as *APIError.
func (c *Client) FetchPage(ctx context.Context, offset, pageSize int) ([]Post, error) {
	query := url.Values{}
	query.Set("results", strconv.Itoa(pageSize))
	query.Set("start", strconv.Itoa(offset))
	query.Set("format", "json")

	resp, err := c.get(ctx, methodPostsAll, query, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, c.fail(&APIError{
			Op:         methodPostsAll,
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
		})
	}

	var posts []Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, c.fail(&APIError{
			Op:         methodPostsAll,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassDecode,
			Err:        fmt.Errorf("decode posts: %w", err),
		})
	}

	c.logger.Debug().
		Int("offset", offset).
		Int("count", len(posts)).
		Msg("Fetched posts page")

	return posts, nil
}

// SubmitUpdate re-submits post with its description replaced by title. All
// other fields are sent unchanged and replace=yes makes Pinboard overwrite
// the existing bookmark instead of adding a new one.
func (c *Client) SubmitUpdate(ctx context.Context, post Post, title string) error {
	resp, err := c.get(ctx, methodPostsAdd, UpdateQuery(post, title), "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return c.fail(&APIError{
			Op:         methodPostsAdd,
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
		})
	}
	return nil
}

// UpdateQuery builds the posts/add parameters for post with a new title.
// The auth token is not included.
func UpdateQuery(post Post, title string) url.Values {
	query := url.Values{}
	query.Set("url", post.Href)
	query.Set("description", title)
	query.Set("extended", post.Extended)
	query.Set("tags", post.Tags.String())
	query.Set("dt", post.Time)
	query.Set("replace", "yes")
	query.Set("shared", post.Shared.String())
	query.Set("toread", post.ToRead.String())
	return query
}

// get performs one authenticated GET against the API. Transport failures
// come back as *APIError with ErrorClassNetwork.
func (c *Client) get(ctx context.Context, method string, query url.Values, accept string) (*http.Response, error) {
	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(&APIError{Op: method, Class: ErrorClassNetwork, Err: err})
	}

	query.Set("auth_token", c.config.Token)
	endpoint := c.baseURL.JoinPath("v1", method)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", redact(endpoint)).
		Msg("Executing Pinboard request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redact(endpoint)
		}
		apiRequestsTotal.WithLabelValues(method, "network_error").Inc()
		return nil, c.fail(&APIError{Op: method, Class: ErrorClassNetwork, Err: err})
	}

	apiRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

// fail records and logs an API error before returning it.
func (c *Client) fail(apiErr *APIError) *APIError {
	apiErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
	c.logger.Warn().
		Str("method", apiErr.Op).
		Int("status", apiErr.StatusCode).
		Str("error_class", string(apiErr.Class)).
		Msg("Pinboard request error")
	return apiErr
}

// redact strips the auth token from a request URL for logging.
func redact(u *url.URL) string {
	clone := *u
	query := clone.Query()
	if query.Has("auth_token") {
		query.Set("auth_token", "REDACTED")
	}
	clone.RawQuery = query.Encode()
	return clone.String()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
