// Package title resolves the title of a web page with a single best-effort
// HTTP fetch.
package title

import (
	"context"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "title_fetches_total",
		Help: "Title source fetches by outcome",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "title_fetch_duration_seconds",
		Help:    "Title source fetch duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5},
	})
)

// Config holds resolver configuration.
type Config struct {
	// Timeout bounds the whole fetch, body included.
	Timeout time.Duration

	// UserAgent header sent with every fetch.
	UserAgent string

	// MaxBodyBytes caps how much of the document is read.
	MaxBodyBytes int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      3 * time.Second,
		UserAgent:    "Mozilla/5.0 (compatible; pinboard-titles/0.1.0)",
		MaxBodyBytes: 2 << 20,
	}
}

// Resolver fetches pages and extracts their titles.
type Resolver struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new resolver.
func New(cfg Config) *Resolver {
	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}

	return &Resolver{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     log.With().Str("component", "title-resolver").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (r *Resolver) SetHTTPClient(client *http.Client) {
	r.httpClient = client
}

type result struct {
	title string
	err   error
}

// completion hands out exactly one result; later results are dropped.
type completion struct {
	once sync.Once
	ch   chan result
}

func newCompletion() *completion {
	return &completion{ch: make(chan result, 1)}
}

// finish delivers res if nothing was delivered before and reports whether
// it did.
func (c *completion) finish(res result) bool {
	delivered := false
	c.once.Do(func() {
		c.ch <- res
		delivered = true
	})
	return delivered
}

// Resolve fetches rawURL once and returns its title. It returns ErrNoTitle
// when the page has no usable title and a *FetchError when the page could
// not be fetched within the timeout.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	startTime := time.Now()
	defer func() {
		fetchDuration.Observe(time.Since(startTime).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	done := newCompletion()
	go func() {
		title, err := r.fetch(ctx, rawURL)
		done.finish(result{title: title, err: err})
	}()

	var res result
	select {
	case res = <-done.ch:
	case <-ctx.Done():
		timeout := result{err: &FetchError{URL: rawURL, Reason: ReasonTimeout, Err: ctx.Err()}}
		if done.finish(timeout) {
			<-done.ch
			res = timeout
		} else {
			res = <-done.ch
		}
	}

	fetchesTotal.WithLabelValues(outcome(res.err)).Inc()
	return res.title, res.err
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Reason: ReasonTransport, Err: err}
	}
	req.Header.Set("Accept", "text/html")
	if r.config.UserAgent != "" {
		req.Header.Set("User-Agent", r.config.UserAgent)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		reason := ReasonTransport
		if isTimeout(ctx, err) {
			reason = ReasonTimeout
		}
		return "", &FetchError{URL: rawURL, Reason: reason, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &FetchError{URL: rawURL, Reason: ReasonStatus, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return "", &FetchError{URL: rawURL, Reason: ReasonNotHTML, StatusCode: resp.StatusCode, ContentType: contentType}
	}

	var body io.Reader = io.LimitReader(resp.Body, r.config.MaxBodyBytes)
	if decoded, err := charset.NewReader(body, contentType); err == nil {
		body = decoded
	} else {
		r.logger.Debug().Err(err).Str("url", rawURL).Msg("Unknown charset, reading as UTF-8")
	}

	title, err := ExtractTitle(body)
	if err != nil {
		reason := ReasonRead
		if isTimeout(ctx, err) {
			reason = ReasonTimeout
		}
		return "", &FetchError{URL: rawURL, Reason: reason, StatusCode: resp.StatusCode, Err: err}
	}
	if title == "" {
		return "", ErrNoTitle
	}
	return title, nil
}

// isTimeout reports whether err came from the fetch deadline.
func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isHTML accepts a missing content type and the HTML media types.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return true
	default:
		return false
	}
}

// outcome labels a Resolve result for metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, ErrNoTitle) {
		return "no_title"
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return string(fetchErr.Reason)
	}
	return "error"
}
