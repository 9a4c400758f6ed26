// Package filter decides which bookmarks need their title repaired.
package filter

import (
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/pinboard-titles/pkg/pagination"
	"github.com/Sternrassler/pinboard-titles/pkg/pinboard"
)

var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "filter_decisions_total",
	Help: "Filter decisions by result",
}, []string{"result"})

// PlaceholderTitle is what Pinboard stores when a bookmark was saved
// without a title.
const PlaceholderTitle = "[no title]"

// Reason explains a filter decision.
type Reason string

const (
	ReasonCandidate    Reason = "candidate"
	ReasonHasTitle     Reason = "has_title"
	ReasonExcluded     Reason = "excluded_suffix"
	ReasonLimitReached Reason = "limit_reached"
)

// Config holds filter configuration.
type Config struct {
	// Limit caps the number of records examined across the run.
	// 0 means unbounded.
	Limit int

	// ExcludedSuffixes lists URL suffixes whose resources carry no HTML
	// title. Matching is case-insensitive.
	ExcludedSuffixes []string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Limit: 0,
		ExcludedSuffixes: []string{
			".pdf", ".png", ".jpg", ".jpeg", ".gif", ".svg",
			".mp3", ".mp4", ".zip", ".gz",
		},
	}
}

// Filter classifies records as needing title repair or not.
type Filter struct {
	limit    int
	suffixes []string
}

// New creates a new filter.
func New(cfg Config) *Filter {
	suffixes := make([]string, 0, len(cfg.ExcludedSuffixes))
	for _, suffix := range cfg.ExcludedSuffixes {
		if suffix = strings.ToLower(strings.TrimSpace(suffix)); suffix != "" {
			suffixes = append(suffixes, suffix)
		}
	}

	limit := cfg.Limit
	if limit < 0 {
		limit = 0
	}

	return &Filter{limit: limit, suffixes: suffixes}
}

// ShouldProcess reports whether post needs its title repaired.
func (f *Filter) ShouldProcess(post pinboard.Post, state *pagination.RunState) bool {
	return f.Classify(post, state) == ReasonCandidate
}

// Classify counts post against the run and returns why it is or is not a
// candidate. Once the limit is reached the state is stopped, so pagination
// ends without fetching another page.
func (f *Filter) Classify(post pinboard.Post, state *pagination.RunState) Reason {
	state.TotalProcessed++

	if f.limit > 0 {
		if state.TotalProcessed > f.limit {
			state.Stop()
			decisionsTotal.WithLabelValues(string(ReasonLimitReached)).Inc()
			return ReasonLimitReached
		}
		if state.TotalProcessed == f.limit {
			state.Stop()
		}
	}

	reason := f.classify(post)
	decisionsTotal.WithLabelValues(string(reason)).Inc()
	return reason
}

func (f *Filter) classify(post pinboard.Post) Reason {
	if !NeedsTitle(post) {
		return ReasonHasTitle
	}
	if f.Excluded(post.Href) {
		return ReasonExcluded
	}
	return ReasonCandidate
}

// NeedsTitle reports whether the post's title is its URL or the
// placeholder.
func NeedsTitle(post pinboard.Post) bool {
	return post.Description == post.Href || post.Description == PlaceholderTitle
}

// Excluded reports whether href points at a resource with an excluded
// suffix. Both the raw href and its path (without query or fragment) are
// checked.
func (f *Filter) Excluded(href string) bool {
	candidates := []string{strings.ToLower(href)}
	if u, err := url.Parse(href); err == nil && u.Path != "" {
		candidates = append(candidates, strings.ToLower(u.Path))
	}

	for _, candidate := range candidates {
		for _, suffix := range f.suffixes {
			if strings.HasSuffix(candidate, suffix) {
				return true
			}
		}
	}
	return false
}
