// Package pipeline wires pagination, filtering, title resolution and
// updates into one sequential run over a user's bookmarks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/pinboard-titles/pkg/filter"
	"github.com/Sternrassler/pinboard-titles/pkg/pagination"
	"github.com/Sternrassler/pinboard-titles/pkg/pinboard"
	"github.com/Sternrassler/pinboard-titles/pkg/title"
)

var itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pipeline_items_total",
	Help: "Repair candidates by outcome",
}, []string{"outcome"})

// Item outcomes.
const (
	OutcomeUpdated       = "updated"
	OutcomeFetchFailed   = "fetch_failed"
	OutcomeNoTitle       = "no_title"
	OutcomeUnchanged     = "unchanged"
	OutcomeUpdateFailed  = "update_failed"
	OutcomeDryRunSkipped = "dry_run"
)

// TitleResolver resolves the title of a URL.
type TitleResolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// RecordUpdater writes a post back with a new title.
type RecordUpdater interface {
	SubmitUpdate(ctx context.Context, post pinboard.Post, title string) error
}

// Config holds runner configuration.
type Config struct {
	Pagination pagination.Config
	Filter     filter.Config

	// DryRun resolves titles but never submits updates.
	DryRun bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Pagination: pagination.DefaultConfig(),
		Filter:     filter.DefaultConfig(),
	}
}

// Summary counts what happened during a run.
type Summary struct {
	Requests       int `json:"requests"`
	Examined       int `json:"examined"`
	Candidates     int `json:"candidates"`
	Updated        int `json:"updated"`
	FetchFailures  int `json:"fetch_failures"`
	NoTitle        int `json:"no_title"`
	Unchanged      int `json:"unchanged"`
	UpdateFailures int `json:"update_failures"`
	DryRunSkipped  int `json:"dry_run_skipped"`
}

// FatalError aborts a run: the listing failed or an internal fault occurred.
type FatalError struct {
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("run aborted: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// Runner repairs bookmark titles one record at a time.
type Runner struct {
	lister   pagination.PageFetcher[pinboard.Post]
	resolver TitleResolver
	updater  RecordUpdater
	config   Config
	logger   zerolog.Logger
}

// New creates a new runner.
func New(lister pagination.PageFetcher[pinboard.Post], resolver TitleResolver, updater RecordUpdater, cfg Config) *Runner {
	return &Runner{
		lister:   lister,
		resolver: resolver,
		updater:  updater,
		config:   cfg,
		logger:   log.With().Str("component", "pipeline").Logger(),
	}
}

// Run pages through every bookmark and repairs the ones whose title is
// missing. Item level failures are logged and counted; only a listing
// failure or an internal fault ends the run with a *FatalError.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	state := pagination.NewRunState()
	seq := pagination.NewSequencer(r.lister, r.config.Pagination)
	flt := filter.New(r.config.Filter)

	var summary Summary
	err := seq.Run(ctx, state, func(ctx context.Context, post pinboard.Post) (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("processing %s: panic: %v", post.Href, p)
			}
		}()

		switch flt.Classify(post, state) {
		case filter.ReasonCandidate:
			summary.Candidates++
			r.process(ctx, post, &summary)
		case filter.ReasonExcluded:
			r.logger.Info().
				Str("url", post.Href).
				Str("reason", string(filter.ReasonExcluded)).
				Msg("Skipping post")
		}
		return nil
	})

	summary.Requests = state.RequestCount
	summary.Examined = state.TotalProcessed

	if err != nil {
		r.logger.Error().
			Err(err).
			Int("requests", summary.Requests).
			Int("examined", summary.Examined).
			Msg("Run aborted")
		return summary, &FatalError{Err: err}
	}

	r.logger.Info().
		Int("requests", summary.Requests).
		Int("examined", summary.Examined).
		Int("candidates", summary.Candidates).
		Int("updated", summary.Updated).
		Int("fetch_failures", summary.FetchFailures).
		Int("no_title", summary.NoTitle).
		Int("update_failures", summary.UpdateFailures).
		Dur("duration", time.Since(start)).
		Msg("Run complete")

	return summary, nil
}

// process resolves and submits one candidate. Failures never escape.
func (r *Runner) process(ctx context.Context, post pinboard.Post, summary *Summary) {
	r.logger.Info().Str("url", post.Href).Msg("Fetching title")

	resolved, err := r.resolver.Resolve(ctx, post.Href)
	switch {
	case errors.Is(err, title.ErrNoTitle):
		r.record(summary, OutcomeNoTitle)
		r.logger.Warn().Str("url", post.Href).Msg("No title found")
		return
	case err != nil:
		r.record(summary, OutcomeFetchFailed)
		r.logger.Error().Err(err).Str("url", post.Href).Msg("Error fetching title")
		return
	case resolved == post.Description:
		r.record(summary, OutcomeUnchanged)
		r.logger.Warn().Str("url", post.Href).Msg("Resolved title is unchanged")
		return
	}

	r.logger.Info().
		Str("url", post.Href).
		Str("title", resolved).
		Msg("Resolved title")

	if r.config.DryRun {
		r.record(summary, OutcomeDryRunSkipped)
		return
	}

	if err := r.updater.SubmitUpdate(ctx, post, resolved); err != nil {
		r.record(summary, OutcomeUpdateFailed)
		r.logger.Error().Err(err).Str("url", post.Href).Msg("Error updating post")
		return
	}

	r.record(summary, OutcomeUpdated)
	r.logger.Info().Str("url", post.Href).Msg("Updated post")
}

func (r *Runner) record(summary *Summary, outcome string) {
	itemsTotal.WithLabelValues(outcome).Inc()
	switch outcome {
	case OutcomeUpdated:
		summary.Updated++
	case OutcomeFetchFailed:
		summary.FetchFailures++
	case OutcomeNoTitle:
		summary.NoTitle++
	case OutcomeUnchanged:
		summary.Unchanged++
	case OutcomeUpdateFailed:
		summary.UpdateFailures++
	case OutcomeDryRunSkipped:
		summary.DryRunSkipped++
	}
}
