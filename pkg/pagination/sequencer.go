package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pagination_pages_total",
	Help: "Listing requests issued by the sequencer by outcome",
}, []string{"outcome"})

// Config holds sequencer configuration.
type Config struct {
	// PageSize is the number of records requested per page.
	PageSize int

	// Delay is inserted after a page was received and before the next
	// request is issued. 0 disables throttling.
	Delay time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: 100,
		Delay:    0,
	}
}

// PageFetcher fetches a single page of records. Implementations must issue
// exactly one request per call and must not retry.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, offset, pageSize int) ([]T, error)
}

// Outcome tags the result of one sequencer step.
type Outcome int

const (
	// Continue carries a non-empty batch; another page may follow.
	Continue Outcome = iota + 1

	// Exhausted means there is nothing more to fetch.
	Exhausted
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Step is the result of one sequencer step.
type Step[T any] struct {
	Outcome Outcome
	Batch   []T
}

// Sequencer turns many physical page requests into one ordered record
// sequence.
type Sequencer[T any] struct {
	fetcher PageFetcher[T]
	config  Config
	logger  zerolog.Logger
}

// NewSequencer creates a new sequencer.
func NewSequencer[T any](fetcher PageFetcher[T], config Config) *Sequencer[T] {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.Delay < 0 {
		config.Delay = 0
	}

	return &Sequencer[T]{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "sequencer").Logger(),
	}
}

// Next issues the next listing request, or none at all if the previous page
// was empty or the state was stopped. On error the state is left untouched.
func (s *Sequencer[T]) Next(ctx context.Context, state *RunState) (Step[T], error) {
	if state.Exhausted() || state.Stopped() {
		return Step[T]{Outcome: Exhausted}, nil
	}

	if state.RequestCount > 0 && s.config.Delay > 0 {
		select {
		case <-ctx.Done():
			return Step[T]{}, ctx.Err()
		case <-time.After(s.config.Delay):
		}
	}

	offset := state.Offset(s.config.PageSize)
	s.logger.Info().
		Int("offset", offset).
		Int("page_size", s.config.PageSize).
		Msg("Fetching page")

	batch, err := s.fetcher.FetchPage(ctx, offset, s.config.PageSize)
	if err != nil {
		pagesTotal.WithLabelValues("error").Inc()
		return Step[T]{}, fmt.Errorf("fetch page at offset %d: %w", offset, err)
	}

	state.RequestCount++
	state.LastBatchSize = len(batch)

	if len(batch) == 0 {
		pagesTotal.WithLabelValues(Exhausted.String()).Inc()
		s.logger.Info().
			Int("requests", state.RequestCount).
			Msg("Listing exhausted")
		return Step[T]{Outcome: Exhausted}, nil
	}

	pagesTotal.WithLabelValues(Continue.String()).Inc()
	return Step[T]{Outcome: Continue, Batch: batch}, nil
}

// Run emits every record in order to fn, one at a time. The next record is
// emitted only after fn returns, and the next page is requested only after
// the whole current batch was consumed. An error from the fetcher or from
// fn ends the run and is returned.
func (s *Sequencer[T]) Run(ctx context.Context, state *RunState, fn func(context.Context, T) error) error {
	for {
		step, err := s.Next(ctx, state)
		if err != nil {
			return err
		}
		if step.Outcome == Exhausted {
			if state.Stopped() {
				s.logger.Info().
					Int("requests", state.RequestCount).
					Int("processed", state.TotalProcessed).
					Msg("Pagination stopped early")
			}
			return nil
		}

		for _, item := range step.Batch {
			if state.Stopped() {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, item); err != nil {
				return err
			}
		}
	}
}
