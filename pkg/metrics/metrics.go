// Package metrics exposes the Prometheus metrics of a run.
// All metrics are defined in their respective packages (pinboard, pagination,
// filter, title, pipeline) and registered via promauto.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the Prometheus registry every package registers with.
var Registry = prometheus.DefaultRegisterer

// Server serves /metrics for the duration of a run.
type Server struct {
	srv  *http.Server
	addr string
}

// Serve starts the metrics endpoint on addr in the background.
func Serve(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &Server{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr: ln.Addr().String(),
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", s.addr).Msg("Metrics server failed")
		}
	}()

	log.Info().Str("addr", s.addr).Msg("Serving metrics")
	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Metrics Documentation
//
// API Metrics (pkg/pinboard):
//   - pinboard_api_requests_total{method, status} (Counter): requests by API method and HTTP status
//   - pinboard_api_request_duration_seconds{method} (Histogram): request duration by method
//   - pinboard_api_errors_total{class} (Counter): errors by class (client, server, network, decode)
//
// Pagination Metrics (pkg/pagination):
//   - pagination_pages_total{outcome} (Counter): listing requests by outcome (continue, exhausted, error)
//
// Filter Metrics (pkg/filter):
//   - filter_decisions_total{result} (Counter): candidate, has_title, excluded_suffix, limit_reached
//
// Title Metrics (pkg/title):
//   - title_fetches_total{outcome} (Counter): ok, no_title, transport, timeout, status, not_html, read
//   - title_fetch_duration_seconds (Histogram)
//
// Pipeline Metrics (pkg/pipeline):
//   - pipeline_items_total{outcome} (Counter): updated, fetch_failed, no_title, unchanged, update_failed, dry_run
//
// Example Prometheus Queries:
//
//   # Share of candidates repaired
//   sum(pipeline_items_total{outcome="updated"}) / sum(pipeline_items_total)
//
//   # Title fetch timeouts
//   title_fetches_total{outcome="timeout"}
