// Package testutil provides testing utilities for the Pinboard title fixer.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/pinboard-titles/pkg/pinboard"
)

// MockPinboard is a configurable mock Pinboard API server for testing.
// /v1/posts/all serves the configured posts in pages; /v1/posts/add records
// every update it receives.
type MockPinboard struct {
	server *httptest.Server
	mu     sync.Mutex

	token string
	posts []pinboard.Post

	// listing request number (1-based) -> status code to fail with
	listFailures map[int]int
	addStatus    int
	delay        time.Duration

	listOffsets []int
	addQueries  []url.Values
	inFlight    int
	maxInFlight int
}

// NewMockPinboard creates a mock server that accepts the given token and
// serves posts in order.
func NewMockPinboard(token string, posts []pinboard.Post) *MockPinboard {
	mock := &MockPinboard{
		token:        token,
		posts:        posts,
		listFailures: make(map[int]int),
		addStatus:    http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/posts/all", mock.handleAll)
	mux.HandleFunc("/v1/posts/add", mock.handleAdd)
	mock.server = httptest.NewServer(mock.track(mux))

	return mock
}

// URL returns the mock server URL.
func (m *MockPinboard) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPinboard) Close() {
	m.server.Close()
}

// FailListRequest makes the n-th listing request (1-based) respond with status.
func (m *MockPinboard) FailListRequest(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listFailures[n] = status
}

// SetAddStatus sets the status returned by /v1/posts/add.
func (m *MockPinboard) SetAddStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addStatus = status
}

// SetDelay delays every response.
func (m *MockPinboard) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// ListOffsets returns the start offsets of all listing requests in arrival order.
func (m *MockPinboard) ListOffsets() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.listOffsets...)
}

// ListRequestCount returns the number of listing requests received.
func (m *MockPinboard) ListRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listOffsets)
}

// AddQueries returns the query of every update request received.
func (m *MockPinboard) AddQueries() []url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]url.Values(nil), m.addQueries...)
}

// MaxInFlight returns the highest number of concurrently served requests.
func (m *MockPinboard) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// track counts concurrent requests and enforces the auth token.
func (m *MockPinboard) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.inFlight++
		if m.inFlight > m.maxInFlight {
			m.maxInFlight = m.inFlight
		}
		delay := m.delay
		m.mu.Unlock()

		defer func() {
			m.mu.Lock()
			m.inFlight--
			m.mu.Unlock()
		}()

		if delay > 0 {
			time.Sleep(delay)
		}

		if r.URL.Query().Get("auth_token") != m.token {
			http.Error(w, "401 Forbidden", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *MockPinboard) handleAll(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start, err := strconv.Atoi(query.Get("start"))
	if err != nil {
		start = 0
	}
	results, err := strconv.Atoi(query.Get("results"))
	if err != nil || results <= 0 {
		results = len(m.posts)
	}

	m.mu.Lock()
	m.listOffsets = append(m.listOffsets, start)
	status, fail := m.listFailures[len(m.listOffsets)]
	m.mu.Unlock()

	if fail {
		http.Error(w, fmt.Sprintf("%d error", status), status)
		return
	}

	page := []pinboard.Post{}
	if start < len(m.posts) {
		end := min(start+results, len(m.posts))
		page = m.posts[start:end]
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(page)
}

func (m *MockPinboard) handleAdd(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.addQueries = append(m.addQueries, r.URL.Query())
	status := m.addStatus
	m.mu.Unlock()

	w.WriteHeader(status)
	if status == http.StatusOK {
		w.Write([]byte(`{"result_code":"done"}`))
	}
}

// NewPosts creates n posts that already carry genuine titles.
func NewPosts(n int) []pinboard.Post {
	posts := make([]pinboard.Post, n)
	for i := range posts {
		posts[i] = pinboard.Post{
			Href:        fmt.Sprintf("https://example.com/articles/%d", i),
			Description: fmt.Sprintf("Article %d", i),
			Tags:        pinboard.Tags{"go", "reading"},
			Time:        time.Date(2020, 1, 1, 0, 0, i, 0, time.UTC).Format(time.RFC3339),
			Shared:      true,
		}
	}
	return posts
}

// Untitled turns post into one whose title is its URL.
func Untitled(post pinboard.Post, href string) pinboard.Post {
	post.Href = href
	post.Description = href
	return post
}
