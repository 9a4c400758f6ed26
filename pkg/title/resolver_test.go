package title

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestResolve_Title(t *testing.T) {
	var accept string
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!doctype html><html><head><title>Example</title></head></html>`))
	})

	resolver := New(DefaultConfig())
	got, err := resolver.Resolve(context.Background(), server.URL+"/page.html")

	require.NoError(t, err)
	assert.Equal(t, "Example", got)
	assert.Equal(t, "text/html", accept)
}

func TestResolve_Charset(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<title>Caf\xe9 cr\xe8me</title>"))
	})

	got, err := New(DefaultConfig()).Resolve(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "Café crème", got)
}

func TestResolve_MissingContentTypeIsHTML(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.Write([]byte("<title>Untyped</title>"))
	})

	got, err := New(DefaultConfig()).Resolve(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "Untyped", got)
}

func TestResolve_NoTitle(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no element", body: "<html><body>hi</body></html>"},
		{name: "empty element", body: "<title></title>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte(tt.body))
			})

			got, err := New(DefaultConfig()).Resolve(context.Background(), server.URL)

			assert.ErrorIs(t, err, ErrNoTitle)
			assert.Empty(t, got)
		})
	}
}

func TestResolve_FetchErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantReason Reason
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("<title>Not Found</title>"))
			},
			wantReason: ReasonStatus,
		},
		{
			name: "pdf served under an html looking url",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/pdf")
				w.Write([]byte("%PDF-1.4"))
			},
			wantReason: ReasonNotHTML,
		},
		{
			name: "connection dropped",
			handler: func(w http.ResponseWriter, r *http.Request) {
				conn, _, err := w.(http.Hijacker).Hijack()
				if err == nil {
					conn.Close()
				}
			},
			wantReason: ReasonTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serve(t, tt.handler)

			got, err := New(DefaultConfig()).Resolve(context.Background(), server.URL)

			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.wantReason, fetchErr.Reason)
			assert.Equal(t, server.URL, fetchErr.URL)
			assert.Empty(t, got)
		})
	}
}

func TestResolve_Timeout(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	resolver := New(Config{Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := resolver.Resolve(context.Background(), server.URL)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, ReasonTimeout, fetchErr.Reason)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolve_UnsupportedScheme(t *testing.T) {
	_, err := New(DefaultConfig()).Resolve(context.Background(), "ftp://example.com/file")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, ReasonTransport, fetchErr.Reason)
}

func TestCompletion_SingleFire(t *testing.T) {
	done := newCompletion()

	var wg sync.WaitGroup
	delivered := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				err = errors.New("socket hang up")
			}
			delivered <- done.finish(result{title: "Example", err: err})
		}(i)
	}
	wg.Wait()
	close(delivered)

	count := 0
	for ok := range delivered {
		if ok {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one result must be delivered")
	assert.Len(t, done.ch, 1)
}

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		err  *FetchError
		want string
	}{
		{
			err:  &FetchError{URL: "https://a", Reason: ReasonStatus, StatusCode: 404},
			want: "fetch https://a: the server responded 404",
		},
		{
			err:  &FetchError{URL: "https://a", Reason: ReasonNotHTML, ContentType: "image/png"},
			want: "fetch https://a: not an HTML document (image/png)",
		},
		{
			err:  &FetchError{URL: "https://a", Reason: ReasonTimeout, Err: context.DeadlineExceeded},
			want: "fetch https://a: timeout: context deadline exceeded",
		},
		{
			err:  &FetchError{URL: "https://a", Reason: ReasonTransport},
			want: "fetch https://a: transport",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestIsHTML(t *testing.T) {
	tests := map[string]bool{
		"":                         true,
		"text/html":                true,
		"text/html; charset=utf-8": true,
		"TEXT/HTML":                true,
		"application/xhtml+xml":    true,
		"application/pdf":          false,
		"image/png":                false,
		"text/plain":               false,
		"text/":                    false,
	}

	for contentType, want := range tests {
		assert.Equal(t, want, isHTML(contentType), contentType)
	}
}
