package title

import (
	"errors"
	"fmt"
)

// ErrNoTitle is returned when the page was fetched but has no usable title.
var ErrNoTitle = errors.New("no title found")

// Reason classifies a failed title fetch.
type Reason string

const (
	ReasonTransport Reason = "transport"
	ReasonTimeout   Reason = "timeout"
	ReasonStatus    Reason = "status"
	ReasonNotHTML   Reason = "not_html"
	ReasonRead      Reason = "read"
)

// FetchError is a failed fetch of a title source.
type FetchError struct {
	URL         string
	Reason      Reason
	StatusCode  int
	ContentType string
	Err         error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch e.Reason {
	case ReasonStatus:
		return fmt.Sprintf("fetch %s: the server responded %d", e.URL, e.StatusCode)
	case ReasonNotHTML:
		return fmt.Sprintf("fetch %s: not an HTML document (%s)", e.URL, e.ContentType)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}
