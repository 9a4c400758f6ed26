package pinboard

import (
	"errors"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "transport failure",
			apiError: &APIError{
				Op:    "posts/all",
				Class: ErrorClassNetwork,
				Err:   errors.New("connection refused"),
			},
			expected: "pinboard posts/all network error (status 0): connection refused",
		},
		{
			name: "status only",
			apiError: &APIError{
				Op:         "posts/add",
				StatusCode: 429,
				Class:      ErrorClassClient,
			},
			expected: "pinboard posts/add client error: the server responded 429",
		},
		{
			name: "decode failure",
			apiError: &APIError{
				Op:         "posts/all",
				StatusCode: 200,
				Class:      ErrorClassDecode,
				Err:        errors.New("unexpected EOF"),
			},
			expected: "pinboard posts/all decode error (status 200): unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("wrapped error")
	apiError := &APIError{Op: "posts/all", Class: ErrorClassNetwork, Err: cause}

	if apiError.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", apiError.Unwrap(), cause)
	}
	if !errors.Is(apiError, cause) {
		t.Error("errors.Is should work with wrapped error")
	}

	statusOnly := &APIError{Op: "posts/add", StatusCode: 500, Class: ErrorClassServer}
	if statusOnly.Unwrap() != nil {
		t.Errorf("Unwrap() = %v, want nil", statusOnly.Unwrap())
	}
}
