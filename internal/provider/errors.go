package provider

import "fmt"

// APIError is a non-2xx response from the activity-feed API, including the
// structured {code, message} body when the provider supplied one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" || e.Message != "" {
		return fmt.Sprintf("provider: %s - %s - %d", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("provider: status %d", e.StatusCode)
}
