package llm

import "fmt"

// APIError is a non-200 response from a model provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("LLM API error (status %d): %s", e.StatusCode, e.Body)
}

// newAPIError keeps at most 200 bytes of the response body.
func newAPIError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}
	return &APIError{StatusCode: statusCode, Body: bodyStr}
}
