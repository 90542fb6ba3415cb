package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wesm/catalogview/internal/catalog"
)

// APIError is a non-2xx response from the catalog API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Is lets a 404 match catalog.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == catalog.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// errorBody covers both error shapes the API uses.
type errorBody struct {
	Errors []struct {
		Status string `json:"status"`
		Detail string `json:"detail"`
	} `json:"errors"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleErrorResponse reads an error response and returns an *APIError.
func handleErrorResponse(resp *http.Response, requestID string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case len(eb.Errors) > 0 && eb.Errors[0].Detail != "":
			apiErr.Message = eb.Errors[0].Detail
		case eb.Message != "":
			apiErr.Message = eb.Message
		case eb.Error != "":
			apiErr.Message = eb.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
