package handlers

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// APIError is the body of every failed response:
// {"success":false,"error":"...","errors":["..."]}.
type APIError struct {
	Success bool     `json:"success"`
	Message string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	status  int
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) GetStatus() int { return e.status }

func newAPIError(status int, msg string, details ...string) *APIError {
	return &APIError{Message: msg, Errors: details, status: status}
}

func init() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		// Schema and parse failures are plain bad requests to the form client.
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		details := make([]string, 0, len(errs))
		for _, err := range errs {
			var detail *huma.ErrorDetail
			if errors.As(err, &detail) && detail.Location != "" {
				details = append(details, detail.Location+": "+detail.Message)
				continue
			}
			if err != nil {
				details = append(details, err.Error())
			}
		}
		return newAPIError(status, msg, details...)
	}
}
