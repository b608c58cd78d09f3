package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/subaccounts/notes-server/internal/errors"
)

// APIError is the JSON body of every failed request:
//
//	{"code": "NOT_FOUND", "message": "note n1 not found"}
type APIError struct { //nolint:revive // exported name is part of the OpenAPI schema
	status  int
	Code    domainerrors.Code `json:"code" doc:"Machine-readable error code"`
	Message string            `json:"message"`
	Details any               `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int { return e.status }

// ContentType implements huma.ContentTypeFilter.
func (e *APIError) ContentType(string) string { return "application/json" }

// RegisterErrorHandler makes huma render coded errors as APIError. It must
// run before routes are registered.
func RegisterErrorHandler() {
	huma.NewError = newAPIError
}

func newAPIError(status int, message string, errs ...error) huma.StatusError {
	for _, err := range errs {
		var coded *domainerrors.Error
		if errors.As(err, &coded) {
			return &APIError{
				status:  coded.HTTPStatus(),
				Code:    coded.Code,
				Message: coded.Message,
				Details: coded.Details,
			}
		}
	}

	// Request schema violations found by huma itself.
	apiErr := &APIError{status: status, Code: domainerrors.CodeForStatus(status), Message: message}
	var details []string
	for _, err := range errs {
		if err != nil {
			details = append(details, err.Error())
		}
	}
	if len(details) > 0 {
		apiErr.Details = details
	}
	return apiErr
}
