package errors

import "errors"

// Response is the JSON body written for failed API requests
type Response struct {
	// Error is "<domain>.<code>"
	Error string `json:"error"`

	Message string `json:"message"`

	Details map[string]interface{} `json:"details,omitempty"`
}

// ToResponse converts an Error to an HTTP response body
func (e *Error) ToResponse() Response {
	return Response{
		Error:   string(e.Domain) + "." + string(e.Code),
		Message: e.Message,
	}
}

// ToResponseWithDetails converts an Error to an HTTP response body with details
func (e *Error) ToResponseWithDetails(details map[string]interface{}) Response {
	r := e.ToResponse()
	r.Details = details
	return r
}

// NewResponse builds a response body from any error. Errors without an
// *Error in their chain are reported as a generic internal error so driver
// messages never leak to clients.
func NewResponse(err error) Response {
	var e *Error
	if errors.As(err, &e) {
		return e.ToResponse()
	}

	return Response{
		Error:   string(DomainInternal) + "." + string(CodeInternal),
		Message: "Internal server error",
	}
}

// NewValidationResponse builds a validation failure for a single field
func NewValidationResponse(field, message string) Response {
	return ErrValidationFailed.ToResponseWithDetails(map[string]interface{}{
		"field":  field,
		"reason": message,
	})
}
