// Package web defines common components for a web application.
package web

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Response holds the common response type for all APIs.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Error wraps a given err into json frinedly struct.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// GetErrorMsg returns a readable suffix for the failed validation tag.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " is required"
	case "min":
		return " must be at least " + fe.Param()
	case "max":
		return " must be at most " + fe.Param()
	case "amount":
		return " must be a positive amount with at most 8 decimals"
	case "signedamount":
		return " must be a non-zero amount with at most 8 decimals"
	case "entrytype":
		return " is not a supported entry type"
	case "status":
		return " is not a supported account status"
	}

	return " is invalid"
}

// ValidationMsg builds a message out of the first validation error, if any.
func ValidationMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return ve[0].Field() + GetErrorMsg(ve[0])
	}

	return err.Error()
}

// IdempotencyKeyHeader carries the client supplied idempotency key of a mutation.
const IdempotencyKeyHeader = "Idempotency-Key"
