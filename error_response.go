package bdispatch

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// ErrorResponse is the structured error DTO written when a request fails.
type ErrorResponse struct {
	ResponseStatus ResponseStatus `json:"responseStatus" xml:"ResponseStatus"`
}

// ResponseStatus describes the failure.
type ResponseStatus struct {
	ErrorCode  string          `json:"errorCode" xml:"ErrorCode"`
	Message    string          `json:"message,omitempty" xml:"Message,omitempty"`
	StackTrace string          `json:"stackTrace,omitempty" xml:"StackTrace,omitempty"`
	Errors     []ResponseError `json:"errors,omitempty" xml:"Errors>ResponseError,omitempty"`
}

// ResponseError is a single sub-error, e.g. one failed validation rule.
type ResponseError struct {
	ErrorCode string `json:"errorCode" xml:"ErrorCode"`
	FieldName string `json:"fieldName,omitempty" xml:"FieldName,omitempty"`
	Message   string `json:"message,omitempty" xml:"Message,omitempty"`
}

// ErrorCoder can be implemented by errors to control the error code in the response.
type ErrorCoder interface {
	ErrorCode() string
}

// FieldError can be implemented by sub-errors that relate to a request field.
type FieldError interface {
	FieldName() string
}

// NewErrorResponse builds the error DTO for err. Stack traces and sub-errors are only included in debug mode.
func NewErrorResponse(err error, debug bool) *ErrorResponse {
	dto := &ErrorResponse{ResponseStatus: ResponseStatus{
		ErrorCode: errorCodeOf(err),
		Message:   messageOf(err),
	}}

	if !debug {
		return dto
	}

	dto.ResponseStatus.StackTrace = fmt.Sprintf("%+v", err)
	dto.ResponseStatus.Errors = lo.Map(subErrorsOf(err), func(sub error, _ int) ResponseError {
		re := ResponseError{ErrorCode: errorCodeOf(sub), Message: sub.Error()}
		if fe, ok := sub.(FieldError); ok {
			re.FieldName = fe.FieldName()
		}

		return re
	})

	return dto
}

func errorCodeOf(err error) string {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if coder, ok := e.(ErrorCoder); ok {
			return coder.ErrorCode()
		}
	}

	if code := CodeOf(err); code != CodeUnknown {
		return code.Name()
	}

	return CodeInternalServerError.Name()
}

// messageOf returns the error message, without the status prefix when err is a coded error itself.
func messageOf(err error) string {
	if e, ok := err.(*Error); ok && e.err != nil {
		return e.err.Error()
	}

	return err.Error()
}

// subErrorsOf returns the errors joined into the first multi-error of the chain.
func subErrorsOf(err error) []error {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if multi, ok := e.(interface{ Unwrap() []error }); ok {
			return lo.Filter(multi.Unwrap(), func(sub error, _ int) bool { return sub != nil })
		}
	}

	return nil
}
