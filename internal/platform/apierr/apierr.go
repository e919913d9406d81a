package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes used across the report engine. Handlers map them to HTTP
// statuses; batch operations carry them in tagged per-type results.
const (
	CodeConfig     = "config_error"
	CodeUpstream   = "upstream_error"
	CodeParse      = "parse_error"
	CodeNoData     = "no_data"
	CodeNotFound   = "not_found"
	CodeBadRequest = "bad_request"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Config(format string, args ...interface{}) *Error {
	return New(http.StatusInternalServerError, CodeConfig, fmt.Errorf(format, args...))
}

func Upstream(format string, args ...interface{}) *Error {
	return New(http.StatusBadGateway, CodeUpstream, fmt.Errorf(format, args...))
}

func Parse(format string, args ...interface{}) *Error {
	return New(http.StatusBadGateway, CodeParse, fmt.Errorf(format, args...))
}

func NoData(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, CodeNoData, fmt.Errorf(format, args...))
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func BadRequest(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, fmt.Errorf(format, args...))
}

// CodeOf extracts the error code, or "" for plain errors.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// StatusOf extracts the HTTP status, defaulting to 500 for plain errors.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
