package errors

import (
	stderrors "errors"
	"net/http"
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

func NotFound(what string) *ErrorWithStatusCode {
	return &ErrorWithStatusCode{Message: what + " not found", StatusCode: http.StatusNotFound}
}

func BadRequest(msg string) *ErrorWithStatusCode {
	return &ErrorWithStatusCode{Message: msg, StatusCode: http.StatusBadRequest}
}

func Conflict(msg string) *ErrorWithStatusCode {
	return &ErrorWithStatusCode{Message: msg, StatusCode: http.StatusConflict}
}

// StatusCode reports the HTTP status carried by err, 0 if none.
func StatusCode(err error) int {
	var e *ErrorWithStatusCode
	if stderrors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
