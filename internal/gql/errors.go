package gql

import (
	"errors"
	"net/http"
	"time"

	"expensetracker/internal/core"
)

// Error codes reported in extensions.code.
const (
	CodeBadRequest     = "BAD_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeInternal       = "INTERNAL_SERVER_ERROR"
	internalErrMessage = "Internal server error"
)

// Error is the client-facing form of a resolver failure. graphql-go copies
// the result of Extensions into the response's errors[].extensions.
type Error struct {
	message    string
	code       string
	status     int
	timestamp  time.Time
	violations []core.FieldViolation
	trace      []string
	cause      error
}

func (e *Error) Error() string { return e.message }

func (e *Error) Unwrap() error { return e.cause }

// Code returns the extensions code.
func (e *Error) Code() string { return e.code }

func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{
		"code":       e.code,
		"statusCode": e.status,
		"timestamp":  e.timestamp.UTC().Format(time.RFC3339Nano),
	}
	if len(e.violations) > 0 {
		ext["validationErrors"] = e.violations
	}
	if len(e.trace) > 0 {
		ext["stacktrace"] = e.trace
	}
	return ext
}

// present classifies err. In production internal details are replaced by a
// generic message and no stacktrace is attached.
func present(err error, production bool, now time.Time) *Error {
	out := &Error{message: err.Error(), timestamp: now, cause: err}

	var (
		verr *core.ValidationError
		nf   *core.NotFoundError
		ia   *core.InvalidArgumentError
	)
	switch {
	case errors.As(err, &verr):
		out.code, out.status = CodeBadRequest, http.StatusBadRequest
		out.message = verr.Error()
		out.violations = verr.Violations
	case errors.As(err, &nf):
		out.code, out.status = CodeNotFound, http.StatusNotFound
		out.message = nf.Error()
	case errors.As(err, &ia):
		out.code, out.status = CodeBadRequest, http.StatusBadRequest
		out.message = ia.Error()
	default:
		out.code, out.status = CodeInternal, http.StatusInternalServerError
		if production {
			out.message = internalErrMessage
		}
	}

	if !production {
		out.trace = errorChain(err)
	}
	return out
}

// errorChain lists err and every error it wraps, outermost first.
func errorChain(err error) []string {
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	return chain
}

// requestError is the extensions block for errors raised by graphql-go
// itself (syntax and schema validation), which carry no extensions.
func requestError(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"code":       CodeBadRequest,
		"statusCode": http.StatusBadRequest,
		"timestamp":  now.UTC().Format(time.RFC3339Nano),
	}
}
