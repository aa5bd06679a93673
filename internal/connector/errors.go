package connector

import (
	"errors"
	"fmt"
)

// Code classifies connector failures.
type Code string

const (
	CodeConnectionFailed  Code = "CONNECTION_FAILED"
	CodeQueryFailed       Code = "QUERY_FAILED"
	CodeNotConnected      Code = "NOT_CONNECTED"
	CodeInvalidQuery      Code = "INVALID_QUERY"
	CodeInvalidConfig     Code = "INVALID_CONFIG"
	CodeParseFailed       Code = "PARSE_FAILED"
	CodeUnsupportedSource Code = "UNSUPPORTED_SOURCE"
	CodeMissingDependency Code = "MISSING_DEPENDENCY"
)

// Error is the error type every connector returns. Messages already name the source kind
// and are meant to be shown to users as is.
type Error struct {
	Code    Code
	Kind    SourceKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Kind != "" {
		msg = string(e.Kind) + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code, and on Kind when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Kind == "" || t.Kind == e.Kind)
}

// Sentinels for errors.Is.
var (
	ErrConnectionFailed  = &Error{Code: CodeConnectionFailed}
	ErrQueryFailed       = &Error{Code: CodeQueryFailed}
	ErrNotConnected      = &Error{Code: CodeNotConnected}
	ErrInvalidQuery      = &Error{Code: CodeInvalidQuery}
	ErrInvalidConfig     = &Error{Code: CodeInvalidConfig}
	ErrParseFailed       = &Error{Code: CodeParseFailed}
	ErrUnsupportedSource = &Error{Code: CodeUnsupportedSource}
	ErrMissingDependency = &Error{Code: CodeMissingDependency}
)

func ConnectionFailed(kind SourceKind, cause error) *Error {
	return &Error{Code: CodeConnectionFailed, Kind: kind, Message: "connection failed", Cause: cause}
}

func QueryFailed(kind SourceKind, cause error) *Error {
	return &Error{Code: CodeQueryFailed, Kind: kind, Message: "query failed", Cause: cause}
}

func NotConnected(kind SourceKind) *Error {
	return &Error{Code: CodeNotConnected, Kind: kind, Message: "not connected, call Connect first"}
}

func InvalidQuery(kind SourceKind, format string, args ...any) *Error {
	return &Error{Code: CodeInvalidQuery, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidConfig(kind SourceKind, format string, args ...any) *Error {
	return &Error{Code: CodeInvalidConfig, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ParseFailed(kind SourceKind, cause error) *Error {
	return &Error{Code: CodeParseFailed, Kind: kind, Message: "failed to parse input", Cause: cause}
}

func UnsupportedSource(kind SourceKind) *Error {
	return &Error{Code: CodeUnsupportedSource, Kind: kind, Message: "no connector registered for this source kind"}
}

// MissingDependency reports an optional driver package that is not compiled in.
func MissingDependency(kind SourceKind, pkg string) *Error {
	return &Error{
		Code:    CodeMissingDependency,
		Kind:    kind,
		Message: fmt.Sprintf("driver package %s is not installed; rebuild without the build tag that excludes it", pkg),
	}
}

// CodeOf returns the code of the outermost connector error in err's chain.
func CodeOf(err error) Code {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
