// Package apierror defines the proxy's error taxonomy and its
// one-to-one mapping onto HTTP status codes and the structured JSON
// error body handlers return.
package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Kind discriminates the error taxonomy. Kinds are not Go types —
// every Error carries one kind and a human message, so callers match
// on Kind rather than on errors.As against a family of sentinel types.
type Kind string

const (
	KindInvalidURL            Kind = "INVALID_URL"
	KindInvalidKeyFormat      Kind = "INVALID_KEY_FORMAT"
	KindInvalidKeyLength      Kind = "INVALID_KEY_LENGTH"
	KindInvalidByteRange      Kind = "INVALID_BYTE_RANGE"
	KindInvalidIV             Kind = "INVALID_IV"
	KindInvalidHeaderEncoding Kind = "INVALID_HEADER_ENCODING"
	KindInvalidSignature      Kind = "INVALID_SIGNATURE"

	KindSingleKeyRequired   Kind = "SINGLE_KEY_REQUIRED"
	KindMultipleKeysRequired Kind = "MULTIPLE_KEYS_REQUIRED"

	KindUnsupportedMethod      Kind = "UNSUPPORTED_METHOD"
	KindUnsupportedCombination Kind = "UNSUPPORTED_COMBINATION"
	KindUnknownSegmentFormat   Kind = "UNKNOWN_SEGMENT_FORMAT"

	KindFetchFailed  Kind = "FETCH_FAILED"
	KindFetchTimeout Kind = "FETCH_TIMEOUT"

	KindDecryptionFailed Kind = "DECRYPTION_FAILED"
	KindInternal         Kind = "INTERNAL_ERROR"
)

// statusByKind is the one-to-one mapping from error kind to HTTP
// status code.
var statusByKind = map[Kind]int{
	KindInvalidURL:            http.StatusBadRequest,
	KindInvalidKeyFormat:      http.StatusBadRequest,
	KindInvalidKeyLength:      http.StatusBadRequest,
	KindInvalidByteRange:      http.StatusBadRequest,
	KindInvalidIV:             http.StatusBadRequest,
	KindInvalidHeaderEncoding: http.StatusBadRequest,
	KindInvalidSignature:      http.StatusBadRequest,

	KindSingleKeyRequired:    http.StatusBadRequest,
	KindMultipleKeysRequired: http.StatusBadRequest,

	KindUnsupportedMethod:      http.StatusNotImplemented,
	KindUnsupportedCombination: http.StatusNotImplemented,
	KindUnknownSegmentFormat:   http.StatusBadRequest,

	KindFetchFailed:  http.StatusBadGateway,
	KindFetchTimeout: http.StatusGatewayTimeout,

	KindDecryptionFailed: http.StatusInternalServerError,
	KindInternal:         http.StatusInternalServerError,
}

// Error is a kind-tagged proxy error. It implements the error
// interface and carries enough context to render both a log line and
// the JSON response body.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// StatusCode returns the HTTP status this error maps to, defaulting to
// 500 for an unregistered kind (treated as internal).
func (e *Error) StatusCode() int {
	if code, ok := statusByKind[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind around an underlying
// cause, preserving it for errors.Unwrap/errors.Is chains.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Body is the wire shape of the JSON error response.
type Body struct {
	Error string `json:"error"`
	Code  Kind   `json:"code"`
}

// KindOf returns err's Kind, or KindInternal when err is not one of
// ours. Useful for labeling metrics without a type assertion at every
// call site.
func KindOf(err error) Kind {
	if apiErr, ok := err.(*Error); ok {
		return apiErr.Kind
	}
	return KindInternal
}

// Respond writes the structured error response for err, falling back
// to KindInternal when err is not one of ours.
func Respond(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*Error)
	if !ok {
		apiErr = Wrap(KindInternal, err, "internal error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode())
	_ = json.NewEncoder(w).Encode(Body{Error: apiErr.Message, Code: apiErr.Kind})
}
