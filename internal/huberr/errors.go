// Package huberr defines the error-kind vocabulary surfaced to MCP and REST
// clients, mirroring the toolbridge tool-error-to-JSON-RPC mapping.
package huberr

// Kind is a stable, automation-facing error classification. It is always
// paired with a free-form, human-facing message.
type Kind string

const (
	InvalidArgument    Kind = "InvalidArgument"
	Unauthorized       Kind = "Unauthorized"
	UnknownTenant      Kind = "UnknownTenant"
	Forbidden          Kind = "Forbidden"
	NotFound           Kind = "NotFound"
	Conflict           Kind = "Conflict"
	NoRecipient        Kind = "NoRecipient"
	RateLimited        Kind = "RateLimited"
	StorageError       Kind = "StorageError"
	DegradedCapability Kind = "DegradedCapability"
)

// httpStatus maps a Kind to the REST surface's status code.
func (k Kind) httpStatus() int {
	switch k {
	case InvalidArgument:
		return 400
	case Unauthorized:
		return 401
	case UnknownTenant:
		return 401
	case Forbidden:
		return 403
	case NotFound:
		return 404
	case Conflict:
		return 409
	case NoRecipient:
		return 422
	case RateLimited:
		return 429
	case DegradedCapability:
		return 200
	case StorageError:
		return 500
	default:
		return 500
	}
}

// HubError is the error type every component boundary returns; handlers
// never let a bare error escape to the dispatcher.
type HubError struct {
	Kind    Kind
	Message string
	Data    map[string]any
}

func (e *HubError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// New constructs a HubError of the given kind.
func New(kind Kind, message string, data map[string]any) *HubError {
	return &HubError{Kind: kind, Message: message, Data: data}
}

// Invalidf is a convenience constructor for schema-violation errors that
// name the offending field path, the shape the dispatcher needs to satisfy
// spec's "InvalidArgument ... with a field path" requirement.
func Invalidf(fieldPath, message string) *HubError {
	return &HubError{Kind: InvalidArgument, Message: message, Data: map[string]any{"field": fieldPath}}
}

// WithData returns a copy of e with extra merged into Data, e itself left
// unmodified. Used to attach request-scoped context (a correlation id) to
// an error built deeper in the call stack, without that layer needing to
// know about correlation ids at all.
func (e *HubError) WithData(extra map[string]any) *HubError {
	merged := make(map[string]any, len(e.Data)+len(extra))
	for k, v := range e.Data {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return &HubError{Kind: e.Kind, Message: e.Message, Data: merged}
}

// HTTPStatus returns the status code the REST surface should answer with.
func (e *HubError) HTTPStatus() int {
	return e.Kind.httpStatus()
}

// As reports whether err is a *HubError, unwrapping like errors.As but
// without requiring callers to import errors for this one common case.
func As(err error) (*HubError, bool) {
	he, ok := err.(*HubError)
	return he, ok
}
