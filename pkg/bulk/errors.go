package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/ncei-cdo-client/pkg/client"
	"github.com/Sternrassler/ncei-cdo-client/pkg/query"
)

// ErrorKind names the category of a failure in the manifest.
type ErrorKind string

const (
	KindUnknownParameter  ErrorKind = "unknown_parameter"
	KindInvalidParameter  ErrorKind = "invalid_parameter"
	KindMissingCredential ErrorKind = "missing_credential"
	KindAuthentication    ErrorKind = "authentication"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindTransport         ErrorKind = "transport"
	KindCanceled          ErrorKind = "canceled"
	KindInternal          ErrorKind = "internal"
)

// KindOf maps err to its ErrorKind. It returns "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var (
		unknownErr   *query.UnknownParameterError
		invalidErr   *query.InvalidParameterError
		authErr      *client.AuthenticationError
		malformedErr *client.MalformedResponseError
		transportErr *client.TransportError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &unknownErr):
		return KindUnknownParameter
	case errors.As(err, &invalidErr):
		return KindInvalidParameter
	case errors.Is(err, client.ErrMissingCredential):
		return KindMissingCredential
	case errors.As(err, &authErr):
		return KindAuthentication
	case errors.As(err, &malformedErr):
		return KindMalformedResponse
	case errors.As(err, &transportErr):
		return KindTransport
	default:
		return KindInternal
	}
}

// isFatal reports whether err must abort the whole call.
func isFatal(err error) bool {
	var authErr *client.AuthenticationError
	return errors.As(err, &authErr) || errors.Is(err, client.ErrMissingCredential)
}

// Phase is the step of a set at which a failure happened.
type Phase string

const (
	PhaseCount Phase = "count"
	PhasePage  Phase = "page"
)

// Failure is one entry of the failure manifest.
type Failure struct {
	Set   query.AtomicSet
	Phase Phase
	Kind  ErrorKind

	// Offset is the logical (0-based) offset of the failing page. It is
	// only meaningful for PhasePage.
	Offset int

	// Skipped lists the logical offsets that were never requested because
	// of this failure.
	Skipped []int

	Err error
}

// String renders the failure for logs and error messages.
func (f Failure) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", f.Set, f.Phase, f.Kind)
	if f.Phase == PhasePage {
		fmt.Fprintf(&b, " at offset %d", f.Offset)
	}
	if len(f.Skipped) > 0 {
		fmt.Fprintf(&b, " (skipped %v)", f.Skipped)
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

// TotalFailureError is returned when every atomic set failed and no record
// was collected.
type TotalFailureError struct {
	Failures []Failure
}

// Error implements the error interface.
func (e *TotalFailureError) Error() string {
	if len(e.Failures) == 0 {
		return "bulk query failed"
	}
	return fmt.Sprintf("bulk query failed for all %d parameter sets; first: %s",
		len(e.Failures), e.Failures[0])
}

// Unwrap exposes the individual failure causes to errors.Is/As.
func (e *TotalFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}
