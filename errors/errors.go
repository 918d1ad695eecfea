package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegistry Phase = "registry" // index allocation, channel lookup
	PhaseLink     Phase = "link"     // bridge installation and linking
	PhasePublish  Phase = "publish"  // publish entry point resolution and calls
	PhaseSnapshot Phase = "snapshot" // serializing realm state
	PhaseRestore  Phase = "restore"  // deserializing realm state
	PhaseGuest    Phase = "guest"    // wasm guest instantiation and calls
	PhaseConfig   Phase = "config"   // configuration loading
	PhaseRealm    Phase = "realm"    // realm lifecycle
)

// Kind categorizes the error
type Kind string

const (
	KindCapacity       Kind = "capacity"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindNotObject      Kind = "not_object"
	KindNotCallable    Kind = "not_callable"
	KindCallbackFailed Kind = "callback_failed"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindNotFound       Kind = "not_found"
	KindInstantiation  Kind = "instantiation"
	KindState          Kind = "state"
)

// Error is the structured error type used throughout diagchan
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Channel string
	Detail  string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Channel != "" {
		b.WriteString(" on channel ")
		b.WriteString(fmt.Sprintf("%q", e.Channel))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Channel sets the channel name
func (b *Builder) Channel(name string) *Builder {
	b.err.Channel = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Capacity creates the error raised when a realm runs out of channel indices.
func Capacity(name string, max int) *Error {
	return &Error{
		Phase:   PhaseRegistry,
		Kind:    KindCapacity,
		Channel: name,
		Detail:  fmt.Sprintf("channel limit of %d reached", max),
		Value:   max,
	}
}

// IsCapacity reports whether err (or any error it wraps) is a capacity error.
func IsCapacity(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindCapacity
	}
	return false
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NotObject creates the error for a bridge result that is not an object.
func NotObject(name string, value any) *Error {
	return &Error{
		Phase:   PhaseLink,
		Kind:    KindNotObject,
		Channel: name,
		Detail:  fmt.Sprintf("bridge returned %T", value),
		Value:   value,
	}
}

// NotCallable creates the error for a counterpart without a usable publish member.
func NotCallable(name, member string) *Error {
	return &Error{
		Phase:   PhasePublish,
		Kind:    KindNotCallable,
		Channel: name,
		Detail:  fmt.Sprintf("member %q is missing or not callable", member),
	}
}

// Recovered converts a recovered panic value into an error.
// A value that already is an error is kept as the cause.
func Recovered(phase Phase, name string, r any) *Error {
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("%v", r)
	}
	return &Error{
		Phase:   phase,
		Kind:    KindCallbackFailed,
		Channel: name,
		Detail:  "panic",
		Cause:   err,
	}
}

// Guest creates an error for failed wasm guest operations
func Guest(kind Kind, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseGuest,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// State creates an error for an operation invalid in the current lifecycle state
func State(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindState,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
