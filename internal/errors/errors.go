// Package errors defines the structured error kinds shared by the registry,
// the loader runner, the hook dispatcher and the compiler.
//
// Every failure raised by the build core is an *Error carrying a Kind. Callers
// branch on kinds with IsKind or errors.Is against a prototype created by one
// of the constructors; the wrapped Cause stays reachable through Unwrap.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes core failures.
type Kind string

const (
	KindModuleNotFound     Kind = "module_not_found"
	KindProtocolViolation  Kind = "protocol_violation"
	KindTransform          Kind = "transform"
	KindDisciplineMismatch Kind = "discipline_mismatch"
	KindConfiguration      Kind = "configuration"
	KindLateRegistration   Kind = "late_registration"
	KindHook               Kind = "hook"
	KindInvalidState       Kind = "invalid_state"
)

// NoIndex marks errors that are not tied to a stage position.
const NoIndex = -1

// Error is a structured error with context.
type Error struct {
	Kind    Kind
	Message string
	// Subject names what failed: a module id, a hook, a loader or a config field.
	Subject string
	// Listener is the hook listener or loader name responsible, when known.
	Listener string
	// Index is the transform stage position, or NoIndex.
	Index   int
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))

	if e.Subject != "" {
		parts = append(parts, e.Subject)
	}
	if e.Listener != "" {
		parts = append(parts, "listener:"+e.Listener)
	}
	if e.Index != NoIndex {
		parts = append(parts, fmt.Sprintf("stage:%d", e.Index))
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}

	return false
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

func newError(kind Kind, subject, message string) *Error {
	return &Error{
		Kind:    kind,
		Subject: subject,
		Message: message,
		Index:   NoIndex,
	}
}

// NewModuleNotFound reports a resolve of an identifier with no registered body.
func NewModuleNotFound(id string) *Error {
	return newError(KindModuleNotFound, id, "no module registered under this id")
}

// NewProtocolViolation reports misuse of a completion handle.
func NewProtocolViolation(subject, message string) *Error {
	return newError(KindProtocolViolation, subject, message)
}

// NewTransformError wraps the failure a transform stage reported.
func NewTransformError(index int, loader string, cause error) *Error {
	e := newError(KindTransform, "", "transform stage failed")
	e.Index = index
	e.Listener = loader
	e.Cause = cause

	return e
}

// NewDisciplineMismatch reports a listener kind the hook's discipline cannot dispatch.
func NewDisciplineMismatch(hook, listener, message string) *Error {
	e := newError(KindDisciplineMismatch, hook, message)
	e.Listener = listener

	return e
}

// NewConfigError reports a configuration or schema validation failure.
func NewConfigError(subject, message string) *Error {
	return newError(KindConfiguration, subject, message)
}

// NewLateRegistration reports a tap on a hook that has already fired.
func NewLateRegistration(hook, listener string) *Error {
	e := newError(KindLateRegistration, hook, "hook already fired")
	e.Listener = listener

	return e
}

// NewHookError wraps the listener error that aborted a hook call.
func NewHookError(hook, listener string, cause error) *Error {
	e := newError(KindHook, hook, "listener failed")
	e.Listener = listener
	e.Cause = cause

	return e
}

// NewInvalidState reports an operation attempted in a state that forbids it.
func NewInvalidState(subject, message string) *Error {
	return newError(KindInvalidState, subject, message)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}

// IsKind reports whether any *Error in err's tree has the given kind.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

// StageIndex returns the transform stage position recorded in err's chain.
func StageIndex(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Index != NoIndex {
		return e.Index, true
	}

	return NoIndex, false
}
