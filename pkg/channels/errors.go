package channels

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an error for retry and reporting logic.
type ErrorClass string

const (
	// ErrorClassTransient indicates a failure of the underlying entry store that
	// may succeed when the operation is issued again.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassConflict indicates that the current channel state cannot satisfy
	// the request.
	ErrorClassConflict ErrorClass = "conflict"

	// ErrorClassPermanent indicates a caller error, such as an unknown channel name.
	ErrorClassPermanent ErrorClass = "permanent"
)

// Error codes.
const (
	ErrCodeUnknownChannel        = "UNKNOWN_CHANNEL"
	ErrCodeNoSolution            = "NO_SOLUTION"
	ErrCodeNotProposed           = "NOT_PROPOSED"
	ErrCodeEntityOperationFailed = "ENTITY_OPERATION_FAILED"
	ErrCodePolicyDenied          = "POLICY_DENIED"
	ErrCodeValidation            = "VALIDATION_ERROR"
)

// Sentinel errors for use with errors.Is. Matching is done on the error code.
var (
	ErrUnknownChannel        = &Error{Class: ErrorClassPermanent, Code: ErrCodeUnknownChannel}
	ErrNoSolution            = &Error{Class: ErrorClassConflict, Code: ErrCodeNoSolution}
	ErrNotProposed           = &Error{Class: ErrorClassPermanent, Code: ErrCodeNotProposed}
	ErrEntityOperationFailed = &Error{Class: ErrorClassTransient, Code: ErrCodeEntityOperationFailed}
	ErrPolicyDenied          = &Error{Class: ErrorClassPermanent, Code: ErrCodePolicyDenied}
)

// Error is a classified channel error.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Code identifies the error kind for programmatic handling.
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Channel is the channel the error refers to, if any.
	Channel string `json:"channel,omitempty"`

	// Component is the channel component the error refers to, if any.
	Component string `json:"component,omitempty"`

	// Step is the plan step that failed, for EntityOperationFailed errors.
	Step *Step `json:"step,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Channel != "" {
		msg += fmt.Sprintf(" (channel=%s", e.Channel)
		if e.Component != "" {
			msg += fmt.Sprintf(", component=%s", e.Component)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithChannel adds channel context to an error.
func (e *Error) WithChannel(name string) *Error {
	e.Channel = name
	return e
}

// WithComponent adds component context to an error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithStep records the plan step that failed.
func (e *Error) WithStep(step Step) *Error {
	e.Step = &step
	return e
}

// NewUnknownChannelError reports a name that is not present in the registry.
func NewUnknownChannelError(name string) *Error {
	return &Error{
		Class:   ErrorClassPermanent,
		Code:    ErrCodeUnknownChannel,
		Message: fmt.Sprintf("unknown channel %q", name),
		Channel: name,
	}
}

// NewNoSolutionError reports an unsatisfiable request.
func NewNoSolutionError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassConflict,
		Code:    ErrCodeNoSolution,
		Message: message,
		Err:     err,
	}
}

// NewNotProposedError reports a component-level disable of a non-proposed component.
func NewNotProposedError(channel, component string) *Error {
	return &Error{
		Class:     ErrorClassPermanent,
		Code:      ErrCodeNotProposed,
		Message:   "only proposed components can be disabled individually",
		Channel:   channel,
		Component: component,
	}
}

// NewEntityOperationError reports a failure of the entry store while applying a step.
func NewEntityOperationError(step Step, err error) *Error {
	return &Error{
		Class:   ErrorClassTransient,
		Code:    ErrCodeEntityOperationFailed,
		Message: fmt.Sprintf("failed to %s channel", step.Action),
		Channel: step.Channel,
		Step:    &step,
		Err:     err,
	}
}

// NewPolicyDeniedError reports a request rejected by a policy gate.
func NewPolicyDeniedError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassPermanent,
		Code:    ErrCodePolicyDenied,
		Message: message,
		Err:     err,
	}
}

// NewValidationError reports invalid input, such as an unknown action.
func NewValidationError(message string) *Error {
	return &Error{
		Class:   ErrorClassPermanent,
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// CodeOf returns the error code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ClassOf returns the class of the first *Error in err's chain, or "" if none.
func ClassOf(err error) ErrorClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// IsUnknownChannel returns true if err is an UnknownChannel error.
func IsUnknownChannel(err error) bool {
	return errors.Is(err, ErrUnknownChannel)
}

// IsNoSolution returns true if err is a NoSolution error.
func IsNoSolution(err error) bool {
	return errors.Is(err, ErrNoSolution)
}

// IsNotProposed returns true if err is a NotProposed error.
func IsNotProposed(err error) bool {
	return errors.Is(err, ErrNotProposed)
}

// IsEntityOperationFailed returns true if err is an EntityOperationFailed error.
func IsEntityOperationFailed(err error) bool {
	return errors.Is(err, ErrEntityOperationFailed)
}

// IsPolicyDenied returns true if err is a PolicyDenied error.
func IsPolicyDenied(err error) bool {
	return errors.Is(err, ErrPolicyDenied)
}
