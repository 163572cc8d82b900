package policy

import (
	"time"

	"github.com/openfroyo/channels/pkg/channels"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for errors that should block operations.
	SeverityError Severity = "error"

	// SeverityCritical is for critical violations that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Blocking returns true if violations of this severity deny the operation.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Operations evaluated by the engine.
const (
	OperationPlan      = "plan"
	OperationComponent = "component"
)

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Builtin marks policies shipped with the engine.
	Builtin bool `json:"builtin,omitempty"`

	// Source is the file the policy was loaded from.
	Source string `json:"source,omitempty"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Channel is the channel the violation refers to.
	Channel string `json:"channel,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result represents the result of policy evaluation.
type Result struct {
	// Allowed indicates if the operation is allowed.
	Allowed bool `json:"allowed"`

	// Violations lists the blocking violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists violations that don't block operations.
	Warnings []Violation `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// StepInput is a plan step as seen by Rego policies.
type StepInput struct {
	Channel string `json:"channel"`
	Action  string `json:"action"`
}

// Input is the document bound to `input` during evaluation.
type Input struct {
	// Operation is "plan" or "component".
	Operation string `json:"operation"`

	// Channel is the requested channel.
	Channel string `json:"channel"`

	// Action is "enable" or "disable".
	Action string `json:"action"`

	// Steps is the solution plan, for plan operations.
	Steps []StepInput `json:"steps,omitempty"`

	// Component is the repository name, for component operations.
	Component string `json:"component,omitempty"`

	// Proposed reports whether the component is opt-in.
	Proposed bool `json:"proposed,omitempty"`

	// Enabled reports whether the component is currently enabled.
	Enabled bool `json:"enabled,omitempty"`
}

// PlanInput converts a plan request into policy input.
func PlanInput(req channels.PlanRequest) *Input {
	steps := make([]StepInput, 0, len(req.Steps))
	for _, s := range req.Steps {
		steps = append(steps, StepInput{Channel: s.Channel, Action: string(s.Action)})
	}
	return &Input{
		Operation: OperationPlan,
		Channel:   req.Channel,
		Action:    string(req.Action),
		Steps:     steps,
	}
}

// ComponentInput converts a component request into policy input.
func ComponentInput(req channels.ComponentRequest) *Input {
	return &Input{
		Operation: OperationComponent,
		Channel:   req.Channel,
		Action:    string(req.Action),
		Component: req.Component,
		Proposed:  req.Proposed,
		Enabled:   req.Enabled,
	}
}
