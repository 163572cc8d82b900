package channels

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// PlanGate authorizes a solution plan before it is applied.
type PlanGate interface {
	AuthorizePlan(ctx context.Context, req PlanRequest) error
}

// ComponentGate authorizes a component-level operation before it is applied.
type ComponentGate interface {
	AuthorizeComponent(ctx context.Context, req ComponentRequest) error
}

// PlanRequest describes a plan submitted to a PlanGate.
type PlanRequest struct {
	Channel string `json:"channel"`
	Action  Action `json:"action"`
	Steps   Plan   `json:"steps"`
}

// ComponentRequest describes a component operation submitted to a ComponentGate.
type ComponentRequest struct {
	Channel   string `json:"channel"`
	Component string `json:"component"`
	Action    Action `json:"action"`
	Proposed  bool   `json:"proposed"`
	Enabled   bool   `json:"enabled"`
}

// Report describes the outcome of a channel operation.
type Report struct {
	Channel string `json:"channel"`
	Action  Action `json:"action"`

	// Noop is true when the channel was already in the requested state.
	Noop bool `json:"noop"`

	// Plan is the computed solution.
	Plan Plan `json:"plan"`

	// Applied lists the steps that were applied successfully, in order.
	Applied []Step `json:"applied"`
}

// Complete returns true if every step of the plan was applied.
func (r *Report) Complete() bool {
	return r.Noop || len(r.Applied) == len(r.Plan)
}

// Executor applies solution plans to the registry.
//
// Executor does not lock the registry; callers running concurrent operations
// against the same registry must serialize them.
type Executor struct {
	registry      Registry
	resolver      *Resolver
	planGate      PlanGate
	componentGate ComponentGate
	stepHook      StepHook
	logger        zerolog.Logger
}

// StepHook is called after each plan step with the step's position and the
// error it failed with, if any.
type StepHook func(ctx context.Context, index int, step Step, err error)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPlanGate sets the gate consulted before a plan is applied.
func WithPlanGate(gate PlanGate) ExecutorOption {
	return func(e *Executor) {
		e.planGate = gate
	}
}

// WithComponentGate sets the gate consulted before a component operation.
func WithComponentGate(gate ComponentGate) ExecutorOption {
	return func(e *Executor) {
		e.componentGate = gate
	}
}

// WithStepHook sets the hook called after every applied or failed plan step.
func WithStepHook(hook StepHook) ExecutorOption {
	return func(e *Executor) {
		e.stepHook = hook
	}
}

// NewExecutor creates an executor bound to a registry and its resolver.
func NewExecutor(reg Registry, resolver *Resolver, logger zerolog.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: reg,
		resolver: resolver,
		logger:   logger.With().Str("component", "executor").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enable enables a channel along with every auxiliary step its solution requires.
func (e *Executor) Enable(ctx context.Context, channel string) (*Report, error) {
	return e.run(ctx, channel, ActionEnable)
}

// Disable disables a channel along with every auxiliary step its solution requires.
func (e *Executor) Disable(ctx context.Context, channel string) (*Report, error) {
	return e.run(ctx, channel, ActionDisable)
}

func (e *Executor) run(ctx context.Context, channel string, action Action) (*Report, error) {
	entity, err := e.registry.Lookup(channel)
	if err != nil {
		return nil, err
	}

	report := &Report{Channel: channel, Action: action}
	if entity.Enabled() == (action == ActionEnable) {
		e.logger.Debug().
			Str("channel", channel).
			Str("action", string(action)).
			Msg("Channel already in requested state")
		report.Noop = true
		return report, nil
	}

	plan, err := e.resolver.Solution(channel, action)
	if err != nil {
		return nil, err
	}
	report.Plan = plan

	if e.planGate != nil {
		if err := e.planGate.AuthorizePlan(ctx, PlanRequest{Channel: channel, Action: action, Steps: plan}); err != nil {
			return report, err
		}
	}

	err = e.Apply(ctx, plan, func(step Step) {
		report.Applied = append(report.Applied, step)
	})
	return report, err
}

// Apply applies the steps of a plan in order, calling onApplied after each
// successful step. It stops at the first failure; steps already applied are
// not rolled back.
func (e *Executor) Apply(ctx context.Context, plan Plan, onApplied func(Step)) error {
	for i, step := range plan {
		if err := ctx.Err(); err != nil {
			return NewEntityOperationError(step, fmt.Errorf("plan aborted before step %d: %w", i+1, err))
		}

		entity, err := e.registry.Lookup(step.Channel)
		if err != nil {
			return err
		}

		log := e.logger.With().
			Str("channel", step.Channel).
			Str("action", string(step.Action)).
			Int("step", i+1).
			Int("steps", len(plan)).
			Logger()

		switch step.Action {
		case ActionEnable:
			log.Info().Msg("Enabling channel")
			err = entity.Enable()
		case ActionDisable:
			log.Info().Msg("Disabling channel")
			err = entity.Disable()
		default:
			return NewValidationError(fmt.Sprintf("unknown action %q in plan", step.Action))
		}

		if e.stepHook != nil {
			e.stepHook(ctx, i, step, err)
		}
		if err != nil {
			log.Error().Err(err).Msg("Plan step failed")
			return NewEntityOperationError(step, err)
		}
		if onApplied != nil {
			onApplied(step)
		}
	}
	return nil
}

// EnableComponent enables a single component of a channel.
func (e *Executor) EnableComponent(ctx context.Context, channel, component string) error {
	return e.component(ctx, channel, component, ActionEnable)
}

// DisableComponent disables a single proposed component of a channel.
// Non-proposed components can only be changed with channel-level operations.
func (e *Executor) DisableComponent(ctx context.Context, channel, component string) error {
	return e.component(ctx, channel, component, ActionDisable)
}

func (e *Executor) component(ctx context.Context, channel, component string, action Action) error {
	entity, err := e.registry.Lookup(channel)
	if err != nil {
		return err
	}

	proposed, err := entity.IsProposed(component)
	if err != nil {
		return err
	}
	enabled, err := entity.IsComponentEnabled(component)
	if err != nil {
		return err
	}

	if action == ActionDisable && !proposed {
		return NewNotProposedError(channel, component)
	}

	if e.componentGate != nil {
		req := ComponentRequest{
			Channel:   channel,
			Component: component,
			Action:    action,
			Proposed:  proposed,
			Enabled:   enabled,
		}
		if err := e.componentGate.AuthorizeComponent(ctx, req); err != nil {
			return err
		}
	}

	if enabled == (action == ActionEnable) {
		return nil
	}

	step := Step{Channel: channel, Action: action}
	log := e.logger.With().
		Str("channel", channel).
		Str("component", component).
		Str("action", string(action)).
		Logger()

	if action == ActionEnable {
		log.Info().Msg("Enabling component")
		err = entity.EnableComponent(component)
	} else {
		log.Info().Msg("Disabling component")
		err = entity.DisableComponent(component)
	}
	if err != nil {
		log.Error().Err(err).Msg("Component operation failed")
		return NewEntityOperationError(step, err).WithComponent(component)
	}
	return nil
}
