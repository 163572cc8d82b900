package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/channels/pkg/channels"
	"github.com/openfroyo/channels/pkg/stores"
	"github.com/openfroyo/channels/pkg/telemetry"
)

// Operation names used for metrics, spans and history.
const (
	opPlan      = "plan"
	opEnable    = "enable"
	opDisable   = "disable"
	opComponent = "component"
)

// recorder collects what an operation did until it is finished.
type recorder struct {
	svc       *Service
	ctx       context.Context
	span      trace.Span
	timer     *telemetry.Timer
	operation string
	op        *stores.Operation
	steps     []*stores.OperationStep
}

// Plan resolves action on a channel and runs the policy gate without
// applying anything. The result is recorded as a dry run.
func (s *Service) Plan(ctx context.Context, name string, action channels.Action) (*Result, error) {
	if !action.Valid() {
		return nil, channels.NewValidationError(fmt.Sprintf("unknown action %q", action))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.begin(ctx, opPlan, name, "", action, true)
	res := &Result{Channel: name, Action: action, DryRun: true}

	err := s.plan(rec.ctx, name, action, res)
	return s.finish(rec, res, err)
}

func (s *Service) plan(ctx context.Context, name string, action channels.Action, res *Result) error {
	sess, err := s.open(nil)
	if err != nil {
		return err
	}

	entity, err := sess.registry.Lookup(name)
	if err != nil {
		return err
	}
	if entity.Enabled() == (action == channels.ActionEnable) {
		res.Noop = true
		return nil
	}

	plan, err := sess.resolver.Solution(name, action)
	if err != nil {
		return err
	}
	res.Plan = plan
	s.warnUnprovided(sess.resolver, res)

	return s.policies.AuthorizePlan(ctx, channels.PlanRequest{Channel: name, Action: action, Steps: plan})
}

// Enable enables a channel with every step its solution requires.
// On error the result still holds the plan and the steps already applied.
func (s *Service) Enable(ctx context.Context, name string) (*Result, error) {
	return s.change(ctx, name, channels.ActionEnable)
}

// Disable disables a channel with every step its solution requires.
// On error the result still holds the plan and the steps already applied.
func (s *Service) Disable(ctx context.Context, name string) (*Result, error) {
	return s.change(ctx, name, channels.ActionDisable)
}

func (s *Service) change(ctx context.Context, name string, action channels.Action) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	operation := opEnable
	if action == channels.ActionDisable {
		operation = opDisable
	}
	rec := s.begin(ctx, operation, name, "", action, false)
	res := &Result{Channel: name, Action: action}

	sess, err := s.open(rec.step)
	if err == nil {
		var report *channels.Report
		if action == channels.ActionEnable {
			report, err = sess.executor.Enable(rec.ctx, name)
		} else {
			report, err = sess.executor.Disable(rec.ctx, name)
		}
		if report != nil {
			res.Noop = report.Noop
			res.Plan = report.Plan
			res.Applied = report.Applied
			s.warnUnprovided(sess.resolver, res)
		}
	}

	return s.finish(rec, res, err)
}

// warnUnprovided adds a warning for every provider reference the plan of res
// leaves without an enabled provider.
func (s *Service) warnUnprovided(resolver *channels.Resolver, res *Result) {
	for _, rel := range resolver.Unprovided(res.Plan) {
		msg := fmt.Sprintf("%s depends on %s, which no enabled channel will provide", rel.Requirer, rel.Target)
		s.logger.Warn().Str("channel", rel.Requirer).Str("provider", rel.Target).Msg("Provider dependency left unsatisfied")
		res.Warnings = append(res.Warnings, msg)
	}
}

// EnableComponent enables a single component of a channel.
func (s *Service) EnableComponent(ctx context.Context, name, component string) (*Result, error) {
	return s.component(ctx, name, component, channels.ActionEnable)
}

// DisableComponent disables a single proposed component of a channel.
func (s *Service) DisableComponent(ctx context.Context, name, component string) (*Result, error) {
	return s.component(ctx, name, component, channels.ActionDisable)
}

func (s *Service) component(ctx context.Context, name, component string, action channels.Action) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.begin(ctx, opComponent, name, component, action, false)
	res := &Result{Channel: name, Component: component, Action: action}

	sess, err := s.open(nil)
	if err == nil {
		if entity, lerr := sess.registry.Lookup(name); lerr == nil {
			if enabled, cerr := entity.IsComponentEnabled(component); cerr == nil {
				res.Noop = enabled == (action == channels.ActionEnable)
			}
		}

		if action == channels.ActionEnable {
			err = sess.executor.EnableComponent(rec.ctx, name, component)
		} else {
			err = sess.executor.DisableComponent(rec.ctx, name, component)
		}
		if err != nil {
			res.Noop = false
		} else if !res.Noop {
			res.Applied = []channels.Step{{Channel: name, Action: action}}
		}
	}

	return s.finish(rec, res, err)
}

// begin starts the span and timer of an operation.
func (s *Service) begin(ctx context.Context, operation, channel, component string, action channels.Action, dryRun bool) *recorder {
	ctx, span := s.tel.Tracer.StartOperationSpan(ctx, operation, channel)
	span.SetAttributes(
		telemetry.AttrAction.String(string(action)),
		telemetry.AttrDryRun.Bool(dryRun),
	)
	if component != "" {
		span.SetAttributes(telemetry.AttrComponent.String(component))
	}

	return &recorder{
		svc:       s,
		ctx:       ctx,
		span:      span,
		timer:     telemetry.NewTimer(),
		operation: operation,
		op: &stores.Operation{
			Channel:   channel,
			Component: component,
			Action:    string(action),
			DryRun:    dryRun,
			StartedAt: time.Now(),
		},
	}
}

// step is the executor step hook of an operation.
func (r *recorder) step(_ context.Context, index int, step channels.Step, err error) {
	status := stores.StepStatusApplied
	var msg *string
	if err != nil {
		status = stores.StepStatusFailed
		m := err.Error()
		msg = &m
	}

	r.svc.tel.Metrics.RecordStep(string(step.Action), string(status))
	telemetry.AddStepEvent(r.span, index, step.Channel, string(step.Action), err)

	r.steps = append(r.steps, &stores.OperationStep{
		Position:  index,
		Channel:   step.Channel,
		Action:    string(step.Action),
		Status:    status,
		Error:     msg,
		AppliedAt: time.Now(),
	})
}

// finish records metrics, span status, log and history for an operation.
func (s *Service) finish(rec *recorder, res *Result, err error) (*Result, error) {
	defer rec.span.End()

	status, result := outcome(res, err)
	duration := rec.timer.Duration()

	s.tel.Metrics.RecordOperation(rec.operation, result, duration)
	if rec.operation != opComponent {
		s.tel.Metrics.RecordResolution(string(res.Action), result, len(res.Plan))
	}

	rec.span.SetAttributes(telemetry.AttrPlanSteps.Int(len(res.Plan)))
	if err != nil {
		class := string(channels.ClassOf(err))
		if class == "" {
			class = "internal"
		}
		s.tel.Metrics.RecordError(class, channels.CodeOf(err))
		rec.span.SetAttributes(telemetry.AttrErrorCode.String(channels.CodeOf(err)))
		telemetry.RecordError(rec.span, err)
	} else {
		telemetry.RecordSuccess(rec.span)
	}

	res.OperationID = s.record(rec, res, status, err)
	if res.OperationID != "" {
		rec.span.SetAttributes(telemetry.AttrOperation.String(res.OperationID))
	}

	log := s.logger.With().
		Str("operation", rec.operation).
		Str("channel", res.Channel).
		Str("action", string(res.Action)).
		Str("status", string(status)).
		Int("steps", len(res.Plan)).
		Dur("duration", duration).
		Logger()
	if res.Component != "" {
		log = log.With().Str("channel_component", res.Component).Logger()
	}
	if traceID := telemetry.TraceID(rec.ctx); traceID != "" {
		log = log.With().Str("trace_id", traceID).Logger()
	}

	switch status {
	case stores.OperationStatusFailed:
		log.Error().Err(err).Msg("Channel operation failed")
	case stores.OperationStatusDenied:
		log.Warn().Err(err).Msg("Channel operation denied")
	default:
		log.Info().Msg("Channel operation finished")
	}

	return res, err
}

func outcome(res *Result, err error) (stores.OperationStatus, string) {
	switch {
	case err == nil && res.Noop:
		return stores.OperationStatusNoop, telemetry.ResultNoop
	case err == nil && res.DryRun:
		return stores.OperationStatusPlanned, telemetry.ResultSuccess
	case err == nil:
		return stores.OperationStatusCompleted, telemetry.ResultSuccess
	case channels.IsPolicyDenied(err):
		return stores.OperationStatusDenied, telemetry.ResultDenied
	default:
		return stores.OperationStatusFailed, telemetry.ResultFailed
	}
}

// record writes the operation, its steps and a summary event to the history
// store and returns the operation ID. History failures are logged and do not
// fail the operation.
func (s *Service) record(rec *recorder, res *Result, status stores.OperationStatus, opErr error) string {
	if s.history == nil {
		return ""
	}

	// The operation happened even if the caller's context is done by now.
	ctx := context.WithoutCancel(rec.ctx)

	op := rec.op
	op.Status = status
	now := time.Now().UTC()
	op.CompletedAt = &now
	op.Plan = encodePlan(res.Plan)
	if opErr != nil {
		msg := opErr.Error()
		op.Error = &msg
		if code := channels.CodeOf(opErr); code != "" {
			op.ErrorCode = &code
		}
	}

	if err := s.history.CreateOperation(ctx, op); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record operation")
		return ""
	}

	for _, step := range rec.steps {
		step.OperationID = op.ID
		if err := s.history.AddStep(ctx, step); err != nil {
			s.logger.Warn().Err(err).Str("operation_id", op.ID).Msg("Failed to record step")
		}
	}

	level := stores.EventLevelInfo
	switch status {
	case stores.OperationStatusDenied:
		level = stores.EventLevelWarning
	case stores.OperationStatusFailed:
		level = stores.EventLevelError
	}

	message := fmt.Sprintf("%s %s: %s", res.Action, res.Channel, status)
	if res.Component != "" {
		message = fmt.Sprintf("%s %s/%s: %s", res.Action, res.Channel, res.Component, status)
	}
	s.appendEvent(ctx, &op.ID, level, message, map[string]interface{}{
		"applied":    len(rec.steps),
		"error_code": channels.CodeOf(opErr),
	})

	return op.ID
}

// appendEvent writes an event to the history store, if any.
func (s *Service) appendEvent(ctx context.Context, operationID *string, level stores.EventLevel, message string, details map[string]interface{}) {
	if s.history == nil {
		return
	}

	event := &stores.Event{
		OperationID: operationID,
		Level:       level,
		Message:     message,
	}
	if len(details) > 0 {
		if data, err := json.Marshal(details); err == nil {
			d := string(data)
			event.Details = &d
		}
	}

	if err := s.history.AppendEvent(ctx, event); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record event")
	}
}

func encodePlan(plan channels.Plan) string {
	if len(plan) == 0 {
		return "[]"
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return "[]"
	}
	return string(data)
}
