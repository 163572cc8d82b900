package channels

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Resolver computes blockers and solution plans for channel actions.
// Relation sets are built once from the registry at construction; build a
// new Resolver when channel definitions change.
type Resolver struct {
	registry  Registry
	relations map[string][]Relation
	providers map[string]bool
	logger    zerolog.Logger
}

// NewResolver builds the relation set of every channel in the registry.
func NewResolver(reg Registry, logger zerolog.Logger) (*Resolver, error) {
	r := &Resolver{
		registry:  reg,
		relations: make(map[string][]Relation),
		providers: make(map[string]bool),
		logger:    logger.With().Str("component", "resolver").Logger(),
	}

	for _, p := range reg.Providers() {
		r.providers[p] = true
	}
	for _, name := range reg.Names() {
		entity, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		for _, p := range entity.Provides() {
			r.providers[p] = true
		}
	}

	for _, name := range reg.Names() {
		if err := r.buildRelations(name); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// buildRelations builds the ordered relation set of a channel.
func (r *Resolver) buildRelations(channel string) error {
	entity, err := r.registry.Lookup(channel)
	if err != nil {
		return err
	}

	relations := make([]Relation, 0,
		len(entity.Dependencies())+len(entity.Conflicts())+len(entity.Provides()))

	for _, dep := range entity.Dependencies() {
		if err := r.checkTarget(channel, dep); err != nil {
			return err
		}
		r.logger.Trace().Str("channel", channel).Str("target", dep).Msg("Channel depends on target")
		relations = append(relations, Dependency(channel, dep))
	}
	for _, conflict := range entity.Conflicts() {
		if err := r.checkTarget(channel, conflict); err != nil {
			return err
		}
		relations = append(relations, Conflict(channel, conflict))
	}
	for _, provider := range entity.Provides() {
		relations = append(relations, ProviderRelation(channel, provider))
	}

	r.relations[channel] = relations
	return nil
}

// checkTarget verifies that a dependency or conflict target exists.
func (r *Resolver) checkTarget(channel, target string) error {
	if IsProviderRef(target) {
		if !r.providers[ProviderName(target)] {
			return NewUnknownChannelError(target)
		}
		return nil
	}
	if _, err := r.registry.Lookup(target); err != nil {
		e := NewUnknownChannelError(target)
		e.Message = fmt.Sprintf("channel %q references unknown channel %q", channel, target)
		return e
	}
	return nil
}

// Relations returns the relation set of a channel.
func (r *Resolver) Relations(channel string) ([]Relation, error) {
	relations, ok := r.relations[channel]
	if !ok {
		return nil, NewUnknownChannelError(channel)
	}
	return relations, nil
}

// IsEnableable returns true if every relation of the channel is currently satisfied.
func (r *Resolver) IsEnableable(channel string) (bool, error) {
	relations, err := r.Relations(channel)
	if err != nil {
		return false, err
	}
	for _, rel := range relations {
		if rel.Matches(r.registry, false) {
			return false, nil
		}
	}
	return true, nil
}

// Blockers returns the unsatisfied relations preventing action on channel.
//
// For ActionEnable these are the channel's own unsatisfied relations in
// declaration order. For ActionDisable they are synthesized Conflict
// relations, one per other enabled channel that depends on channel.
func (r *Resolver) Blockers(channel string, action Action) ([]Relation, error) {
	relations, err := r.Relations(channel)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionEnable:
		var blockers []Relation
		for _, rel := range relations {
			if rel.Matches(r.registry, false) {
				blockers = append(blockers, rel)
			}
		}
		return blockers, nil
	case ActionDisable:
		return r.dependents(channel), nil
	default:
		return nil, NewValidationError(fmt.Sprintf("unknown action %q", action))
	}
}

// dependents returns a Conflict for every other enabled channel that
// declares channel as a dependency.
func (r *Resolver) dependents(channel string) []Relation {
	var blockers []Relation
	for _, name := range r.registry.Names() {
		if name == channel {
			continue
		}
		other, err := r.registry.Lookup(name)
		if err != nil || !other.Enabled() {
			continue
		}
		for _, dep := range other.Dependencies() {
			if dep == channel {
				blockers = append(blockers, Conflict(channel, name))
				break
			}
		}
	}
	return blockers
}

// Unprovided returns the provider reference dependencies that plan leaves
// without an enabled provider. Only providers of channels the plan disables
// are considered, and only for channels still enabled once plan is applied.
// Such dependents do not block a disable; callers report them instead.
func (r *Resolver) Unprovided(plan Plan) []Relation {
	final := make(map[string]bool)
	for _, name := range r.registry.Names() {
		if entity, err := r.registry.Lookup(name); err == nil {
			final[name] = entity.Enabled()
		}
	}

	released := make(map[string]bool)
	for _, step := range plan {
		final[step.Channel] = step.Action == ActionEnable
		if step.Action != ActionDisable {
			continue
		}
		if entity, err := r.registry.Lookup(step.Channel); err == nil {
			for _, provider := range entity.Provides() {
				released[provider] = true
			}
		}
	}

	var out []Relation
	for _, name := range r.registry.Names() {
		if !final[name] {
			continue
		}
		for _, rel := range r.relations[name] {
			if rel.Kind != KindDependency || !IsProviderRef(rel.Target) {
				continue
			}
			provider := ProviderName(rel.Target)
			if released[provider] && !providedIn(final, r.registry, provider, name) {
				out = append(out, rel)
			}
		}
	}
	return out
}

// providedIn reports whether a channel other than exclude that is enabled
// in state provides provider.
func providedIn(state map[string]bool, reg Registry, provider, exclude string) bool {
	for _, entity := range providingChannels(reg, provider) {
		if entity.Name() != exclude && state[entity.Name()] {
			return true
		}
	}
	return false
}

// Solution returns the ordered, deduplicated plan that performs action on
// channel, with the requested step last. The registry is not modified.
func (r *Resolver) Solution(channel string, action Action) (Plan, error) {
	if !action.Valid() {
		return nil, NewValidationError(fmt.Sprintf("unknown action %q", action))
	}
	if _, err := r.Relations(channel); err != nil {
		return nil, err
	}

	plan, err := r.solve(channel, action, make([]string, 0, 8))
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("channel", channel).
		Str("action", string(action)).
		Int("steps", len(plan)).
		Msg("Solution computed")

	return plan, nil
}

// solve resolves the blockers of a single step. stack holds the channels
// currently being resolved in the active call chain.
func (r *Resolver) solve(channel string, action Action, stack []string) (Plan, error) {
	for i, name := range stack {
		if name == channel {
			cycle := append(append([]string{}, stack[i:]...), channel)
			return nil, NewNoSolutionError(
				fmt.Sprintf("circular relation detected: %s", strings.Join(cycle, " -> ")),
				nil,
			).WithChannel(channel)
		}
	}
	stack = append(stack, channel)

	blockers, err := r.Blockers(channel, action)
	if err != nil {
		return nil, err
	}

	plan := make(Plan, 0, len(blockers)+1)
	for _, blocker := range blockers {
		sub, err := r.solveBlocker(blocker, stack)
		if err != nil {
			return nil, err
		}
		plan = plan.merge(sub)
	}

	return append(plan, Step{Channel: channel, Action: action}), nil
}

// solveBlocker returns the sub-plan that clears a single blocker.
func (r *Resolver) solveBlocker(blocker Relation, stack []string) (Plan, error) {
	switch blocker.Kind {
	case KindDependency:
		if IsProviderRef(blocker.Target) {
			return r.solveProviderDependency(blocker, stack)
		}
		return r.solve(blocker.Target, ActionEnable, stack)

	case KindConflict:
		if IsProviderRef(blocker.Target) {
			var plan Plan
			for _, entity := range enabledProviders(r.registry, ProviderName(blocker.Target), blocker.Requirer) {
				sub, err := r.solve(entity.Name(), ActionDisable, stack)
				if err != nil {
					return nil, err
				}
				plan = plan.merge(sub)
			}
			return plan, nil
		}
		return r.solve(blocker.Target, ActionDisable, stack)

	case KindProvider:
		current := enabledProviders(r.registry, blocker.Target, blocker.Requirer)
		if len(current) == 0 {
			return nil, NewNoSolutionError(
				fmt.Sprintf("provider %q is reported taken but no enabled channel provides it", blocker.Target),
				nil,
			).WithChannel(blocker.Requirer)
		}
		var plan Plan
		for _, entity := range current {
			sub, err := r.solve(entity.Name(), ActionDisable, stack)
			if err != nil {
				return nil, err
			}
			plan = plan.merge(sub)
		}
		return plan, nil

	default:
		return nil, NewNoSolutionError(fmt.Sprintf("unsupported relation kind %q", blocker.Kind), nil).
			WithChannel(blocker.Requirer)
	}
}

// solveProviderDependency enables the first providing channel, in registry
// order, whose own plan can be resolved.
func (r *Resolver) solveProviderDependency(blocker Relation, stack []string) (Plan, error) {
	provider := ProviderName(blocker.Target)
	var lastErr error
	for _, candidate := range providingChannels(r.registry, provider) {
		if candidate.Name() == blocker.Requirer {
			continue
		}
		plan, err := r.solve(candidate.Name(), ActionEnable, stack)
		if err == nil {
			return plan, nil
		}
		if !IsNoSolution(err) {
			return nil, err
		}
		r.logger.Debug().
			Err(err).
			Str("provider", provider).
			Str("candidate", candidate.Name()).
			Msg("Provider candidate rejected")
		lastErr = err
	}
	return nil, NewNoSolutionError(
		fmt.Sprintf("no channel providing %q can be enabled", provider),
		lastErr,
	).WithChannel(blocker.Requirer)
}

// CurrentProvider returns the enabled channel, other than the requirer, that
// currently provides the target of a provider relation, or "" if none does.
func (r *Resolver) CurrentProvider(rel Relation) string {
	providers := enabledProviders(r.registry, rel.Target, rel.Requirer)
	if len(providers) == 0 {
		return ""
	}
	return providers[0].Name()
}
