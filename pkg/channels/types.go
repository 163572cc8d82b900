package channels

import (
	"fmt"
	"strings"
)

// ProviderSuffix marks a dependency or conflict target as a provider reference
// rather than a channel name (e.g. "semplice-base.provider").
const ProviderSuffix = ".provider"

// Action is the state change requested for a channel.
type Action string

const (
	// ActionEnable enables a channel.
	ActionEnable Action = "enable"

	// ActionDisable disables a channel.
	ActionDisable Action = "disable"
)

// ParseAction converts a string into an Action.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionEnable:
		return ActionEnable, nil
	case ActionDisable:
		return ActionDisable, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unknown action %q (expected enable or disable)", s))
	}
}

// Valid returns true if the action is one of the known actions.
func (a Action) Valid() bool {
	return a == ActionEnable || a == ActionDisable
}

// Step is a single state change in a solution plan.
type Step struct {
	Channel string `json:"channel"`
	Action  Action `json:"action"`
}

// String returns a human-readable representation of the step.
func (s Step) String() string {
	return fmt.Sprintf("%s %s", s.Action, s.Channel)
}

// Plan is an ordered list of steps with no duplicate channel entries.
// The requested step is always the last one.
type Plan []Step

// Contains returns true if a step for the given channel is in the plan.
func (p Plan) Contains(channel string) bool {
	return p.Index(channel) >= 0
}

// Index returns the position of the step for channel, or -1.
func (p Plan) Index(channel string) int {
	for i := range p {
		if p[i].Channel == channel {
			return i
		}
	}
	return -1
}

// merge appends the steps of other whose channel is not already present.
func (p Plan) merge(other Plan) Plan {
	for _, step := range other {
		if !p.Contains(step.Channel) {
			p = append(p, step)
		}
	}
	return p
}

// Entity is a togglable channel as exposed by the entity registry.
// Dependency, conflict and provides lists must not change while a Resolver
// built from the registry is in use.
type Entity interface {
	// Name returns the unique channel name.
	Name() string

	// Enabled reports whether every non-proposed component is enabled.
	Enabled() bool

	// Dependencies returns the names of the channels (or provider references)
	// this channel depends on.
	Dependencies() []string

	// Conflicts returns the names of the channels (or provider references)
	// this channel conflicts with.
	Conflicts() []string

	// Provides returns the provider names this channel provides.
	Provides() []string

	// Enable enables every non-proposed component.
	Enable() error

	// Disable disables every component.
	Disable() error

	// IsComponentEnabled reports whether a single component is enabled.
	IsComponentEnabled(component string) (bool, error)

	// IsProposed reports whether a component is opt-in.
	IsProposed(component string) (bool, error)

	// EnableComponent enables a single component.
	EnableComponent(component string) error

	// DisableComponent disables a single component.
	DisableComponent(component string) error
}

// Registry is the read/write view of channel state consumed by the engine.
type Registry interface {
	// Lookup returns the channel with the given name, or an UnknownChannel error.
	Lookup(name string) (Entity, error)

	// Names returns every channel name in a stable order.
	Names() []string

	// Providers returns every known provider name.
	Providers() []string
}

// IsProviderRef returns true if name refers to a provider rather than a channel.
func IsProviderRef(name string) bool {
	return strings.HasSuffix(name, ProviderSuffix)
}

// ProviderName strips the provider suffix from a provider reference.
func ProviderName(ref string) string {
	return strings.TrimSuffix(ref, ProviderSuffix)
}

// ProviderRef builds the reference used in dependency lists for a provider.
func ProviderRef(provider string) string {
	return provider + ProviderSuffix
}

// providingChannels returns, in registry order, the channels that declare provider.
func providingChannels(reg Registry, provider string) []Entity {
	var out []Entity
	for _, name := range reg.Names() {
		entity, err := reg.Lookup(name)
		if err != nil {
			continue
		}
		for _, p := range entity.Provides() {
			if p == provider {
				out = append(out, entity)
				break
			}
		}
	}
	return out
}

// enabledProviders returns the enabled channels providing provider, excluding exclude.
func enabledProviders(reg Registry, provider, exclude string) []Entity {
	var out []Entity
	for _, entity := range providingChannels(reg, provider) {
		if entity.Name() != exclude && entity.Enabled() {
			out = append(out, entity)
		}
	}
	return out
}
