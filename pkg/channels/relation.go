package channels

import "fmt"

// RelationKind tags the semantics of a relation edge.
type RelationKind string

const (
	// KindDependency is satisfied when the target is enabled.
	KindDependency RelationKind = "dependency"

	// KindConflict is satisfied when the target is disabled.
	KindConflict RelationKind = "conflict"

	// KindProvider is satisfied when no channel other than the requirer
	// currently provides the target provider.
	KindProvider RelationKind = "provider"
)

// Relation is a directed edge from a requiring channel to a target channel,
// provider reference or provider name.
type Relation struct {
	Kind     RelationKind `json:"kind"`
	Requirer string       `json:"requirer"`
	Target   string       `json:"target"`
}

// Dependency returns a dependency relation from requirer to target.
func Dependency(requirer, target string) Relation {
	return Relation{Kind: KindDependency, Requirer: requirer, Target: target}
}

// Conflict returns a conflict relation from requirer to target.
func Conflict(requirer, target string) Relation {
	return Relation{Kind: KindConflict, Requirer: requirer, Target: target}
}

// ProviderRelation returns the exclusivity relation between requirer and a provider it provides.
func ProviderRelation(requirer, provider string) Relation {
	return Relation{Kind: KindProvider, Requirer: requirer, Target: provider}
}

// Name returns the name of the relation target.
func (r Relation) Name() string {
	return r.Target
}

// String returns a human-readable representation of the relation.
func (r Relation) String() string {
	return fmt.Sprintf("%s %s %s", r.Requirer, r.Kind, r.Target)
}

// Equal returns true if both relations are of the same kind and target the same entity.
func (r Relation) Equal(other Relation) bool {
	return r.Kind == other.Kind && r.Target == other.Target
}

// Matches returns true if the satisfied state of the relation equals want.
func (r Relation) Matches(reg Registry, want bool) bool {
	return r.Satisfied(reg) == want
}

// Satisfied evaluates the relation against the current registry state.
func (r Relation) Satisfied(reg Registry) bool {
	switch r.Kind {
	case KindDependency:
		return targetEnabled(reg, r.Requirer, r.Target)
	case KindConflict:
		return !targetEnabled(reg, r.Requirer, r.Target)
	case KindProvider:
		return len(enabledProviders(reg, r.Target, r.Requirer)) == 0
	default:
		return false
	}
}

// targetEnabled reports whether target is enabled. A provider reference is
// enabled when any channel other than requirer provides it and is enabled.
func targetEnabled(reg Registry, requirer, target string) bool {
	if IsProviderRef(target) {
		return len(enabledProviders(reg, ProviderName(target), requirer)) > 0
	}
	entity, err := reg.Lookup(target)
	if err != nil {
		return false
	}
	return entity.Enabled()
}
