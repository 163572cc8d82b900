package channels

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, reg Registry) *Resolver {
	t.Helper()
	r, err := NewResolver(reg, zerolog.Nop())
	require.NoError(t, err)
	return r
}

func TestResolver_ChannelWithoutRelations(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("sample", false)
	r := newTestResolver(t, reg)

	ok, err := r.IsEnableable("sample")
	require.NoError(t, err)
	assert.True(t, ok)

	plan, err := r.Solution("sample", ActionEnable)
	require.NoError(t, err)
	assert.Equal(t, Plan{{Channel: "sample", Action: ActionEnable}}, plan)
}

func TestResolver_RelationOrder(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", false).provide("core").conflictsWith("c").dependsOn("b")
	reg.add("b", false)
	reg.add("c", false)
	r := newTestResolver(t, reg)

	relations, err := r.Relations("a")
	require.NoError(t, err)
	require.Len(t, relations, 3)
	assert.Equal(t, KindDependency, relations[0].Kind)
	assert.Equal(t, KindConflict, relations[1].Kind)
	assert.Equal(t, KindProvider, relations[2].Kind)
}

func TestResolver_DependencyBlocker(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", false).dependsOn("b")
	reg.add("b", false)
	r := newTestResolver(t, reg)

	ok, err := r.IsEnableable("a")
	require.NoError(t, err)
	assert.False(t, ok)

	blockers, err := r.Blockers("a", ActionEnable)
	require.NoError(t, err)
	require.Len(t, blockers, 1)
	assert.Equal(t, KindDependency, blockers[0].Kind)
	assert.Equal(t, "b", blockers[0].Name())

	plan, err := r.Solution("a", ActionEnable)
	require.NoError(t, err)
	assert.Equal(t, Plan{
		{Channel: "b", Action: ActionEnable},
		{Channel: "a", Action: ActionEnable},
	}, plan)
}

func TestResolver_ConflictBlocker(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", false).conflictsWith("b")
	reg.add("b", true)
	r := newTestResolver(t, reg)

	plan, err := r.Solution("a", ActionEnable)
	require.NoError(t, err)
	assert.Equal(t, Plan{
		{Channel: "b", Action: ActionDisable},
		{Channel: "a", Action: ActionEnable},
	}, plan)
}

func TestResolver_ProviderExclusivity(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", true).provide("p")
	reg.add("b", false).provide("p")
	reg.add("c", false).provide("p")
	r := newTestResolver(t, reg)

	blockers, err := r.Blockers("c", ActionEnable)
	require.NoError(t, err)
	require.Len(t, blockers, 1)
	assert.Equal(t, KindProvider, blockers[0].Kind)
	assert.Equal(t, "a", r.CurrentProvider(blockers[0]))

	plan, err := r.Solution("c", ActionEnable)
	require.NoError(t, err)
	assert.Equal(t, Plan{
		{Channel: "a", Action: ActionDisable},
		{Channel: "c", Action: ActionEnable},
	}, plan)

	for _, step := range plan {
		if step.Channel == "c" {
			assert.Equal(t, ActionEnable, step.Action, "plan must never disable the requirer")
		}
	}
}

func TestResolver_ProviderReleasedDuringSolve(t *testing.T) {
	reg := newFakeRegistry()
	// "a" holds the provider when blockers are computed and is gone by
	// the time the resolver looks for the channel to disable.
	reg.add("a", true).provide("p").reportsEnabled(true, false)
	reg.add("c", false).provide("p")
	r := newTestResolver(t, reg)

	plan, err := r.Solution("c", ActionEnable)
	require.Error(t, err)
	assert.True(t, IsNoSolution(err))
	assert.Nil(t, plan)
	assert.Empty(t, reg.calls)
}

func TestResolver_DisableDependents(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("d", true)
	reg.add("e", true).dependsOn("d")
	reg.add("f", false).dependsOn("d")
	r := newTestResolver(t, reg)

	blockers, err := r.Blockers("d", ActionDisable)
	require.NoError(t, err)
	require.Len(t, blockers, 1)
	assert.Equal(t, Conflict("d", "e"), blockers[0])

	plan, err := r.Solution("d", ActionDisable)
	require.NoError(t, err)
	assert.Equal(t, Plan{
		{Channel: "e", Action: ActionDisable},
		{Channel: "d", Action: ActionDisable},
	}, plan)
}

func TestResolver_Unprovided(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("base-a", true).provide("p")
	reg.add("base-b", false).provide("p")
	reg.add("extras", true).dependsOn("p.provider")
	r := newTestResolver(t, reg)

	plan, err := r.Solution("base-a", ActionDisable)
	require.NoError(t, err)
	assert.Equal(t, Plan{{Channel: "base-a", Action: ActionDisable}}, plan, "provider references do not block a disable")
	assert.Equal(t, []Relation{Dependency("extras", "p.provider")}, r.Unprovided(plan))

	// Switching providers keeps the reference satisfied.
	plan, err = r.Solution("base-b", ActionEnable)
	require.NoError(t, err)
	assert.Empty(t, r.Unprovided(plan))

	// Dependents disabled by the same plan are not reported.
	assert.Empty(t, r.Unprovided(Plan{
		{Channel: "extras", Action: ActionDisable},
		{Channel: "base-a", Action: ActionDisable},
	}))
	assert.Empty(t, reg.calls)
}

func TestResolver_DisableIgnoresOwnRelations(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("d", true).dependsOn("x").conflictsWith("y")
	reg.add("x", false)
	reg.add("y", true)
	r := newTestResolver(t, reg)

	plan, err := r.Solution("d", ActionDisable)
	require.NoError(t, err)
	assert.Equal(t, Plan{{Channel: "d", Action: ActionDisable}}, plan)
}

func TestResolver_NoDuplicateSteps(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", false).dependsOn("b", "c")
	reg.add("b", false).dependsOn("d")
	reg.add("c", false).dependsOn("d")
	reg.add("d", false)
	r := newTestResolver(t, reg)

	plan, err := r.Solution("a", ActionEnable)
	require.NoError(t, err)
	assert.Equal(t, Plan{
		{Channel: "d", Action: ActionEnable},
		{Channel: "b", Action: ActionEnable},
		{Channel: "c", Action: ActionEnable},
		{Channel: "a", Action: ActionEnable},
	}, plan)

	seen := make(map[string]bool)
	for _, step := range plan {
		assert.False(t, seen[step.Channel], "duplicate step for %s", step.Channel)
		seen[step.Channel] = true
	}
	assert.Equal(t, "a", plan[len(plan)-1].Channel)
}

func TestResolver_PlansFromCurrentState(t *testing.T) {
	reg := newFakeRegistry()
	// b must be enabled for a, while c conflicts with b and is also needed.
	reg.add("a", false).dependsOn("b", "c")
	reg.add("b", false)
	reg.add("c", false).conflictsWith("b")
	r := newTestResolver(t, reg)

	plan, err := r.Solution("a", ActionEnable)
	require.NoError(t, err)
	// b is still disabled at planning time, so c's conflict is not a blocker.
	assert.Equal(t, Plan{
		{Channel: "b", Action: ActionEnable},
		{Channel: "c", Action: ActionEnable},
		{Channel: "a", Action: ActionEnable},
	}, plan)
}

func TestResolver_DependencyCycle(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", false).dependsOn("b")
	reg.add("b", false).dependsOn("a")
	r := newTestResolver(t, reg)

	plan, err := r.Solution("a", ActionEnable)
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.True(t, IsNoSolution(err))
	assert.Contains(t, err.Error(), "a -> b -> a")
	assert.Empty(t, reg.calls, "planning must not change state")
}

func TestResolver_DisableCycle(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", true).dependsOn("b")
	reg.add("b", true).dependsOn("a")
	r := newTestResolver(t, reg)

	_, err := r.Solution("a", ActionDisable)
	assert.True(t, IsNoSolution(err))
}

func TestResolver_ProviderReferenceAlreadySatisfied(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("base", true).provide("core")
	reg.add("alt", false).provide("core")
	reg.add("tool", false).dependsOn("core.provider")
	r := newTestResolver(t, reg)

	blockers, err := r.Blockers("tool", ActionEnable)
	require.NoError(t, err)
	assert.Empty(t, blockers)

	plan, err := r.Solution("tool", ActionEnable)
	require.NoError(t, err)
	assert.Equal(t, Plan{{Channel: "tool", Action: ActionEnable}}, plan)
}

func TestResolver_ProviderReferenceEnablesCandidate(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("alt", false).provide("core").dependsOn("broken")
	reg.add("broken", false).dependsOn("alt")
	reg.add("base", false).provide("core")
	reg.add("tool", false).dependsOn("core.provider")
	r := newTestResolver(t, reg)

	// alt is tried first but its dependency cycle makes it unusable.
	plan, err := r.Solution("tool", ActionEnable)
	require.NoError(t, err)
	assert.Equal(t, Plan{
		{Channel: "base", Action: ActionEnable},
		{Channel: "tool", Action: ActionEnable},
	}, plan)
}

func TestResolver_ProviderReferenceWithoutCandidates(t *testing.T) {
	reg := newFakeRegistry()
	reg.providers = []string{"core"}
	reg.add("tool", false).dependsOn("core.provider")
	r := newTestResolver(t, reg)

	_, err := r.Solution("tool", ActionEnable)
	assert.True(t, IsNoSolution(err))
}

func TestResolver_ConflictWithProviderReference(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("base", true).provide("core")
	reg.add("standalone", false).conflictsWith("core.provider")
	r := newTestResolver(t, reg)

	plan, err := r.Solution("standalone", ActionEnable)
	require.NoError(t, err)
	assert.Equal(t, Plan{
		{Channel: "base", Action: ActionDisable},
		{Channel: "standalone", Action: ActionEnable},
	}, plan)
}

func TestResolver_NestedResolution(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("current", true).provide("base")
	reg.add("jessie", false).provide("base")
	reg.add("extras", true).dependsOn("current")
	reg.add("backports", false).dependsOn("jessie")
	r := newTestResolver(t, reg)

	plan, err := r.Solution("backports", ActionEnable)
	require.NoError(t, err)
	assert.Equal(t, Plan{
		{Channel: "extras", Action: ActionDisable},
		{Channel: "current", Action: ActionDisable},
		{Channel: "jessie", Action: ActionEnable},
		{Channel: "backports", Action: ActionEnable},
	}, plan)
}

func TestResolver_UnknownChannel(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", false)
	r := newTestResolver(t, reg)

	_, err := r.Solution("missing", ActionEnable)
	assert.True(t, IsUnknownChannel(err))

	_, err = r.Blockers("missing", ActionDisable)
	assert.True(t, IsUnknownChannel(err))

	_, err = r.IsEnableable("missing")
	assert.True(t, IsUnknownChannel(err))
}

func TestResolver_UnknownReference(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", false).dependsOn("ghost")

	_, err := NewResolver(reg, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, IsUnknownChannel(err))

	reg = newFakeRegistry()
	reg.add("a", false).dependsOn("ghost.provider")
	_, err = NewResolver(reg, zerolog.Nop())
	assert.True(t, IsUnknownChannel(err))
}

func TestResolver_InvalidAction(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", false)
	r := newTestResolver(t, reg)

	_, err := r.Solution("a", Action("toggle"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
}
