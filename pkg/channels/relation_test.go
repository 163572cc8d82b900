package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelation_Dependency(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", false).dependsOn("b")
	b := reg.add("b", false)

	rel := Dependency("a", "b")
	assert.False(t, rel.Satisfied(reg))
	assert.True(t, rel.Matches(reg, false))

	b.enabled = true
	assert.True(t, rel.Satisfied(reg))
	assert.Equal(t, "b", rel.Name())
}

func TestRelation_Conflict(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", false).conflictsWith("b")
	b := reg.add("b", true)

	rel := Conflict("a", "b")
	assert.False(t, rel.Satisfied(reg))

	b.enabled = false
	assert.True(t, rel.Satisfied(reg))
}

func TestRelation_ProviderExcludesRequirer(t *testing.T) {
	reg := newFakeRegistry()
	a := reg.add("a", true).provide("core")
	b := reg.add("b", false).provide("core")

	// An enabled channel never blocks its own provider relation.
	assert.True(t, ProviderRelation("a", "core").Satisfied(reg))
	assert.False(t, ProviderRelation("b", "core").Satisfied(reg))

	a.enabled = false
	b.enabled = true
	assert.True(t, ProviderRelation("b", "core").Satisfied(reg))
	assert.False(t, ProviderRelation("a", "core").Satisfied(reg))
}

func TestRelation_ProviderReference(t *testing.T) {
	reg := newFakeRegistry()
	base := reg.add("base", false).provide("core")
	reg.add("tool", false).dependsOn("core.provider")

	dep := Dependency("tool", "core.provider")
	conflict := Conflict("tool", "core.provider")
	assert.False(t, dep.Satisfied(reg))
	assert.True(t, conflict.Satisfied(reg))

	base.enabled = true
	assert.True(t, dep.Satisfied(reg))
	assert.False(t, conflict.Satisfied(reg))
}

func TestRelation_Equal(t *testing.T) {
	assert.True(t, Dependency("a", "b").Equal(Dependency("c", "b")))
	assert.False(t, Dependency("a", "b").Equal(Conflict("a", "b")))
	assert.False(t, Dependency("a", "b").Equal(Dependency("a", "c")))
}

func TestRelation_UnknownKind(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", true)

	rel := Relation{Kind: "bogus", Requirer: "a", Target: "a"}
	assert.False(t, rel.Satisfied(reg))
}

func TestProviderRefHelpers(t *testing.T) {
	assert.True(t, IsProviderRef("semplice-base.provider"))
	assert.False(t, IsProviderRef("semplice-current"))
	assert.Equal(t, "semplice-base", ProviderName("semplice-base.provider"))
	assert.Equal(t, "semplice-base.provider", ProviderRef("semplice-base"))
}
