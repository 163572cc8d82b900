package channels

import (
	"errors"
	"sort"
)

// fakeComponent is a single repository entry of a fakeChannel.
type fakeComponent struct {
	proposed bool
	enabled  bool
}

// fakeChannel is an in-memory Entity.
type fakeChannel struct {
	reg        *fakeRegistry
	name       string
	enabled    bool
	deps       []string
	conflicts  []string
	provides   []string
	components map[string]*fakeComponent
	failOn     Action

	// enabledSeq, when set, feeds successive Enabled results; the last
	// value sticks.
	enabledSeq []bool
}

func (c *fakeChannel) Name() string           { return c.name }
func (c *fakeChannel) Dependencies() []string { return c.deps }
func (c *fakeChannel) Conflicts() []string    { return c.conflicts }
func (c *fakeChannel) Provides() []string     { return c.provides }

func (c *fakeChannel) Enabled() bool {
	if len(c.enabledSeq) > 0 {
		c.enabled, c.enabledSeq = c.enabledSeq[0], c.enabledSeq[1:]
	}
	return c.enabled
}

func (c *fakeChannel) Enable() error {
	c.reg.calls = append(c.reg.calls, Step{Channel: c.name, Action: ActionEnable})
	if c.failOn == ActionEnable {
		return errors.New("entry store write failed")
	}
	c.enabled = true
	return nil
}

func (c *fakeChannel) Disable() error {
	c.reg.calls = append(c.reg.calls, Step{Channel: c.name, Action: ActionDisable})
	if c.failOn == ActionDisable {
		return errors.New("entry store write failed")
	}
	c.enabled = false
	return nil
}

func (c *fakeChannel) component(name string) (*fakeComponent, error) {
	comp, ok := c.components[name]
	if !ok {
		return nil, errors.New("unknown component " + name)
	}
	return comp, nil
}

func (c *fakeChannel) IsComponentEnabled(name string) (bool, error) {
	comp, err := c.component(name)
	if err != nil {
		return false, err
	}
	return comp.enabled, nil
}

func (c *fakeChannel) IsProposed(name string) (bool, error) {
	comp, err := c.component(name)
	if err != nil {
		return false, err
	}
	return comp.proposed, nil
}

func (c *fakeChannel) EnableComponent(name string) error {
	comp, err := c.component(name)
	if err != nil {
		return err
	}
	comp.enabled = true
	return nil
}

func (c *fakeChannel) DisableComponent(name string) error {
	comp, err := c.component(name)
	if err != nil {
		return err
	}
	comp.enabled = false
	return nil
}

// fakeRegistry is an in-memory Registry that records every Enable/Disable call.
type fakeRegistry struct {
	channels  map[string]*fakeChannel
	providers []string
	calls     []Step
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{channels: make(map[string]*fakeChannel)}
}

func (r *fakeRegistry) add(name string, enabled bool) *fakeChannel {
	c := &fakeChannel{
		reg:        r,
		name:       name,
		enabled:    enabled,
		components: make(map[string]*fakeComponent),
	}
	r.channels[name] = c
	return c
}

func (c *fakeChannel) dependsOn(names ...string) *fakeChannel {
	c.deps = append(c.deps, names...)
	return c
}

func (c *fakeChannel) conflictsWith(names ...string) *fakeChannel {
	c.conflicts = append(c.conflicts, names...)
	return c
}

func (c *fakeChannel) provide(names ...string) *fakeChannel {
	c.provides = append(c.provides, names...)
	return c
}

// reportsEnabled makes Enabled return states in order.
func (c *fakeChannel) reportsEnabled(states ...bool) *fakeChannel {
	c.enabledSeq = append(c.enabledSeq, states...)
	return c
}

func (c *fakeChannel) withComponent(name string, proposed, enabled bool) *fakeChannel {
	c.components[name] = &fakeComponent{proposed: proposed, enabled: enabled}
	return c
}

func (r *fakeRegistry) Lookup(name string) (Entity, error) {
	c, ok := r.channels[name]
	if !ok {
		return nil, NewUnknownChannelError(name)
	}
	return c, nil
}

func (r *fakeRegistry) Names() []string {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *fakeRegistry) Providers() []string {
	return r.providers
}
