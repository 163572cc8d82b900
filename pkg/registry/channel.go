package registry

import (
	"fmt"

	"github.com/openfroyo/channels/pkg/catalog"
	"github.com/openfroyo/channels/pkg/channels"
	"github.com/openfroyo/channels/pkg/sources"
)

// Channel is a catalog channel bound to the sources entries that implement it.
// It satisfies channels.Entity.
type Channel struct {
	def  *catalog.Channel
	list *sources.List

	// entries maps a repository name to the sources entries matching it.
	entries map[string][]*sources.Entry
}

var _ channels.Entity = (*Channel)(nil)

func newChannel(def *catalog.Channel, list *sources.List) *Channel {
	return &Channel{
		def:     def,
		list:    list,
		entries: make(map[string][]*sources.Entry),
	}
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.def.Name }

// Definition returns the catalog definition of the channel.
func (c *Channel) Definition() *catalog.Channel { return c.def }

// Dependencies returns the channel dependencies.
func (c *Channel) Dependencies() []string { return c.def.Depends }

// Conflicts returns the channel conflicts.
func (c *Channel) Conflicts() []string { return c.def.Conflicts }

// Provides returns the providers the channel satisfies.
func (c *Channel) Provides() []string { return c.def.Provides }

// Entries returns the sources entries matched to a repository.
func (c *Channel) Entries(repository string) []*sources.Entry {
	return c.entries[repository]
}

// Enabled reports whether every non-proposed repository has an enabled entry.
func (c *Channel) Enabled() bool {
	for _, repo := range c.def.Repositories {
		if repo.Proposed {
			continue
		}
		if !c.repositoryEnabled(repo.Name) {
			return false
		}
	}
	return true
}

// Enable enables every non-proposed repository and saves the sources list.
func (c *Channel) Enable() error {
	for i := range c.def.Repositories {
		repo := &c.def.Repositories[i]
		if repo.Proposed {
			continue
		}
		c.enableRepository(repo)
	}
	return c.save()
}

// Disable disables every matched entry, proposed ones included.
func (c *Channel) Disable() error {
	for _, repo := range c.def.Repositories {
		for _, e := range c.entries[repo.Name] {
			e.SetEnabled(false)
		}
	}
	return c.save()
}

// IsComponentEnabled reports whether a repository has an enabled entry.
func (c *Channel) IsComponentEnabled(component string) (bool, error) {
	if _, err := c.repository(component); err != nil {
		return false, err
	}
	return c.repositoryEnabled(component), nil
}

// IsProposed reports whether a repository is opt-in.
func (c *Channel) IsProposed(component string) (bool, error) {
	repo, err := c.repository(component)
	if err != nil {
		return false, err
	}
	return repo.Proposed, nil
}

// EnableComponent enables a single repository and saves the sources list.
func (c *Channel) EnableComponent(component string) error {
	repo, err := c.repository(component)
	if err != nil {
		return err
	}
	c.enableRepository(repo)
	return c.save()
}

// DisableComponent disables a single repository and saves the sources list.
func (c *Channel) DisableComponent(component string) error {
	if _, err := c.repository(component); err != nil {
		return err
	}
	for _, e := range c.entries[component] {
		e.SetEnabled(false)
	}
	return c.save()
}

func (c *Channel) repository(name string) (*catalog.Repository, error) {
	repo, ok := c.def.Repository(name)
	if !ok {
		return nil, channels.NewValidationError(fmt.Sprintf("unknown component %q", name)).
			WithChannel(c.def.Name).
			WithComponent(name)
	}
	return repo, nil
}

func (c *Channel) repositoryEnabled(name string) bool {
	for _, e := range c.entries[name] {
		if !e.Disabled {
			return true
		}
	}
	return false
}

// enableRepository enables the matched entries of repo, or adds a new entry
// to the channel drop-in file when nothing matched.
func (c *Channel) enableRepository(repo *catalog.Repository) {
	matched := c.entries[repo.Name]
	if len(matched) == 0 {
		e := c.list.Add(
			sources.TypeDeb,
			repo.DefaultMirror,
			repo.Codename,
			repo.Components,
			repo.Name,
			c.list.PartPath(c.def.Name),
		)
		c.entries[repo.Name] = []*sources.Entry{e}
		return
	}
	for _, e := range matched {
		e.SetEnabled(true)
	}
}

func (c *Channel) save() error {
	if err := c.list.Save(); err != nil {
		return fmt.Errorf("failed to save sources for channel %s: %w", c.def.Name, err)
	}
	return nil
}

// match reports whether a sources entry belongs to repo. When release
// information is available the origin must match, otherwise the entry URI must
// be the repository default mirror. The codename must match either the entry
// distribution or the release codename.
func match(repo *catalog.Repository, e *sources.Entry, rel *sources.Release) bool {
	if rel != nil && rel.Origin != "" {
		if rel.Origin != repo.Origin {
			return false
		}
	} else if sources.NormalizeURI(repo.DefaultMirror) != e.NormalizedURI() {
		return false
	}

	if repo.Codename == e.Dist {
		return true
	}
	return rel != nil && rel.Codename != "" && rel.Codename == repo.Codename
}
