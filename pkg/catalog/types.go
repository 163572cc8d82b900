package catalog

import (
	"sort"
)

// File extensions recognized in a catalog directory.
const (
	ChannelExt  = ".channel"
	ProviderExt = ".provider"
	CUEExt      = ".cue"
)

// Channel is the definition of an update channel.
type Channel struct {
	// Name is the channel identifier, taken from the file name.
	Name string `yaml:"-" json:"-" validate:"required,channelname"`

	// Title is the human-readable channel name.
	Title string `yaml:"name" json:"name" validate:"required"`

	// Description is an optional longer description.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Depends lists channels or provider references ("<name>.provider")
	// that must be enabled before this channel.
	Depends []string `yaml:"depends,omitempty" json:"depends,omitempty" validate:"dive,required"`

	// Conflicts lists channels or provider references that must be disabled
	// before this channel.
	Conflicts []string `yaml:"conflicts,omitempty" json:"conflicts,omitempty" validate:"dive,required"`

	// Provides lists the providers this channel satisfies.
	Provides []string `yaml:"provides,omitempty" json:"provides,omitempty" validate:"dive,required,channelname"`

	// Essential channels are never disabled as a side effect of a plan.
	Essential bool `yaml:"essential,omitempty" json:"essential,omitempty"`

	// Repositories are the sources entries making up the channel.
	Repositories []Repository `yaml:"repositories" json:"repositories" validate:"dive"`
}

// Repository is a single repository of a channel. Its name identifies the
// component in component-level operations.
type Repository struct {
	// Name identifies the repository within the channel.
	Name string `yaml:"name" json:"name" validate:"required"`

	// DefaultMirror is the URI used when the entry has to be created.
	DefaultMirror string `yaml:"default_mirror" json:"default_mirror" validate:"required,url"`

	// Origin is the Origin field of the repository Release file.
	Origin string `yaml:"origin,omitempty" json:"origin,omitempty"`

	// Codename is the distribution codename.
	Codename string `yaml:"codename" json:"codename" validate:"required"`

	// Components lists the archive components.
	Components []string `yaml:"components" json:"components" validate:"required,min=1,dive,required"`

	// Proposed repositories are opt-in: they are not enabled with the channel.
	Proposed bool `yaml:"proposed,omitempty" json:"proposed,omitempty"`
}

// Provider is the definition of a virtual provider.
type Provider struct {
	// Name is the provider identifier, taken from the file name.
	Name string `yaml:"-" json:"-" validate:"required,channelname"`

	// Title is the human-readable provider name.
	Title string `yaml:"name" json:"name" validate:"required"`

	// Description is an optional longer description.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Repository returns the repository with the given name.
func (c *Channel) Repository(name string) (*Repository, bool) {
	for i := range c.Repositories {
		if c.Repositories[i].Name == name {
			return &c.Repositories[i], true
		}
	}
	return nil, false
}

// Catalog is the set of channel and provider definitions of a directory.
type Catalog struct {
	Dir       string               `json:"dir"`
	Channels  map[string]*Channel  `json:"channels"`
	Providers map[string]*Provider `json:"providers"`
}

// New returns an empty catalog.
func New(dir string) *Catalog {
	return &Catalog{
		Dir:       dir,
		Channels:  make(map[string]*Channel),
		Providers: make(map[string]*Provider),
	}
}

// ChannelNames returns the channel names in sorted order.
func (c *Catalog) ChannelNames() []string {
	names := make([]string, 0, len(c.Channels))
	for name := range c.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderNames returns the provider names in sorted order.
func (c *Catalog) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Essential returns the names of the essential channels.
func (c *Catalog) Essential() []string {
	var out []string
	for _, name := range c.ChannelNames() {
		if c.Channels[name].Essential {
			out = append(out, name)
		}
	}
	return out
}
