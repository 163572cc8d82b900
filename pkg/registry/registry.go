package registry

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/openfroyo/channels/pkg/catalog"
	"github.com/openfroyo/channels/pkg/channels"
	"github.com/openfroyo/channels/pkg/sources"
)

// Registry binds a catalog to a sources list. It satisfies channels.Registry.
type Registry struct {
	catalog  *catalog.Catalog
	list     *sources.List
	listsDir string
	channels map[string]*Channel
	names    []string
	logger   zerolog.Logger
}

var _ channels.Registry = (*Registry)(nil)

// New creates a registry and matches the sources entries to the catalog
// channels. listsDir is where release files are looked up; an empty value
// disables origin matching.
func New(cat *catalog.Catalog, list *sources.List, listsDir string, logger zerolog.Logger) (*Registry, error) {
	r := &Registry{
		catalog:  cat,
		list:     list,
		listsDir: listsDir,
		channels: make(map[string]*Channel, len(cat.Channels)),
		names:    cat.ChannelNames(),
		logger:   logger.With().Str("component", "registry").Logger(),
	}
	for _, name := range r.names {
		r.channels[name] = newChannel(cat.Channels[name], list)
	}

	if err := r.discover(); err != nil {
		return nil, err
	}
	return r, nil
}

// discover assigns every binary entry to the channel repositories it matches.
func (r *Registry) discover() error {
	matched := 0
	for _, e := range r.list.Entries() {
		if e.URI == "" || e.Type == sources.TypeDebSrc {
			continue
		}

		var rel *sources.Release
		if r.listsDir != "" {
			var err error
			rel, err = sources.ReadRelease(r.listsDir, e)
			if err != nil {
				return err
			}
		}

		for _, name := range r.names {
			ch := r.channels[name]
			for i := range ch.def.Repositories {
				repo := &ch.def.Repositories[i]
				if match(repo, e, rel) {
					ch.entries[repo.Name] = append(ch.entries[repo.Name], e)
					matched++
				}
			}
		}
	}

	r.logger.Debug().
		Int("channels", len(r.names)).
		Int("matched", matched).
		Msg("Discovered channel entries")
	return nil
}

// Lookup returns the channel with the given name.
func (r *Registry) Lookup(name string) (channels.Entity, error) {
	ch, ok := r.channels[name]
	if !ok {
		return nil, channels.NewUnknownChannelError(name)
	}
	return ch, nil
}

// Channel returns the concrete channel with the given name.
func (r *Registry) Channel(name string) (*Channel, bool) {
	ch, ok := r.channels[name]
	return ch, ok
}

// Names returns every channel name in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Providers returns every provider declared by a provider definition or a
// channel provides list.
func (r *Registry) Providers() []string {
	seen := make(map[string]bool)
	for name := range r.catalog.Providers {
		seen[name] = true
	}
	for _, ch := range r.catalog.Channels {
		for _, p := range ch.Provides {
			seen[p] = true
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Enabled returns the names of the enabled channels.
func (r *Registry) Enabled() []string {
	var out []string
	for _, name := range r.names {
		if r.channels[name].Enabled() {
			out = append(out, name)
		}
	}
	return out
}

// Catalog returns the catalog the registry was built from.
func (r *Registry) Catalog() *catalog.Catalog {
	return r.catalog
}

// Sources returns the sources list the registry operates on.
func (r *Registry) Sources() *sources.List {
	return r.list
}
