package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// providerRefSuffix marks a provider reference in depends/conflicts lists.
const providerRefSuffix = ".provider"

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.+_-]*$`)

// Loader reads channel and provider definitions from a directory.
type Loader struct {
	// mu serializes use of cue, which is not safe for concurrent use.
	mu       sync.Mutex
	cue      *cue.Context
	validate *validator.Validate
	logger   zerolog.Logger
}

// cueDocument is the top-level layout of a .cue catalog file.
type cueDocument struct {
	Channels  map[string]*Channel  `json:"channels"`
	Providers map[string]*Provider `json:"providers"`
}

// NewLoader creates a new catalog loader.
func NewLoader(logger zerolog.Logger) *Loader {
	v := validator.New()
	_ = v.RegisterValidation("channelname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return namePattern.MatchString(name) && !strings.HasSuffix(name, providerRefSuffix)
	})

	return &Loader{
		cue:      cuecontext.New(),
		validate: v,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
}

// Load reads every definition in dir and validates the result.
func (l *Loader) Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	cat := New(dir)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		switch filepath.Ext(entry.Name()) {
		case ChannelExt, ProviderExt, CUEExt:
			if err := l.LoadFile(cat, path); err != nil {
				return nil, err
			}
		default:
			l.logger.Trace().Str("file", path).Msg("Skipping non-catalog file")
		}
	}

	if err := l.Validate(cat); err != nil {
		return nil, err
	}

	l.logger.Debug().
		Str("dir", dir).
		Int("channels", len(cat.Channels)).
		Int("providers", len(cat.Providers)).
		Msg("Catalog loaded")

	return cat, nil
}

// LoadFile adds the definitions of a single file to cat.
func (l *Loader) LoadFile(cat *Catalog, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	base := filepath.Base(path)
	switch filepath.Ext(base) {
	case ChannelExt:
		ch := &Channel{}
		if err := yaml.Unmarshal(data, ch); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		ch.Name = strings.TrimSuffix(base, ChannelExt)
		return addChannel(cat, ch, path)

	case ProviderExt:
		p := &Provider{}
		if err := yaml.Unmarshal(data, p); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		p.Name = strings.TrimSuffix(base, ProviderExt)
		return addProvider(cat, p, path)

	case CUEExt:
		return l.loadCUE(cat, path, data)

	default:
		return fmt.Errorf("unsupported catalog file %s", path)
	}
}

// loadCUE evaluates a .cue file holding "channels" and "providers" structs.
func (l *Loader) loadCUE(cat *Catalog, path string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	value := l.cue.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return fmt.Errorf("failed to compile %s: %s", path, cueerrors.Details(err, nil))
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("failed to evaluate %s: %s", path, cueerrors.Details(err, nil))
	}

	var doc cueDocument
	if err := value.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	for _, name := range sortedKeys(doc.Channels) {
		ch := doc.Channels[name]
		ch.Name = name
		if err := addChannel(cat, ch, path); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(doc.Providers) {
		p := doc.Providers[name]
		p.Name = name
		if err := addProvider(cat, p, path); err != nil {
			return err
		}
	}
	return nil
}

func addChannel(cat *Catalog, ch *Channel, path string) error {
	if _, exists := cat.Channels[ch.Name]; exists {
		return fmt.Errorf("duplicate channel %q in %s", ch.Name, path)
	}
	cat.Channels[ch.Name] = ch
	return nil
}

func addProvider(cat *Catalog, p *Provider, path string) error {
	if _, exists := cat.Providers[p.Name]; exists {
		return fmt.Errorf("duplicate provider %q in %s", p.Name, path)
	}
	cat.Providers[p.Name] = p
	return nil
}

// Validate checks every definition and the references between them.
func (l *Loader) Validate(cat *Catalog) error {
	var errs []error

	for _, name := range cat.ProviderNames() {
		if err := l.validate.Struct(cat.Providers[name]); err != nil {
			errs = append(errs, fmt.Errorf("provider %s: %w", name, err))
		}
	}

	// Providers are declared either by a provider file or by a channel's provides list.
	providers := make(map[string]bool)
	for name := range cat.Providers {
		providers[name] = true
	}
	for _, ch := range cat.Channels {
		for _, p := range ch.Provides {
			providers[p] = true
		}
	}

	for _, name := range cat.ChannelNames() {
		ch := cat.Channels[name]
		if err := l.validate.Struct(ch); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", name, err))
			continue
		}

		seen := make(map[string]bool)
		for _, repo := range ch.Repositories {
			if seen[repo.Name] {
				errs = append(errs, fmt.Errorf("channel %s: duplicate repository %q", name, repo.Name))
			}
			seen[repo.Name] = true
		}

		refs := append(append([]string{}, ch.Depends...), ch.Conflicts...)
		for _, ref := range refs {
			if ref == name {
				errs = append(errs, fmt.Errorf("channel %s: references itself", name))
				continue
			}
			if strings.HasSuffix(ref, providerRefSuffix) {
				if !providers[strings.TrimSuffix(ref, providerRefSuffix)] {
					errs = append(errs, fmt.Errorf("channel %s: unknown provider %q", name, ref))
				}
				continue
			}
			if _, ok := cat.Channels[ref]; !ok {
				errs = append(errs, fmt.Errorf("channel %s: unknown channel %q", name, ref))
			}
		}
	}

	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
