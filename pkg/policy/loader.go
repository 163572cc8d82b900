package policy

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// File extensions recognized by the loader.
const (
	RegoExt = ".rego"
	JSONExt = ".json"
)

// ReloadDelay is how long Watch waits for file events to settle.
const ReloadDelay = 500 * time.Millisecond

// decoders turn the content of a policy file into a Policy, by extension.
var decoders = map[string]func(path string, data []byte) (*Policy, error){
	RegoExt: decodeRego,
	JSONExt: decodeJSON,
}

func isPolicyFile(path string) bool {
	_, ok := decoders[filepath.Ext(path)]
	return ok
}

// Loader reads user policies from .rego and .json files.
type Loader struct {
	logger zerolog.Logger
}

// NewLoader creates a new policy loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "policy-loader").Logger(),
	}
}

// LoadFromPaths loads the policies found in paths, which may be files or
// directories searched recursively. Missing paths are skipped; so are
// directory entries that fail to decode, with a warning. A file named
// explicitly must decode.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Policy, error) {
	var out []Policy

	for _, root := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		files, explicit, err := policyFiles(root)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}

		for _, file := range files {
			p, err := l.loadFromFile(file)
			if err != nil {
				if explicit {
					return nil, err
				}
				l.logger.Warn().Err(err).Str("path", file).Msg("Skipping invalid policy file")
				continue
			}
			out = append(out, *p)
		}
	}

	l.logger.Debug().
		Int("policies", len(out)).
		Strs("paths", paths).
		Msg("User policies loaded")

	return out, nil
}

// policyFiles lists the policy files under root in lexical order. explicit
// is true when root is itself a file.
func policyFiles(root string) (files []string, explicit bool, err error) {
	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	case !info.IsDir():
		return []string{root}, true, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isPolicyFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, false, err
}

// loadFromFile decodes a single policy file.
func (l *Loader) loadFromFile(path string) (*Policy, error) {
	decode, ok := decoders[filepath.Ext(path)]
	if !ok {
		return nil, fmt.Errorf("unsupported policy file %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}

	p, err := decode(path, data)
	if err != nil {
		return nil, err
	}
	p.Source = path
	p.Builtin = false

	l.logger.Debug().Str("policy", p.Name).Str("path", path).Msg("Loaded policy")
	return p, nil
}

// baseName is the file name without its extension.
func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// decodeRego wraps a bare Rego module. The name comes from the file and the
// description from its leading comment block.
func decodeRego(path string, data []byte) (*Policy, error) {
	src := string(data)
	return &Policy{
		Name:        baseName(path),
		Description: extractDescription(src),
		Rego:        src,
		Severity:    SeverityError,
		Enabled:     true,
	}, nil
}

// decodeJSON reads a policy definition with embedded Rego.
func decodeJSON(path string, data []byte) (*Policy, error) {
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid policy definition %s: %w", path, err)
	}

	if p.Name == "" {
		p.Name = baseName(path)
	}
	if strings.TrimSpace(p.Rego) == "" {
		return nil, fmt.Errorf("policy %s: rego is empty", p.Name)
	}
	if p.Severity == "" {
		p.Severity = SeverityError
	}
	return &p, nil
}

// extractDescription returns the first block of # comments, joined by spaces.
func extractDescription(src string) string {
	var words []string

	scanner := bufio.NewScanner(strings.NewReader(src))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		comment, isComment := strings.CutPrefix(line, "#")
		if !isComment {
			if line != "" && len(words) > 0 {
				break
			}
			continue
		}
		if comment = strings.TrimSpace(comment); comment != "" {
			words = append(words, comment)
		}
	}

	return strings.Join(words, " ")
}

// Watch calls reloadFn with the policies of paths after policy files change,
// until ctx is cancelled. Events are coalesced for ReloadDelay. It returns
// once the watcher is set up.
func (l *Loader) Watch(ctx context.Context, paths []string, reloadFn func([]Policy) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, root := range paths {
		if err := watchTree(watcher, root); err != nil {
			l.logger.Warn().Err(err).Str("path", root).Msg("Cannot watch policy path")
		}
	}

	l.logger.Info().Strs("paths", paths).Msg("Watching policies")

	go l.watchLoop(ctx, watcher, paths, reloadFn)
	return nil
}

// watchTree adds root and, for directories, each directory below it.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			err = watcher.Add(path)
		}
		return err
	})
}

// watchLoop runs reloads on its own goroutine so they never overlap.
func (l *Loader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, paths []string, reloadFn func([]Policy) error) {
	defer watcher.Close()

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

	timer := time.NewTimer(ReloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&relevant == 0 || !isPolicyFile(event.Name) {
				continue
			}
			l.logger.Debug().Str("file", event.Name).Stringer("op", event.Op).Msg("Policy file changed")
			timer.Reset(ReloadDelay)

		case <-timer.C:
			if err := l.reload(ctx, paths, reloadFn); err != nil {
				l.logger.Error().Err(err).Msg("Policy reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Policy watcher error")
		}
	}
}

func (l *Loader) reload(ctx context.Context, paths []string, reloadFn func([]Policy) error) error {
	policies, err := l.LoadFromPaths(ctx, paths)
	if err != nil {
		return err
	}
	if err := reloadFn(policies); err != nil {
		return fmt.Errorf("failed to apply policies: %w", err)
	}

	l.logger.Info().Int("policies", len(policies)).Msg("Policies reloaded")
	return nil
}
