package sources

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	// MainFile is the name of the main sources file below the apt root.
	MainFile = "sources.list"

	// PartsDir is the name of the drop-in directory below the apt root.
	PartsDir = "sources.list.d"
)

// List is the set of entries of every sources file below an apt root
// (typically /etc/apt).
type List struct {
	mu      sync.Mutex
	root    string
	files   []string
	entries map[string][]*Entry
	dirty   map[string]bool
}

// Load reads sources.list and sources.list.d/*.list below root.
// Missing files are not an error.
func Load(root string) (*List, error) {
	l := &List{
		root:    root,
		entries: make(map[string][]*Entry),
		dirty:   make(map[string]bool),
	}

	paths := []string{filepath.Join(root, MainFile)}
	parts, err := filepath.Glob(filepath.Join(root, PartsDir, "*.list"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", PartsDir, err)
	}
	sort.Strings(parts)
	paths = append(paths, parts...)

	for _, path := range paths {
		if err := l.loadFile(path); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// loadFile parses a single sources file.
func (l *List) loadFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var entries []*Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		e := ParseLine(scanner.Text(), path)
		e.list = l
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	l.files = append(l.files, path)
	l.entries[path] = entries
	return nil
}

// Root returns the apt root the list was loaded from.
func (l *List) Root() string {
	return l.root
}

// Entries returns every valid entry, in file order.
func (l *List) Entries() []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Entry
	for _, file := range l.files {
		for _, e := range l.entries[file] {
			if !e.Invalid {
				out = append(out, e)
			}
		}
	}
	return out
}

// PartPath returns the drop-in file path for a name (e.g. a channel name).
func (l *List) PartPath(name string) string {
	return filepath.Join(l.root, PartsDir, name+".list")
}

// Add appends a new enabled entry to file. An empty file means sources.list.
func (l *List) Add(typ, uri, dist string, components []string, comment, file string) *Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if file == "" {
		file = filepath.Join(l.root, MainFile)
	}

	e := &Entry{
		Type:       typ,
		URI:        uri,
		Dist:       dist,
		Components: append([]string(nil), components...),
		Comment:    comment,
		File:       file,
		list:       l,
	}

	if _, ok := l.entries[file]; !ok {
		l.files = append(l.files, file)
	}
	l.entries[file] = append(l.entries[file], e)
	l.dirty[file] = true
	return e
}

func (l *List) markDirty(file string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dirty[file] = true
}

// Dirty returns true if there are unsaved changes.
func (l *List) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.dirty) > 0
}

// Save writes every modified file. Each file is replaced atomically.
func (l *List) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	files := make([]string, 0, len(l.dirty))
	for file := range l.dirty {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		if err := writeFile(file, l.entries[file]); err != nil {
			return err
		}
		delete(l.dirty, file)
	}
	return nil
}

// writeFile writes entries to path through a temporary file and rename.
func writeFile(path string, entries []*Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteString("\n")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
