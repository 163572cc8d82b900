package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const currentChannel = `name: Semplice current
provides: [semplice-base]
depends: [debian-sid]
essential: true
repositories:
  - name: main
    default_mirror: http://repo.semplice-project.org/semplice
    origin: Semplice
    codename: current
    components: [main, contrib]
  - name: proposed
    default_mirror: http://repo.semplice-project.org/semplice
    codename: current-proposed
    components: [main]
    proposed: true
`

const sidChannel = `name: Debian sid
repositories:
  - name: main
    default_mirror: http://deb.debian.org/debian
    codename: sid
    components: [main]
`

const extrasCUE = `channels: {
	"semplice-extras": {
		name:    "Semplice extras"
		depends: ["semplice-base.provider"]
		repositories: [{
			name:           "main"
			default_mirror: "http://repo.semplice-project.org/extras"
			codename:       "extras"
			components:     ["main"]
		}]
	}
}
providers: {
	"semplice-base": name: "Semplice base"
}
`

func writeCatalog(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoader_Load(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"semplice-current.channel": currentChannel,
		"debian-sid.channel":       sidChannel,
		"catalog.cue":              extrasCUE,
		"README":                   "not a definition",
	})

	cat, err := NewLoader(zerolog.Nop()).Load(dir)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	names := cat.ChannelNames()
	expected := []string{"debian-sid", "semplice-current", "semplice-extras"}
	if strings.Join(names, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected channels %v, got %v", expected, names)
	}
	if got := cat.ProviderNames(); len(got) != 1 || got[0] != "semplice-base" {
		t.Errorf("unexpected providers %v", got)
	}

	current := cat.Channels["semplice-current"]
	if current.Title != "Semplice current" || !current.Essential {
		t.Errorf("unexpected channel: %+v", current)
	}
	repo, ok := current.Repository("proposed")
	if !ok || !repo.Proposed {
		t.Errorf("expected proposed repository, got %+v", repo)
	}

	extras := cat.Channels["semplice-extras"]
	if len(extras.Depends) != 1 || extras.Depends[0] != "semplice-base.provider" {
		t.Errorf("unexpected cue channel: %+v", extras)
	}
	if len(extras.Repositories) != 1 || extras.Repositories[0].Codename != "extras" {
		t.Errorf("unexpected cue repositories: %+v", extras.Repositories)
	}

	if got := cat.Essential(); len(got) != 1 || got[0] != "semplice-current" {
		t.Errorf("unexpected essential channels %v", got)
	}
}

func TestLoader_ConcurrentLoads(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"debian-sid.channel": sidChannel,
		"catalog.cue":        extrasCUE,
	})
	loader := NewLoader(zerolog.Nop())

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cat, err := loader.Load(dir)
			if err == nil && len(cat.Channels) != 2 {
				t.Errorf("expected 2 channels, got %d", len(cat.Channels))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent load failed: %v", err)
		}
	}
}

func TestLoader_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name: "unknown dependency",
			files: map[string]string{
				"a.channel": "name: A\ndepends: [ghost]\nrepositories: []\n",
			},
			wantErr: `unknown channel "ghost"`,
		},
		{
			name: "unknown provider",
			files: map[string]string{
				"a.channel": "name: A\nconflicts: [ghost.provider]\nrepositories: []\n",
			},
			wantErr: `unknown provider "ghost.provider"`,
		},
		{
			name: "missing title",
			files: map[string]string{
				"a.channel": "repositories: []\n",
			},
			wantErr: "channel a",
		},
		{
			name: "invalid mirror",
			files: map[string]string{
				"a.channel": "name: A\nrepositories:\n  - name: main\n    default_mirror: not-a-url\n    codename: x\n    components: [main]\n",
			},
			wantErr: "DefaultMirror",
		},
		{
			name: "duplicate repository",
			files: map[string]string{
				"a.channel": "name: A\nrepositories:\n  - {name: main, default_mirror: 'http://x.org', codename: x, components: [main]}\n  - {name: main, default_mirror: 'http://x.org', codename: y, components: [main]}\n",
			},
			wantErr: `duplicate repository "main"`,
		},
		{
			name: "self reference",
			files: map[string]string{
				"a.channel": "name: A\ndepends: [a]\nrepositories: []\n",
			},
			wantErr: "references itself",
		},
		{
			name: "invalid yaml",
			files: map[string]string{
				"a.channel": "name: [unterminated\n",
			},
			wantErr: "failed to parse",
		},
		{
			name: "duplicate across formats",
			files: map[string]string{
				"a.channel": "name: A\nrepositories: []\n",
				"a.cue":     `channels: a: {name: "A", repositories: []}`,
			},
			wantErr: `duplicate channel "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeCatalog(t, tt.files)
			_, err := NewLoader(zerolog.Nop()).Load(dir)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	_, err := NewLoader(zerolog.Nop()).Load(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoader_Watch(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"debian-sid.channel": sidChannel,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader := NewLoader(zerolog.Nop())
	reloaded := make(chan *Catalog, 4)
	if err := loader.Watch(ctx, dir, 50*time.Millisecond, func(cat *Catalog) {
		reloaded <- cat
	}); err != nil {
		t.Fatalf("failed to watch: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "semplice-current.channel"), []byte(currentChannel), 0o644); err != nil {
		t.Fatalf("failed to write channel: %v", err)
	}

	select {
	case cat := <-reloaded:
		if _, ok := cat.Channels["semplice-current"]; !ok {
			t.Errorf("reloaded catalog is missing the new channel: %v", cat.ChannelNames())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for catalog reload")
	}
}
