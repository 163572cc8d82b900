package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		invalid    bool
		disabled   bool
		typ        string
		options    string
		uri        string
		dist       string
		components []string
		comment    string
	}{
		{
			name:       "enabled entry",
			line:       "deb http://deb.debian.org/debian jessie main contrib",
			typ:        TypeDeb,
			uri:        "http://deb.debian.org/debian",
			dist:       "jessie",
			components: []string{"main", "contrib"},
		},
		{
			name:       "disabled entry with comment",
			line:       "# deb-src http://example.org/repo sid main # sample",
			disabled:   true,
			typ:        TypeDebSrc,
			uri:        "http://example.org/repo",
			dist:       "sid",
			components: []string{"main"},
			comment:    "sample",
		},
		{
			name:       "options",
			line:       "deb [arch=amd64 trusted=yes] http://example.org/repo stable main",
			typ:        TypeDeb,
			options:    "arch=amd64 trusted=yes",
			uri:        "http://example.org/repo",
			dist:       "stable",
			components: []string{"main"},
		},
		{
			name:       "tab separated",
			line:       "deb\thttp://example.org/debian\tjessie main",
			typ:        TypeDeb,
			uri:        "http://example.org/debian",
			dist:       "jessie",
			components: []string{"main"},
		},
		{
			name:       "disabled tab separated",
			line:       "#deb-src\t[arch=amd64]\thttp://example.org/debian  sid\tmain",
			disabled:   true,
			typ:        TypeDebSrc,
			options:    "arch=amd64",
			uri:        "http://example.org/debian",
			dist:       "sid",
			components: []string{"main"},
		},
		{name: "type only", line: "deb", invalid: true},
		{name: "unknown type", line: "rpm http://example.org/repo stable main", invalid: true},
		{name: "plain comment", line: "# this is a comment", invalid: true, disabled: true},
		{name: "blank", line: "", invalid: true},
		{name: "truncated", line: "deb http://example.org/repo", invalid: true},
		{name: "unterminated options", line: "deb [arch=amd64 http://example.org/repo stable", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ParseLine(tt.line, "sources.list")
			if e.Invalid != tt.invalid {
				t.Fatalf("expected Invalid=%v, got %v", tt.invalid, e.Invalid)
			}
			if e.Disabled != tt.disabled {
				t.Errorf("expected Disabled=%v, got %v", tt.disabled, e.Disabled)
			}
			if tt.invalid {
				if e.String() != tt.line {
					t.Errorf("invalid line not preserved: %q", e.String())
				}
				return
			}
			if e.Type != tt.typ || e.Options != tt.options || e.URI != tt.uri || e.Dist != tt.dist || e.Comment != tt.comment {
				t.Errorf("unexpected entry: %+v", e)
			}
			if strings.Join(e.Components, " ") != strings.Join(tt.components, " ") {
				t.Errorf("expected components %v, got %v", tt.components, e.Components)
			}
		})
	}
}

func TestEntryString(t *testing.T) {
	e := ParseLine("deb [arch=amd64] http://example.org/repo stable main # repo", "x")
	if got := e.String(); got != "deb [arch=amd64] http://example.org/repo stable main # repo" {
		t.Errorf("unexpected format: %q", got)
	}

	e.Disabled = true
	if got := e.String(); got != "# deb [arch=amd64] http://example.org/repo stable main # repo" {
		t.Errorf("unexpected disabled format: %q", got)
	}
}

func TestNormalizeURI(t *testing.T) {
	for _, uri := range []string{"http://example.org/repo", "http://example.org/repo/", "http://example.org/repo//"} {
		if got := NormalizeURI(uri); got != "http://example.org/repo/" {
			t.Errorf("NormalizeURI(%q) = %q", uri, got)
		}
	}
}

func TestListLoadAndSave(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, MainFile)
	writeTestFile(t, main, "# main archive\ndeb http://deb.debian.org/debian jessie main\n")
	writeTestFile(t, filepath.Join(root, PartsDir, "sample.list"),
		"# deb http://example.org/sample jessie main # sample\n")

	list, err := Load(root)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	entries := list.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Disabled || !entries[1].Disabled {
		t.Fatalf("unexpected disabled flags: %v %v", entries[0].Disabled, entries[1].Disabled)
	}
	if list.Dirty() {
		t.Fatal("freshly loaded list should not be dirty")
	}

	entries[1].SetEnabled(true)
	added := list.Add(TypeDeb, "http://example.org/extra", "jessie", []string{"main"}, "extra", list.PartPath("extra"))
	if !list.Dirty() {
		t.Fatal("expected list to be dirty")
	}
	if err := list.Save(); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if list.Dirty() {
		t.Fatal("expected clean list after save")
	}

	data, err := os.ReadFile(filepath.Join(root, PartsDir, "sample.list"))
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(data) != "deb http://example.org/sample jessie main # sample\n" {
		t.Errorf("unexpected sample.list: %q", string(data))
	}

	data, err = os.ReadFile(added.File)
	if err != nil {
		t.Fatalf("failed to read added file: %v", err)
	}
	if string(data) != "deb http://example.org/extra jessie main # extra\n" {
		t.Errorf("unexpected extra.list: %q", string(data))
	}

	// The untouched main file keeps its comment line.
	data, err = os.ReadFile(main)
	if err != nil {
		t.Fatalf("failed to read main: %v", err)
	}
	if !strings.HasPrefix(string(data), "# main archive\n") {
		t.Errorf("comment lost: %q", string(data))
	}

	reloaded, err := Load(root)
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if len(reloaded.Entries()) != 3 {
		t.Errorf("expected 3 entries after reload, got %d", len(reloaded.Entries()))
	}
}

func TestListLoadMissingRoot(t *testing.T) {
	list, err := Load(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("missing files should not fail: %v", err)
	}
	if len(list.Entries()) != 0 {
		t.Errorf("expected no entries")
	}
}

func TestReadRelease(t *testing.T) {
	dir := t.TempDir()
	e := ParseLine("deb http://deb.debian.org/debian/ jessie main", "x")

	if base := ReleaseBase(e); base != "deb.debian.org_debian_dists_jessie" {
		t.Fatalf("unexpected release base %q", base)
	}

	rel, err := ReadRelease(dir, e)
	if err != nil || rel != nil {
		t.Fatalf("expected nil release, got %v, %v", rel, err)
	}

	writeTestFile(t, filepath.Join(dir, "deb.debian.org_debian_dists_jessie_InRelease"),
		"-----BEGIN PGP SIGNED MESSAGE-----\nHash: SHA256\n\nOrigin: Debian\nLabel: Debian\nSuite: oldstable\nCodename: jessie\n-----BEGIN PGP SIGNATURE-----\nOrigin: Bogus\n")

	rel, err = ReadRelease(dir, e)
	if err != nil {
		t.Fatalf("failed to read release: %v", err)
	}
	if rel.Origin != "Debian" || rel.Codename != "jessie" || rel.Suite != "oldstable" || rel.Label != "Debian" {
		t.Errorf("unexpected release: %+v", rel)
	}
}
