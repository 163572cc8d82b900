package sources

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultListsDir is where apt stores downloaded index files.
const DefaultListsDir = "/var/lib/apt/lists"

// Release holds the fields of a Release or InRelease file used to identify a repository.
type Release struct {
	Origin   string `json:"origin,omitempty"`
	Label    string `json:"label,omitempty"`
	Codename string `json:"codename,omitempty"`
	Suite    string `json:"suite,omitempty"`
}

// ReleaseBase returns the apt lists file prefix for an entry, e.g.
// "deb.debian.org_debian_dists_jessie".
func ReleaseBase(e *Entry) string {
	uri := e.URI
	if _, rest, ok := strings.Cut(uri, "://"); ok {
		uri = rest
	}

	var parts []string
	for _, p := range strings.Split(uri, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, "dists", strings.ReplaceAll(e.Dist, "/", "_"))
	return strings.Join(parts, "_")
}

// ReadRelease returns the release information of an entry from listsDir.
// InRelease is preferred over Release. It returns nil, nil when neither exists.
func ReadRelease(listsDir string, e *Entry) (*Release, error) {
	base := filepath.Join(listsDir, ReleaseBase(e))
	for _, name := range []string{base + "_InRelease", base + "_Release"} {
		rel, err := parseReleaseFile(name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return rel, nil
	}
	return nil, nil
}

// parseReleaseFile reads the identifying fields of a release file.
// Signed InRelease files are handled by stopping at the signature block.
func parseReleaseFile(path string) (*Release, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rel := &Release{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "-----BEGIN PGP SIGNATURE") {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.HasPrefix(line, " ") {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Origin":
			rel.Origin = value
		case "Label":
			rel.Label = value
		case "Codename":
			rel.Codename = value
		case "Suite":
			rel.Suite = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rel, nil
}
