package sources

import (
	"fmt"
	"strings"
	"unicode"
)

// Entry types.
const (
	TypeDeb    = "deb"
	TypeDebSrc = "deb-src"
)

// Entry is a single line of a sources.list file.
type Entry struct {
	// Type is "deb" or "deb-src".
	Type string `json:"type"`

	// Options holds the bracketed option list, without brackets (e.g. "arch=amd64").
	Options string `json:"options,omitempty"`

	// URI is the repository base URI.
	URI string `json:"uri"`

	// Dist is the distribution (suite or codename).
	Dist string `json:"dist"`

	// Components lists the archive components (main, contrib, ...).
	Components []string `json:"components"`

	// Comment is the trailing comment, without the leading '#'.
	Comment string `json:"comment,omitempty"`

	// Disabled is true for commented-out entries.
	Disabled bool `json:"disabled"`

	// File is the sources file owning the entry.
	File string `json:"file"`

	// Invalid marks lines that are not entries (comments, blanks). They are
	// kept so that files are written back unchanged.
	Invalid bool `json:"-"`

	line string
	list *List
}

// ParseLine parses a single sources.list line. Lines that are not entries
// are returned with Invalid set.
func ParseLine(line, file string) *Entry {
	e := &Entry{File: file, line: line}

	text := strings.TrimSpace(line)
	if strings.HasPrefix(text, "#") {
		e.Disabled = true
		text = strings.TrimSpace(strings.TrimLeft(text, "#"))
	}

	if idx := strings.Index(text, "#"); idx >= 0 {
		e.Comment = strings.TrimSpace(text[idx+1:])
		text = strings.TrimSpace(text[:idx])
	}

	typ, rest := text, ""
	if idx := strings.IndexFunc(text, unicode.IsSpace); idx >= 0 {
		typ, rest = text[:idx], strings.TrimSpace(text[idx:])
	}

	if rest != "" && (typ == TypeDeb || typ == TypeDebSrc) {
		e.Type = typ

		if strings.HasPrefix(rest, "[") {
			end := strings.Index(rest, "]")
			if end < 0 {
				e.Invalid = true
				return e
			}
			e.Options = strings.TrimSpace(rest[1:end])
			rest = strings.TrimSpace(rest[end+1:])
		}

		fields := strings.Fields(rest)
		if len(fields) < 2 {
			e.Invalid = true
			return e
		}
		e.URI = fields[0]
		e.Dist = fields[1]
		e.Components = fields[2:]
		return e
	}

	e.Invalid = true
	return e
}

// String formats the entry as a sources.list line.
func (e *Entry) String() string {
	if e.Invalid {
		return e.line
	}

	var b strings.Builder
	if e.Disabled {
		b.WriteString("# ")
	}
	b.WriteString(e.Type)
	if e.Options != "" {
		fmt.Fprintf(&b, " [%s]", e.Options)
	}
	fmt.Fprintf(&b, " %s %s", e.URI, e.Dist)
	for _, c := range e.Components {
		b.WriteString(" ")
		b.WriteString(c)
	}
	if e.Comment != "" {
		fmt.Fprintf(&b, " # %s", e.Comment)
	}
	return b.String()
}

// NormalizedURI returns the URI with exactly one trailing slash.
func (e *Entry) NormalizedURI() string {
	return NormalizeURI(e.URI)
}

// NormalizeURI returns uri with exactly one trailing slash.
func NormalizeURI(uri string) string {
	return strings.TrimRight(uri, "/") + "/"
}

// SetEnabled enables or disables the entry and marks its file for saving.
func (e *Entry) SetEnabled(enabled bool) {
	if e.Invalid || e.Disabled == !enabled {
		return
	}
	e.Disabled = !enabled
	if e.list != nil {
		e.list.markDirty(e.File)
	}
}
