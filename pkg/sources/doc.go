// Package sources reads and writes APT sources.list files.
// It is the entry store behind channel enable/disable operations: entries
// are toggled by commenting them out, new entries are appended to a
// per-channel drop-in file, and modified files are replaced atomically.
package sources
