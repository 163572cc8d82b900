// Package registry exposes catalog channels as resolver entities.
//
// On creation the registry walks every binary sources entry and assigns it to
// the channel repositories it matches. A repository matches an entry when the
// entry's release file reports the repository origin (or, without release
// information, when the entry URI is the repository default mirror) and the
// codename equals the entry distribution or the release codename.
//
// Mutations go through the shared sources list and are saved immediately.
// Enabling a repository without a matching entry appends one to
// sources.list.d/<channel>.list using the default mirror.
package registry
