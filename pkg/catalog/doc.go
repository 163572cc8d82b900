// Package catalog loads channel and provider definitions.
//
// A catalog directory holds one file per definition:
//
//	semplice-current.channel   # YAML channel definition
//	semplice-base.provider     # YAML provider definition
//
// A channel file looks like this:
//
//	name: Semplice current
//	description: Rolling Semplice repositories
//	depends: [debian-sid]
//	provides: [semplice-base]
//	repositories:
//	  - name: main
//	    default_mirror: http://repo.semplice-project.org/semplice
//	    origin: Semplice
//	    codename: current
//	    components: [main, contrib]
//	  - name: proposed
//	    default_mirror: http://repo.semplice-project.org/semplice
//	    codename: current-proposed
//	    components: [main]
//	    proposed: true
//
// Definitions can also be grouped in .cue files with top-level "channels"
// and "providers" structs keyed by name. Other channels refer to a provider
// with the ".provider" suffix, e.g. "semplice-base.provider".
package catalog
