// Package manager runs channel operations for the froyo-channels command.
//
// A Service owns the catalog, the policy engine and the operation history.
// Every operation re-reads the apt sources, rebuilds the registry and
// resolver, runs through the policy gates and is recorded with its plan,
// applied steps and outcome. Operations are serialized.
package manager
