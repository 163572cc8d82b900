// Package channels implements the relation and resolution engine for update channels.
//
// # Overview
//
// A channel is a named group of repository entries that is enabled or
// disabled as a unit. Channels declare three kinds of relations:
//
//   - Dependency: the target channel must be enabled first
//   - Conflict: the target channel must be disabled first
//   - Provider: at most one enabled channel may provide a given provider
//
// A dependency or conflict target ending in ".provider" refers to a provider
// rather than a channel, e.g. "semplice-base.provider" is satisfied by any
// enabled channel that provides "semplice-base".
//
// # Resolution
//
// The Resolver builds the relation set of every channel from a Registry and
// answers three questions for a requested action:
//
//	ok, _ := resolver.IsEnableable("sample")        // cheap feasibility check
//	blockers, _ := resolver.Blockers("sample", channels.ActionEnable)
//	plan, _ := resolver.Solution("sample", channels.ActionEnable)
//
// A Plan is the ordered, deduplicated list of steps required to perform the
// action, with the requested step last. Computing a plan never changes the
// registry. Relation graphs may contain cycles; a channel that reappears in
// the active resolution chain fails the request with a NoSolution error.
//
// # Execution
//
// The Executor applies plans step by step through Entity.Enable and
// Entity.Disable. The first failing step aborts the plan with an
// EntityOperationFailed error identifying the step; earlier steps are not
// rolled back because the underlying entry store is not transactional.
//
// Component-level operations change a single repository entry of a channel.
// Only proposed components can be disabled individually.
//
// # Concurrency
//
// Resolver and Executor are not safe for concurrent use against the same
// registry. A plan is computed from the registry state at the time of the
// call and becomes stale as soon as any channel changes state.
package channels
