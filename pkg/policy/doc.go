// Package policy provides Open Policy Agent (OPA) gates for channel operations.
//
// The Engine evaluates Rego policies before a solution plan or a component
// change is applied. It implements channels.PlanGate and
// channels.ComponentGate, so it plugs directly into a channels.Executor:
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	if err := eng.SetCatalog(cat); err != nil {
//	    return err
//	}
//	executor := channels.NewExecutor(reg, resolver, logger,
//	    channels.WithPlanGate(eng),
//	    channels.WithComponentGate(eng),
//	)
//
// # Writing policies
//
// Every policy is a Rego module whose deny set lists violations. A violation
// is either a string or an object with "message", "severity" and "channel"
// keys. Violations with severity "error" or "critical" deny the operation;
// others are logged as warnings.
//
//	package site.channels
//
//	import rego.v1
//
//	# Testing channels are not allowed on this host.
//	deny contains violation if {
//	    input.operation == "plan"
//	    some step in input.steps
//	    step.action == "enable"
//	    startswith(step.channel, "testing-")
//	    violation := {"message": sprintf("%s is not allowed", [step.channel])}
//	}
//
// The input document has the following fields:
//
//	operation   "plan" or "component"
//	channel     the requested channel
//	action      "enable" or "disable"
//	steps       plan steps ({channel, action}), for plans
//	component   repository name, for component operations
//	proposed    whether the component is opt-in
//	enabled     whether the component is currently enabled
//
// Catalog metadata is available as data.channels, keyed by channel name.
//
// # Built-in policies
//
//   - essential-channels: plans may not disable channels marked essential
//   - proposed-components: only proposed repositories can be disabled one by
//     one; enabling one is reported as a warning
//
// Custom policies are loaded from .rego and .json files with Loader or
// Engine.LoadPolicies, and can be hot-reloaded with Loader.Watch and
// Engine.ReplacePolicies. Evaluation failures deny the operation.
package policy
