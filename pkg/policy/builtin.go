package policy

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		essentialChannelsPolicy(),
		proposedComponentsPolicy(),
	}
}

// essentialChannelsPolicy protects channels marked essential in the catalog.
func essentialChannelsPolicy() Policy {
	return Policy{
		Name:        "essential-channels",
		Description: "Plans may not disable channels marked essential in the catalog",
		Severity:    SeverityError,
		Enabled:     true,
		Builtin:     true,
		Rego: `package froyo.policies.essential

import rego.v1

deny contains violation if {
	input.operation == "plan"
	some step in input.steps
	step.action == "disable"
	data.channels[step.channel].essential == true
	violation := {
		"message": sprintf("essential channel %s cannot be disabled", [step.channel]),
		"severity": "error",
		"channel": step.channel,
	}
}`,
	}
}

// proposedComponentsPolicy restricts component-level changes to opt-in repositories.
func proposedComponentsPolicy() Policy {
	return Policy{
		Name:        "proposed-components",
		Description: "Component-level disable is only allowed on proposed repositories",
		Severity:    SeverityError,
		Enabled:     true,
		Builtin:     true,
		Rego: `package froyo.policies.components

import rego.v1

deny contains violation if {
	input.operation == "component"
	input.action == "disable"
	not input.proposed
	violation := {
		"message": sprintf("component %s of %s is not proposed", [input.component, input.channel]),
		"severity": "error",
		"channel": input.channel,
	}
}

# Opting into proposed updates is allowed but reported.
deny contains violation if {
	input.operation == "component"
	input.action == "enable"
	input.proposed
	violation := {
		"message": sprintf("enabling proposed component %s of %s", [input.component, input.channel]),
		"severity": "warning",
		"channel": input.channel,
	}
}`,
	}
}
