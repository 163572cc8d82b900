package policy

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openfroyo/channels/pkg/catalog"
	"github.com/openfroyo/channels/pkg/channels"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	cat := catalog.New("")
	cat.Channels["debian-sid"] = &catalog.Channel{Name: "debian-sid", Title: "Debian sid", Essential: true}
	cat.Channels["semplice-current"] = &catalog.Channel{Name: "semplice-current", Title: "Semplice current"}
	if err := eng.SetCatalog(cat); err != nil {
		t.Fatalf("Failed to set catalog: %v", err)
	}
	return eng
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	policies := eng.ListPolicies()
	expected := []string{"essential-channels", "proposed-components"}
	if len(policies) != len(expected) {
		t.Fatalf("Expected %d built-in policies, got %d", len(expected), len(policies))
	}
	for i, name := range expected {
		if policies[i].Name != name {
			t.Errorf("Expected policy %s at %d, got %s", name, i, policies[i].Name)
		}
		if !policies[i].Builtin {
			t.Errorf("Expected %s to be built-in", name)
		}
	}
}

func TestAuthorizePlan_EssentialChannels(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		steps       channels.Plan
		expectAllow bool
	}{
		{
			name: "disable regular channel",
			steps: channels.Plan{
				{Channel: "semplice-current", Action: channels.ActionDisable},
			},
			expectAllow: true,
		},
		{
			name: "enable essential channel",
			steps: channels.Plan{
				{Channel: "debian-sid", Action: channels.ActionEnable},
			},
			expectAllow: true,
		},
		{
			name: "disable essential channel as a side effect",
			steps: channels.Plan{
				{Channel: "debian-sid", Action: channels.ActionDisable},
				{Channel: "semplice-current", Action: channels.ActionEnable},
			},
			expectAllow: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := tt.steps[len(tt.steps)-1]
			err := eng.AuthorizePlan(ctx, channels.PlanRequest{
				Channel: last.Channel,
				Action:  last.Action,
				Steps:   tt.steps,
			})

			if tt.expectAllow && err != nil {
				t.Fatalf("Expected plan to be allowed, got %v", err)
			}
			if !tt.expectAllow {
				if !channels.IsPolicyDenied(err) {
					t.Fatalf("Expected policy denial, got %v", err)
				}
				if !strings.Contains(err.Error(), "essential channel debian-sid cannot be disabled") {
					t.Errorf("Unexpected denial message: %v", err)
				}
			}
		})
	}
}

func TestAuthorizeComponent(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	err := eng.AuthorizeComponent(ctx, channels.ComponentRequest{
		Channel:   "semplice-current",
		Component: "main",
		Action:    channels.ActionDisable,
		Proposed:  false,
		Enabled:   true,
	})
	if !channels.IsPolicyDenied(err) {
		t.Fatalf("Expected policy denial for non-proposed component, got %v", err)
	}
	var chErr *channels.Error
	if e, ok := err.(*channels.Error); ok {
		chErr = e
	}
	if chErr == nil || chErr.Component != "main" {
		t.Errorf("Expected denial to carry the component, got %+v", err)
	}

	// Warnings do not block.
	err = eng.AuthorizeComponent(ctx, channels.ComponentRequest{
		Channel:   "semplice-current",
		Component: "proposed",
		Action:    channels.ActionEnable,
		Proposed:  true,
	})
	if err != nil {
		t.Fatalf("Expected proposed component enable to be allowed, got %v", err)
	}
}

func TestEvaluate_Warnings(t *testing.T) {
	eng := newTestEngine(t)

	result, err := eng.Evaluate(context.Background(), &Input{
		Operation: OperationComponent,
		Channel:   "semplice-current",
		Action:    string(channels.ActionEnable),
		Component: "proposed",
		Proposed:  true,
	})
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}
	if !result.Allowed {
		t.Error("Expected operation to be allowed")
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(result.Warnings))
	}
	if result.Warnings[0].Policy != "proposed-components" || result.Warnings[0].Severity != SeverityWarning {
		t.Errorf("Unexpected warning: %+v", result.Warnings[0])
	}
	if len(result.EvaluatedPolicies) != 2 {
		t.Errorf("Expected 2 evaluated policies, got %v", result.EvaluatedPolicies)
	}
}

func TestEnableDisablePolicy(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	req := channels.PlanRequest{
		Channel: "debian-sid",
		Action:  channels.ActionDisable,
		Steps:   channels.Plan{{Channel: "debian-sid", Action: channels.ActionDisable}},
	}

	if err := eng.DisablePolicy("essential-channels"); err != nil {
		t.Fatalf("Failed to disable policy: %v", err)
	}
	if err := eng.AuthorizePlan(ctx, req); err != nil {
		t.Errorf("Expected plan to be allowed with policy disabled, got %v", err)
	}

	if err := eng.EnablePolicy("essential-channels"); err != nil {
		t.Fatalf("Failed to enable policy: %v", err)
	}
	if err := eng.AuthorizePlan(ctx, req); err == nil {
		t.Error("Expected plan to be denied with policy enabled")
	}

	if err := eng.EnablePolicy("non-existent"); err == nil {
		t.Error("Expected error for non-existent policy")
	}
}

func TestLoadPolicies_Custom(t *testing.T) {
	eng := newTestEngine(t)
	dir := writePolicies(t, map[string]string{
		"no-testing.rego": `package site.channels

import rego.v1

# Testing channels are not allowed.
deny contains msg if {
	input.operation == "plan"
	some step in input.steps
	step.action == "enable"
	startswith(step.channel, "testing-")
	msg := sprintf("%s is not allowed", [step.channel])
}`,
	})

	if err := eng.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("Failed to load policies: %v", err)
	}

	p, err := eng.GetPolicy("no-testing")
	if err != nil {
		t.Fatalf("Expected custom policy to be loaded: %v", err)
	}
	if p.Description != "Testing channels are not allowed." {
		t.Errorf("Unexpected description %q", p.Description)
	}

	err = eng.AuthorizePlan(context.Background(), channels.PlanRequest{
		Channel: "testing-extras",
		Action:  channels.ActionEnable,
		Steps:   channels.Plan{{Channel: "testing-extras", Action: channels.ActionEnable}},
	})
	if !channels.IsPolicyDenied(err) {
		t.Fatalf("Expected custom policy denial, got %v", err)
	}
	if !strings.Contains(err.Error(), "testing-extras is not allowed") {
		t.Errorf("Unexpected denial message: %v", err)
	}
}

func TestReplacePolicies(t *testing.T) {
	eng := newTestEngine(t)

	custom := []Policy{{
		Name:    "custom",
		Rego:    "package custom\n\nimport rego.v1\n\ndeny contains \"always\" if { true }",
		Enabled: true,
	}}
	if err := eng.ReplacePolicies(custom); err != nil {
		t.Fatalf("Failed to replace policies: %v", err)
	}
	if len(eng.ListPolicies()) != 3 {
		t.Fatalf("Expected built-ins plus custom policy, got %d", len(eng.ListPolicies()))
	}

	if err := eng.ReplacePolicies(nil); err != nil {
		t.Fatalf("Failed to replace policies: %v", err)
	}
	if _, err := eng.GetPolicy("custom"); err == nil {
		t.Error("Expected custom policy to be removed")
	}
	if _, err := eng.GetPolicy("essential-channels"); err != nil {
		t.Error("Expected built-in policy to survive replacement")
	}

	broken := []Policy{{Name: "broken", Rego: "package", Enabled: true}}
	if err := eng.ReplacePolicies(broken); err == nil {
		t.Error("Expected compile error for broken policy")
	}
	if len(eng.ListPolicies()) != 2 {
		t.Errorf("Expected failed replacement to keep previous policies, got %d", len(eng.ListPolicies()))
	}
}
