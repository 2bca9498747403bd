package agent

import (
	"testing"

	"foreman/internal/store"
)

func TestParseDecision_Run(t *testing.T) {
	output := `ACTION: RUN
COMMAND: prime
MESSAGE:
Loading your project context now.`

	d := ParseDecision(output)
	if d.Kind != DecideRun {
		t.Fatalf("expected run, got %s", d.Kind)
	}
	if d.Command != store.CommandPrime {
		t.Errorf("expected prime, got %s", d.Command)
	}
	if d.Message != "Loading your project context now." {
		t.Errorf("unexpected message %q", d.Message)
	}
}

func TestParseDecision_RunWithArgs(t *testing.T) {
	output := `ACTION: RUN
COMMAND: plan-feature
ARGS: user authentication
MESSAGE:
Planning the authentication feature.`

	d := ParseDecision(output)
	if d.Kind != DecideRun {
		t.Fatalf("expected run, got %s", d.Kind)
	}
	if d.Command != store.CommandPlan {
		t.Errorf("expected plan-feature, got %s", d.Command)
	}
	if d.Args != "user authentication" {
		t.Errorf("unexpected args %q", d.Args)
	}
}

func TestParseDecision_Clarify(t *testing.T) {
	output := `ACTION: CLARIFY
MESSAGE:
Should the app support multiple users or just one?`

	d := ParseDecision(output)
	if d.Kind != DecideClarify {
		t.Fatalf("expected clarify, got %s", d.Kind)
	}
	if d.Message != "Should the app support multiple users or just one?" {
		t.Errorf("unexpected message %q", d.Message)
	}
}

func TestParseDecision_PlainTextFallsBackToReply(t *testing.T) {
	output := "That sounds like a great idea! Tell me more about your users."

	d := ParseDecision(output)
	if d.Kind != DecideReply {
		t.Fatalf("expected reply, got %s", d.Kind)
	}
	if d.Message != output {
		t.Errorf("expected full output as message, got %q", d.Message)
	}
}

func TestParseDecision_RunWithoutCommandBecomesReply(t *testing.T) {
	output := `ACTION: RUN
MESSAGE:
I would like to run something.`

	d := ParseDecision(output)
	if d.Kind != DecideReply {
		t.Fatalf("expected reply fallback, got %s", d.Kind)
	}
}

func TestParseDecision_CommandAliases(t *testing.T) {
	cases := []struct {
		raw  string
		want store.CommandType
	}{
		{"prime", store.CommandPrime},
		{"plan", store.CommandPlan},
		{"plan-feature", store.CommandPlan},
		{"implement", store.CommandImplement},
		{"execute", store.CommandImplement},
		{"validate", store.CommandValidate},
		{"`validate`", store.CommandValidate},
	}
	for _, tc := range cases {
		if got := parseCommand(tc.raw); got != tc.want {
			t.Errorf("parseCommand(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseDecision_CaseInsensitiveHeaders(t *testing.T) {
	output := "action: run\ncommand: Validate\nmessage:\nRunning validation."

	d := ParseDecision(output)
	if d.Kind != DecideRun {
		t.Fatalf("expected run, got %s", d.Kind)
	}
	if d.Command != store.CommandValidate {
		t.Errorf("expected validate, got %s", d.Command)
	}
}
