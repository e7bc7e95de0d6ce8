package main

import (
	"strings"
	"testing"
)

func TestBadgeCmd_Help(t *testing.T) {
	out, err := runCmd(t, "badge", "--help")
	if err != nil {
		t.Fatalf("badge --help failed: %v", err)
	}

	if !strings.Contains(out, "Badge management") {
		t.Errorf("expected help to mention 'Badge management', got: %s", out)
	}
	for _, sub := range []string{"create", "list", "awards"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestNewBadgeCreateCmd(t *testing.T) {
	cmd := newBadgeCreateCmd()
	if cmd.Use != "create <name>" {
		t.Errorf("Use = %q, want %q", cmd.Use, "create <name>")
	}
	for _, name := range []string{"description", "icon", "color", "type", "coins", "life-area", "config"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag", name)
		}
	}
	typeFlag := cmd.Flags().Lookup("type")
	if typeFlag.DefValue != "completion" {
		t.Errorf("--type default = %q, want %q", typeFlag.DefValue, "completion")
	}
}

func TestBadgeCreateCmd_NoArgs(t *testing.T) {
	_, err := runCmd(t, "badge", "create")
	if err == nil {
		t.Fatal("expected error for missing name argument")
	}
}

func TestBadgeCreateAndList(t *testing.T) {
	cfgPath := initTestDB(t)

	out, err := runCmd(t, "badge", "create", "Trailblazer",
		"--config", cfgPath,
		"--coins", "50",
		"--life-area", "learning",
	)
	if err != nil {
		t.Fatalf("badge create failed: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Trailblazer") {
		t.Errorf("expected create output to name the badge, got: %s", out)
	}
	if !strings.Contains(out, "Coins reward: 50") {
		t.Errorf("expected coins reward in output, got: %s", out)
	}

	out, err = runCmd(t, "badge", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("badge list failed: %v", err)
	}
	// Both the seeded badge and the new one appear.
	for _, want := range []string{"Finisher", "Trailblazer", "learning"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected list to contain %q, got: %s", want, out)
		}
	}
}

func TestBadgeAwardsCmd_Empty(t *testing.T) {
	cfgPath := initTestDB(t)

	out, err := runCmd(t, "badge", "awards", "--config", cfgPath)
	if err != nil {
		t.Fatalf("badge awards failed: %v", err)
	}
	if !strings.Contains(out, "No awards found.") {
		t.Errorf("expected empty awards message, got: %s", out)
	}
}
