package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSource(t *testing.T, root string, relative string, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relative))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCollectViolationsFlagsLayerBreaks(t *testing.T) {
	root := filepath.Join(t.TempDir(), "contexts")

	writeSource(t, root, "governance/poll-engine/domain/entities/poll.go", `package entities

import (
	"time"

	"arbiter/internal/platform/db"
)

var _ = time.Now
var _ = db.Connect
`)
	writeSource(t, root, "governance/poll-engine/application/commands/vote.go", `package commands

import (
	"arbiter/contexts/governance/poll-engine/ports"
	"arbiter/contexts/marketplace/job-escrow/domain/entities"
	"arbiter/internal/shared/events"
)
`)
	writeSource(t, root, "marketplace/job-escrow/domain/errors/errors.go", `package errors

import "arbiter/internal/shared/faults"
`)

	violations := collectViolations(root)
	rules := make(map[string]int)
	for _, v := range violations {
		rules[v.Rule]++
	}

	if rules["domain must not import runtime infrastructure"] != 1 {
		t.Fatalf("expected runtime infrastructure violation, got %+v", violations)
	}
	if rules["cross-service imports are forbidden"] != 1 {
		t.Fatalf("expected cross-service violation, got %+v", violations)
	}
	for _, v := range violations {
		if v.Import == "arbiter/internal/shared/faults" || v.Import == "arbiter/internal/shared/events" {
			t.Fatalf("shared import must be allowed: %+v", v)
		}
		if v.File == "contexts/marketplace/job-escrow/domain/errors/errors.go" {
			t.Fatalf("clean file flagged: %+v", v)
		}
	}
}

func TestIsStdlib(t *testing.T) {
	cases := map[string]bool{
		"context":                    true,
		"net/http":                   true,
		"arbiter/internal/shared":    false,
		"github.com/google/uuid":     false,
		"golang.org/x/sync/errgroup": false,
	}
	for path, want := range cases {
		if got := isStdlib(path); got != want {
			t.Fatalf("isStdlib(%q) = %v, want %v", path, got, want)
		}
	}
}
