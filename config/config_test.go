package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coachpo/slotpool/errs"
)

const sampleDocument = `
pools:
  - name: decoder
    capacity: 8
    waitTimeout: 250ms
  - name: session
    capacity: 2
`

func TestParseSettings(t *testing.T) {
	settings, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(settings.Pools) != 2 {
		t.Fatalf("expected 2 pool specs, got %d", len(settings.Pools))
	}

	decoder, ok := settings.Spec("decoder")
	if !ok {
		t.Fatal("expected decoder spec")
	}
	if decoder.Capacity != 8 {
		t.Fatalf("expected capacity 8, got %d", decoder.Capacity)
	}
	if decoder.WaitTimeout != 250*time.Millisecond {
		t.Fatalf("expected 250ms wait timeout, got %s", decoder.WaitTimeout)
	}

	session, ok := settings.Spec("session")
	if !ok {
		t.Fatal("expected session spec")
	}
	if session.WaitTimeout != 0 {
		t.Fatalf("expected absent wait timeout to decode as zero, got %s", session.WaitTimeout)
	}
}

func TestParseRejectsInvalidSpecs(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"zero capacity", "pools:\n  - name: decoder\n    capacity: 0\n"},
		{"negative capacity", "pools:\n  - name: decoder\n    capacity: -3\n"},
		{"missing name", "pools:\n  - capacity: 4\n"},
		{"duplicate name", "pools:\n  - name: decoder\n    capacity: 4\n  - name: decoder\n    capacity: 4\n"},
		{"negative wait timeout", "pools:\n  - name: decoder\n    capacity: 4\n    waitTimeout: -1s\n"},
		{"malformed yaml", "pools: ["},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !errs.IsCode(err, errs.CodeInvalidConfig) {
				t.Fatalf("expected invalid_config code, got %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.yaml")
	if err := os.WriteFile(path, []byte(sampleDocument), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := settings.Spec("decoder"); !ok {
		t.Fatal("expected decoder spec after Load")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSpecLookupMiss(t *testing.T) {
	settings, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := settings.Spec("unknown"); ok {
		t.Fatal("expected lookup miss for unknown pool")
	}
}
