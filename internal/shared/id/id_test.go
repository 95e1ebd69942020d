package id

import (
	"strings"
	"testing"
	"time"
)

func TestNewScriptID(t *testing.T) {
	sid := NewScriptID()
	if !strings.HasPrefix(sid.String(), "scr_") {
		t.Errorf("Expected scr_ prefix, got %s", sid)
	}
	if !IsValid(sid.String()) {
		t.Errorf("Generated ID should be valid: %s", sid)
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[ScriptID]bool)
	for i := 0; i < 1000; i++ {
		sid := NewScriptID()
		if seen[sid] {
			t.Fatalf("Duplicate ID generated: %s", sid)
		}
		seen[sid] = true
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	sid := NewRequestID()
	after := time.Now().Add(time.Second)

	ts, err := Timestamp(sid.String())
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.Before(before) || ts.After(after) {
		t.Errorf("Timestamp %v outside expected window [%v, %v]", ts, before, after)
	}
}

func TestIsValidRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "scr_", "no-separator", "scr_notaulid"} {
		if IsValid(s) {
			t.Errorf("IsValid(%q) should be false", s)
		}
	}
}
