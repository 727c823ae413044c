package keys

import (
	"strings"
	"testing"
)

func TestKeyShapes(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"meta", Meta("p", "person"), "rs:p:meta:idx:person"},
		{"token", Token("p", "person", "name", "a"), "rs:p:idx:person:name:a"},
		{"sort", Sort("p", "person", "age"), "rs:p:idx:person:age"},
		{"footprint", DocFootprint("p", "person", "42"), "rs:p:doc:person:42"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestEphemeralPrefixAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		k := Ephemeral("p", "person")
		if !strings.HasPrefix(k, "rs:p:idx:person:q:") {
			t.Fatalf("unexpected ephemeral key shape: %q", k)
		}
		if _, dup := seen[k]; dup {
			t.Fatalf("ephemeral key repeated: %q", k)
		}
		seen[k] = struct{}{}
	}
}

func TestIndexPatternsCoverAllKeyKinds(t *testing.T) {
	patterns := IndexPatterns("p", "person")
	if len(patterns) != 3 {
		t.Fatalf("expected 3 patterns, got %d", len(patterns))
	}
	wantPrefixes := []string{"rs:p:idx:person:", "rs:p:doc:person:", "rs:p:meta:idx:person"}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(patterns[i], prefix) {
			t.Errorf("pattern %d = %q, want prefix %q", i, patterns[i], prefix)
		}
	}
}
