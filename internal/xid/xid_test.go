package xid

import (
	"strings"
	"testing"
)

func TestNewKeepsPrefixAndIsUnique(t *testing.T) {
	seen := map[string]bool{}
	prev := ""
	for i := 0; i < 100; i++ {
		id := New("mv")
		if !strings.HasPrefix(id, "mv-") {
			t.Fatalf("expected mv- prefix, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		if prev != "" && id < prev {
			t.Fatalf("expected ids to sort by creation, %q came after %q", id, prev)
		}
		seen[id] = true
		prev = id
	}
}
