package orders

import (
	"regexp"
	"testing"
)

func TestNewOrderNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-[0-9A-Z]+-[0-9A-Z]{4}$`)
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		n := NewOrderNumber()
		if !pattern.MatchString(n) {
			t.Fatalf("unexpected order number format: %s", n)
		}
		seen[n] = true
	}

	// 50 draws in the same second should not all collide.
	if len(seen) < 2 {
		t.Fatalf("expected varied order numbers, got %d distinct", len(seen))
	}
}
