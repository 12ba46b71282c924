package order

import (
	"strings"
	"testing"
)

func TestBetweenEmptyColumnDefault(t *testing.T) {
	k, err := Between(Key{}, Key{})
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	if k.String() != "i" {
		t.Fatalf("expected deterministic middle key, got %q", k)
	}
	again, err := Between(Key{}, Key{})
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	if again != k {
		t.Fatalf("empty-column insert not reproducible: %q vs %q", again, k)
	}
}

func TestBetweenStrictlyBounded(t *testing.T) {
	cases := []struct{ prev, next string }{
		{"a0", "a2"},
		{"a0", "a1"},
		{"a", "b"},
		{"az", "b"},
		{"0", "z"},
		{"", "1"},
		{"", "04"},
		{"", "01"},
		{"a", "a1"},
		{"zz", ""},
		{"a0", "b"},
		{"i", ""},
		{"", "i"},
	}
	for _, tc := range cases {
		var prev, next Key
		if tc.prev != "" {
			prev = MustParse(tc.prev)
		}
		if tc.next != "" {
			next = MustParse(tc.next)
		}
		k, err := Between(prev, next)
		if err != nil {
			t.Fatalf("between(%q, %q): %v", tc.prev, tc.next, err)
		}
		if !prev.IsZero() && k.Compare(prev) <= 0 {
			t.Fatalf("between(%q, %q) = %q not above lower bound", tc.prev, tc.next, k)
		}
		if !next.IsZero() && k.Compare(next) >= 0 {
			t.Fatalf("between(%q, %q) = %q not below upper bound", tc.prev, tc.next, k)
		}
		if strings.HasSuffix(k.String(), "0") {
			t.Fatalf("between(%q, %q) = %q ends in smallest digit", tc.prev, tc.next, k)
		}
	}
}

func TestBetweenScenarioMidSlot(t *testing.T) {
	// column order [T1 "a0", T2 "a2"], dropping T3 between them
	k, err := Between(MustParse("a0"), MustParse("a2"))
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	if k.String() != "a1" {
		t.Fatalf("expected a1, got %q", k)
	}
}

func TestInsertionStability(t *testing.T) {
	lo := MustParse("a0")
	hi := MustParse("a2")
	upper := hi
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		k, err := Between(lo, upper)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if !lo.Less(k) || !k.Less(hi) {
			t.Fatalf("insert %d: %q escaped (%q, %q)", i, k, lo, hi)
		}
		if seen[k.String()] {
			t.Fatalf("insert %d: duplicate key %q", i, k)
		}
		seen[k.String()] = true
		upper = k
	}
	// original neighbors are never touched
	if lo.String() != "a0" || hi.String() != "a2" {
		t.Fatalf("neighbor keys mutated: %q %q", lo, hi)
	}
}

func TestAppendStability(t *testing.T) {
	last, err := Between(Key{}, Key{})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	for i := 0; i < 100; i++ {
		k, err := Between(last, Key{})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if !last.Less(k) {
			t.Fatalf("append %d: %q not above %q", i, k, last)
		}
		last = k
	}
}

func TestPrependStability(t *testing.T) {
	first, err := Between(Key{}, Key{})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	for i := 0; i < 100; i++ {
		k, err := Between(Key{}, first)
		if err != nil {
			t.Fatalf("prepend %d: %v", i, err)
		}
		if !k.Less(first) {
			t.Fatalf("prepend %d: %q not below %q", i, k, first)
		}
		first = k
	}
}

func TestBetweenBoundsOutOfOrder(t *testing.T) {
	if _, err := Between(MustParse("b"), MustParse("a")); err == nil {
		t.Fatal("expected error for reversed bounds")
	}
	if _, err := Between(MustParse("a"), MustParse("a")); err == nil {
		t.Fatal("expected error for equal bounds")
	}
}

func TestBetweenNoRoom(t *testing.T) {
	// "a" < "a0" is ordered but nothing sorts between them
	if _, err := Between(MustParse("a"), MustParse("a0")); err == nil {
		t.Fatal("expected no-room error")
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, s := range []string{"", "A1", "a 1", "a-1", "ä"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("expected parse error for %q", s)
		}
	}
}

func TestKeyTextRoundTrip(t *testing.T) {
	k := MustParse("a1b")
	b, err := k.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Key
	if err := back.UnmarshalText(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != k {
		t.Fatalf("round trip mismatch: %q vs %q", back, k)
	}
	var zero Key
	if err := zero.UnmarshalText(nil); err != nil {
		t.Fatalf("unmarshal empty: %v", err)
	}
	if !zero.IsZero() {
		t.Fatalf("empty text should decode to zero key")
	}
}
