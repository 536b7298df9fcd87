package checksum

import "testing"

func TestSum_Deterministic(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hello"))
	if a != b {
		t.Errorf("Sum not deterministic: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("len(Sum) = %d, want 64", len(a))
	}
}

func TestShort_Prefix(t *testing.T) {
	full := Sum([]byte("media.png"))
	short := Short([]byte("media.png"))
	if len(short) != 16 {
		t.Fatalf("len(Short) = %d, want 16", len(short))
	}
	if full[:16] != short {
		t.Errorf("Short = %q, want prefix of %q", short, full)
	}
}

func TestSortField_Rolling(t *testing.T) {
	// h = h*239 + codepoint, 32-bit wrap.
	if got := SortField(""); got != 0 {
		t.Errorf("SortField(\"\") = %d, want 0", got)
	}
	if got := SortField("A"); got != 65 {
		t.Errorf("SortField(\"A\") = %d, want 65", got)
	}
	// "AB" = 65*239 + 66
	if got := SortField("AB"); got != 65*239+66 {
		t.Errorf("SortField(\"AB\") = %d, want %d", got, 65*239+66)
	}
}

func TestSortField_Unicode(t *testing.T) {
	// Iterates codepoints, not bytes.
	if got := SortField("é"); got != 0xE9 {
		t.Errorf("SortField(\"é\") = %d, want %d", got, 0xE9)
	}
}

func TestSortField_Stable(t *testing.T) {
	if SortField("Bonjour") != SortField("Bonjour") {
		t.Error("SortField not stable for identical input")
	}
}
