package slug

import (
	"strings"
	"testing"
)

func TestMake(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"Rider 7":         "rider-7",
		"  ASHA@mail.io ": "asha-mail-io",
		"":                "anonymous",
		"***":             "anonymous",
	}
	for in, want := range cases {
		if got := Make(in); got != want {
			t.Fatalf("Make(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Make(strings.Repeat("a", 100)); len(got) != maxLength {
		t.Fatalf("expected truncation to %d, got %d", maxLength, len(got))
	}
}
