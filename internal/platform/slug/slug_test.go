package slug_test

import (
	"testing"

	"extman/internal/platform/slug"
)

func TestMake(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"My Tool":       "my-tool",
		"my-tool":       "my-tool",
		"  MY_TOOL  ":   "my-tool",
		"GitHub (beta)": "github-beta",
		"":              "untitled",
		"---":           "untitled",
	}
	for in, want := range cases {
		if got := slug.Make(in); got != want {
			t.Fatalf("Make(%q) = %q, want %q", in, got, want)
		}
	}
}
