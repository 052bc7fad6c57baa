package domain_test

import (
	"strings"
	"testing"

	"extman/internal/modules/extension/domain"
)

func TestIsDisallowedIgnoresASCIICase(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"Path", "PATH", "path", "ld_preload", "Ld_Preload", "comspec", "SYSTEMROOT", "WINDIR"} {
		if !domain.IsDisallowed(name) {
			t.Fatalf("expected %q to be disallowed", name)
		}
	}
	for _, name := range []string{"MY_APP_KEY", "API_KEY", "HOME", "PATH_EXTRA", " PATH", "LD_PRELOAD2", ""} {
		if domain.IsDisallowed(name) {
			t.Fatalf("expected %q to be allowed", name)
		}
	}
}

func TestIsDisallowedDoesNotFoldUnicode(t *testing.T) {
	t.Parallel()
	// U+017F LATIN SMALL LETTER LONG S folds to "s" under Unicode rules only.
	name := "\u017FESSIONNAME"
	if !strings.EqualFold(name, "SESSIONNAME") {
		t.Fatalf("test precondition: unicode folding should match")
	}
	if domain.IsDisallowed(name) {
		t.Fatalf("non-ASCII bytes must be compared exactly")
	}
}

func TestDisallowedKeysIsCompleteAndCopied(t *testing.T) {
	t.Parallel()
	keys := domain.DisallowedKeys()
	if len(keys) != 31 {
		t.Fatalf("expected 31 denylisted keys, got %d", len(keys))
	}
	for _, key := range keys {
		if !domain.IsDisallowed(key) {
			t.Fatalf("listed key %q not disallowed", key)
		}
	}
	keys[0] = "MUTATED"
	if domain.DisallowedKeys()[0] != "PATH" {
		t.Fatalf("denylist must not be mutable through the returned slice")
	}
}
