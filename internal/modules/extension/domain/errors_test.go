package domain_test

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"extman/internal/modules/extension/domain"
)

func TestErrorMessages(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection refused")
	cases := []struct {
		err  *domain.Error
		want string
	}{
		{err: domain.NewInitializationError(domain.NewStdio("dev", "npx", "", 1), cause), want: "Failed to start the MCP server from configuration `Stdio(dev: npx)` `connection refused`"},
		{err: domain.NewClientError(cause), want: "Failed a client call to an MCP server: connection refused"},
		{err: domain.NewContextLimitError(), want: "User Message exceeded context-limit. History could not be truncated to accommodate."},
		{err: domain.NewTransportError(cause), want: "Transport error: connection refused"},
		{err: domain.NewInvalidEnvVarError("LD_PRELOAD"), want: "Environment variable `LD_PRELOAD` is not allowed to be overridden."},
		{err: domain.NewSetupError("missing %s", "GITHUB_TOKEN"), want: "Error during extension setup: missing GITHUB_TOKEN"},
		{err: domain.NewTaskJoinError(cause), want: "Join error occurred during task execution: connection refused"},
		{err: domain.NewIOError(io.ErrUnexpectedEOF), want: "IO error: unexpected EOF"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.err.Kind, got, tc.want)
		}
	}
}

func TestErrorMatchingAndUnwrap(t *testing.T) {
	t.Parallel()
	cause := io.ErrClosedPipe
	err := fmt.Errorf("activate: %w", domain.NewTransportError(cause))
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport kind match")
	}
	if errors.Is(err, domain.ErrClient) {
		t.Fatalf("kinds must not cross-match")
	}
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected cause to unwrap")
	}
	kind, ok := domain.KindOf(err)
	if !ok || kind != domain.KindTransport {
		t.Fatalf("unexpected kind: %v %v", kind, ok)
	}
	if _, ok := domain.KindOf(errors.New("plain")); ok {
		t.Fatalf("plain errors carry no kind")
	}
	if errors.Is(domain.NewInvalidEnvVarError("PATH"), domain.NewInvalidEnvVarError("TMP")) {
		t.Fatalf("non-sentinel targets should not match by kind alone")
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	if domain.KindInvalidEnvVar.String() != "invalid_env_var" {
		t.Fatalf("unexpected kind string %q", domain.KindInvalidEnvVar)
	}
	if !strings.HasPrefix(domain.Kind(99).String(), "kind(") {
		t.Fatalf("unknown kinds should render numerically")
	}
}
