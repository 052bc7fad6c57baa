package domain_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"extman/internal/modules/extension/domain"
	apperrors "extman/internal/platform/errors"
	"extman/internal/platform/logging"
)

func roundTrip(t *testing.T, cfg domain.Config) domain.Config {
	t.Helper()
	raw, err := domain.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal %s: %v", cfg, err)
	}
	decoded, err := domain.Unmarshal(raw, logging.Discard())
	if err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	if domain.Name(decoded) != domain.Name(cfg) || domain.Key(decoded) != domain.Key(cfg) {
		t.Fatalf("identity changed: %s -> %s", cfg, decoded)
	}
	if domain.TransportOf(decoded) != domain.TransportOf(cfg) {
		t.Fatalf("variant changed: %s -> %s", cfg, decoded)
	}
	return decoded
}

func TestRoundTripStdio(t *testing.T) {
	t.Parallel()
	cfg := domain.WithArgs(domain.NewStdio("My Tool", "npx", "dev tools", 60), []string{"-y", "server"}).(*domain.StdioConfig)
	cfg.Envs = domain.NewEnvs(map[string]string{"API_KEY": "secret"}, logging.Discard())
	cfg.EnvKeys = []string{"GITHUB_TOKEN"}
	cfg.Bundled = domain.Ptr(false)

	got := roundTrip(t, cfg).(*domain.StdioConfig)
	if got.Cmd != "npx" || strings.Join(got.Args, " ") != "-y server" {
		t.Fatalf("unexpected command: %s %v", got.Cmd, got.Args)
	}
	if value, _ := got.Envs.Get("API_KEY"); value != "secret" {
		t.Fatalf("env lost: %+v", got.Envs.Snapshot())
	}
	if len(got.EnvKeys) != 1 || got.EnvKeys[0] != "GITHUB_TOKEN" {
		t.Fatalf("env keys lost: %v", got.EnvKeys)
	}
	if got.Bundled == nil || *got.Bundled {
		t.Fatalf("bundled=false should survive, got %v", got.Bundled)
	}
	if *got.Timeout != 60 || *got.Description != "dev tools" {
		t.Fatalf("metadata lost: %+v", got)
	}
}

func TestRoundTripRemoteVariants(t *testing.T) {
	t.Parallel()
	sse := domain.NewSSE("search", "http://localhost:8080/sse", "search", 30)
	gotSSE := roundTrip(t, sse).(*domain.SSEConfig)
	if gotSSE.URI != sse.URI || gotSSE.Bundled != nil {
		t.Fatalf("unexpected sse: %+v", gotSSE)
	}

	http := domain.NewStreamableHTTP("docs", "https://docs.example.com/mcp", "docs", 45)
	http.Headers["Authorization"] = "Bearer token"
	http.Envs = domain.NewEnvs(map[string]string{"REGION": "eu"}, logging.Discard())
	gotHTTP := roundTrip(t, http).(*domain.StreamableHTTPConfig)
	if gotHTTP.Headers["Authorization"] != "Bearer token" {
		t.Fatalf("headers lost: %v", gotHTTP.Headers)
	}
	if value, _ := gotHTTP.Envs.Get("REGION"); value != "eu" {
		t.Fatalf("envs lost: %v", gotHTTP.Envs.Snapshot())
	}
}

func TestRoundTripLocalVariants(t *testing.T) {
	t.Parallel()
	builtin := roundTrip(t, domain.Default()).(*domain.BuiltinConfig)
	if builtin.DisplayName == nil || *builtin.DisplayName != "Developer" || builtin.Bundled == nil || !*builtin.Bundled {
		t.Fatalf("unexpected builtin: %+v", builtin)
	}

	frontend := &domain.FrontendConfig{
		Name:         "ui",
		Tools:        []mcp.Tool{mcp.NewTool("open_file", mcp.WithDescription("Open a file in the editor"))},
		Instructions: domain.Ptr("call open_file to show files"),
	}
	gotFrontend := roundTrip(t, frontend).(*domain.FrontendConfig)
	if len(gotFrontend.Tools) != 1 || gotFrontend.Tools[0].Name != "open_file" || gotFrontend.Tools[0].Description != "Open a file in the editor" {
		t.Fatalf("tools lost: %+v", gotFrontend.Tools)
	}
	if gotFrontend.Instructions == nil || *gotFrontend.Instructions != "call open_file to show files" {
		t.Fatalf("instructions lost")
	}

	py := domain.NewInlinePython("py", "import requests", "fetcher", 20)
	py.Dependencies = []string{"requests"}
	gotPy := roundTrip(t, py).(*domain.InlinePythonConfig)
	if gotPy.Code != "import requests" || len(gotPy.Dependencies) != 1 {
		t.Fatalf("unexpected inline python: %+v", gotPy)
	}
	noDeps := roundTrip(t, domain.NewInlinePython("py", "x = 1", "", 1)).(*domain.InlinePythonConfig)
	if noDeps.Dependencies != nil {
		t.Fatalf("absent dependencies should stay absent: %v", noDeps.Dependencies)
	}
}

func TestMarshalFlattensEnvs(t *testing.T) {
	t.Parallel()
	cfg := domain.NewStdio("dev", "npx", "", 1)
	cfg.Envs = domain.EnvsFromMap(map[string]string{"API_KEY": "secret"})
	raw, err := domain.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	obj := map[string]any{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if obj["type"] != "stdio" || obj["API_KEY"] != "secret" {
		t.Fatalf("expected flattened env and type tag, got %s", raw)
	}
	if _, nested := obj["envs"]; nested {
		t.Fatalf("envs must not be nested: %s", raw)
	}
}

func TestMarshalRejectsEnvCollidingWithField(t *testing.T) {
	t.Parallel()
	cfg := domain.NewStdio("dev", "npx", "", 1)
	cfg.Envs = domain.EnvsFromMap(map[string]string{"timeout": "5"})
	if _, err := domain.Marshal(cfg); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected collision error, got %v", err)
	}
}

func TestRemoteVariantsKeepEnvsNamedLikeOtherVariantFields(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"sse args":      `{"type":"sse","name":"s","uri":"http://x/sse","args":"--fast","cmd":"run"}`,
		"http code":     `{"type":"streamable_http","name":"h","uri":"http://x/mcp","code":"abc","args":"1"}`,
		"stdio headers": `{"type":"stdio","name":"d","cmd":"npx","headers":"h","uri":"u"}`,
	}
	for name, raw := range cases {
		cfg, err := domain.Unmarshal([]byte(raw), logging.Discard())
		if err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		again := roundTrip(t, cfg)
		before, _, _ := domain.EnvsOf(cfg)
		after, _, _ := domain.EnvsOf(again)
		if before.Len() != 2 || strings.Join(before.Keys(), ",") != strings.Join(after.Keys(), ",") {
			t.Fatalf("%s: envs changed across round trip: %v -> %v", name, before.Keys(), after.Keys())
		}
	}
}

func TestUnmarshalLegacyRecord(t *testing.T) {
	t.Parallel()
	raw := `{"type":"stdio","name":"legacy","cmd":"uvx","args":["server"]}`
	cfg, err := domain.Unmarshal([]byte(raw), logging.Discard())
	if err != nil {
		t.Fatalf("legacy record should decode: %v", err)
	}
	stdio := cfg.(*domain.StdioConfig)
	if stdio.Timeout != nil {
		t.Fatalf("timeout should be absent, got %v", *stdio.Timeout)
	}
	if stdio.Envs.Len() != 0 || len(stdio.EnvKeys) != 0 {
		t.Fatalf("envs should be empty: %+v %v", stdio.Envs.Snapshot(), stdio.EnvKeys)
	}
	if stdio.Bundled != nil || stdio.Description != nil {
		t.Fatalf("bundled and description should be absent")
	}

	sse, err := domain.Unmarshal([]byte(`{"type":"sse","name":"old","uri":"http://x/sse","timeout":null}`), logging.Discard())
	if err != nil {
		t.Fatalf("null timeout should decode: %v", err)
	}
	if sse.(*domain.SSEConfig).Timeout != nil {
		t.Fatalf("null timeout should be absent")
	}
}

func TestUnmarshalFiltersDisallowedEnvs(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	raw := `{"type":"stdio","name":"dev","cmd":"npx","args":[],"API_KEY":"ok","ld_preload":"/tmp/evil.so","envs":{"Path":"/evil","HOST":"h"}}`
	cfg, err := domain.Unmarshal([]byte(raw), logging.New("test", "warn", buf))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	envs, _, _ := domain.EnvsOf(cfg)
	snap := envs.Snapshot()
	if len(snap) != 2 || snap["API_KEY"] != "ok" || snap["HOST"] != "h" {
		t.Fatalf("unexpected envs: %v", snap)
	}
	if err := envs.Validate(); err != nil {
		t.Fatalf("decoded envs should validate: %v", err)
	}
	if !strings.Contains(buf.String(), "ld_preload") || !strings.Contains(buf.String(), "Path") {
		t.Fatalf("expected warnings for dropped keys, got %q", buf.String())
	}
}

func TestUnmarshalErrors(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"not json":         `{`,
		"missing type":     `{"name":"x"}`,
		"unknown type":     `{"type":"websocket","name":"x"}`,
		"missing name":     `{"type":"builtin"}`,
		"missing uri":      `{"type":"sse","name":"x"}`,
		"missing cmd":      `{"type":"stdio","name":"x"}`,
		"missing code":     `{"type":"inline_python","name":"x"}`,
		"missing tools":    `{"type":"frontend","name":"x"}`,
		"bad timeout":      `{"type":"builtin","name":"x","timeout":"soon"}`,
		"non-string env":   `{"type":"stdio","name":"x","cmd":"y","RETRIES":3}`,
		"timeout overflow": `{"type":"builtin","name":"x","timeout":18446744073709551615}`,
		"trailing object":  `{"type":"builtin","name":"x"}{"type":"builtin","name":"y"}`,
		"trailing garbage": `{"type":"builtin","name":"x"} garbage`,
	}
	for name, raw := range cases {
		if _, err := domain.Unmarshal([]byte(raw), logging.Discard()); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input error, got %v", name, err)
		}
	}
}

func TestUnmarshalIgnoresUnknownFieldsOnEnvlessVariants(t *testing.T) {
	t.Parallel()
	cfg, err := domain.Unmarshal([]byte(`{"type":"builtin","name":"memory","extra":42}`), logging.Discard())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if domain.Name(cfg) != "memory" {
		t.Fatalf("unexpected name %q", domain.Name(cfg))
	}
}

func TestDescriptorEmbedsInDocuments(t *testing.T) {
	t.Parallel()
	doc := struct {
		Extensions []domain.Descriptor `json:"extensions"`
	}{Extensions: []domain.Descriptor{{Config: domain.Default()}, {Config: domain.NewSSE("s", "http://x/sse", "", 1)}}}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	doc.Extensions = nil
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Extensions) != 2 || domain.Name(doc.Extensions[1].Config) != "s" {
		t.Fatalf("unexpected descriptors: %+v", doc.Extensions)
	}
}
