package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"extman/internal/platform/config"
	"extman/internal/platform/slug"
)

// TransportKind is the wire discriminator of a Config.
type TransportKind string

const (
	TransportSSE            TransportKind = "sse"
	TransportStdio          TransportKind = "stdio"
	TransportBuiltin        TransportKind = "builtin"
	TransportStreamableHTTP TransportKind = "streamable_http"
	TransportFrontend       TransportKind = "frontend"
	TransportInlinePython   TransportKind = "inline_python"
)

func (k TransportKind) Validate() error {
	switch k {
	case TransportSSE, TransportStdio, TransportBuiltin, TransportStreamableHTTP, TransportFrontend, TransportInlinePython:
		return nil
	default:
		return fmt.Errorf("unknown extension type: %q", string(k))
	}
}

// Config is one of *SSEConfig, *StdioConfig, *BuiltinConfig,
// *StreamableHTTPConfig, *FrontendConfig or *InlinePythonConfig.
type Config interface {
	fmt.Stringer
	extensionName() string
	transportKind() TransportKind
}

// SSEConfig reaches an extension over a server-sent events endpoint.
type SSEConfig struct {
	Name        string
	URI         string
	Envs        Envs
	EnvKeys     []string
	Description *string
	Timeout     *uint64
	Bundled     *bool
}

// StdioConfig spawns the extension and talks to it over stdin/stdout.
type StdioConfig struct {
	Name        string
	Cmd         string
	Args        []string
	Envs        Envs
	EnvKeys     []string
	Description *string
	Timeout     *uint64
	Bundled     *bool
}

// BuiltinConfig names an extension compiled into the host application.
type BuiltinConfig struct {
	Name        string
	DisplayName *string
	Description *string
	Timeout     *uint64
	Bundled     *bool
}

// StreamableHTTPConfig reaches an extension over streamable HTTP.
type StreamableHTTPConfig struct {
	Name        string
	URI         string
	Envs        Envs
	EnvKeys     []string
	Headers     map[string]string
	Description *string
	Timeout     *uint64
	Bundled     *bool
}

// FrontendConfig carries tools that the caller executes itself.
type FrontendConfig struct {
	Name         string
	Tools        []mcp.Tool
	Instructions *string
	Bundled      *bool
}

// InlinePythonConfig runs embedded Python source with its package dependencies.
type InlinePythonConfig struct {
	Name         string
	Code         string
	Description  *string
	Timeout      *uint64
	Dependencies []string
}

func (c *SSEConfig) extensionName() string            { return c.Name }
func (c *StdioConfig) extensionName() string          { return c.Name }
func (c *BuiltinConfig) extensionName() string        { return c.Name }
func (c *StreamableHTTPConfig) extensionName() string { return c.Name }
func (c *FrontendConfig) extensionName() string       { return c.Name }
func (c *InlinePythonConfig) extensionName() string   { return c.Name }

func (c *SSEConfig) transportKind() TransportKind            { return TransportSSE }
func (c *StdioConfig) transportKind() TransportKind          { return TransportStdio }
func (c *BuiltinConfig) transportKind() TransportKind        { return TransportBuiltin }
func (c *StreamableHTTPConfig) transportKind() TransportKind { return TransportStreamableHTTP }
func (c *FrontendConfig) transportKind() TransportKind       { return TransportFrontend }
func (c *InlinePythonConfig) transportKind() TransportKind   { return TransportInlinePython }

func (c *SSEConfig) String() string {
	return fmt.Sprintf("SSE(%s: %s)", c.Name, c.URI)
}

func (c *StreamableHTTPConfig) String() string {
	return fmt.Sprintf("StreamableHttp(%s: %s)", c.Name, c.URI)
}

func (c *StdioConfig) String() string {
	if len(c.Args) == 0 {
		return fmt.Sprintf("Stdio(%s: %s)", c.Name, c.Cmd)
	}
	return fmt.Sprintf("Stdio(%s: %s %s)", c.Name, c.Cmd, strings.Join(c.Args, " "))
}

func (c *BuiltinConfig) String() string {
	return fmt.Sprintf("Builtin(%s)", c.Name)
}

func (c *FrontendConfig) String() string {
	return fmt.Sprintf("Frontend(%s: %d tools)", c.Name, len(c.Tools))
}

func (c *InlinePythonConfig) String() string {
	// Length is in bytes, matching how other hosts summarize the same record.
	return fmt.Sprintf("InlinePython(%s: %d chars)", c.Name, len(c.Code))
}

func Ptr[T any](v T) *T {
	return &v
}

func NewSSE(name, uri, description string, timeout uint64) *SSEConfig {
	return &SSEConfig{
		Name:        name,
		URI:         uri,
		Envs:        Envs{},
		EnvKeys:     []string{},
		Description: Ptr(description),
		Timeout:     Ptr(timeout),
	}
}

func NewStreamableHTTP(name, uri, description string, timeout uint64) *StreamableHTTPConfig {
	return &StreamableHTTPConfig{
		Name:        name,
		URI:         uri,
		Envs:        Envs{},
		EnvKeys:     []string{},
		Headers:     map[string]string{},
		Description: Ptr(description),
		Timeout:     Ptr(timeout),
	}
}

// NewStdio leaves Args empty; use WithArgs to set them.
func NewStdio(name, cmd, description string, timeout uint64) *StdioConfig {
	return &StdioConfig{
		Name:        name,
		Cmd:         cmd,
		Args:        []string{},
		Envs:        Envs{},
		EnvKeys:     []string{},
		Description: Ptr(description),
		Timeout:     Ptr(timeout),
	}
}

func NewInlinePython(name, code, description string, timeout uint64) *InlinePythonConfig {
	return &InlinePythonConfig{
		Name:        name,
		Code:        code,
		Description: Ptr(description),
		Timeout:     Ptr(timeout),
	}
}

// Default is the configuration used when none is supplied.
func Default() Config {
	return &BuiltinConfig{
		Name:        config.DefaultExtension,
		DisplayName: Ptr(config.DefaultDisplayName),
		Timeout:     Ptr(config.DefaultExtensionTimeout),
		Bundled:     Ptr(true),
	}
}

// WithArgs returns a copy of a stdio config carrying args. Every other variant
// is returned as-is.
func WithArgs(cfg Config, args []string) Config {
	stdio, ok := cfg.(*StdioConfig)
	if !ok {
		return cfg
	}
	out := *stdio
	out.Args = append([]string{}, args...)
	return &out
}

func Name(cfg Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.extensionName()
}

// Key is the lookup identity of cfg. Configs with equal keys are the same
// extension.
func Key(cfg Config) string {
	return slug.Make(Name(cfg))
}

func SameExtension(a, b Config) bool {
	return Key(a) == Key(b)
}

func TransportOf(cfg Config) TransportKind {
	if cfg == nil {
		return ""
	}
	return cfg.transportKind()
}

func Render(cfg Config) string {
	if cfg == nil {
		return "<nil>"
	}
	return cfg.String()
}

// EnvsOf returns the env overrides and env key references of env-bearing
// variants. ok is false for builtin, frontend and inline_python.
func EnvsOf(cfg Config) (envs Envs, envKeys []string, ok bool) {
	switch c := cfg.(type) {
	case *SSEConfig:
		return c.Envs, c.EnvKeys, true
	case *StdioConfig:
		return c.Envs, c.EnvKeys, true
	case *StreamableHTTPConfig:
		return c.Envs, c.EnvKeys, true
	default:
		return Envs{}, nil, false
	}
}

// TimeoutOf reports the configured timeout. ok is false when the transport
// default applies.
// MaxTimeoutSeconds is the largest timeout that still fits a time.Duration.
const MaxTimeoutSeconds = uint64(math.MaxInt64 / int64(time.Second))

func TimeoutOf(cfg Config) (time.Duration, bool) {
	timeout := timeoutSeconds(cfg)
	if timeout == nil {
		return 0, false
	}
	seconds := *timeout
	if seconds > MaxTimeoutSeconds {
		seconds = MaxTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second, true
}

func timeoutSeconds(cfg Config) *uint64 {
	switch c := cfg.(type) {
	case *SSEConfig:
		return c.Timeout
	case *StdioConfig:
		return c.Timeout
	case *BuiltinConfig:
		return c.Timeout
	case *StreamableHTTPConfig:
		return c.Timeout
	case *InlinePythonConfig:
		return c.Timeout
	default:
		return nil
	}
}

func validateTimeout(cfg Config) error {
	if timeout := timeoutSeconds(cfg); timeout != nil && *timeout > MaxTimeoutSeconds {
		return fmt.Errorf("extension %q: timeout %d exceeds %d seconds", Name(cfg), *timeout, MaxTimeoutSeconds)
	}
	return nil
}

// BundledOf reports the bundled flag; ok is false when it is unspecified.
func BundledOf(cfg Config) (bundled bool, ok bool) {
	var flag *bool
	switch c := cfg.(type) {
	case *SSEConfig:
		flag = c.Bundled
	case *StdioConfig:
		flag = c.Bundled
	case *BuiltinConfig:
		flag = c.Bundled
	case *StreamableHTTPConfig:
		flag = c.Bundled
	case *FrontendConfig:
		flag = c.Bundled
	}
	if flag == nil {
		return false, false
	}
	return *flag, true
}

// Validate checks the fields a transport cannot work without.
func Validate(cfg Config) error {
	if cfg == nil {
		return fmt.Errorf("extension config is required")
	}
	if strings.TrimSpace(Name(cfg)) == "" {
		return fmt.Errorf("extension name is required")
	}
	if err := validateTimeout(cfg); err != nil {
		return err
	}
	switch c := cfg.(type) {
	case *SSEConfig:
		if c.URI == "" {
			return fmt.Errorf("sse extension %q: uri is required", c.Name)
		}
	case *StreamableHTTPConfig:
		if c.URI == "" {
			return fmt.Errorf("streamable_http extension %q: uri is required", c.Name)
		}
	case *StdioConfig:
		if c.Cmd == "" {
			return fmt.Errorf("stdio extension %q: cmd is required", c.Name)
		}
	case *InlinePythonConfig:
		if c.Code == "" {
			return fmt.Errorf("inline_python extension %q: code is required", c.Name)
		}
	}
	return nil
}
