package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"

	apperrors "extman/internal/platform/errors"
)

const typeField = "type"

// Marshal encodes cfg in its wire shape. Env overrides are written as
// top-level string members next to the variant fields.
func Marshal(cfg Config) ([]byte, error) {
	obj, err := toWire(cfg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// Unmarshal decodes the wire shape. Env overrides pass through NewEnvs, so
// denylisted keys are dropped with a warning on logger.
func Unmarshal(data []byte, logger hclog.Logger) (Config, error) {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode extension: %v", apperrors.ErrInvalidInput, err)
	}
	return fromWire(raw, logger)
}

// Descriptor embeds a Config in other JSON documents.
type Descriptor struct {
	Config Config
}

func (d Descriptor) MarshalJSON() ([]byte, error) {
	return Marshal(d.Config)
}

func (d *Descriptor) UnmarshalJSON(data []byte) error {
	cfg, err := Unmarshal(data, nil)
	if err != nil {
		return err
	}
	d.Config = cfg
	return nil
}

func toWire(cfg Config) (map[string]any, error) {
	obj := map[string]any{typeField: string(TransportOf(cfg))}
	switch c := cfg.(type) {
	case *SSEConfig:
		obj["name"] = c.Name
		obj["uri"] = c.URI
		obj["env_keys"] = nonNil(c.EnvKeys)
		putOptional(obj, "description", c.Description)
		putOptional(obj, "timeout", c.Timeout)
		putOptional(obj, "bundled", c.Bundled)
		return obj, flattenEnvs(obj, c.Envs, c.transportKind())
	case *StdioConfig:
		obj["name"] = c.Name
		obj["cmd"] = c.Cmd
		obj["args"] = nonNil(c.Args)
		obj["env_keys"] = nonNil(c.EnvKeys)
		putOptional(obj, "description", c.Description)
		putOptional(obj, "timeout", c.Timeout)
		putOptional(obj, "bundled", c.Bundled)
		return obj, flattenEnvs(obj, c.Envs, c.transportKind())
	case *StreamableHTTPConfig:
		obj["name"] = c.Name
		obj["uri"] = c.URI
		obj["env_keys"] = nonNil(c.EnvKeys)
		headers := c.Headers
		if headers == nil {
			headers = map[string]string{}
		}
		obj["headers"] = headers
		putOptional(obj, "description", c.Description)
		putOptional(obj, "timeout", c.Timeout)
		putOptional(obj, "bundled", c.Bundled)
		return obj, flattenEnvs(obj, c.Envs, c.transportKind())
	case *BuiltinConfig:
		obj["name"] = c.Name
		putOptional(obj, "display_name", c.DisplayName)
		putOptional(obj, "description", c.Description)
		putOptional(obj, "timeout", c.Timeout)
		putOptional(obj, "bundled", c.Bundled)
		return obj, nil
	case *FrontendConfig:
		obj["name"] = c.Name
		tools := c.Tools
		if tools == nil {
			tools = []mcp.Tool{}
		}
		obj["tools"] = tools
		putOptional(obj, "instructions", c.Instructions)
		putOptional(obj, "bundled", c.Bundled)
		return obj, nil
	case *InlinePythonConfig:
		obj["name"] = c.Name
		obj["code"] = c.Code
		putOptional(obj, "description", c.Description)
		putOptional(obj, "timeout", c.Timeout)
		if c.Dependencies != nil {
			obj["dependencies"] = c.Dependencies
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%w: unsupported extension config %T", apperrors.ErrInvalidInput, cfg)
	}
}

// envBearingFields are the members the decoder consumes for each env-bearing
// variant. An env override cannot reuse one of them or it would be read back
// as that field.
var envBearingFields = map[TransportKind]map[string]struct{}{
	TransportSSE:            fieldSet("uri"),
	TransportStdio:          fieldSet("cmd", "args"),
	TransportStreamableHTTP: fieldSet("uri", "headers"),
}

func fieldSet(extra ...string) map[string]struct{} {
	set := map[string]struct{}{
		typeField: {}, "name": {}, "envs": {}, "env_keys": {}, "description": {}, "timeout": {}, "bundled": {},
	}
	for _, field := range extra {
		set[field] = struct{}{}
	}
	return set
}

func flattenEnvs(obj map[string]any, envs Envs, kind TransportKind) error {
	reserved := envBearingFields[kind]
	for _, key := range envs.Keys() {
		if _, taken := reserved[key]; taken {
			return fmt.Errorf("%w: env %q collides with a config field", apperrors.ErrInvalidInput, key)
		}
		value, _ := envs.Get(key)
		obj[key] = value
	}
	return nil
}

func putOptional[T any](obj map[string]any, field string, value *T) {
	if value != nil {
		obj[field] = *value
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func fromWire(raw map[string]json.RawMessage, logger hclog.Logger) (Config, error) {
	r := &wireReader{raw: raw, used: map[string]struct{}{typeField: {}}}
	kind := TransportKind(r.str(typeField, true))
	if r.err != nil {
		return nil, r.err
	}
	if err := kind.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	var cfg Config
	switch kind {
	case TransportSSE:
		c := &SSEConfig{
			Name:        r.str("name", true),
			URI:         r.str("uri", true),
			EnvKeys:     r.strs("env_keys"),
			Description: r.optStr("description"),
			Timeout:     r.optUint("timeout"),
			Bundled:     r.optBool("bundled"),
		}
		c.Envs = NewEnvs(r.envs(), logger)
		cfg = c
	case TransportStdio:
		c := &StdioConfig{
			Name:        r.str("name", true),
			Cmd:         r.str("cmd", true),
			Args:        r.strs("args"),
			EnvKeys:     r.strs("env_keys"),
			Description: r.optStr("description"),
			Timeout:     r.optUint("timeout"),
			Bundled:     r.optBool("bundled"),
		}
		c.Envs = NewEnvs(r.envs(), logger)
		cfg = c
	case TransportStreamableHTTP:
		c := &StreamableHTTPConfig{
			Name:        r.str("name", true),
			URI:         r.str("uri", true),
			EnvKeys:     r.strs("env_keys"),
			Headers:     r.strMap("headers"),
			Description: r.optStr("description"),
			Timeout:     r.optUint("timeout"),
			Bundled:     r.optBool("bundled"),
		}
		c.Envs = NewEnvs(r.envs(), logger)
		cfg = c
	case TransportBuiltin:
		cfg = &BuiltinConfig{
			Name:        r.str("name", true),
			DisplayName: r.optStr("display_name"),
			Description: r.optStr("description"),
			Timeout:     r.optUint("timeout"),
			Bundled:     r.optBool("bundled"),
		}
	case TransportFrontend:
		cfg = &FrontendConfig{
			Name:         r.str("name", true),
			Tools:        r.tools("tools"),
			Instructions: r.optStr("instructions"),
			Bundled:      r.optBool("bundled"),
		}
	case TransportInlinePython:
		c := &InlinePythonConfig{
			Name:        r.str("name", true),
			Code:        r.str("code", true),
			Description: r.optStr("description"),
			Timeout:     r.optUint("timeout"),
		}
		if deps := r.raw["dependencies"]; !isNull(deps) {
			c.Dependencies = r.strs("dependencies")
		}
		cfg = c
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := validateTimeout(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return cfg, nil
}

// wireReader decodes members of one wire object and remembers the first error.
type wireReader struct {
	raw  map[string]json.RawMessage
	used map[string]struct{}
	err  error
}

func (r *wireReader) member(field string) (json.RawMessage, bool) {
	r.used[field] = struct{}{}
	value, ok := r.raw[field]
	if !ok || isNull(value) {
		return nil, false
	}
	return value, true
}

func (r *wireReader) decode(field string, value json.RawMessage, out any) {
	if r.err != nil {
		return
	}
	if err := json.Unmarshal(value, out); err != nil {
		r.err = fmt.Errorf("%w: field %q: %v", apperrors.ErrInvalidInput, field, err)
	}
}

func (r *wireReader) str(field string, required bool) string {
	value, ok := r.member(field)
	if !ok {
		if required && r.err == nil {
			r.err = fmt.Errorf("%w: missing field %q", apperrors.ErrInvalidInput, field)
		}
		return ""
	}
	var out string
	r.decode(field, value, &out)
	return out
}

func (r *wireReader) optStr(field string) *string {
	value, ok := r.member(field)
	if !ok {
		return nil
	}
	var out string
	r.decode(field, value, &out)
	return &out
}

func (r *wireReader) optUint(field string) *uint64 {
	value, ok := r.member(field)
	if !ok {
		return nil
	}
	var out uint64
	r.decode(field, value, &out)
	return &out
}

func (r *wireReader) optBool(field string) *bool {
	value, ok := r.member(field)
	if !ok {
		return nil
	}
	var out bool
	r.decode(field, value, &out)
	return &out
}

func (r *wireReader) strs(field string) []string {
	out := []string{}
	value, ok := r.member(field)
	if !ok {
		return out
	}
	r.decode(field, value, &out)
	if out == nil {
		out = []string{}
	}
	return out
}

func (r *wireReader) strMap(field string) map[string]string {
	out := map[string]string{}
	value, ok := r.member(field)
	if !ok {
		return out
	}
	r.decode(field, value, &out)
	if out == nil {
		out = map[string]string{}
	}
	return out
}

func (r *wireReader) tools(field string) []mcp.Tool {
	out := []mcp.Tool{}
	value, ok := r.member(field)
	if !ok {
		if r.err == nil {
			r.err = fmt.Errorf("%w: missing field %q", apperrors.ErrInvalidInput, field)
		}
		return out
	}
	r.decode(field, value, &out)
	return out
}

// envs collects every member not consumed by a variant field. A nested
// "envs" object from older files is merged in as well.
func (r *wireReader) envs() map[string]string {
	out := map[string]string{}
	if nested, ok := r.member("envs"); ok {
		legacy := map[string]string{}
		r.decode("envs", nested, &legacy)
		for key, value := range legacy {
			out[key] = value
		}
	}
	keys := make([]string, 0, len(r.raw))
	for key := range r.raw {
		if _, used := r.used[key]; !used {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		var value string
		r.decode(key, r.raw[key], &value)
		out[key] = value
	}
	return out
}

func isNull(value json.RawMessage) bool {
	return len(value) == 0 || string(bytes.TrimSpace(value)) == "null"
}
