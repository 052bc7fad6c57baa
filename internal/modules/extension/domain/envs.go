package domain

import (
	"sort"

	hclog "github.com/hashicorp/go-hclog"
)

// Envs holds environment overrides for an extension. Values built by NewEnvs
// never contain a denylisted key.
type Envs struct {
	vars map[string]string
}

// NewEnvs drops every denylisted key from raw, logging a warning for each one.
func NewEnvs(raw map[string]string, logger hclog.Logger) Envs {
	if logger == nil {
		logger = hclog.Default()
	}
	vars := make(map[string]string, len(raw))
	for key, value := range raw {
		if IsDisallowed(key) {
			logger.Warn("skipping disallowed env var", "key", key)
			continue
		}
		vars[key] = value
	}
	return Envs{vars: vars}
}

// EnvsFromMap copies raw without filtering. Callers must run Validate before
// handing the result to a transport.
func EnvsFromMap(raw map[string]string) Envs {
	vars := make(map[string]string, len(raw))
	for key, value := range raw {
		vars[key] = value
	}
	return Envs{vars: vars}
}

func (e Envs) Snapshot() map[string]string {
	out := make(map[string]string, len(e.vars))
	for key, value := range e.vars {
		out[key] = value
	}
	return out
}

// Validate fails on the first denylisted key in sorted key order.
func (e Envs) Validate() error {
	for _, key := range e.Keys() {
		if IsDisallowed(key) {
			return NewInvalidEnvVarError(key)
		}
	}
	return nil
}

func (e Envs) Len() int {
	return len(e.vars)
}

func (e Envs) Get(key string) (string, bool) {
	value, ok := e.vars[key]
	return value, ok
}

func (e Envs) Keys() []string {
	keys := make([]string, 0, len(e.vars))
	for key := range e.vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
