package out

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	hclog "github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"extman/internal/modules/extension/domain"
	extout "extman/internal/modules/extension/port/out"
)

const (
	enabledField = "enabled"
	configField  = "config"
)

type fileFormat int

const (
	formatYAML fileFormat = iota
	formatTOML
)

// storeDocument is the on-disk layout: extension key -> {enabled, config}
// where config is the wire object. Older files put the wire object and
// "enabled" side by side; those still load.
type storeDocument struct {
	Extensions map[string]map[string]any `yaml:"extensions" toml:"extensions"`
}

// FileConfigStore persists extensions in a YAML or TOML file chosen by extension.
type FileConfigStore struct {
	path   string
	format fileFormat
	logger hclog.Logger
}

func NewFileConfigStore(path string, logger hclog.Logger) extout.ConfigStore {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	format := formatYAML
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = formatTOML
	}
	return &FileConfigStore{path: path, format: format, logger: logger}
}

func (s *FileConfigStore) Load(_ context.Context) ([]domain.Entry, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Entry{}, nil
		}
		return nil, fmt.Errorf("read extensions file: %w", err)
	}
	var doc storeDocument
	switch s.format {
	case formatTOML:
		if err := toml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("decode extensions toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("decode extensions yaml: %w", err)
		}
	}

	keys := make([]string, 0, len(doc.Extensions))
	for key := range doc.Extensions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]domain.Entry, 0, len(keys))
	for _, key := range keys {
		entry, err := s.decodeEntry(key, doc.Extensions[key])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *FileConfigStore) decodeEntry(key string, raw map[string]any) (domain.Entry, error) {
	enabled := true
	if value, ok := raw[enabledField]; ok {
		flag, isBool := value.(bool)
		if !isBool {
			return domain.Entry{}, fmt.Errorf("extension %s: %s must be a boolean", key, enabledField)
		}
		enabled = flag
	}
	wire, err := wireObject(key, raw)
	if err != nil {
		return domain.Entry{}, err
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("extension %s: encode: %w", key, err)
	}
	cfg, err := domain.Unmarshal(payload, s.logger)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("extension %s: %w", key, err)
	}
	entry := domain.Entry{Enabled: enabled, Config: cfg}
	if entry.Key() != key {
		s.logger.Warn("extension stored under a stale key", "stored", key, "key", entry.Key())
	}
	return entry, nil
}

// wireObject returns the nested config object, or for the flat legacy layout
// every member except "enabled".
func wireObject(key string, raw map[string]any) (map[string]any, error) {
	if _, flat := raw["type"]; !flat {
		nested, ok := raw[configField].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("extension %s: %s must be a table", key, configField)
		}
		return nested, nil
	}
	wire := make(map[string]any, len(raw))
	for field, value := range raw {
		if field != enabledField {
			wire[field] = value
		}
	}
	return wire, nil
}

func (s *FileConfigStore) Save(_ context.Context, entries []domain.Entry) error {
	doc := storeDocument{Extensions: make(map[string]map[string]any, len(entries))}
	for _, entry := range entries {
		payload, err := domain.Marshal(entry.Config)
		if err != nil {
			return fmt.Errorf("extension %s: %w", entry.Key(), err)
		}
		obj, err := decodeObject(payload)
		if err != nil {
			return fmt.Errorf("extension %s: %w", entry.Key(), err)
		}
		doc.Extensions[entry.Key()] = map[string]any{
			enabledField: entry.Enabled,
			configField:  obj,
		}
	}

	var buf bytes.Buffer
	switch s.format {
	case formatTOML:
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return fmt.Errorf("encode extensions toml: %w", err)
		}
	default:
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("encode extensions yaml: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("encode extensions yaml: %w", err)
		}
	}
	return writeFileAtomic(s.path, buf.Bytes())
}

// decodeObject reads a wire object keeping integers integral so the
// YAML and TOML encoders do not write them as floats.
func decodeObject(payload []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	var obj map[string]any
	if err := decoder.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode wire object: %w", err)
	}
	return normalizeNumbers(obj).(map[string]any), nil
}

func normalizeNumbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeNumbers(item)
		}
		return v
	default:
		return value
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create extensions dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp extensions file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write extensions file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close extensions file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace extensions file: %w", err)
	}
	return nil
}
