package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	DefaultExtension        = "developer"
	DefaultDisplayName      = "Developer"
	DefaultExtensionTimeout = uint64(300)
	DefaultLogLevel         = "warn"
)

type Config struct {
	HomePath       string
	ExtensionsPath string
	DBPath         string
	LogLevel       string
}

// New derives every path from homePath. extensionsFile overrides the default
// extensions.yaml location; relative values resolve against homePath.
func New(homePath, extensionsFile, logLevel string) (Config, error) {
	if homePath == "" {
		return Config{}, fmt.Errorf("home path is required")
	}
	extensionsPath := filepath.Join(homePath, "extensions.yaml")
	if extensionsFile != "" {
		extensionsPath = extensionsFile
		if !filepath.IsAbs(extensionsPath) {
			extensionsPath = filepath.Join(homePath, extensionsPath)
		}
	}
	switch strings.ToLower(filepath.Ext(extensionsPath)) {
	case ".yaml", ".yml", ".toml":
	default:
		return Config{}, fmt.Errorf("unsupported extensions file type: %s", extensionsPath)
	}
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}
	return Config{
		HomePath:       homePath,
		ExtensionsPath: filepath.Clean(extensionsPath),
		DBPath:         filepath.Join(homePath, ".extman", "extman.db"),
		LogLevel:       logLevel,
	}, nil
}
