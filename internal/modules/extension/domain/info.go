package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
)

// PermissionLevel is how a host should gate calls to a tool. The value is
// carried only; nothing here enforces it.
type PermissionLevel string

const (
	PermissionAlwaysAllow PermissionLevel = "always_allow"
	PermissionAskBefore   PermissionLevel = "ask_before"
	PermissionNeverAllow  PermissionLevel = "never_allow"
)

func ParsePermissionLevel(value string) (PermissionLevel, error) {
	switch level := PermissionLevel(value); level {
	case PermissionAlwaysAllow, PermissionAskBefore, PermissionNeverAllow:
		return level, nil
	default:
		return "", fmt.Errorf("unknown permission level %q", value)
	}
}

// ExtensionInfo is what an agent prompt needs to know about an extension.
type ExtensionInfo struct {
	Name         string
	Instructions string
	HasResources bool
}

func NewExtensionInfo(name, instructions string, hasResources bool) ExtensionInfo {
	return ExtensionInfo{Name: name, Instructions: instructions, HasResources: hasResources}
}

// ToolInfo describes one tool for prompt building.
type ToolInfo struct {
	Name        string
	Description string
	Parameters  []string
	Permission  *PermissionLevel
}

func NewToolInfo(name, description string, parameters []string, permission *PermissionLevel) ToolInfo {
	return ToolInfo{Name: name, Description: description, Parameters: parameters, Permission: permission}
}

// InfoOf summarizes cfg without contacting the extension. Only frontend
// records carry instructions offline; servers announce theirs at runtime.
func InfoOf(cfg Config) ExtensionInfo {
	instructions := ""
	if frontend, ok := cfg.(*FrontendConfig); ok && frontend.Instructions != nil {
		instructions = *frontend.Instructions
	}
	return NewExtensionInfo(Name(cfg), instructions, false)
}

// ToolInfosOf lists the tools a frontend extension declares. Other variants
// discover their tools at runtime and return nil.
func ToolInfosOf(cfg Config) []ToolInfo {
	frontend, ok := cfg.(*FrontendConfig)
	if !ok {
		return nil
	}
	out := make([]ToolInfo, 0, len(frontend.Tools))
	for _, tool := range frontend.Tools {
		out = append(out, NewToolInfo(tool.Name, tool.Description, toolParameters(tool), permissionFromAnnotations(tool.Annotations)))
	}
	return out
}

func toolParameters(tool mcp.Tool) []string {
	properties := tool.InputSchema.Properties
	if len(properties) == 0 && len(tool.RawInputSchema) > 0 {
		var schema struct {
			Properties map[string]json.RawMessage `json:"properties"`
		}
		if err := json.Unmarshal(tool.RawInputSchema, &schema); err == nil {
			names := make([]string, 0, len(schema.Properties))
			for name := range schema.Properties {
				names = append(names, name)
			}
			sort.Strings(names)
			return names
		}
	}
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// permissionFromAnnotations maps MCP hints onto a level: read-only tools are
// always allowed, destructive ones ask first, anything else is left unset.
func permissionFromAnnotations(annotations mcp.ToolAnnotation) *PermissionLevel {
	switch {
	case annotations.ReadOnlyHint != nil && *annotations.ReadOnlyHint:
		return Ptr(PermissionAlwaysAllow)
	case annotations.DestructiveHint != nil && *annotations.DestructiveHint:
		return Ptr(PermissionAskBefore)
	default:
		return nil
	}
}
