package dto

type ExtensionInfo struct {
	Key            string     `json:"key"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	Enabled        bool       `json:"enabled"`
	Summary        string     `json:"summary"`
	Description    string     `json:"description,omitempty"`
	Bundled        *bool      `json:"bundled,omitempty"`
	TimeoutSeconds *uint64    `json:"timeout_seconds,omitempty"`
	EnvNames       []string   `json:"env_names"`
	EnvKeys        []string   `json:"env_keys"`
	Instructions   string     `json:"instructions,omitempty"`
	HasResources   bool       `json:"has_resources"`
	Tools          []ToolInfo `json:"tools,omitempty"`
}

type ToolInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Parameters  []string `json:"parameters"`
	Permission  *string  `json:"permission,omitempty"`
}

type ExtensionDetail struct {
	Info       ExtensionInfo
	ConfigJSON string
}

type AddInput struct {
	Type         string
	Name         string
	DisplayName  string
	Description  string
	Timeout      uint64
	Cmd          string
	Args         []string
	URI          string
	Headers      map[string]string
	Envs         map[string]string
	EnvKeys      []string
	Code         string
	Dependencies []string
	Enabled      bool
	Replace      bool
}

// LaunchPlan carries everything a transport needs to start an extension.
type LaunchPlan struct {
	ID             string            `json:"id"`
	Key            string            `json:"key"`
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Command        string            `json:"command,omitempty"`
	Args           []string          `json:"args,omitempty"`
	URI            string            `json:"uri,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Env            map[string]string `json:"env"`
	TimeoutSeconds int64             `json:"timeout_seconds"`
	Summary        string            `json:"summary"`
}

type EnvCheckResult struct {
	Allowed  []string
	Rejected []string
}

type ReindexResult struct {
	Indexed int
}
