package in

import (
	"context"
	"fmt"
	"strings"

	"extman/internal/modules/extension/dto"
	extin "extman/internal/modules/extension/port/in"
)

type CLIHandler struct {
	usecase extin.Usecase
}

func NewCLIHandler(usecase extin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) List(ctx context.Context) ([]dto.ExtensionInfo, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Show(ctx context.Context, name string) (dto.ExtensionDetail, error) {
	return h.usecase.Get(ctx, name)
}

func (h CLIHandler) AddStdio(ctx context.Context, common dto.AddInput, cmd string, args []string) (dto.ExtensionInfo, error) {
	common.Type = "stdio"
	common.Cmd = cmd
	common.Args = args
	return h.usecase.Add(ctx, common)
}

func (h CLIHandler) AddSSE(ctx context.Context, common dto.AddInput, uri string) (dto.ExtensionInfo, error) {
	common.Type = "sse"
	common.URI = uri
	return h.usecase.Add(ctx, common)
}

func (h CLIHandler) AddStreamableHTTP(ctx context.Context, common dto.AddInput, uri string, headers map[string]string) (dto.ExtensionInfo, error) {
	common.Type = "streamable_http"
	common.URI = uri
	common.Headers = headers
	return h.usecase.Add(ctx, common)
}

func (h CLIHandler) AddBuiltin(ctx context.Context, common dto.AddInput, displayName string) (dto.ExtensionInfo, error) {
	common.Type = "builtin"
	common.DisplayName = displayName
	return h.usecase.Add(ctx, common)
}

func (h CLIHandler) AddInlinePython(ctx context.Context, common dto.AddInput, code string, dependencies []string) (dto.ExtensionInfo, error) {
	common.Type = "inline_python"
	common.Code = code
	common.Dependencies = dependencies
	return h.usecase.Add(ctx, common)
}

func (h CLIHandler) Remove(ctx context.Context, name string) error {
	return h.usecase.Remove(ctx, name)
}

func (h CLIHandler) SetEnabled(ctx context.Context, name string, enabled bool) error {
	return h.usecase.SetEnabled(ctx, name, enabled)
}

func (h CLIHandler) Plan(ctx context.Context, name string) (dto.LaunchPlan, error) {
	return h.usecase.Plan(ctx, name)
}

func (h CLIHandler) PlanAll(ctx context.Context) ([]dto.LaunchPlan, error) {
	return h.usecase.PlanAll(ctx)
}

func (h CLIHandler) Key(name string) string {
	return h.usecase.KeyFor(name)
}

func (h CLIHandler) CheckEnv(ctx context.Context, pairs []string) (dto.EnvCheckResult, error) {
	env, err := ParsePairs(pairs)
	if err != nil {
		return dto.EnvCheckResult{}, err
	}
	return h.usecase.CheckEnv(ctx, env)
}

func (h CLIHandler) Denylist(ctx context.Context) []string {
	return h.usecase.Denylist(ctx)
}

func (h CLIHandler) Reindex(ctx context.Context) (dto.ReindexResult, error) {
	return h.usecase.Reindex(ctx)
}

// ParsePairs turns KEY=VALUE arguments into a map. The value may be empty
// and may itself contain '='.
func ParsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid KEY=VALUE pair: %q", pair)
		}
		out[key] = value
	}
	return out, nil
}
