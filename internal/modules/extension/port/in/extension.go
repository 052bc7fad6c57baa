package in

import (
	"context"

	"extman/internal/modules/extension/dto"
)

type Usecase interface {
	List(ctx context.Context) ([]dto.ExtensionInfo, error)
	Get(ctx context.Context, name string) (dto.ExtensionDetail, error)
	Add(ctx context.Context, input dto.AddInput) (dto.ExtensionInfo, error)
	Remove(ctx context.Context, name string) error
	SetEnabled(ctx context.Context, name string, enabled bool) error
	Plan(ctx context.Context, name string) (dto.LaunchPlan, error)
	PlanAll(ctx context.Context) ([]dto.LaunchPlan, error)
	CheckEnv(ctx context.Context, env map[string]string) (dto.EnvCheckResult, error)
	Denylist(ctx context.Context) []string
	KeyFor(name string) string
	Reindex(ctx context.Context) (dto.ReindexResult, error)
}
