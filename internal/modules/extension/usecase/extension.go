package usecase

import (
	"context"
	"fmt"
	"strings"

	"extman/internal/modules/extension/dto"
	extin "extman/internal/modules/extension/port/in"
	"extman/internal/modules/extension/service"
	apperrors "extman/internal/platform/errors"
)

type Interactor struct {
	svc *service.ExtensionService
}

func NewInteractor(svc *service.ExtensionService) extin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) List(ctx context.Context) ([]dto.ExtensionInfo, error) {
	return i.svc.List(ctx)
}

func (i *Interactor) Get(ctx context.Context, name string) (dto.ExtensionDetail, error) {
	name, err := requireName(name)
	if err != nil {
		return dto.ExtensionDetail{}, err
	}
	return i.svc.Get(ctx, name)
}

func (i *Interactor) Add(ctx context.Context, input dto.AddInput) (dto.ExtensionInfo, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Type = strings.TrimSpace(input.Type)
	return i.svc.Add(ctx, input)
}

func (i *Interactor) Remove(ctx context.Context, name string) error {
	name, err := requireName(name)
	if err != nil {
		return err
	}
	return i.svc.Remove(ctx, name)
}

func (i *Interactor) SetEnabled(ctx context.Context, name string, enabled bool) error {
	name, err := requireName(name)
	if err != nil {
		return err
	}
	return i.svc.SetEnabled(ctx, name, enabled)
}

func (i *Interactor) Plan(ctx context.Context, name string) (dto.LaunchPlan, error) {
	name, err := requireName(name)
	if err != nil {
		return dto.LaunchPlan{}, err
	}
	return i.svc.Plan(ctx, name)
}

func (i *Interactor) PlanAll(ctx context.Context) ([]dto.LaunchPlan, error) {
	return i.svc.PlanAll(ctx)
}

func (i *Interactor) CheckEnv(ctx context.Context, env map[string]string) (dto.EnvCheckResult, error) {
	return i.svc.CheckEnv(ctx, env)
}

func (i *Interactor) Denylist(ctx context.Context) []string {
	return i.svc.Denylist(ctx)
}

func (i *Interactor) KeyFor(name string) string {
	return i.svc.KeyFor(name)
}

func (i *Interactor) Reindex(ctx context.Context) (dto.ReindexResult, error) {
	return i.svc.Reindex(ctx)
}

func requireName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: extension name is required", apperrors.ErrInvalidInput)
	}
	return trimmed, nil
}
