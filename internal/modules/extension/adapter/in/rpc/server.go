package rpc

import (
	"context"
	"errors"

	hclog "github.com/hashicorp/go-hclog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"extman/internal/modules/extension/dto"
	extin "extman/internal/modules/extension/port/in"
	apperrors "extman/internal/platform/errors"
)

// Server exposes the extension registry over gRPC.
type Server struct {
	usecase extin.Usecase
	logger  hclog.Logger
}

func NewServer(usecase extin.Usecase, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{usecase: usecase, logger: logger}
}

func (s *Server) List(ctx context.Context, _ *Empty) (*ListResponse, error) {
	items, err := s.usecase.List(ctx)
	if err != nil {
		return nil, s.toStatus("List", err)
	}
	out := &ListResponse{Extensions: make([]Extension, 0, len(items))}
	for _, item := range items {
		tools := make([]Tool, 0, len(item.Tools))
		for _, tool := range item.Tools {
			tools = append(tools, Tool(tool))
		}
		out.Extensions = append(out.Extensions, Extension{
			Key:            item.Key,
			Name:           item.Name,
			Type:           item.Type,
			Enabled:        item.Enabled,
			Summary:        item.Summary,
			Description:    item.Description,
			Bundled:        item.Bundled,
			TimeoutSeconds: item.TimeoutSeconds,
			EnvNames:       item.EnvNames,
			EnvKeys:        item.EnvKeys,
			Instructions:   item.Instructions,
			HasResources:   item.HasResources,
			Tools:          tools,
		})
	}
	return out, nil
}

func (s *Server) Plan(ctx context.Context, in *PlanRequest) (*LaunchPlan, error) {
	plan, err := s.usecase.Plan(ctx, in.Name)
	if err != nil {
		return nil, s.toStatus("Plan", err)
	}
	out := fromPlan(plan)
	return &out, nil
}

func (s *Server) PlanAll(ctx context.Context, _ *Empty) (*PlanAllResponse, error) {
	plans, err := s.usecase.PlanAll(ctx)
	if err != nil {
		return nil, s.toStatus("PlanAll", err)
	}
	out := &PlanAllResponse{Plans: make([]LaunchPlan, 0, len(plans))}
	for _, plan := range plans {
		out.Plans = append(out.Plans, fromPlan(plan))
	}
	return out, nil
}

func (s *Server) CheckEnv(ctx context.Context, in *CheckEnvRequest) (*CheckEnvResponse, error) {
	result, err := s.usecase.CheckEnv(ctx, in.Env)
	if err != nil {
		return nil, s.toStatus("CheckEnv", err)
	}
	return &CheckEnvResponse{Allowed: result.Allowed, Rejected: result.Rejected}, nil
}

func (s *Server) toStatus(method string, err error) error {
	code := CodeOf(err)
	if code == codes.Internal {
		s.logger.Error("registry call failed", "method", method, "error", err)
	} else {
		s.logger.Debug("registry call rejected", "method", method, "code", code.String(), "error", err)
	}
	return status.Error(code, err.Error())
}

// CodeOf maps platform error sentinels to gRPC status codes.
func CodeOf(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, apperrors.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, apperrors.ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, apperrors.ErrConflict):
		return codes.AlreadyExists
	case errors.Is(err, apperrors.ErrPrecondition):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func fromPlan(plan dto.LaunchPlan) LaunchPlan {
	return LaunchPlan{
		ID:             plan.ID,
		Key:            plan.Key,
		Name:           plan.Name,
		Type:           plan.Type,
		Command:        plan.Command,
		Args:           plan.Args,
		URI:            plan.URI,
		Headers:        plan.Headers,
		Env:            plan.Env,
		TimeoutSeconds: plan.TimeoutSeconds,
		Summary:        plan.Summary,
	}
}
