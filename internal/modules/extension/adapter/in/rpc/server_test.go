package rpc_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"extman/internal/modules/extension/adapter/in/rpc"
	"extman/internal/modules/extension/dto"
	apperrors "extman/internal/platform/errors"
)

type fakeUsecase struct {
	planErr error
}

func (f fakeUsecase) List(context.Context) ([]dto.ExtensionInfo, error) {
	askBefore := "ask_before"
	return []dto.ExtensionInfo{
		{Key: "developer", Name: "developer", Type: "builtin", Enabled: true, Summary: "Builtin(developer)"},
		{
			Key: "ui", Name: "ui", Type: "frontend", Enabled: true, Summary: "Frontend(ui)",
			Instructions: "use the ui tools",
			Tools: []dto.ToolInfo{
				{Name: "read_file", Parameters: []string{"path"}},
				{Name: "delete_file", Description: "Delete", Parameters: []string{"path"}, Permission: &askBefore},
			},
		},
	}, nil
}
func (f fakeUsecase) Get(context.Context, string) (dto.ExtensionDetail, error) {
	return dto.ExtensionDetail{}, nil
}
func (f fakeUsecase) Add(context.Context, dto.AddInput) (dto.ExtensionInfo, error) {
	return dto.ExtensionInfo{}, nil
}
func (f fakeUsecase) Remove(context.Context, string) error           { return nil }
func (f fakeUsecase) SetEnabled(context.Context, string, bool) error { return nil }
func (f fakeUsecase) Plan(_ context.Context, name string) (dto.LaunchPlan, error) {
	if f.planErr != nil {
		return dto.LaunchPlan{}, f.planErr
	}
	return dto.LaunchPlan{ID: "p1", Key: name, Type: "stdio", Command: "node", Args: []string{"a.js"}, Env: map[string]string{"A": "1"}, TimeoutSeconds: 300}, nil
}
func (f fakeUsecase) PlanAll(ctx context.Context) ([]dto.LaunchPlan, error) {
	plan, err := f.Plan(ctx, "developer")
	if err != nil {
		return nil, err
	}
	return []dto.LaunchPlan{plan}, nil
}
func (f fakeUsecase) CheckEnv(_ context.Context, env map[string]string) (dto.EnvCheckResult, error) {
	result := dto.EnvCheckResult{Allowed: []string{}, Rejected: []string{}}
	for key := range env {
		if key == "PATH" {
			result.Rejected = append(result.Rejected, key)
		} else {
			result.Allowed = append(result.Allowed, key)
		}
	}
	return result, nil
}
func (f fakeUsecase) Denylist(context.Context) []string { return nil }
func (f fakeUsecase) KeyFor(name string) string         { return name }
func (f fakeUsecase) Reindex(context.Context) (dto.ReindexResult, error) {
	return dto.ReindexResult{}, nil
}

func dial(t *testing.T, usecase fakeUsecase) rpc.RegistryClient {
	t.Helper()
	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	rpc.RegisterRegistryServer(server, rpc.NewServer(usecase, nil))
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return rpc.NewRegistryClient(conn)
}

func TestRegistryRoundTrip(t *testing.T) {
	t.Parallel()
	client := dial(t, fakeUsecase{})
	ctx := context.Background()

	list, err := client.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Extensions) != 2 || list.Extensions[0].Summary != "Builtin(developer)" {
		t.Fatalf("unexpected list: %+v", list)
	}
	ui := list.Extensions[1]
	if ui.Instructions != "use the ui tools" || ui.HasResources || len(ui.Tools) != 2 {
		t.Fatalf("unexpected frontend entry: %+v", ui)
	}
	if ui.Tools[0].Permission != nil || ui.Tools[1].Permission == nil || *ui.Tools[1].Permission != "ask_before" {
		t.Fatalf("permissions lost in transit: %+v", ui.Tools)
	}

	plan, err := client.Plan(ctx, &rpc.PlanRequest{Name: "github"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Key != "github" || plan.Command != "node" || plan.Env["A"] != "1" || plan.TimeoutSeconds != 300 {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	all, err := client.PlanAll(ctx)
	if err != nil || len(all.Plans) != 1 {
		t.Fatalf("plan all: %+v %v", all, err)
	}

	check, err := client.CheckEnv(ctx, &rpc.CheckEnvRequest{Env: map[string]string{"PATH": "/bin", "TOKEN": "x"}})
	if err != nil {
		t.Fatalf("check env: %v", err)
	}
	if len(check.Rejected) != 1 || check.Rejected[0] != "PATH" || len(check.Allowed) != 1 {
		t.Fatalf("unexpected check: %+v", check)
	}
}

func TestRegistryMapsErrorsToStatusCodes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "not found", err: fmt.Errorf("%w: extension %q", apperrors.ErrNotFound, "x"), want: codes.NotFound},
		{name: "invalid env", err: fmt.Errorf("%w: bad key", apperrors.ErrInvalidInput), want: codes.InvalidArgument},
		{name: "setup", err: fmt.Errorf("%w: missing", apperrors.ErrPrecondition), want: codes.FailedPrecondition},
		{name: "conflict", err: apperrors.ErrConflict, want: codes.AlreadyExists},
		{name: "other", err: errors.New("disk on fire"), want: codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := dial(t, fakeUsecase{planErr: tc.err})
			_, err := client.Plan(context.Background(), &rpc.PlanRequest{Name: "x"})
			if got := status.Code(err); got != tc.want {
				t.Fatalf("expected %s, got %s (%v)", tc.want, got, err)
			}
		})
	}
}

func TestCodeOfContextErrors(t *testing.T) {
	t.Parallel()
	if rpc.CodeOf(context.Canceled) != codes.Canceled {
		t.Fatalf("expected canceled")
	}
	if rpc.CodeOf(fmt.Errorf("wrap: %w", context.DeadlineExceeded)) != codes.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded")
	}
}
