package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	serviceName    = "extman.registry.v1.Registry"
	jsonCodecName  = "json"
	methodList     = "/" + serviceName + "/List"
	methodPlan     = "/" + serviceName + "/Plan"
	methodPlanAll  = "/" + serviceName + "/PlanAll"
	methodCheckEnv = "/" + serviceName + "/CheckEnv"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Extension struct {
	Key            string   `json:"key"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Enabled        bool     `json:"enabled"`
	Summary        string   `json:"summary"`
	Description    string   `json:"description,omitempty"`
	Bundled        *bool    `json:"bundled,omitempty"`
	TimeoutSeconds *uint64  `json:"timeout_seconds,omitempty"`
	EnvNames       []string `json:"env_names"`
	EnvKeys        []string `json:"env_keys"`
	Instructions   string   `json:"instructions,omitempty"`
	HasResources   bool     `json:"has_resources"`
	Tools          []Tool   `json:"tools,omitempty"`
}

// Tool is a frontend tool as an agent prompt would list it.
type Tool struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Parameters  []string `json:"parameters"`
	Permission  *string  `json:"permission,omitempty"`
}

type ListResponse struct {
	Extensions []Extension `json:"extensions"`
}

type PlanRequest struct {
	Name string `json:"name"`
}

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

type PlanAllResponse struct {
	Plans []LaunchPlan `json:"plans"`
}

type CheckEnvRequest struct {
	Env map[string]string `json:"env"`
}

type CheckEnvResponse struct {
	Allowed  []string `json:"allowed"`
	Rejected []string `json:"rejected"`
}

type RegistryServer interface {
	List(ctx context.Context, in *Empty) (*ListResponse, error)
	Plan(ctx context.Context, in *PlanRequest) (*LaunchPlan, error)
	PlanAll(ctx context.Context, in *Empty) (*PlanAllResponse, error)
	CheckEnv(ctx context.Context, in *CheckEnvRequest) (*CheckEnvResponse, error)
}

type RegistryClient interface {
	List(ctx context.Context) (*ListResponse, error)
	Plan(ctx context.Context, in *PlanRequest) (*LaunchPlan, error)
	PlanAll(ctx context.Context) (*PlanAllResponse, error)
	CheckEnv(ctx context.Context, in *CheckEnvRequest) (*CheckEnvResponse, error)
}

type registryClient struct {
	conn grpc.ClientConnInterface
}

func NewRegistryClient(conn grpc.ClientConnInterface) RegistryClient {
	return &registryClient{conn: conn}
}

func (c *registryClient) List(ctx context.Context) (*ListResponse, error) {
	out := &ListResponse{}
	if err := c.conn.Invoke(ctx, methodList, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) Plan(ctx context.Context, in *PlanRequest) (*LaunchPlan, error) {
	out := &LaunchPlan{}
	if err := c.conn.Invoke(ctx, methodPlan, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) PlanAll(ctx context.Context) (*PlanAllResponse, error) {
	out := &PlanAllResponse{}
	if err := c.conn.Invoke(ctx, methodPlanAll, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) CheckEnv(ctx context.Context, in *CheckEnvRequest) (*CheckEnvResponse, error) {
	out := &CheckEnvResponse{}
	if err := c.conn.Invoke(ctx, methodCheckEnv, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// unary builds a method handler that decodes into a fresh Req and honours
// any configured interceptor.
func unary[Req any, Resp any](fullMethod string, call func(context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*Req)
			if !ok {
				return nil, fmt.Errorf("invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterRegistryServer(server grpc.ServiceRegistrar, impl RegistryServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*RegistryServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "List", Handler: unary(methodList, impl.List)},
			{MethodName: "Plan", Handler: unary(methodPlan, impl.Plan)},
			{MethodName: "PlanAll", Handler: unary(methodPlanAll, impl.PlanAll)},
			{MethodName: "CheckEnv", Handler: unary(methodCheckEnv, impl.CheckEnv)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "extman/registry/v1",
	}, impl)
}
