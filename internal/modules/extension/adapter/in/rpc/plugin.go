package rpc

import (
	"context"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
)

const PluginMapKey = "registry"

// HandshakeConfig lets a go-plugin host launch extman as a registry plugin.
var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "EXTMAN_REGISTRY",
	MagicCookieValue: "extman",
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl RegistryServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterRegistryServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewRegistryClient(conn), nil
}

func PluginMap(impl RegistryServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
