package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey  = "capture"
	serviceName   = "ridesafe.capture.v1.CaptureDevice"
	jsonCodecName = "json"
	methodOpen    = "/" + serviceName + "/Open"
	methodCapture = "/" + serviceName + "/Capture"
	methodClose   = "/" + serviceName + "/Close"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "RIDESAFE_CAPTURE",
	MagicCookieValue: "ridesafe",
}

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

type OpenResponse struct {
	Handle string `json:"handle"`
}

type CaptureRequest struct {
	Handle string `json:"handle"`
}

// CaptureResponse carries one frame encoded as a data URL.
type CaptureResponse struct {
	Image string `json:"image"`
}

type CloseRequest struct {
	Handle string `json:"handle"`
}

type CaptureDeviceServer interface {
	Open(ctx context.Context, in *Empty) (*OpenResponse, error)
	Capture(ctx context.Context, in *CaptureRequest) (*CaptureResponse, error)
	Close(ctx context.Context, in *CloseRequest) (*Empty, error)
}

type CaptureDeviceClient interface {
	Open(ctx context.Context) (*OpenResponse, error)
	Capture(ctx context.Context, in *CaptureRequest) (*CaptureResponse, error)
	Close(ctx context.Context, in *CloseRequest) error
}

type captureDeviceClient struct {
	conn grpc.ClientConnInterface
}

func NewCaptureDeviceClient(conn grpc.ClientConnInterface) CaptureDeviceClient {
	return &captureDeviceClient{conn: conn}
}

func (c *captureDeviceClient) Open(ctx context.Context) (*OpenResponse, error) {
	out := &OpenResponse{}
	if err := c.conn.Invoke(ctx, methodOpen, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *captureDeviceClient) Capture(ctx context.Context, in *CaptureRequest) (*CaptureResponse, error) {
	out := &CaptureResponse{}
	if err := c.conn.Invoke(ctx, methodCapture, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *captureDeviceClient) Close(ctx context.Context, in *CloseRequest) error {
	return c.conn.Invoke(ctx, methodClose, in, &Empty{}, grpc.CallContentSubtype(jsonCodecName))
}

func RegisterCaptureDeviceServer(server grpc.ServiceRegistrar, impl CaptureDeviceServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*CaptureDeviceServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Open",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &Empty{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.Open(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodOpen}
					handler := func(ctx context.Context, req any) (any, error) {
						empty, ok := req.(*Empty)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.Open(ctx, empty)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
			{
				MethodName: "Capture",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &CaptureRequest{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.Capture(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCapture}
					handler := func(ctx context.Context, req any) (any, error) {
						inReq, ok := req.(*CaptureRequest)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.Capture(ctx, inReq)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
			{
				MethodName: "Close",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &CloseRequest{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.Close(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodClose}
					handler := func(ctx context.Context, req any) (any, error) {
						inReq, ok := req.(*CloseRequest)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.Close(ctx, inReq)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "capture.v1",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl CaptureDeviceServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterCaptureDeviceServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewCaptureDeviceClient(conn), nil
}

func PluginMap(impl CaptureDeviceServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
