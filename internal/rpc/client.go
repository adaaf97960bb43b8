package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client calls the simulation service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial opens a plaintext connection that speaks the service codec.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)
	return grpc.NewClient(target, opts...)
}

// WithRunID asks the server to use id for the next Simulate call.
func WithRunID(ctx context.Context, id string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, RunIDMetadataKey, id)
}

func (c *Client) Simulate(ctx context.Context, in *SimulateRequest, opts ...grpc.CallOption) (*Run, error) {
	out := new(Run)
	if err := c.invoke(ctx, "Simulate", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetRun(ctx context.Context, in *GetRunRequest, opts ...grpc.CallOption) (*Run, error) {
	out := new(Run)
	if err := c.invoke(ctx, "GetRun", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListRuns(ctx context.Context, in *ListRunsRequest, opts ...grpc.CallOption) (*ListRunsResponse, error) {
	out := new(ListRunsResponse)
	if err := c.invoke(ctx, "ListRuns", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}
