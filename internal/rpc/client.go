package rpc

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// Client calls a remote SignalService.
type Client struct {
	conn grpc.ClientConnInterface
	// closer is nil when the connection was injected.
	closer func() error
}

// #endregion client-struct

// #region constructor
// NewClient connects to a SignalService at addr.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, closer: conn.Close}, nil
}

// NewClientWithConn wraps an existing connection. Close leaves it open.
func NewClientWithConn(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// #endregion close

// #region decide
// Decide asks the remote engine for a decision. gRPC status errors are
// returned wrapped; use status.Code to inspect them.
func (c *Client) Decide(ctx context.Context, req DecideRequest) (arbiter.Decision, error) {
	in, err := toStruct(req)
	if err != nil {
		return arbiter.Decision{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, decideMethod, in, out); err != nil {
		return arbiter.Decision{}, fmt.Errorf("decide rpc: %w", err)
	}
	var d arbiter.Decision
	if err := fromStruct(out, &d); err != nil {
		return arbiter.Decision{}, err
	}
	return d, nil
}

// #endregion decide
