package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client talks to a remote TimelineService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client on an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// AddItem inserts item on the server.
func (c *Client) AddItem(ctx context.Context, item Item) error {
	req, err := itemToStruct(item)
	if err != nil {
		return err
	}
	if err := c.cc.Invoke(ctx, methodAddItem, req, new(emptypb.Empty)); err != nil {
		return fmt.Errorf("rpc add item failed: %w", err)
	}
	return nil
}

// DeleteItem removes the item with id.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	if err := c.cc.Invoke(ctx, methodDeleteItem, wrapperspb.String(id), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("rpc delete item failed: %w", err)
	}
	return nil
}

// SetTotalWidth resizes the remote track.
func (c *Client) SetTotalWidth(ctx context.Context, width float64) error {
	if err := c.cc.Invoke(ctx, methodSetTotalWidth, wrapperspb.Double(width), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("rpc set total width failed: %w", err)
	}
	return nil
}

// GetVisible fetches the current visible set.
func (c *Client) GetVisible(ctx context.Context) ([]Item, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodGetVisible, &emptypb.Empty{}, out); err != nil {
		return nil, fmt.Errorf("rpc get visible failed: %w", err)
	}
	return itemsFromList(out)
}

// WatchVisible calls fn with the visible set now and after every change,
// until ctx is done or the stream fails. A cancelled ctx returns ctx.Err().
func (c *Client) WatchVisible(ctx context.Context, fn func([]Item)) error {
	stream, err := c.cc.NewStream(ctx, &TimelineServiceDesc.Streams[0], methodWatchVisible)
	if err != nil {
		return fmt.Errorf("rpc watch visible failed: %w", err)
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.ListValue]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return err
	}

	for {
		list, err := x.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("rpc watch visible recv failed: %w", err)
		}
		items, err := itemsFromList(list)
		if err != nil {
			return err
		}
		fn(items)
	}
}
