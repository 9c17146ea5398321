package remote

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
)

// Client is a recordstore.Store that talks to a remote Server.
type Client struct {
	create *connect.Client[structpb.Struct, structpb.Struct]
	fetch  *connect.Client[structpb.Struct, structpb.Struct]
	patch  *connect.Client[structpb.Struct, structpb.Struct]
}

var _ recordstore.Store = (*Client)(nil)

// NewClient creates a client for the server at baseURL (e.g. http://localhost:8090).
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		create: connect.NewClient[structpb.Struct, structpb.Struct](
			httpClient, baseURL+CreateProcedure,
			withSchema(opts, "Create")...,
		),
		fetch: connect.NewClient[structpb.Struct, structpb.Struct](
			httpClient, baseURL+FetchProcedure,
			withSchema(opts, "Fetch")...,
		),
		patch: connect.NewClient[structpb.Struct, structpb.Struct](
			httpClient, baseURL+PatchProcedure,
			withSchema(opts, "Patch")...,
		),
	}
}

// withSchema returns a copy of opts with the schema of method added, so the
// three clients never share a backing array.
func withSchema(opts []connect.ClientOption, method string) []connect.ClientOption {
	return append(slices.Clone(opts), connect.WithSchema(methodDescriptor(method)))
}

func (c *Client) Create(ctx context.Context, code string, kind models.SessionKind, fields recordstore.Fields) error {
	msg, err := envelope(code, fields, map[string]string{keyKind: string(kind)})
	if err != nil {
		return fmt.Errorf("%w: %v", recordstore.ErrCreateFailed, err)
	}
	if _, err := c.create.CallUnary(ctx, connect.NewRequest(msg)); err != nil {
		return fromConnectError(err, recordstore.ErrCreateFailed)
	}
	return nil
}

func (c *Client) Fetch(ctx context.Context, code string) (recordstore.Fields, error) {
	msg, err := envelope(code, nil, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.fetch.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, fromConnectError(err, nil)
	}
	fields, err := fieldsField(res.Msg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", code, err)
	}
	return fields, nil
}

func (c *Client) Patch(ctx context.Context, code string, fields recordstore.Fields) error {
	msg, err := envelope(code, fields, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", recordstore.ErrPatchFailed, err)
	}
	if _, err := c.patch.CallUnary(ctx, connect.NewRequest(msg)); err != nil {
		return fromConnectError(err, recordstore.ErrPatchFailed)
	}
	return nil
}

// fromConnectError maps transport codes back onto the record store taxonomy.
// Anything else is wrapped in fallback when one is given.
func fromConnectError(err error, fallback error) error {
	switch connect.CodeOf(err) {
	case connect.CodeNotFound:
		return recordstore.ErrNotFound
	case connect.CodeAlreadyExists:
		return recordstore.ErrAlreadyExists
	}
	if fallback != nil {
		return fmt.Errorf("%w: %v", fallback, err)
	}
	return err
}
