// Package remote exposes a recordstore.Store over connect so participants on
// different networks can share one backing store. Payloads are
// google.protobuf.Struct messages: {code, kind?, fields?}.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpcreflect"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/recordstore"
)

// Server serves a backing store.
type Server struct {
	store recordstore.Store
}

func NewServer(store recordstore.Store) *Server {
	return &Server{store: store}
}

// Handler returns the service path prefix and its handler, in the shape of
// generated connect service constructors.
func (s *Server) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(CreateProcedure, connect.NewUnaryHandler(
		CreateProcedure, s.Create,
		append(opts, connect.WithSchema(methodDescriptor("Create")))...,
	))
	mux.Handle(FetchProcedure, connect.NewUnaryHandler(
		FetchProcedure, s.Fetch,
		append(opts, connect.WithSchema(methodDescriptor("Fetch")))...,
	))
	mux.Handle(PatchProcedure, connect.NewUnaryHandler(
		PatchProcedure, s.Patch,
		append(opts, connect.WithSchema(methodDescriptor("Patch")))...,
	))
	return "/" + ServiceName + "/", mux
}

// RegisterReflection mounts gRPC reflection for the record store service.
func RegisterReflection(mux *http.ServeMux) {
	reflector := grpcreflect.NewStaticReflector(ServiceName)
	mux.Handle(grpcreflect.NewHandlerV1(reflector))
	mux.Handle(grpcreflect.NewHandlerV1Alpha(reflector))
}

func (s *Server) Create(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	code := stringField(req.Msg, keyCode)
	kind := models.SessionKind(stringField(req.Msg, keyKind))
	if code == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("code is required"))
	}
	if !kind.Valid() {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown session kind %q", kind))
	}
	fields, err := fieldsField(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := s.store.Create(ctx, code, kind, fields); err != nil {
		return nil, toConnectError(err)
	}
	log.Debug().Str("code", code).Str("kind", string(kind)).Msg("remote create")
	return connect.NewResponse(&structpb.Struct{}), nil
}

func (s *Server) Fetch(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	code := stringField(req.Msg, keyCode)
	if code == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("code is required"))
	}

	fields, err := s.store.Fetch(ctx, code)
	if err != nil {
		return nil, toConnectError(err)
	}
	body, err := envelope(code, fields, nil)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(body), nil
}

func (s *Server) Patch(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	code := stringField(req.Msg, keyCode)
	if code == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("code is required"))
	}
	fields, err := fieldsField(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := s.store.Patch(ctx, code, fields); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&structpb.Struct{}), nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, recordstore.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, recordstore.ErrAlreadyExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	default:
		log.Warn().Err(err).Msg("backing store call failed")
		return connect.NewError(connect.CodeUnavailable, err)
	}
}
