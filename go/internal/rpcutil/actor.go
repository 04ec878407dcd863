package rpcutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/access"
)

// ActorHeader carries the user resolved by the upstream auth layer.
const ActorHeader = "X-User-ID"

var errMissingActor = errors.New("missing " + ActorHeader + " header")

// ActorFromHeader parses the actor header.
func ActorFromHeader(h http.Header) (uuid.UUID, error) {
	raw := h.Get(ActorHeader)
	if raw == "" {
		return uuid.Nil, errMissingActor
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s header: %w", ActorHeader, err)
	}
	return id, nil
}

// NewActorInterceptor rejects calls without a valid actor header and stores
// the actor on the context for the app layer.
func NewActorInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			actor, err := ActorFromHeader(req.Header())
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(access.WithActor(ctx, actor), req)
		}
	}
}

// HandlerOptions are applied to every procedure.
func HandlerOptions(extra ...connect.HandlerOption) []connect.HandlerOption {
	opts := []connect.HandlerOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithInterceptors(NewActorInterceptor()),
	}
	return append(opts, extra...)
}
