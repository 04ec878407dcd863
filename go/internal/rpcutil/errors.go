package rpcutil

import (
	"errors"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/apperr"
	"github.com/rs/zerolog/log"
)

// ToConnectError maps the apperr taxonomy onto Connect codes. Anything
// unclassified is logged and returned as Internal.
func ToConnectError(procedure string, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotAuthorized):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, apperr.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, apperr.ErrValidation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, apperr.ErrConflict):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	}
	log.Error().Err(err).Str("procedure", procedure).Msg("request failed")
	return connect.NewError(connect.CodeInternal, err)
}

// ParseID parses a required UUID field.
func ParseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, errors.New(field+" must be a valid UUID"))
	}
	return id, nil
}

// ParseOptionalID parses a UUID field that may be empty.
func ParseOptionalID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := ParseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
