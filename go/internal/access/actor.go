package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/apperr"
)

type actorKey struct{}

// WithActor returns a context carrying the resolved actor. Authentication
// happens upstream; this package only carries its result.
func WithActor(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the actor stored in ctx or ErrNotAuthorized.
func ActorFrom(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("no actor on request: %w", apperr.ErrNotAuthorized)
	}
	return id, nil
}

// RequireMember resolves the actor and checks team membership. Team admins
// count as members.
func RequireMember(ctx context.Context, dir Directory, teamID uuid.UUID) (uuid.UUID, error) {
	actor, err := ActorFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	ok, err := dir.IsMember(ctx, teamID, actor)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return uuid.Nil, fmt.Errorf("user %s is not a member of team %s: %w", actor, teamID, apperr.ErrNotAuthorized)
	}
	return actor, nil
}

// RequireAdmin resolves the actor and checks that it administers the team.
func RequireAdmin(ctx context.Context, dir Directory, teamID uuid.UUID) (uuid.UUID, error) {
	actor, err := ActorFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	ok, err := dir.IsAdmin(ctx, teamID, actor)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to check team admin: %w", err)
	}
	if !ok {
		return uuid.Nil, fmt.Errorf("user %s is not an admin of team %s: %w", actor, teamID, apperr.ErrNotAuthorized)
	}
	return actor, nil
}

// RequireSelfOrAdmin lets users read their own data and team admins read
// their members' data. teamID may be nil only when reading one's own data.
func RequireSelfOrAdmin(ctx context.Context, dir Directory, userID uuid.UUID, teamID *uuid.UUID) (uuid.UUID, error) {
	actor, err := ActorFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if actor == userID {
		return actor, nil
	}
	if teamID == nil {
		return uuid.Nil, fmt.Errorf("team is required to read another user's data: %w", apperr.ErrNotAuthorized)
	}
	return RequireAdmin(ctx, dir, *teamID)
}
