package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgauth "github.com/craftora/marketplace-backend/pkg/auth"
	"github.com/craftora/marketplace-backend/pkg/enums"
	pkgerrors "github.com/craftora/marketplace-backend/pkg/errors"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext rebuilds the authenticated actor from context values seeded
// by the Auth middleware.
func ActorFromContext(ctx context.Context) (pkgauth.AccessTokenPayload, error) {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return pkgauth.AccessTokenPayload{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	role, err := enums.ParseActorRole(RoleFromContext(ctx))
	if err != nil {
		return pkgauth.AccessTokenPayload{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return pkgauth.AccessTokenPayload{UserID: userID, Role: role}, nil
}

// WithActor injects the actor identity into the context; used by tests.
func WithActor(ctx context.Context, actor pkgauth.AccessTokenPayload) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, actor.UserID.String())
	return context.WithValue(ctx, ctxRole, string(actor.Role))
}
