package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
	ctxRating contextKey = "star_rating"
)

func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.UserRole); ok {
		return v
	}
	return ""
}

// RatingFromContext returns the buyer's star rating, or nil for
// unrated accounts.
func RatingFromContext(ctx context.Context) *enums.StarRating {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxRating).(*enums.StarRating); ok {
		return v
	}
	return nil
}

// WithActor injects the authenticated actor into the context. Exposed
// for handler tests.
func WithActor(ctx context.Context, userID uuid.UUID, role enums.UserRole, rating *enums.StarRating) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxRole, role)
	if rating != nil {
		ctx = context.WithValue(ctx, ctxRating, rating)
	}
	return ctx
}
