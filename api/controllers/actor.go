package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/api/middleware"
	"github.com/ttkdelivery/ttk-backend/internal/orders"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
)

// actorFrom builds the acting identity from the authenticated request.
func actorFrom(r *http.Request) (orders.Actor, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return orders.Actor{
		UserID: userID,
		Role:   middleware.RoleFromContext(r.Context()),
		Rating: middleware.RatingFromContext(r.Context()),
	}, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
