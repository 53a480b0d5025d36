package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/api/responses"
	"github.com/ttkdelivery/ttk-backend/api/validators"
	cartsvc "github.com/ttkdelivery/ttk-backend/internal/cart"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

// CartFetch returns the caller's cart, priced against the live catalog.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		priced, err := svc.Get(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, priced)
	}
}

type setCartRegionRequest struct {
	RegionID string `json:"region_id" validate:"required"`
}

func CartSetRegion(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setCartRegionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		regionID, err := uuid.Parse(payload.RegionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid region_id"))
			return
		}

		priced, err := svc.SetRegion(r.Context(), actor.UserID, regionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, priced)
	}
}

type addCartLineRequest struct {
	ProductID  *string `json:"product_id,omitempty"`
	ComboID    *string `json:"combo_id,omitempty"`
	StarRating *int    `json:"star_rating,omitempty" validate:"omitempty,min=1,max=5"`
	Quantity   int     `json:"quantity" validate:"required,min=1"`
}

func CartAddLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := cartsvc.AddLineParams{Quantity: payload.Quantity}
		if payload.StarRating != nil {
			rating, err := enums.ParseStarRating(*payload.StarRating)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid star_rating"))
				return
			}
			params.StarRating = &rating
		} else if payload.ComboID == nil {
			// Without an explicit selection, product lines default to
			// the buyer's profile rating from the token.
			params.StarRating = actor.Rating
		}
		if payload.ProductID != nil {
			productID, err := uuid.Parse(*payload.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id"))
				return
			}
			params.ProductID = &productID
		}
		if payload.ComboID != nil {
			comboID, err := uuid.Parse(*payload.ComboID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid combo_id"))
				return
			}
			params.ComboID = &comboID
		}

		priced, err := svc.AddLine(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, priced)
	}
}

type updateCartLineRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

func CartUpdateLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := pathUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		priced, err := svc.UpdateLine(r.Context(), actor.UserID, lineID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, priced)
	}
}

func CartRemoveLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := pathUUID(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		priced, err := svc.RemoveLine(r.Context(), actor.UserID, lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, priced)
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), actor.UserID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
