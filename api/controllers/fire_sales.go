package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/api/responses"
	"github.com/ttkdelivery/ttk-backend/api/validators"
	catalogsvc "github.com/ttkdelivery/ttk-backend/internal/catalog"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

func FireSaleList(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := !validators.ParseQueryBool(r, "include_ended")
		sales, err := svc.ListFireSales(r.Context(), activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sales)
	}
}

type createFireSaleRequest struct {
	Name            string     `json:"name" validate:"required"`
	ProductID       *string    `json:"product_id,omitempty"`
	Category        *string    `json:"category,omitempty"`
	DiscountPercent int        `json:"discount_percent" validate:"required,min=1,max=99"`
	StartsAt        *time.Time `json:"starts_at,omitempty"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
}

func AdminFireSaleCreate(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createFireSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := catalogsvc.CreateFireSaleParams{
			Name:            payload.Name,
			DiscountPercent: payload.DiscountPercent,
			StartsAt:        payload.StartsAt,
			EndsAt:          payload.EndsAt,
		}
		if payload.ProductID != nil {
			productID, err := uuid.Parse(*payload.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id"))
				return
			}
			params.ProductID = &productID
		}
		if payload.Category != nil {
			category, err := enums.ParseProductCategory(strings.TrimSpace(*payload.Category))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			params.Category = &category
		}

		sale, err := svc.CreateFireSale(r.Context(), params, adminActorRef(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

func AdminFireSaleEnd(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "fireSaleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.EndFireSale(r.Context(), id, adminActorRef(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "is_active": false})
	}
}
