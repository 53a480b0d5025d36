package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/api/responses"
	"github.com/ttkdelivery/ttk-backend/api/validators"
	catalogsvc "github.com/ttkdelivery/ttk-backend/internal/catalog"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

func ComboList(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := !validators.ParseQueryBool(r, "include_inactive")
		combos, err := svc.ListCombos(r.Context(), activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, combos)
	}
}

func ComboDetail(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "comboId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		combo, err := svc.GetCombo(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, combo)
	}
}

type comboSlotRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createComboRequest struct {
	Name       string             `json:"name" validate:"required"`
	PriceCents int64              `json:"price_cents" validate:"required,min=1"`
	Slots      []comboSlotRequest `json:"slots" validate:"required,min=1,dive"`
}

func AdminComboCreate(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createComboRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slots := make([]catalogsvc.ComboSlotParams, 0, len(payload.Slots))
		for _, slot := range payload.Slots {
			productID, err := uuid.Parse(slot.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid slot product_id"))
				return
			}
			slots = append(slots, catalogsvc.ComboSlotParams{ProductID: productID, Quantity: slot.Quantity})
		}

		combo, err := svc.CreateCombo(r.Context(), catalogsvc.CreateComboParams{
			Name:       payload.Name,
			PriceCents: payload.PriceCents,
			Slots:      slots,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, combo)
	}
}

type setComboActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func AdminComboSetActive(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "comboId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setComboActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetComboActive(r.Context(), id, *payload.Active); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "active": *payload.Active})
	}
}
