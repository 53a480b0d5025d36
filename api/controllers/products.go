package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/api/middleware"
	"github.com/ttkdelivery/ttk-backend/api/responses"
	"github.com/ttkdelivery/ttk-backend/api/validators"
	catalogsvc "github.com/ttkdelivery/ttk-backend/internal/catalog"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
	"github.com/ttkdelivery/ttk-backend/pkg/outbox"
)

const defaultListLimit = 20

// ProductList serves the storefront catalog. Hidden items only appear
// for admins asking for them.
func ProductList(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := catalogsvc.ListProductsParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, err := enums.ParseProductCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			params.Category = &category
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("region_id")); raw != "" {
			regionID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid region_id"))
				return
			}
			params.RegionID = &regionID
		}
		if middleware.RoleFromContext(r.Context()) == enums.UserRoleAdmin {
			params.IncludeHidden = validators.ParseQueryBool(r, "include_hidden")
		}

		products, nextCursor, err := svc.ListProducts(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, products, nextCursor)
	}
}

func ProductDetail(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	Name           string           `json:"name" validate:"required"`
	Description    *string          `json:"description,omitempty"`
	Category       string           `json:"category" validate:"required"`
	PriceCents     int64            `json:"price_cents" validate:"omitempty,min=0"`
	PriceTable     map[string]int64 `json:"price_table,omitempty"`
	RequiresRating bool             `json:"requires_rating"`
	RegionIDs      []string         `json:"region_ids,omitempty"`
}

func AdminProductCreate(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := enums.ParseProductCategory(strings.TrimSpace(payload.Category))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}
		regionIDs, err := parseUUIDList(payload.RegionIDs, "region_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), catalogsvc.CreateProductParams{
			Name:           payload.Name,
			Description:    payload.Description,
			Category:       category,
			PriceCents:     payload.PriceCents,
			PriceTable:     payload.PriceTable,
			RequiresRating: payload.RequiresRating,
			RegionIDs:      regionIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	PriceCents  *int64           `json:"price_cents,omitempty" validate:"omitempty,min=0"`
	PriceTable  map[string]int64 `json:"price_table,omitempty"`
	RegionIDs   []string         `json:"region_ids,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

func AdminProductUpdate(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := catalogsvc.UpdateProductParams{
			Name:        payload.Name,
			Description: payload.Description,
			PriceCents:  payload.PriceCents,
			PriceTable:  payload.PriceTable,
			IsActive:    payload.IsActive,
		}
		if payload.Category != nil {
			category, err := enums.ParseProductCategory(strings.TrimSpace(*payload.Category))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			params.Category = &category
		}
		if payload.RegionIDs != nil {
			regionIDs, err := parseUUIDList(payload.RegionIDs, "region_ids")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			params.RegionIDs = regionIDs
		}

		product, err := svc.UpdateProduct(r.Context(), id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type setStockRequest struct {
	InStock *bool `json:"in_stock" validate:"required"`
}

func AdminProductSetStock(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := adminActorRef(r)
		if err := svc.SetProductStock(r.Context(), id, *payload.InStock, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "in_stock": *payload.InStock})
	}
}

func adminActorRef(r *http.Request) *outbox.ActorRef {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID: userID,
		Role:   string(middleware.RoleFromContext(r.Context())),
	}
}

func parseUUIDList(values []string, field string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(values))
	for _, raw := range values {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
