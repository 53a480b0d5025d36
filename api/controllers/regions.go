package controllers

import (
	"net/http"

	"github.com/ttkdelivery/ttk-backend/api/responses"
	"github.com/ttkdelivery/ttk-backend/api/validators"
	regionsvc "github.com/ttkdelivery/ttk-backend/internal/regions"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
	"github.com/ttkdelivery/ttk-backend/pkg/types"
)

// RegionResolve answers "which region serves this point". A location
// outside every region is a successful lookup, not an error.
func RegionResolve(svc regionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, err := validators.ParseQueryFloat(r, "lat")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "lng")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		region, err := svc.Resolve(r.Context(), lat, lng)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				responses.WriteSuccess(w, map[string]any{"outside": true})
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, region)
	}
}

func RegionList(svc regionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeInactive := validators.ParseQueryBool(r, "include_inactive")
		regions, err := svc.List(r.Context(), includeInactive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, regions)
	}
}

type upsertRegionRequest struct {
	Slug     string        `json:"slug" validate:"required"`
	Name     string        `json:"name" validate:"required"`
	Boundary []types.LatLng `json:"boundary" validate:"required,min=3"`
	Areas    []string      `json:"areas,omitempty"`
}

func AdminRegionCreate(svc regionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload upsertRegionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		region, err := svc.Create(r.Context(), regionsvc.CreateParams{
			Slug:     payload.Slug,
			Name:     payload.Name,
			Boundary: types.PolygonRing(payload.Boundary),
			Areas:    payload.Areas,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, region)
	}
}

type updateRegionRequest struct {
	Name     *string        `json:"name,omitempty"`
	Boundary []types.LatLng `json:"boundary,omitempty" validate:"omitempty,min=3"`
	Areas    []string       `json:"areas,omitempty"`
}

func AdminRegionUpdate(svc regionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "regionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateRegionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		region, err := svc.Update(r.Context(), id, regionsvc.UpdateParams{
			Name:     payload.Name,
			Boundary: types.PolygonRing(payload.Boundary),
			Areas:    payload.Areas,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, region)
	}
}

type setRegionActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func AdminRegionSetActive(svc regionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "regionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setRegionActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetActive(r.Context(), id, *payload.Active); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "active": *payload.Active})
	}
}
