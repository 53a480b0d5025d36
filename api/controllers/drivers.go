package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ttkdelivery/ttk-backend/api/responses"
	"github.com/ttkdelivery/ttk-backend/api/validators"
	driversvc "github.com/ttkdelivery/ttk-backend/internal/drivers"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

type locationPingRequest struct {
	Lat float64    `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64    `json:"lng" validate:"gte=-180,lte=180"`
	At  *time.Time `json:"at,omitempty"`
}

// DriverLocationUpdate ingests a GPS ping from the authenticated
// driver. The response echoes the expected ping cadence so clients
// can adjust without a config fetch.
func DriverLocationUpdate(svc driversvc.Service, pingInterval time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload locationPingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		at := time.Now()
		if payload.At != nil {
			at = *payload.At
		}

		location, change, err := svc.UpdateLocation(r.Context(), actor.UserID, payload.Lat, payload.Lng, at)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body := map[string]any{"location": location}
		if change != nil {
			body["region_change"] = change
		}
		if pingInterval > 0 {
			body["next_ping_seconds"] = int(pingInterval.Seconds())
		}
		responses.WriteSuccess(w, body)
	}
}

// AdminDriverList shows live driver positions, optionally scoped to a
// region.
func AdminDriverList(svc driversvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := strings.TrimSpace(r.URL.Query().Get("region_id")); raw != "" {
			regionID, err := parseUUIDList([]string{raw}, "region_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			locations, err := svc.InRegion(r.Context(), regionID[0])
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, locations)
			return
		}

		locations, err := svc.All(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, locations)
	}
}

// AdminDriverDetail returns the last known position for one driver.
func AdminDriverDetail(svc driversvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := pathUUID(r, "driverId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		location, err := svc.Current(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, location)
	}
}
