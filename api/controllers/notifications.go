package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ttkdelivery/ttk-backend/api/responses"
	"github.com/ttkdelivery/ttk-backend/api/validators"
	notificationsvc "github.com/ttkdelivery/ttk-backend/internal/notifications"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

// NotificationPreferences lists the caller's per-category settings,
// with defaults filled in for categories that have no stored row.
func NotificationPreferences(svc notificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		prefs, err := svc.Preferences(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, prefs)
	}
}

type updatePreferenceRequest struct {
	Category string     `json:"category" validate:"required"`
	Muted    bool       `json:"muted"`
	Until    *time.Time `json:"until,omitempty"`
}

// NotificationPreferencesUpdate writes one category's setting. Muted
// false clears any stored row, returning the category to its default.
func NotificationPreferencesUpdate(svc notificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePreferenceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := enums.ParseNotificationCategory(strings.TrimSpace(payload.Category))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}

		if payload.Muted {
			err = svc.Mute(r.Context(), actor.UserID, category, payload.Until)
		} else {
			err = svc.Unmute(r.Context(), actor.UserID, category)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"category": category, "muted": payload.Muted})
	}
}

type muteRequest struct {
	Category string     `json:"category" validate:"required"`
	Until    *time.Time `json:"until,omitempty"`
}

// NotificationMute silences a category, permanently or until a deadline.
func NotificationMute(svc notificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload muteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := enums.ParseNotificationCategory(strings.TrimSpace(payload.Category))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}

		if err := svc.Mute(r.Context(), actor.UserID, category, payload.Until); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"category": category, "muted": true})
	}
}

type unmuteRequest struct {
	Category string `json:"category" validate:"required"`
}

func NotificationUnmute(svc notificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload unmuteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := enums.ParseNotificationCategory(strings.TrimSpace(payload.Category))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}

		if err := svc.Unmute(r.Context(), actor.UserID, category); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"category": category, "muted": false})
	}
}
