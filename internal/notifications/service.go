package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/pkg/db"
	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

// Service resolves whether and to whom notifications go out. Mutes are
// scoped to the calling user; absence of a stored row means "notify".
type Service interface {
	ShouldNotify(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory, asOf time.Time) (bool, error)
	Mute(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory, until *time.Time) error
	Unmute(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory) error
	Preferences(ctx context.Context, userID uuid.UUID) ([]Preference, error)
	Recipients(ctx context.Context, category enums.NotificationCategory, candidates []uuid.UUID, asOf time.Time) ([]uuid.UUID, error)
	CleanupExpiredTimers(ctx context.Context, now time.Time) (int64, error)
}

// Preference is one category's resolved state for a user, defaults
// filled in for categories with no stored row.
type Preference struct {
	Category   enums.NotificationCategory `json:"category"`
	Muted      bool                       `json:"muted"`
	MutedUntil *time.Time                 `json:"muted_until,omitempty"`
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	nowFunc func() time.Time
}

// NewService wires notification dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification repository required")
	}
	return &service{repo: repo, logg: logg, nowFunc: time.Now}, nil
}

func (s *service) ShouldNotify(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory, asOf time.Time) (bool, error) {
	if userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !category.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification category")
	}
	if asOf.IsZero() {
		asOf = s.nowFunc()
	}

	pref, err := s.repo.Get(ctx, userID, category)
	if err != nil {
		if db.IsNotFound(err) {
			return true, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load preference")
	}
	return !pref.MutedAt(asOf), nil
}

// Mute suppresses a category, either indefinitely or until the given
// time. Repeated mutes simply overwrite; the call is idempotent.
func (s *service) Mute(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory, until *time.Time) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification category")
	}
	if until != nil && !until.After(s.nowFunc()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "mute deadline must be in the future")
	}

	pref := &models.NotificationPreference{
		UserID:     userID,
		Category:   category,
		Muted:      until == nil,
		MutedUntil: until,
	}
	if err := s.repo.Upsert(ctx, pref); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store preference")
	}
	return nil
}

// Unmute restores delivery for a category. Unmuting a category that
// was never muted is a no-op.
func (s *service) Unmute(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification category")
	}
	if err := s.repo.Delete(ctx, userID, category); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete preference")
	}
	return nil
}

// Preferences returns every category with its resolved state, stored
// or default.
func (s *service) Preferences(ctx context.Context, userID uuid.UUID) ([]Preference, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	stored, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list preferences")
	}

	byCategory := make(map[enums.NotificationCategory]models.NotificationPreference, len(stored))
	for _, pref := range stored {
		byCategory[pref.Category] = pref
	}

	now := s.nowFunc()
	categories := enums.NotificationCategories()
	out := make([]Preference, 0, len(categories))
	for _, category := range categories {
		pref, ok := byCategory[category]
		if !ok {
			out = append(out, Preference{Category: category})
			continue
		}
		out = append(out, Preference{
			Category:   category,
			Muted:      pref.MutedAt(now),
			MutedUntil: pref.MutedUntil,
		})
	}
	return out, nil
}

// Recipients filters the candidate users down to those who should
// receive the category right now.
func (s *service) Recipients(ctx context.Context, category enums.NotificationCategory, candidates []uuid.UUID, asOf time.Time) ([]uuid.UUID, error) {
	if !category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification category")
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if asOf.IsZero() {
		asOf = s.nowFunc()
	}

	muted, err := s.repo.MutedUserIDs(ctx, category, candidates, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve muted users")
	}
	mutedSet := make(map[uuid.UUID]bool, len(muted))
	for _, id := range muted {
		mutedSet[id] = true
	}

	out := make([]uuid.UUID, 0, len(candidates))
	for _, id := range candidates {
		if !mutedSet[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *service) CleanupExpiredTimers(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = s.nowFunc()
	}
	count, err := s.repo.DeleteExpiredTimers(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cleanup expired mutes")
	}
	return count, nil
}
