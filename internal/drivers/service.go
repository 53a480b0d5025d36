package drivers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
	"github.com/ttkdelivery/ttk-backend/pkg/outbox"
)

// RegionChange reports a driver moving between regions. Nil ids mean
// outside every service area.
type RegionChange struct {
	From *uuid.UUID `json:"from,omitempty"`
	To   *uuid.UUID `json:"to,omitempty"`
}

// Service tracks live driver positions and their region membership.
type Service interface {
	UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64, at time.Time) (*Location, *RegionChange, error)
	Current(ctx context.Context, driverID uuid.UUID) (*Location, error)
	InRegion(ctx context.Context, regionID uuid.UUID) ([]Location, error)
	All(ctx context.Context) ([]Location, error)
	DropStale(ctx context.Context, cutoff time.Time) int
}

type regionResolver interface {
	Resolve(ctx context.Context, lat, lng float64) (*models.Region, error)
}

type locationCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DriverLocationKey(driverID string) string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	registry *registry
	regions  regionResolver
	cache    locationCache
	tx       txRunner
	events   eventEmitter
	ttl      time.Duration
	logg     *logger.Logger
}

// Config carries driver tracking settings.
type Config struct {
	LocationTTL time.Duration
}

// NewService wires driver tracking dependencies. The cache is
// optional; without it positions live in memory only.
func NewService(regions regionResolver, cache locationCache, tx txRunner, events eventEmitter, cfg Config, logg *logger.Logger) (Service, error) {
	if regions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "region resolver required")
	}
	if tx == nil || events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox wiring required")
	}
	ttl := cfg.LocationTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &service{
		registry: newRegistry(),
		regions:  regions,
		cache:    cache,
		tx:       tx,
		events:   events,
		ttl:      ttl,
		logg:     logg,
	}, nil
}

// UpdateLocation records a GPS ping. A position outside every region
// is stored with a nil region; that is a normal outcome, not an error.
func (s *service) UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64, at time.Time) (*Location, *RegionChange, error) {
	if driverID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}
	if at.IsZero() {
		at = time.Now()
	}

	loc := Location{DriverID: driverID, Lat: lat, Lng: lng, UpdatedAt: at}
	region, err := s.regions.Resolve(ctx, lat, lng)
	if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, nil, err
	}
	if region != nil {
		loc.RegionID = &region.ID
		loc.RegionSlug = region.Slug
	}

	prev, existed := s.registry.store(loc)

	if s.cache != nil {
		payload, err := json.Marshal(loc)
		if err == nil {
			err = s.cache.Set(ctx, s.cache.DriverLocationKey(driverID.String()), payload, s.ttl)
		}
		if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "driver_id", driverID.String()), "driver location cache write failed")
		}
	}

	var change *RegionChange
	if regionChanged(existed, prev, loc) {
		var from *uuid.UUID
		if existed {
			from = prev.RegionID
		}
		change = &RegionChange{From: from, To: loc.RegionID}
		if err := s.emitRegionChange(ctx, driverID, change); err != nil {
			return nil, nil, err
		}
	}
	return &loc, change, nil
}

func (s *service) Current(ctx context.Context, driverID uuid.UUID) (*Location, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	loc, ok := s.registry.get(driverID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no known location for driver")
	}
	return &loc, nil
}

func (s *service) InRegion(ctx context.Context, regionID uuid.UUID) ([]Location, error) {
	if regionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region id required")
	}
	return s.registry.inRegion(regionID), nil
}

func (s *service) All(ctx context.Context) ([]Location, error) {
	return s.registry.all(), nil
}

func (s *service) DropStale(ctx context.Context, cutoff time.Time) int {
	return s.registry.dropStale(cutoff)
}

func (s *service) emitRegionChange(ctx context.Context, driverID uuid.UUID, change *RegionChange) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if change.From != nil {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventDriverLeftRegion,
				AggregateType: enums.AggregateDriver,
				AggregateID:   driverID,
				Data:          map[string]any{"region_id": change.From.String()},
			})
			if err != nil {
				return err
			}
		}
		if change.To != nil {
			return s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventDriverEnteredRegion,
				AggregateType: enums.AggregateDriver,
				AggregateID:   driverID,
				Data:          map[string]any{"region_id": change.To.String()},
			})
		}
		return nil
	})
}

func regionChanged(existed bool, prev, next Location) bool {
	if !existed {
		return next.RegionID != nil
	}
	switch {
	case prev.RegionID == nil && next.RegionID == nil:
		return false
	case prev.RegionID == nil || next.RegionID == nil:
		return true
	default:
		return *prev.RegionID != *next.RegionID
	}
}
