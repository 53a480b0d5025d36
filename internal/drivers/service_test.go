package drivers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/outbox"
)

type fakeResolver struct {
	resolveFn func(ctx context.Context, lat, lng float64) (*models.Region, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, lat, lng float64) (*models.Region, error) {
	if f.resolveFn != nil {
		return f.resolveFn(ctx, lat, lng)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no delivery region covers this location")
}

type fakeCache struct {
	keys []string
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeCache) DriverLocationKey(driverID string) string {
	return "driver:location:" + driverID
}

type fakeTx struct{}

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func regionResolverFor(region *models.Region) *fakeResolver {
	return &fakeResolver{resolveFn: func(ctx context.Context, lat, lng float64) (*models.Region, error) {
		if region == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no delivery region covers this location")
		}
		return region, nil
	}}
}

func newTestService(t *testing.T, resolver *fakeResolver, cache *fakeCache) (*service, *fakeEmitter) {
	t.Helper()
	emitter := &fakeEmitter{}
	svc := &service{
		registry: newRegistry(),
		regions:  resolver,
		tx:       &fakeTx{},
		events:   emitter,
		ttl:      time.Minute,
	}
	if cache != nil {
		svc.cache = cache
	}
	return svc, emitter
}

func TestUpdateLocationEnteringRegionEmitsEvent(t *testing.T) {
	region := &models.Region{ID: uuid.New(), Slug: "riverside"}
	svc, emitter := newTestService(t, regionResolverFor(region), nil)
	driverID := uuid.New()

	loc, change, err := svc.UpdateLocation(context.Background(), driverID, 33.95, -117.40, time.Now())
	if err != nil {
		t.Fatalf("update location: %v", err)
	}
	if loc.RegionID == nil || *loc.RegionID != region.ID {
		t.Fatalf("expected location resolved to %s, got %v", region.ID, loc.RegionID)
	}
	if loc.RegionSlug != "riverside" {
		t.Fatalf("expected slug riverside, got %q", loc.RegionSlug)
	}
	if change == nil || change.From != nil || change.To == nil || *change.To != region.ID {
		t.Fatalf("expected entry change into %s, got %+v", region.ID, change)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(emitter.events))
	}
	if emitter.events[0].EventType != enums.EventDriverEnteredRegion {
		t.Fatalf("unexpected event type %s", emitter.events[0].EventType)
	}
	if emitter.events[0].AggregateID != driverID {
		t.Fatalf("expected aggregate %s, got %s", driverID, emitter.events[0].AggregateID)
	}
}

func TestUpdateLocationOutsideAllRegionsIsNormal(t *testing.T) {
	svc, emitter := newTestService(t, &fakeResolver{}, nil)
	driverID := uuid.New()

	loc, change, err := svc.UpdateLocation(context.Background(), driverID, 10, 10, time.Now())
	if err != nil {
		t.Fatalf("expected outside service area to succeed, got %v", err)
	}
	if loc.RegionID != nil {
		t.Fatalf("expected nil region, got %v", loc.RegionID)
	}
	if change != nil {
		t.Fatalf("expected no region change, got %+v", change)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("expected no events, got %d", len(emitter.events))
	}
}

func TestUpdateLocationRegionSwitchEmitsLeftAndEntered(t *testing.T) {
	first := &models.Region{ID: uuid.New(), Slug: "riverside"}
	second := &models.Region{ID: uuid.New(), Slug: "corona"}
	current := first
	resolver := &fakeResolver{resolveFn: func(ctx context.Context, lat, lng float64) (*models.Region, error) {
		return current, nil
	}}
	svc, emitter := newTestService(t, resolver, nil)
	driverID := uuid.New()

	if _, _, err := svc.UpdateLocation(context.Background(), driverID, 33.95, -117.40, time.Now()); err != nil {
		t.Fatalf("first ping: %v", err)
	}
	current = second
	_, change, err := svc.UpdateLocation(context.Background(), driverID, 33.84, -117.55, time.Now())
	if err != nil {
		t.Fatalf("second ping: %v", err)
	}
	if change == nil || change.From == nil || *change.From != first.ID || change.To == nil || *change.To != second.ID {
		t.Fatalf("expected change %s -> %s, got %+v", first.ID, second.ID, change)
	}
	if len(emitter.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(emitter.events))
	}
	if emitter.events[1].EventType != enums.EventDriverLeftRegion {
		t.Fatalf("expected left event second, got %s", emitter.events[1].EventType)
	}
	if emitter.events[2].EventType != enums.EventDriverEnteredRegion {
		t.Fatalf("expected entered event third, got %s", emitter.events[2].EventType)
	}
}

func TestUpdateLocationSameRegionNoEvent(t *testing.T) {
	region := &models.Region{ID: uuid.New(), Slug: "riverside"}
	svc, emitter := newTestService(t, regionResolverFor(region), nil)
	driverID := uuid.New()

	if _, _, err := svc.UpdateLocation(context.Background(), driverID, 33.95, -117.40, time.Now()); err != nil {
		t.Fatalf("first ping: %v", err)
	}
	_, change, err := svc.UpdateLocation(context.Background(), driverID, 33.96, -117.41, time.Now())
	if err != nil {
		t.Fatalf("second ping: %v", err)
	}
	if change != nil {
		t.Fatalf("expected no change, got %+v", change)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected only the entry event, got %d", len(emitter.events))
	}
}

func TestUpdateLocationRejectsBadCoordinates(t *testing.T) {
	svc, _ := newTestService(t, &fakeResolver{}, nil)

	_, _, err := svc.UpdateLocation(context.Background(), uuid.New(), 91, 0, time.Now())
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, _, err = svc.UpdateLocation(context.Background(), uuid.New(), 0, -181, time.Now())
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateLocationMirrorsToCache(t *testing.T) {
	cache := &fakeCache{}
	svc, _ := newTestService(t, &fakeResolver{}, cache)
	driverID := uuid.New()

	if _, _, err := svc.UpdateLocation(context.Background(), driverID, 10, 10, time.Now()); err != nil {
		t.Fatalf("update location: %v", err)
	}
	if len(cache.keys) != 1 || cache.keys[0] != "driver:location:"+driverID.String() {
		t.Fatalf("expected cache write under driver key, got %v", cache.keys)
	}
}

func TestCurrentUnknownDriver(t *testing.T) {
	svc, _ := newTestService(t, &fakeResolver{}, nil)

	_, err := svc.Current(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInRegionFiltersByRegion(t *testing.T) {
	region := &models.Region{ID: uuid.New(), Slug: "riverside"}
	resolver := &fakeResolver{resolveFn: func(ctx context.Context, lat, lng float64) (*models.Region, error) {
		if lat > 0 {
			return region, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no delivery region covers this location")
	}}
	svc, _ := newTestService(t, resolver, nil)
	inside := uuid.New()
	outside := uuid.New()

	if _, _, err := svc.UpdateLocation(context.Background(), inside, 33.95, -117.40, time.Now()); err != nil {
		t.Fatalf("inside ping: %v", err)
	}
	if _, _, err := svc.UpdateLocation(context.Background(), outside, -10, 10, time.Now()); err != nil {
		t.Fatalf("outside ping: %v", err)
	}

	locations, err := svc.InRegion(context.Background(), region.ID)
	if err != nil {
		t.Fatalf("in region: %v", err)
	}
	if len(locations) != 1 || locations[0].DriverID != inside {
		t.Fatalf("expected only the inside driver, got %+v", locations)
	}
}

func TestDropStaleRemovesOldPings(t *testing.T) {
	svc, _ := newTestService(t, &fakeResolver{}, nil)
	stale := uuid.New()
	fresh := uuid.New()
	now := time.Now()

	if _, _, err := svc.UpdateLocation(context.Background(), stale, 10, 10, now.Add(-time.Hour)); err != nil {
		t.Fatalf("stale ping: %v", err)
	}
	if _, _, err := svc.UpdateLocation(context.Background(), fresh, 10, 10, now); err != nil {
		t.Fatalf("fresh ping: %v", err)
	}

	dropped := svc.DropStale(context.Background(), now.Add(-time.Minute))
	if dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}
	if _, err := svc.Current(context.Background(), stale); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected stale driver gone, got %v", err)
	}
	if _, err := svc.Current(context.Background(), fresh); err != nil {
		t.Fatalf("expected fresh driver kept, got %v", err)
	}
}
