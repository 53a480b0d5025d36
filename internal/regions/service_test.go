package regions

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/outbox"
	"github.com/ttkdelivery/ttk-backend/pkg/types"
)

type fakeRepository struct {
	created      []*models.Region
	regions      []models.Region
	listErr      error
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*models.Region, error)
	setActiveFn  func(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	updateCalled bool
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, region *models.Region) error {
	region.ID = uuid.New()
	f.created = append(f.created, region)
	return nil
}

func (f *fakeRepository) Update(ctx context.Context, region *models.Region) error {
	f.updateCalled = true
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Region, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetBySlug(ctx context.Context, slug string) (*models.Region, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListActive(ctx context.Context) ([]models.Region, error) {
	return f.regions, f.listErr
}

func (f *fakeRepository) ListAll(ctx context.Context) ([]models.Region, error) {
	return f.regions, f.listErr
}

func (f *fakeRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	if f.setActiveFn != nil {
		return f.setActiveFn(ctx, id, active)
	}
	return false, nil
}

type fakeTx struct{ calls int }

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	return fn(&gorm.DB{})
}

type fakeEmitter struct{ events []outbox.DomainEvent }

func (f *fakeEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo, nil, nil, false, nil)
	return svc
}

func squareBoundary() types.PolygonRing {
	return types.PolygonRing{
		{Lat: 33.90, Lng: -117.45},
		{Lat: 33.90, Lng: -117.30},
		{Lat: 34.00, Lng: -117.30},
		{Lat: 34.00, Lng: -117.45},
	}
}

func TestService_CreateRegion(t *testing.T) {
	repo := &fakeRepository{}
	svc := newServiceWithRepo(repo)

	region, err := svc.Create(context.Background(), CreateParams{
		Slug:     "Riverside",
		Name:     "Riverside",
		Boundary: squareBoundary(),
		Areas:    []string{"downtown", "canyon crest"},
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if region.Slug != "riverside" {
		t.Fatalf("expected lowered slug, got %q", region.Slug)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created region")
	}
}

func TestService_CreateRejectsDegenerateBoundary(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})

	_, err := svc.Create(context.Background(), CreateParams{
		Slug: "line",
		Name: "Line",
		Boundary: types.PolygonRing{
			{Lat: 1, Lng: 1},
			{Lat: 2, Lng: 2},
			{Lat: 1, Lng: 1},
		},
	})
	if err == nil {
		t.Fatal("expected validation error for degenerate boundary")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestService_CreateRejectsSelfIntersection(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})

	// Bowtie: edges cross in the middle.
	_, err := svc.Create(context.Background(), CreateParams{
		Slug: "bowtie",
		Name: "Bowtie",
		Boundary: types.PolygonRing{
			{Lat: 0, Lng: 0},
			{Lat: 2, Lng: 2},
			{Lat: 0, Lng: 2},
			{Lat: 2, Lng: 0},
		},
	})
	if err == nil {
		t.Fatal("expected validation error for self-intersecting boundary")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestService_CreateRejectsOverlapWithActiveRegion(t *testing.T) {
	existing := models.Region{
		ID:       uuid.New(),
		Slug:     "riverside",
		Boundary: squareBoundary(),
		IsActive: true,
	}
	svc := newServiceWithRepo(&fakeRepository{regions: []models.Region{existing}})

	// Shifted square still covering part of the existing one.
	_, err := svc.Create(context.Background(), CreateParams{
		Slug: "moreno-valley",
		Name: "Moreno Valley",
		Boundary: types.PolygonRing{
			{Lat: 33.95, Lng: -117.40},
			{Lat: 33.95, Lng: -117.20},
			{Lat: 34.05, Lng: -117.20},
			{Lat: 34.05, Lng: -117.40},
		},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for overlapping boundary, got %v", err)
	}
}

func TestService_CreateAllowsDisjointRegion(t *testing.T) {
	existing := models.Region{
		ID:       uuid.New(),
		Slug:     "riverside",
		Boundary: squareBoundary(),
		IsActive: true,
	}
	repo := &fakeRepository{regions: []models.Region{existing}}
	svc := newServiceWithRepo(repo)

	_, err := svc.Create(context.Background(), CreateParams{
		Slug: "corona",
		Name: "Corona",
		Boundary: types.PolygonRing{
			{Lat: 33.80, Lng: -117.60},
			{Lat: 33.80, Lng: -117.50},
			{Lat: 33.88, Lng: -117.50},
			{Lat: 33.88, Lng: -117.60},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error for disjoint boundary: %v", err)
	}
}

func TestService_ResolveInsideRegion(t *testing.T) {
	region := models.Region{
		ID:       uuid.New(),
		Slug:     "riverside",
		Name:     "Riverside",
		Boundary: squareBoundary(),
		IsActive: true,
	}
	svc := newServiceWithRepo(&fakeRepository{regions: []models.Region{region}})

	got, err := svc.Resolve(context.Background(), 33.95, -117.40)
	if err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}
	if got.ID != region.ID {
		t.Fatalf("expected region %s, got %s", region.ID, got.ID)
	}
}

func TestService_ResolveBoundaryPointCountsInside(t *testing.T) {
	region := models.Region{
		ID:       uuid.New(),
		Slug:     "riverside",
		Boundary: squareBoundary(),
		IsActive: true,
	}
	svc := newServiceWithRepo(&fakeRepository{regions: []models.Region{region}})

	// Point sits exactly on the southern edge.
	got, err := svc.Resolve(context.Background(), 33.90, -117.40)
	if err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}
	if got.ID != region.ID {
		t.Fatal("boundary point should resolve to the region")
	}
}

func TestService_ResolveOutsideReturnsNotFound(t *testing.T) {
	region := models.Region{
		ID:       uuid.New(),
		Slug:     "riverside",
		Boundary: squareBoundary(),
		IsActive: true,
	}
	svc := newServiceWithRepo(&fakeRepository{regions: []models.Region{region}})

	_, err := svc.Resolve(context.Background(), 35.00, -117.40)
	if err == nil {
		t.Fatal("expected not found for point outside all regions")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestService_ResolveOverlapPicksFirstByCreation(t *testing.T) {
	first := models.Region{ID: uuid.New(), Slug: "first", Boundary: squareBoundary(), IsActive: true}
	second := models.Region{ID: uuid.New(), Slug: "second", Boundary: squareBoundary(), IsActive: true}
	svc := newServiceWithRepo(&fakeRepository{regions: []models.Region{first, second}})

	got, err := svc.Resolve(context.Background(), 33.95, -117.40)
	if err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}
	if got.ID != first.ID {
		t.Fatal("overlap should resolve to the earliest created region")
	}
}

func TestService_ResolveRejectsBadCoordinates(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	_, err := svc.Resolve(context.Background(), 120, 0)
	if err == nil {
		t.Fatal("expected validation error for out-of-range latitude")
	}
}

func TestService_ResolveRepoFailure(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{listErr: errors.New("db down")})
	_, err := svc.Resolve(context.Background(), 33.95, -117.40)
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestService_SetActive(t *testing.T) {
	repo := &fakeRepository{
		setActiveFn: func(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
			return true, nil
		},
	}
	svc := newServiceWithRepo(repo)
	if err := svc.SetActive(context.Background(), uuid.New(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svcMissing := newServiceWithRepo(&fakeRepository{})
	if err := svcMissing.SetActive(context.Background(), uuid.New(), false); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestService_CreateEmitsBroadcastWhenEnabled(t *testing.T) {
	repo := &fakeRepository{}
	tx := &fakeTx{}
	emitter := &fakeEmitter{}
	svc, err := NewService(repo, tx, emitter, true, nil)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	region, err := svc.Create(context.Background(), CreateParams{
		Slug:     "riverside",
		Name:     "Riverside",
		Boundary: squareBoundary(),
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
	event := emitter.events[0]
	if event.EventType != enums.EventRegionBroadcast {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.AggregateID != region.ID {
		t.Fatal("event should reference the created region")
	}
}

func TestService_SetActiveEmitsBroadcastOnActivation(t *testing.T) {
	region := &models.Region{ID: uuid.New(), Slug: "riverside", Name: "Riverside", Boundary: squareBoundary()}
	repo := &fakeRepository{
		setActiveFn: func(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
			return true, nil
		},
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Region, error) {
			return region, nil
		},
	}
	emitter := &fakeEmitter{}
	svc, err := NewService(repo, &fakeTx{}, emitter, true, nil)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	if err := svc.SetActive(context.Background(), region.ID, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}

	if err := svc.SetActive(context.Background(), region.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emitter.events) != 1 {
		t.Fatal("deactivation should not broadcast")
	}
}

func TestService_BroadcastRequiresOutboxWiring(t *testing.T) {
	if _, err := NewService(&fakeRepository{}, nil, nil, true, nil); err == nil {
		t.Fatal("expected constructor error without outbox wiring")
	}
}
