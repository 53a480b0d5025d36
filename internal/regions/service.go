package regions

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gorm.io/gorm"

	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	pkgerrors "github.com/ttkdelivery/ttk-backend/pkg/errors"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
	"github.com/ttkdelivery/ttk-backend/pkg/outbox"
	"github.com/ttkdelivery/ttk-backend/pkg/types"
)

// Service defines delivery region management and point resolution.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Region, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*models.Region, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Region, error)
	List(ctx context.Context, includeInactive bool) ([]models.Region, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Resolve(ctx context.Context, lat, lng float64) (*models.Region, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo      Repository
	tx        txRunner
	events    eventEmitter
	broadcast bool
	logg      *logger.Logger
}

// CreateParams carries inputs for defining a new region.
type CreateParams struct {
	Slug     string
	Name     string
	Boundary types.PolygonRing
	Areas    []string
}

// UpdateParams carries mutable region fields. Nil means keep current.
type UpdateParams struct {
	Name     *string
	Boundary types.PolygonRing
	Areas    []string
}

// NewService wires region dependencies. The outbox wiring is optional;
// with broadcast enabled, opening a region emits a region_broadcast
// event for downstream notification fan-out.
func NewService(repo Repository, tx txRunner, events eventEmitter, broadcast bool, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "regions repository required")
	}
	if broadcast && (tx == nil || events == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox wiring required for region broadcast")
	}
	return &service{repo: repo, tx: tx, events: events, broadcast: broadcast, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.Region, error) {
	slug := strings.TrimSpace(strings.ToLower(params.Slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region slug required")
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region name required")
	}
	if err := validateBoundary(params.Boundary); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, params.Boundary, uuid.Nil); err != nil {
		return nil, err
	}

	region := &models.Region{
		Slug:     slug,
		Name:     strings.TrimSpace(params.Name),
		Boundary: params.Boundary,
		Areas:    pq.StringArray(params.Areas),
		IsActive: true,
	}
	if err := s.repo.Create(ctx, region); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create region")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithRegion(ctx, region.Slug), "region created")
	}
	if err := s.emitBroadcast(ctx, region); err != nil {
		return nil, err
	}
	return region, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*models.Region, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region id required")
	}

	region, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "region not found")
	}

	if params.Name != nil {
		if strings.TrimSpace(*params.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "region name required")
		}
		region.Name = strings.TrimSpace(*params.Name)
	}
	if params.Boundary != nil {
		if err := validateBoundary(params.Boundary); err != nil {
			return nil, err
		}
		if err := s.checkOverlap(ctx, params.Boundary, region.ID); err != nil {
			return nil, err
		}
		region.Boundary = params.Boundary
	}
	if params.Areas != nil {
		region.Areas = pq.StringArray(params.Areas)
	}

	if err := s.repo.Update(ctx, region); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update region")
	}
	return region, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Region, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region id required")
	}
	region, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "region not found")
	}
	return region, nil
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]models.Region, error) {
	var (
		rows []models.Region
		err  error
	)
	if includeInactive {
		rows, err = s.repo.ListAll(ctx)
	} else {
		rows, err = s.repo.ListActive(ctx)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list regions")
	}
	return rows, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "region id required")
	}
	found, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set region active")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "region not found")
	}
	if active && s.broadcast {
		region, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload region")
		}
		if err := s.emitBroadcast(ctx, region); err != nil {
			return err
		}
	}
	return nil
}

// emitBroadcast announces a region opening. No-op unless broadcast is
// wired and enabled.
func (s *service) emitBroadcast(ctx context.Context, region *models.Region) error {
	if !s.broadcast {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRegionBroadcast,
			AggregateType: enums.AggregateRegion,
			AggregateID:   region.ID,
			Data: map[string]any{
				"slug": region.Slug,
				"name": region.Name,
			},
		})
	})
}

// Resolve finds the active region containing the point. Regions are
// checked in creation order and the first match wins, so overlapping
// boundaries resolve deterministically. Points on a boundary edge
// count as inside.
func (s *service) Resolve(ctx context.Context, lat, lng float64) (*models.Region, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}

	candidates, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list regions")
	}

	point := orb.Point{lng, lat}
	for i := range candidates {
		polygon := candidates[i].Boundary.Polygon()
		if polygon == nil {
			continue
		}
		if planar.PolygonContains(polygon, point) {
			return &candidates[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no delivery region covers this location")
}

// checkOverlap rejects boundaries that intersect any other active
// region, so every point resolves to at most one region regardless of
// scan order.
func (s *service) checkOverlap(ctx context.Context, boundary types.PolygonRing, excludeID uuid.UUID) error {
	existing, err := s.repo.ListActive(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list regions")
	}

	candidate := boundary.Ring()
	for i := range existing {
		if existing[i].ID == excludeID {
			continue
		}
		other := existing[i].Boundary.Ring()
		if len(other) == 0 {
			continue
		}
		if ringsOverlap(candidate, other) {
			return pkgerrors.New(pkgerrors.CodeValidation, "boundary overlaps another active region").
				WithDetails(map[string]any{"region_slug": existing[i].Slug})
		}
	}
	return nil
}

// ringsOverlap reports intersection between two rings: any crossing
// edge pair, or one ring sitting entirely inside the other.
func ringsOverlap(a, b orb.Ring) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsCross(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	polyA := orb.Polygon{a}
	polyB := orb.Polygon{b}
	for _, p := range a[:len(a)-1] {
		if planar.PolygonContains(polyB, p) {
			return true
		}
	}
	for _, p := range b[:len(b)-1] {
		if planar.PolygonContains(polyA, p) {
			return true
		}
	}
	return false
}

func validateBoundary(boundary types.PolygonRing) error {
	distinct := distinctVertices(boundary)
	if len(distinct) < 3 {
		return pkgerrors.New(pkgerrors.CodeValidation, "boundary needs at least three distinct vertices")
	}
	for _, vertex := range boundary {
		if vertex.Lat < -90 || vertex.Lat > 90 || vertex.Lng < -180 || vertex.Lng > 180 {
			return pkgerrors.New(pkgerrors.CodeValidation, "boundary vertex out of range")
		}
	}
	if ringSelfIntersects(boundary.Ring()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "boundary must not self-intersect")
	}
	return nil
}

func distinctVertices(boundary types.PolygonRing) []types.LatLng {
	seen := make(map[types.LatLng]struct{}, len(boundary))
	out := make([]types.LatLng, 0, len(boundary))
	for _, vertex := range boundary {
		if _, ok := seen[vertex]; ok {
			continue
		}
		seen[vertex] = struct{}{}
		out = append(out, vertex)
	}
	return out
}

// ringSelfIntersects checks every non-adjacent segment pair. Rings are
// small (city-scale boundaries), so the quadratic scan is fine.
func ringSelfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1 // last point repeats the first
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i || (j+1)%n == i || (i+1)%n == j {
				continue
			}
			if segmentsCross(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(a, b, c, d orb.Point) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(a, b, p orb.Point) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}
