package drivers

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Location is one driver's last known position.
type Location struct {
	DriverID   uuid.UUID  `json:"driver_id"`
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	RegionID   *uuid.UUID `json:"region_id,omitempty"`
	RegionSlug string     `json:"region_slug,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// registry is the in-memory source of truth for live driver positions.
// Redis mirrors it with a TTL so positions survive process restarts.
type registry struct {
	mu        sync.RWMutex
	locations map[uuid.UUID]Location
}

func newRegistry() *registry {
	return &registry{locations: make(map[uuid.UUID]Location)}
}

// store saves the location and returns the previous one, if any.
func (r *registry) store(loc Location) (Location, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.locations[loc.DriverID]
	r.locations[loc.DriverID] = loc
	return prev, ok
}

func (r *registry) get(driverID uuid.UUID) (Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.locations[driverID]
	return loc, ok
}

func (r *registry) remove(driverID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locations, driverID)
}

// inRegion lists drivers whose last position resolved to the region.
func (r *registry) inRegion(regionID uuid.UUID) []Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Location, 0)
	for _, loc := range r.locations {
		if loc.RegionID != nil && *loc.RegionID == regionID {
			out = append(out, loc)
		}
	}
	return out
}

func (r *registry) all() []Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Location, 0, len(r.locations))
	for _, loc := range r.locations {
		out = append(out, loc)
	}
	return out
}

// dropStale removes entries older than the cutoff and returns how many
// went away.
func (r *registry) dropStale(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id, loc := range r.locations {
		if loc.UpdatedAt.Before(cutoff) {
			delete(r.locations, id)
			dropped++
		}
	}
	return dropped
}
