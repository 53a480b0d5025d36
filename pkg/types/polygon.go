package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

// LatLng is a single vertex of a region boundary.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PolygonRing is an ordered set of boundary vertices persisted as
// JSONB. The ring is implicitly closed: the last vertex connects back
// to the first.
type PolygonRing []LatLng

// Value marshals the ring into JSON for Postgres.
func (p PolygonRing) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	buf, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the ring.
func (p *PolygonRing) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("polygon ring: unsupported scan type %T", value)
	}

	result := PolygonRing{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*p = result
	return nil
}

// Ring converts the stored vertices into an orb.Ring, closing it if
// the stored form leaves the last vertex open.
func (p PolygonRing) Ring() orb.Ring {
	if len(p) == 0 {
		return nil
	}

	ring := make(orb.Ring, 0, len(p)+1)
	for _, vertex := range p {
		ring = append(ring, orb.Point{vertex.Lng, vertex.Lat})
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// Polygon wraps the ring as a single-ring orb.Polygon.
func (p PolygonRing) Polygon() orb.Polygon {
	ring := p.Ring()
	if ring == nil {
		return nil
	}
	return orb.Polygon{ring}
}
