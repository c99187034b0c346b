package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// YardFence is the polygonal boundary of the collection yard. Field reports
// captured inside it are treated as yard-sourced even when the origin text
// does not name the yard.
type YardFence struct {
	Name string
	ring orb.Ring
}

// ParseYardFence decodes a fence from its config representation: a JSON array
// of [lng, lat] pairs. An empty string yields a nil fence (geofencing off).
func ParseYardFence(raw string) (*YardFence, error) {
	if raw == "" {
		return nil, nil
	}
	var pairs [][2]float64
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, fmt.Errorf("yard geofence: invalid JSON: %w", err)
	}
	if len(pairs) < 3 {
		return nil, errors.New("yard geofence: polygon needs at least 3 points")
	}
	ring := make(orb.Ring, 0, len(pairs)+1)
	for i, p := range pairs {
		lng, lat := p[0], p[1]
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return nil, fmt.Errorf("yard geofence: point %d out of range", i)
		}
		ring = append(ring, orb.Point{lng, lat})
	}
	if !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return &YardFence{ring: ring}, nil
}

// Contains reports whether the coordinate lies inside the fence. A nil fence
// contains nothing.
func (f *YardFence) Contains(lat, lng float64) bool {
	if f == nil || len(f.ring) < 4 {
		return false
	}
	return planar.RingContains(f.ring, orb.Point{lng, lat})
}
