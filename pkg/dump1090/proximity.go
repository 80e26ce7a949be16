package dump1090

import (
	"sort"

	"github.com/unklstewy/ads-bpoll/pkg/coordinates"
)

// Proximity is an aircraft with its distance and bearing from a reference point.
type Proximity struct {
	Aircraft Aircraft
	Distance float64
	Bearing  float64
	Unit     coordinates.Unit
}

// Nearby returns the positioned aircraft in list within radius of
// (lat, lon), sorted by distance. radius <= 0 means no limit. Aircraft
// without a position are left out.
func Nearby(list []Aircraft, lat, lon, radius float64, unit coordinates.Unit) []Proximity {
	var out []Proximity
	for _, ac := range list {
		dist, ok := ac.DistanceFrom(lat, lon, unit)
		if !ok {
			continue
		}
		if radius > 0 && dist > radius {
			continue
		}
		bearing, _ := ac.BearingFrom(lat, lon)
		out = append(out, Proximity{
			Aircraft: ac,
			Distance: dist,
			Bearing:  bearing,
			Unit:     unit,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})
	return out
}
