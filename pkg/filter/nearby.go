package filter

import (
	"math"
	"sort"

	"tableflip.dev/moodlog/pkg/event"
)

const (
	earthRadiusKm = 6371.0
	// DefaultRadiusKm is the radius of the nearby view.
	DefaultRadiusKm = 5.0
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// DistanceKm is the haversine great-circle distance between a and b.
func DistanceKm(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Placed is an event with its distance from the origin.
type Placed struct {
	Event      event.Event
	DistanceKm float64
}

// Nearby keeps located events within radiusKm of origin, closest first. A
// radius of zero or less uses DefaultRadiusKm.
func Nearby(events []event.Event, origin Point, radiusKm float64) []Placed {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	out := make([]Placed, 0)
	for _, e := range events {
		if !e.HasLocation() {
			continue
		}
		d := DistanceKm(origin, Point{Latitude: e.Location.Latitude, Longitude: e.Location.Longitude})
		if d <= radiusKm {
			out = append(out, Placed{Event: e.Clone(), DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}
