package coordinates

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/geodesic"
)

// Constants for coordinate calculations
const (
	// KmToMiles converts kilometers to statute miles
	KmToMiles = 0.621371

	// KmToNauticalMiles converts kilometers to nautical miles (1 nm = 1.852 km)
	KmToNauticalMiles = 1 / 1.852

	// FeetToMeters converts feet to meters
	FeetToMeters = 0.3048
)

// Geographic represents a position on Earth's surface.
// Uses the WGS84 coordinate system (same as GPS).
type Geographic struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64

	// Altitude in meters above mean sea level (MSL)
	Altitude float64
}

// Unit selects the length unit for distance results.
type Unit int

const (
	Kilometers Unit = iota
	Miles
	NauticalMiles
)

// String returns the short unit suffix used in displays.
func (u Unit) String() string {
	switch u {
	case Kilometers:
		return "km"
	case Miles:
		return "mi"
	case NauticalMiles:
		return "nm"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// ParseUnit accepts "km", "mi"/"miles" and "nm" (case-insensitive).
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "km", "kilometers", "":
		return Kilometers, nil
	case "mi", "miles":
		return Miles, nil
	case "nm", "nmi", "nautical":
		return NauticalMiles, nil
	}
	return Kilometers, fmt.Errorf("unknown distance unit %q", s)
}

// FromKilometers converts a distance in kilometers to u.
func (u Unit) FromKilometers(km float64) float64 {
	switch u {
	case Miles:
		return km * KmToMiles
	case NauticalMiles:
		return km * KmToNauticalMiles
	default:
		return km
	}
}

// Inverse solves the geodesic inverse problem on the WGS84 ellipsoid.
// Returns the distance in meters and the forward azimuth at from, in degrees
// within [-180, 180] as produced by the solver.
func Inverse(from, to Geographic) (meters, azimuth float64) {
	geodesic.WGS84.Inverse(
		from.Latitude, from.Longitude,
		to.Latitude, to.Longitude,
		&meters, &azimuth, nil,
	)
	return meters, azimuth
}

// Distance returns the geodesic distance between two points in the given unit.
func Distance(from, to Geographic, unit Unit) float64 {
	meters, _ := Inverse(from, to)
	return unit.FromKilometers(meters / 1000.0)
}

// Bearing calculates the initial bearing (forward azimuth) from one point to another
// along the WGS84 geodesic.
// Returns bearing in degrees [0, 360), where 0 = North, 90 = East, 180 = South, 270 = West.
func Bearing(from, to Geographic) float64 {
	_, azimuth := Inverse(from, to)
	return NormalizeAzimuth(azimuth)
}

// NormalizeAzimuth ensures azimuth is in the range [0, 360).
func NormalizeAzimuth(azimuth float64) float64 {
	az := math.Mod(azimuth, 360.0)
	if az < 0 {
		az += 360.0
	}
	// -1e-15 + 360 rounds to 360
	if az >= 360.0 {
		az = 0
	}
	return az
}

// Cardinal converts azimuth in degrees to a 16-point compass direction.
func Cardinal(azimuth float64) string {
	directions := []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	index := int((NormalizeAzimuth(azimuth) + 11.25) / 22.5)
	return directions[index%16]
}
