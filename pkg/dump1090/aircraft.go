package dump1090

import (
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"

	"github.com/unklstewy/ads-bpoll/pkg/coordinates"
)

// Aircraft is one aircraft's state as reported in a single snapshot.
// Every field mirrors one dump1090 JSON key; a nil pointer (or nil slice)
// means the receiver did not report it. No defaults are filled in and no
// ranges are checked.
type Aircraft struct {
	// Hex is the 24-bit ICAO address ("~" prefix for non-ICAO addresses).
	// It is the identity used for deduplication.
	Hex string `json:"hex"`

	// Flight is the callsign, space padded to 8 characters by dump1090
	Flight *string `json:"flight,omitempty"`

	// Altitudes in feet
	AltBaro *Altitude `json:"alt_baro,omitempty"`
	AltGeom *Altitude `json:"alt_geom,omitempty"`

	// Speeds in knots, Mach as a fraction
	GroundSpeed       *float64 `json:"gs,omitempty"`
	IndicatedAirSpeed *float64 `json:"ias,omitempty"`
	TrueAirSpeed      *float64 `json:"tas,omitempty"`
	Mach              *float64 `json:"mach,omitempty"`

	// Angles in degrees, rates in degrees/second
	Track       *float64 `json:"track,omitempty"`
	TrackRate   *float64 `json:"track_rate,omitempty"`
	Roll        *float64 `json:"roll,omitempty"`
	MagHeading  *float64 `json:"mag_heading,omitempty"`
	TrueHeading *float64 `json:"true_heading,omitempty"`

	// Vertical rates in feet/minute
	BaroRate *float64 `json:"baro_rate,omitempty"`
	GeomRate *float64 `json:"geom_rate,omitempty"`

	Squawk    *string `json:"squawk,omitempty"`
	Emergency *string `json:"emergency,omitempty"`
	Category  *string `json:"category,omitempty"`

	// Selected autopilot/FMS state
	NavQNH         *float64 `json:"nav_qnh,omitempty"`
	NavAltitudeMCP *float64 `json:"nav_altitude_mcp,omitempty"`
	NavAltitudeFMS *float64 `json:"nav_altitude_fms,omitempty"`
	NavHeading     *float64 `json:"nav_heading,omitempty"`
	NavModes       []string `json:"nav_modes,omitempty"`

	// Position. Only meaningful when both are present; use Position().
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`

	// Integrity and accuracy categories
	NIC     *int     `json:"nic,omitempty"`
	RC      *float64 `json:"rc,omitempty"` // containment radius, meters
	Version *int     `json:"version,omitempty"`
	NICBaro *int     `json:"nic_baro,omitempty"`
	NACP    *int     `json:"nac_p,omitempty"`
	NACV    *int     `json:"nac_v,omitempty"`
	SIL     *int     `json:"sil,omitempty"`
	SILType *string  `json:"sil_type,omitempty"`
	GVA     *int     `json:"gva,omitempty"`
	SDA     *int     `json:"sda,omitempty"`

	// Seconds before the snapshot's "now"
	SeenPos *float64 `json:"seen_pos,omitempty"`
	Seen    *float64 `json:"seen,omitempty"`

	// Fields derived from MLAT / TIS-B rather than direct ADS-B
	MLAT []string `json:"mlat,omitempty"`
	TISB []string `json:"tisb,omitempty"`

	Messages *int64   `json:"messages,omitempty"`
	RSSI     *float64 `json:"rssi,omitempty"` // dBFS, always negative
}

// Altitude is a dump1090 altitude: a number of feet, or the string "ground".
type Altitude struct {
	Feet     float64
	OnGround bool
}

// UnmarshalJSON accepts a number, "ground", or a numeric string.
func (a *Altitude) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "ground" {
			*a = Altitude{OnGround: true}
			return nil
		}
		feet, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid altitude %q", s)
		}
		*a = Altitude{Feet: feet}
		return nil
	}

	var feet float64
	if err := json.Unmarshal(data, &feet); err != nil {
		return fmt.Errorf("invalid altitude %s", string(data))
	}
	*a = Altitude{Feet: feet}
	return nil
}

// MarshalJSON writes the same shape dump1090 does.
func (a Altitude) MarshalJSON() ([]byte, error) {
	if a.OnGround {
		return []byte(`"ground"`), nil
	}
	return json.Marshal(a.Feet)
}

func (a Altitude) String() string {
	if a.OnGround {
		return "ground"
	}
	return fmt.Sprintf("%.0f ft", a.Feet)
}

// Clone returns a deep copy of a. Pointer fields and slices of the copy
// do not share storage with a.
func (a Aircraft) Clone() Aircraft {
	c := a
	c.Flight = clonePtr(a.Flight)
	c.AltBaro = clonePtr(a.AltBaro)
	c.AltGeom = clonePtr(a.AltGeom)
	c.GroundSpeed = clonePtr(a.GroundSpeed)
	c.IndicatedAirSpeed = clonePtr(a.IndicatedAirSpeed)
	c.TrueAirSpeed = clonePtr(a.TrueAirSpeed)
	c.Mach = clonePtr(a.Mach)
	c.Track = clonePtr(a.Track)
	c.TrackRate = clonePtr(a.TrackRate)
	c.Roll = clonePtr(a.Roll)
	c.MagHeading = clonePtr(a.MagHeading)
	c.TrueHeading = clonePtr(a.TrueHeading)
	c.BaroRate = clonePtr(a.BaroRate)
	c.GeomRate = clonePtr(a.GeomRate)
	c.Squawk = clonePtr(a.Squawk)
	c.Emergency = clonePtr(a.Emergency)
	c.Category = clonePtr(a.Category)
	c.NavQNH = clonePtr(a.NavQNH)
	c.NavAltitudeMCP = clonePtr(a.NavAltitudeMCP)
	c.NavAltitudeFMS = clonePtr(a.NavAltitudeFMS)
	c.NavHeading = clonePtr(a.NavHeading)
	c.NavModes = slices.Clone(a.NavModes)
	c.Lat = clonePtr(a.Lat)
	c.Lon = clonePtr(a.Lon)
	c.NIC = clonePtr(a.NIC)
	c.RC = clonePtr(a.RC)
	c.Version = clonePtr(a.Version)
	c.NICBaro = clonePtr(a.NICBaro)
	c.NACP = clonePtr(a.NACP)
	c.NACV = clonePtr(a.NACV)
	c.SIL = clonePtr(a.SIL)
	c.SILType = clonePtr(a.SILType)
	c.GVA = clonePtr(a.GVA)
	c.SDA = clonePtr(a.SDA)
	c.SeenPos = clonePtr(a.SeenPos)
	c.Seen = clonePtr(a.Seen)
	c.MLAT = slices.Clone(a.MLAT)
	c.TISB = slices.Clone(a.TISB)
	c.Messages = clonePtr(a.Messages)
	c.RSSI = clonePtr(a.RSSI)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Callsign returns the flight number without dump1090's padding.
// Empty when no callsign was reported.
func (a Aircraft) Callsign() string {
	if a.Flight == nil {
		return ""
	}
	return strings.TrimSpace(*a.Flight)
}

// HasPosition reports whether both latitude and longitude are present.
func (a Aircraft) HasPosition() bool {
	return a.Lat != nil && a.Lon != nil
}

// Position returns the aircraft's location. Altitude is geometric when
// reported, barometric otherwise, converted to meters.
// ok is false unless both latitude and longitude are present.
func (a Aircraft) Position() (pos coordinates.Geographic, ok bool) {
	if !a.HasPosition() {
		return coordinates.Geographic{}, false
	}
	pos = coordinates.Geographic{Latitude: *a.Lat, Longitude: *a.Lon}
	if alt := a.bestAltitude(); alt != nil && !alt.OnGround {
		pos.Altitude = alt.Feet * coordinates.FeetToMeters
	}
	return pos, true
}

func (a Aircraft) bestAltitude() *Altitude {
	if a.AltGeom != nil {
		return a.AltGeom
	}
	return a.AltBaro
}

// DistanceFrom returns the geodesic distance from (lat, lon) to the aircraft
// in the requested unit. ok is false when the aircraft has no position.
func (a Aircraft) DistanceFrom(lat, lon float64, unit coordinates.Unit) (distance float64, ok bool) {
	pos, ok := a.Position()
	if !ok {
		return 0, false
	}
	ref := coordinates.Geographic{Latitude: lat, Longitude: lon}
	return coordinates.Distance(ref, pos, unit), true
}

// BearingFrom returns the initial bearing from (lat, lon) to the aircraft in
// degrees [0, 360). ok is false when the aircraft has no position.
func (a Aircraft) BearingFrom(lat, lon float64) (bearing float64, ok bool) {
	pos, ok := a.Position()
	if !ok {
		return 0, false
	}
	ref := coordinates.Geographic{Latitude: lat, Longitude: lon}
	return coordinates.Bearing(ref, pos), true
}

// AircraftList decodes a JSON aircraft array one element at a time.
// An element that fails to decode is logged and dropped so one malformed
// entry cannot discard the rest of the snapshot.
type AircraftList []Aircraft

// UnmarshalJSON implements json.Unmarshaler.
func (l *AircraftList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	list := make(AircraftList, 0, len(raw))
	for i, entry := range raw {
		var ac Aircraft
		if err := json.Unmarshal(entry, &ac); err != nil {
			log.Printf("dump1090: skipping aircraft entry %d: %v", i, err)
			continue
		}
		list = append(list, ac)
	}
	*l = list
	return nil
}

// Snapshot is the shape shared by aircraft.json and history_N.json.
type Snapshot struct {
	// Now is the snapshot time in seconds since the Unix epoch
	Now *float64 `json:"now,omitempty"`

	// Messages is the receiver's running Mode S message total
	Messages *int64 `json:"messages,omitempty"`

	Aircraft AircraftList `json:"aircraft"`
}
