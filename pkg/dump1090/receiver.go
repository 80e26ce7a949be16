package dump1090

import (
	"context"
	"time"

	"github.com/unklstewy/ads-bpoll/pkg/coordinates"
)

const receiverPath = "receiver.json"

// Receiver is the metadata published in receiver.json.
type Receiver struct {
	// Version is the dump1090 version string
	Version *string `json:"version,omitempty"`

	// Refresh is how often aircraft.json is rewritten, in milliseconds
	Refresh *float64 `json:"refresh,omitempty"`

	// History is the number of retained history_N.json files
	History *int `json:"history,omitempty"`

	// Receiver location, when configured on the device
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
}

// FetchReceiver reads receiver.json. ok is false when no data was obtained.
func FetchReceiver(ctx context.Context, f Fetcher) (*Receiver, bool) {
	var r Receiver
	if !f.Fetch(ctx, receiverPath, &r) {
		return nil, false
	}
	return &r, true
}

// HistoryCount returns the advertised number of history files.
// Counts outside [0, MaxHistoryCount] are reported as unknown.
func (r *Receiver) HistoryCount() (int, bool) {
	if r == nil || r.History == nil || *r.History < 0 || *r.History > MaxHistoryCount {
		return 0, false
	}
	return *r.History, true
}

// RefreshInterval returns the aircraft.json rewrite interval.
func (r *Receiver) RefreshInterval() (time.Duration, bool) {
	if r == nil || r.Refresh == nil {
		return 0, false
	}
	return time.Duration(*r.Refresh * float64(time.Millisecond)), true
}

// Position returns the receiver's configured location.
func (r *Receiver) Position() (coordinates.Geographic, bool) {
	if r == nil || r.Lat == nil || r.Lon == nil {
		return coordinates.Geographic{}, false
	}
	return coordinates.Geographic{Latitude: *r.Lat, Longitude: *r.Lon}, true
}
