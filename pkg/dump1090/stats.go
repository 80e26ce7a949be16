package dump1090

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const statsPath = "stats.json"

// Stats is the receiver's stats.json: counters for five windows.
// A window missing from the document is nil.
type Stats struct {
	Total     *StatsPeriod `json:"total,omitempty"`
	Last1Min  *StatsPeriod `json:"last1min,omitempty"`
	Last5Min  *StatsPeriod `json:"last5min,omitempty"`
	Last15Min *StatsPeriod `json:"last15min,omitempty"`
	Latest    *StatsPeriod `json:"latest,omitempty"`
}

// FetchStats reads stats.json. ok is false when no data was obtained.
func FetchStats(ctx context.Context, f Fetcher) (*Stats, bool) {
	var s Stats
	if !f.Fetch(ctx, statsPath, &s) {
		return nil, false
	}
	return &s, true
}

// StatsPeriod holds the counters for one time window.
type StatsPeriod struct {
	// Start and End are Unix seconds
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`

	Local  *Local  `json:"local,omitempty"`
	Remote *Remote `json:"remote,omitempty"`
	CPU    *CPU    `json:"cpu,omitempty"`
	CPR    *CPR    `json:"cpr,omitempty"`
	Tracks *Tracks `json:"tracks,omitempty"`

	// Messages is the number of messages accepted in the window
	Messages *int64 `json:"messages,omitempty"`
}

// Duration is End-Start, or false if either bound is missing.
func (p *StatsPeriod) Duration() (time.Duration, bool) {
	if p == nil || p.Start == nil || p.End == nil {
		return 0, false
	}
	return time.Duration((*p.End - *p.Start) * float64(time.Second)), true
}

// Local counts messages demodulated from the local SDR.
type Local struct {
	BlocksProcessed  *int64   `json:"blocks_processed,omitempty"`
	BlocksDropped    *int64   `json:"blocks_dropped,omitempty"`
	SamplesProcessed *int64   `json:"samples_processed,omitempty"`
	SamplesDropped   *int64   `json:"samples_dropped,omitempty"`
	ModeAC           *int64   `json:"modeac,omitempty"`
	ModeS            *int64   `json:"modes,omitempty"`
	Bad              *int64   `json:"bad,omitempty"`
	UnknownICAO      *int64   `json:"unknown_icao,omitempty"`
	Accepted         []int64  `json:"accepted,omitempty"` // by number of corrected bits
	Signal           *float64 `json:"signal,omitempty"`   // mean dBFS
	Noise            *float64 `json:"noise,omitempty"`
	PeakSignal       *float64 `json:"peak_signal,omitempty"`
	StrongSignals    *int64   `json:"strong_signals,omitempty"` // messages above -3 dBFS
}

// Remote counts messages received over network inputs.
type Remote struct {
	ModeAC       *int64  `json:"modeac,omitempty"`
	ModeS        *int64  `json:"modes,omitempty"`
	Bad          *int64  `json:"bad,omitempty"`
	UnknownICAO  *int64  `json:"unknown_icao,omitempty"`
	Accepted     []int64 `json:"accepted,omitempty"`
	HTTPRequests *int64  `json:"http_requests,omitempty"`
}

// CPU is milliseconds spent per thread.
type CPU struct {
	Demod      *int64 `json:"demod,omitempty"`
	Reader     *int64 `json:"reader,omitempty"`
	Background *int64 `json:"background,omitempty"`
}

// Tracks counts aircraft tracks created in the window.
type Tracks struct {
	All           *int64 `json:"all,omitempty"`
	SingleMessage *int64 `json:"single_message,omitempty"`
}

// CPR counts position decodes.
//
// The breakdowns are built only when their key is present. Two layouts are
// accepted: the breakdown nested under its parent key
// ("global_bad": {"global_range": 1, "global_speed": 2}), or the flat keys
// dump1090-fa writes ("global_bad": 3, "global_range": 1, "global_speed": 2).
type CPR struct {
	Surface       *int64
	Airborne      *int64
	GlobalOK      *int64
	GlobalBad     *CPRGlobalBad
	GlobalSkipped *int64
	LocalOK       *CPRLocalOK
	LocalSkipped  *CPRLocalSkipped
	Filtered      *int64
}

// CPRGlobalBad breaks down global decodes rejected by sanity checks.
type CPRGlobalBad struct {
	Count *int64
	Range *int64 // exceeded receiver range
	Speed *int64 // implied impossible speed
}

// CPRLocalOK breaks down successful local (relative) decodes.
type CPRLocalOK struct {
	Count            *int64
	AircraftRelative *int64
	ReceiverRelative *int64
}

// CPRLocalSkipped breaks down local decodes that were not attempted or were rejected.
type CPRLocalSkipped struct {
	Count *int64
	Range *int64
	Speed *int64
}

// UnmarshalJSON extracts each CPR field explicitly so the nested and flat
// layouts both decode.
func (c *CPR) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out CPR
	var err error
	fields := []struct {
		key string
		dst **int64
	}{
		{"surface", &out.Surface},
		{"airborne", &out.Airborne},
		{"global_ok", &out.GlobalOK},
		{"global_skipped", &out.GlobalSkipped},
		{"filtered", &out.Filtered},
	}
	for _, f := range fields {
		if *f.dst, err = counterField(raw, f.key); err != nil {
			return err
		}
	}

	b, err := cprBreakdown(raw, "global_bad", "global_range", "global_speed")
	if err != nil {
		return err
	}
	if b != nil {
		out.GlobalBad = &CPRGlobalBad{Count: b.count, Range: b.first, Speed: b.second}
	}

	b, err = cprBreakdown(raw, "local_ok", "local_aircraft_relative", "local_receiver_relative")
	if err != nil {
		return err
	}
	if b != nil {
		out.LocalOK = &CPRLocalOK{Count: b.count, AircraftRelative: b.first, ReceiverRelative: b.second}
	}

	b, err = cprBreakdown(raw, "local_skipped", "local_range", "local_speed")
	if err != nil {
		return err
	}
	if b != nil {
		out.LocalSkipped = &CPRLocalSkipped{Count: b.count, Range: b.first, Speed: b.second}
	}

	*c = out
	return nil
}

type breakdown struct {
	count, first, second *int64
}

// cprBreakdown reads parent as either a counter or an object holding the
// two sub-counters, then fills still-missing sub-counters from flat keys.
// Returns nil when none of the three keys is present.
func cprBreakdown(raw map[string]json.RawMessage, parent, firstKey, secondKey string) (*breakdown, error) {
	var b breakdown
	present := false

	if msg, ok := raw[parent]; ok && !isNull(msg) {
		present = true
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(msg, &nested); err == nil {
			var err error
			if b.first, err = counterField(nested, firstKey); err != nil {
				return nil, err
			}
			if b.second, err = counterField(nested, secondKey); err != nil {
				return nil, err
			}
		} else {
			var err error
			if b.count, err = counterField(raw, parent); err != nil {
				return nil, err
			}
		}
	}

	var err error
	if b.first == nil {
		if b.first, err = counterField(raw, firstKey); err != nil {
			return nil, err
		}
	}
	if b.second == nil {
		if b.second, err = counterField(raw, secondKey); err != nil {
			return nil, err
		}
	}
	if b.first != nil || b.second != nil {
		present = true
	}

	if !present {
		return nil, nil
	}
	return &b, nil
}

// counterField decodes raw[key] as a number. Absent or null yields nil.
func counterField(raw map[string]json.RawMessage, key string) (*int64, error) {
	msg, ok := raw[key]
	if !ok || isNull(msg) {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(msg, &v); err != nil {
		return nil, fmt.Errorf("cpr.%s: %w", key, err)
	}
	n := int64(v)
	return &n, nil
}

func isNull(msg json.RawMessage) bool {
	return string(msg) == "null"
}
