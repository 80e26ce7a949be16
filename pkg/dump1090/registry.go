package dump1090

import (
	"context"
	"strings"
	"time"
)

const aircraftPath = "aircraft.json"

// aircraftSet accumulates distinct aircraft in first-admitted order.
// The first record admitted for a hex id is the one kept.
type aircraftSet struct {
	aircraft []Aircraft
	seen     map[string]struct{}
}

func newAircraftSet() aircraftSet {
	return aircraftSet{seen: make(map[string]struct{})}
}

// add admits ac unless its id is empty or already present.
// Ids are compared case-insensitively, as Find does.
func (s *aircraftSet) add(ac Aircraft) bool {
	key := hexKey(ac.Hex)
	if key == "" {
		return false
	}
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.aircraft = append(s.aircraft, ac)
	return true
}

func (s *aircraftSet) contains(hex string) bool {
	_, ok := s.seen[hexKey(hex)]
	return ok
}

func hexKey(hex string) string {
	return strings.ToLower(strings.TrimSpace(hex))
}

// Registry holds the aircraft seen on the live aircraft.json endpoint.
// It is not safe for concurrent use.
type Registry struct {
	fetcher Fetcher
	set     aircraftSet

	messages int64
	now      float64
	updated  time.Time
}

// NewRegistry creates an empty registry reading through f.
func NewRegistry(f Fetcher) *Registry {
	return &Registry{
		fetcher: f,
		set:     newAircraftSet(),
	}
}

// Replace polls aircraft.json and, on success, discards every stored record
// and rebuilds from the snapshot alone. Returns false, leaving state
// untouched, if no data could be fetched.
func (r *Registry) Replace(ctx context.Context) bool {
	snap, ok := r.fetch(ctx)
	if !ok {
		return false
	}

	set := newAircraftSet()
	for _, ac := range snap.Aircraft {
		set.add(ac)
	}
	r.set = set
	r.accept(snap)
	return true
}

// Merge polls aircraft.json and appends aircraft whose hex id has not been
// seen since the registry was created or last replaced. Records already
// stored are kept as first seen; newer samples of them are ignored.
// Returns false, leaving state untouched, if no data could be fetched.
func (r *Registry) Merge(ctx context.Context) bool {
	snap, ok := r.fetch(ctx)
	if !ok {
		return false
	}

	for _, ac := range snap.Aircraft {
		r.set.add(ac)
	}
	r.accept(snap)
	return true
}

func (r *Registry) fetch(ctx context.Context) (*Snapshot, bool) {
	var snap Snapshot
	if !r.fetcher.Fetch(ctx, aircraftPath, &snap) {
		return nil, false
	}
	return &snap, true
}

func (r *Registry) accept(snap *Snapshot) {
	if snap.Now != nil {
		r.now = *snap.Now
	}
	if snap.Messages != nil {
		r.messages = *snap.Messages
	}
	r.updated = time.Now().UTC()
}

// Aircraft returns deep copies of the stored records in insertion order.
func (r *Registry) Aircraft() []Aircraft {
	out := make([]Aircraft, len(r.set.aircraft))
	for i, ac := range r.set.aircraft {
		out[i] = ac.Clone()
	}
	return out
}

// Len returns the number of stored aircraft.
func (r *Registry) Len() int {
	return len(r.set.aircraft)
}

// Contains reports whether an aircraft with this hex id is stored.
func (r *Registry) Contains(hex string) bool {
	return r.set.contains(hex)
}

// Updated is the wall-clock time of the last successful poll (zero if none).
func (r *Registry) Updated() time.Time {
	return r.updated
}

// SnapshotTime is the receiver's "now" from the last successful poll.
func (r *Registry) SnapshotTime() time.Time {
	return unixSeconds(r.now)
}

// Messages is the receiver's message total from the last successful poll.
func (r *Registry) Messages() int64 {
	return r.messages
}

// Find looks up a stored aircraft. A hex id match anywhere in the registry
// wins over a callsign match; otherwise the first aircraft (in insertion
// order) whose callsign matches is returned. At least one key is required.
// The result is a deep copy.
func (r *Registry) Find(hex, flight string) (Aircraft, bool, error) {
	return findAircraft(r.set.aircraft, hex, flight)
}

func findAircraft(list []Aircraft, hex, flight string) (Aircraft, bool, error) {
	hex = strings.TrimSpace(hex)
	flight = strings.TrimSpace(flight)
	if hex == "" && flight == "" {
		return Aircraft{}, false, ErrLookupKeyRequired
	}

	if hex != "" {
		for _, ac := range list {
			if strings.EqualFold(ac.Hex, hex) {
				return ac.Clone(), true, nil
			}
		}
	}
	if flight != "" {
		for _, ac := range list {
			if cs := ac.Callsign(); cs != "" && strings.EqualFold(cs, flight) {
				return ac.Clone(), true, nil
			}
		}
	}
	return Aircraft{}, false, nil
}

func unixSeconds(s float64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	sec := int64(s)
	nsec := int64((s - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}
