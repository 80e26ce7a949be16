package dump1090

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/unklstewy/ads-bpoll/pkg/config"
	"github.com/unklstewy/ads-bpoll/pkg/coordinates"
)

// RefreshMode selects how Client.Refresh updates the live registry.
type RefreshMode int

const (
	// RefreshReplace keeps only the aircraft in the latest snapshot.
	RefreshReplace RefreshMode = iota

	// RefreshMerge accumulates every aircraft seen, keeping first samples.
	RefreshMerge
)

func (m RefreshMode) String() string {
	switch m {
	case RefreshReplace:
		return config.ModeReplace
	case RefreshMerge:
		return config.ModeMerge
	default:
		return fmt.Sprintf("RefreshMode(%d)", int(m))
	}
}

// ParseRefreshMode maps the config strings "replace" and "merge".
func ParseRefreshMode(s string) (RefreshMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case config.ModeReplace:
		return RefreshReplace, nil
	case config.ModeMerge:
		return RefreshMerge, nil
	}
	return RefreshReplace, fmt.Errorf("unknown refresh mode %q", s)
}

// Client is the entry point for one receiver. It owns a live registry and
// caches receiver metadata, stats and the reconciled history until asked
// to reload them. It is not safe for concurrent use.
type Client struct {
	fetcher Fetcher
	live    *Registry

	receiver *Receiver
	stats    *Stats
	history  *History
}

// NewClient creates a client for the receiver described by cfg.
// No requests are made until a method needs data.
func NewClient(cfg config.ReceiverConfig, opts ...FetcherOption) *Client {
	interval := time.Duration(cfg.MinRequestIntervalSeconds * float64(time.Second))
	opts = append([]FetcherOption{WithMinInterval(interval)}, opts...)
	return NewClientWithFetcher(NewHTTPFetcher(cfg.BaseURL(), opts...))
}

// NewClientWithFetcher creates a client on top of an arbitrary Fetcher.
func NewClientWithFetcher(f Fetcher) *Client {
	return &Client{
		fetcher: f,
		live:    NewRegistry(f),
	}
}

// Live returns the client's live registry.
func (c *Client) Live() *Registry {
	return c.live
}

// Refresh polls aircraft.json into the live registry using mode.
// Returns false when no update occurred.
func (c *Client) Refresh(ctx context.Context, mode RefreshMode) bool {
	switch mode {
	case RefreshMerge:
		return c.live.Merge(ctx)
	default:
		return c.live.Replace(ctx)
	}
}

// Receiver returns receiver.json, fetching it on first use or when reload
// is set. A failed fetch returns false and keeps any cached value for later
// calls.
func (c *Client) Receiver(ctx context.Context, reload bool) (*Receiver, bool) {
	if !reload && c.receiver != nil {
		return c.receiver, true
	}
	r, ok := FetchReceiver(ctx, c.fetcher)
	if !ok {
		return nil, false
	}
	c.receiver = r
	return r, true
}

// Stats returns stats.json with the same caching rules as Receiver.
func (c *Client) Stats(ctx context.Context, reload bool) (*Stats, bool) {
	if !reload && c.stats != nil {
		return c.stats, true
	}
	s, ok := FetchStats(ctx, c.fetcher)
	if !ok {
		return nil, false
	}
	c.stats = s
	return s, true
}

// History returns the reconciled history, building it on first use or when
// reload is set. Building it fetches every retained history file in turn
// and is slow; it is never done implicitly by other methods.
//
// Receiver metadata is loaded first if it has not been. ErrHistoryCountUnknown
// is returned when the receiver is unreachable or does not advertise a count.
func (c *Client) History(ctx context.Context, reload bool) (*History, error) {
	if !reload && c.history != nil {
		return c.history, nil
	}

	receiver := c.receiver
	if receiver == nil {
		var ok bool
		if receiver, ok = c.Receiver(ctx, true); !ok {
			return nil, fmt.Errorf("receiver metadata unavailable: %w", ErrHistoryCountUnknown)
		}
	}
	count, ok := receiver.HistoryCount()
	if !ok {
		return nil, ErrHistoryCountUnknown
	}

	log.Printf("Loading %d history files, this may take a while...", count+1)
	start := time.Now()
	h, err := Reconcile(ctx, c.fetcher, count)
	if err != nil {
		return nil, err
	}
	log.Printf("History loaded: %d aircraft from %d files (%d skipped) in %v",
		len(h.Aircraft), h.Files, len(h.Skipped), time.Since(start).Round(time.Millisecond))

	c.history = h
	return h, nil
}

// FindAircraft looks up an aircraft in the live registry. The registry is
// merged from aircraft.json first when reload is set or it is empty.
func (c *Client) FindAircraft(ctx context.Context, hex, flight string, reload bool) (Aircraft, bool, error) {
	if strings.TrimSpace(hex) == "" && strings.TrimSpace(flight) == "" {
		return Aircraft{}, false, ErrLookupKeyRequired
	}
	if reload || c.live.Len() == 0 {
		c.live.Merge(ctx)
	}
	return c.live.Find(hex, flight)
}

// Nearby lists live aircraft within radius of (lat, lon), closest first.
func (c *Client) Nearby(lat, lon, radius float64, unit coordinates.Unit) []Proximity {
	return Nearby(c.live.Aircraft(), lat, lon, radius, unit)
}

// ReferencePoint returns the position distances are measured from. When
// obs.UseReceiverPosition is set and receiver.json reports a location, that
// location is used; otherwise the configured observer coordinates are.
func (c *Client) ReferencePoint(ctx context.Context, obs config.ObserverConfig) coordinates.Geographic {
	ref := coordinates.Geographic{
		Latitude:  obs.Latitude,
		Longitude: obs.Longitude,
		Altitude:  obs.Elevation,
	}
	if !obs.UseReceiverPosition {
		return ref
	}
	r, ok := c.Receiver(ctx, false)
	if !ok {
		return ref
	}
	if pos, ok := r.Position(); ok {
		return pos
	}
	return ref
}
