package dump1090

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"strconv"
	"testing"

	"github.com/unklstewy/ads-bpoll/pkg/config"
	"github.com/unklstewy/ads-bpoll/pkg/coordinates"
)

func historyFixture() map[string]string {
	return map[string]string{
		"receiver.json": `{"version": "9.0", "refresh": 1000, "history": 1, "lat": 40.0, "lon": -74.0}`,
		"aircraft.json": `{"now": 1700000100, "messages": 900, "aircraft": [
			{"hex": "aa1111", "flight": "UAL1    ", "lat": 40.05, "lon": -74.0},
			{"hex": "bb2222", "flight": "DAL2    ", "lat": 40.5, "lon": -74.0},
			{"hex": "cc3333", "flight": "SWA3    "}
		]}`,
		"history_0.json": `{"now": 1700000000, "messages": 100, "aircraft": [
			{"hex": "aa1111", "alt_baro": 1000}
		]}`,
		"history_1.json": `{"now": 1700000030, "messages": 200, "aircraft": [
			{"hex": "aa1111", "alt_baro": 2000}
		]}`,
		"stats.json": `{"latest": {"start": 1700000095, "end": 1700000100, "messages": 40}}`,
	}
}

// TestNewClient tests building a client from receiver config.
func TestNewClient(t *testing.T) {
	srv := newFixtureServer(t, historyFixture())
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("Failed to parse server URL: %v", err)
	}
	port, _ := strconv.Atoi(u.Port())

	c := NewClient(config.ReceiverConfig{Host: u.Hostname(), Port: port})
	r, ok := c.Receiver(context.Background(), false)
	if !ok {
		t.Fatal("Expected receiver metadata")
	}
	if r.Version == nil || *r.Version != "9.0" {
		t.Errorf("Unexpected version %v", r.Version)
	}
}

// TestClientCaching tests that metadata is fetched once unless reloaded.
func TestClientCaching(t *testing.T) {
	srv := newFixtureServer(t, historyFixture())
	c := NewClientWithFetcher(NewHTTPFetcher(srv.dataURL()))
	ctx := context.Background()

	c.Receiver(ctx, false)
	c.Receiver(ctx, false)
	if n := srv.hitCount("receiver.json"); n != 1 {
		t.Errorf("Expected 1 receiver request, got %d", n)
	}
	c.Receiver(ctx, true)
	if n := srv.hitCount("receiver.json"); n != 2 {
		t.Errorf("Expected reload to refetch, got %d requests", n)
	}

	s, ok := c.Stats(ctx, false)
	if !ok || s.Latest == nil {
		t.Fatal("Expected stats")
	}
	c.Stats(ctx, false)
	if n := srv.hitCount("stats.json"); n != 1 {
		t.Errorf("Expected 1 stats request, got %d", n)
	}

	t.Run("Failed reload keeps cache", func(t *testing.T) {
		srv.breakPath("stats.json")
		if _, ok := c.Stats(ctx, true); ok {
			t.Error("Expected failed reload to report no data")
		}
		cached, ok := c.Stats(ctx, false)
		if !ok || cached != s {
			t.Error("Expected earlier stats to stay cached")
		}
	})
}

// TestClientHistory tests end-to-end reconciliation through the client.
func TestClientHistory(t *testing.T) {
	srv := newFixtureServer(t, historyFixture())
	c := NewClientWithFetcher(NewHTTPFetcher(srv.dataURL()))
	ctx := context.Background()

	h, err := c.History(ctx, false)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(h.Aircraft) != 1 {
		t.Fatalf("Expected 1 aircraft, got %v", hexes(h.Aircraft))
	}
	if h.Aircraft[0].AltBaro.Feet != 2000 {
		t.Errorf("Expected record from history_1 (later now), got altitude %v", h.Aircraft[0].AltBaro.Feet)
	}
	if h.Messages != 300 {
		t.Errorf("Expected 300 messages, got %d", h.Messages)
	}
	if srv.hitCount("receiver.json") != 1 {
		t.Error("Expected receiver metadata to be loaded first")
	}

	again, err := c.History(ctx, false)
	if err != nil || again != h {
		t.Error("Expected cached history on second call")
	}
	if n := srv.hitCount("history_0.json"); n != 1 {
		t.Errorf("Expected history_0 fetched once, got %d", n)
	}

	if _, err := c.History(ctx, true); err != nil {
		t.Fatalf("History reload failed: %v", err)
	}
	if n := srv.hitCount("history_0.json"); n != 2 {
		t.Errorf("Expected reload to refetch history_0, got %d", n)
	}
}

// TestClientHistoryCountUnknown tests the missing-metadata error paths.
func TestClientHistoryCountUnknown(t *testing.T) {
	t.Run("Receiver unreachable", func(t *testing.T) {
		c := NewClientWithFetcher(newFakeFetcher(nil))
		_, err := c.History(context.Background(), false)
		if !errors.Is(err, ErrHistoryCountUnknown) {
			t.Errorf("Expected ErrHistoryCountUnknown, got %v", err)
		}
	})

	t.Run("Implausible history advertised", func(t *testing.T) {
		f := newFakeFetcher(map[string]string{receiverPath: `{"history": 9223372036854775807}`})
		c := NewClientWithFetcher(f)
		_, err := c.History(context.Background(), false)
		if !errors.Is(err, ErrHistoryCountUnknown) {
			t.Errorf("Expected ErrHistoryCountUnknown, got %v", err)
		}
		if len(f.calls) != 1 {
			t.Errorf("Expected only the receiver request, got %v", f.calls)
		}
	})

	t.Run("No history advertised", func(t *testing.T) {
		f := newFakeFetcher(map[string]string{receiverPath: `{"version": "9.0"}`})
		c := NewClientWithFetcher(f)
		_, err := c.History(context.Background(), false)
		if !errors.Is(err, ErrHistoryCountUnknown) {
			t.Errorf("Expected ErrHistoryCountUnknown, got %v", err)
		}
		for _, call := range f.calls {
			if call != receiverPath {
				t.Errorf("Expected no history requests, got %s", call)
			}
		}
	})
}

// TestClientRefresh tests switching refresh modes.
func TestClientRefresh(t *testing.T) {
	f := newFakeFetcher(map[string]string{aircraftPath: snapshotA})
	c := NewClientWithFetcher(f)
	ctx := context.Background()

	if !c.Refresh(ctx, RefreshReplace) {
		t.Fatal("Expected replace refresh")
	}
	f.docs[aircraftPath] = snapshotB
	c.Refresh(ctx, RefreshMerge)
	if c.Live().Len() != 3 {
		t.Errorf("Expected 3 aircraft after merge, got %d", c.Live().Len())
	}
	c.Refresh(ctx, RefreshReplace)
	if c.Live().Len() != 2 {
		t.Errorf("Expected 2 aircraft after replace, got %d", c.Live().Len())
	}
}

// TestClientFindAircraft tests lazy loading and key validation.
func TestClientFindAircraft(t *testing.T) {
	ctx := context.Background()

	t.Run("No keys makes no request", func(t *testing.T) {
		f := newFakeFetcher(map[string]string{aircraftPath: snapshotA})
		c := NewClientWithFetcher(f)
		_, _, err := c.FindAircraft(ctx, " ", "", true)
		if !errors.Is(err, ErrLookupKeyRequired) {
			t.Errorf("Expected ErrLookupKeyRequired, got %v", err)
		}
		if len(f.calls) != 0 {
			t.Errorf("Expected no requests, got %v", f.calls)
		}
	})

	t.Run("Empty registry is loaded", func(t *testing.T) {
		f := newFakeFetcher(map[string]string{aircraftPath: snapshotA})
		c := NewClientWithFetcher(f)
		ac, ok, err := c.FindAircraft(ctx, "", "dal2", false)
		if err != nil || !ok || ac.Hex != "222222" {
			t.Errorf("Expected 222222, got %s/%v/%v", ac.Hex, ok, err)
		}

		c.FindAircraft(ctx, "111111", "", false)
		if len(f.calls) != 1 {
			t.Errorf("Expected populated registry to be reused, got %v", f.calls)
		}

		c.FindAircraft(ctx, "111111", "", true)
		if len(f.calls) != 2 {
			t.Errorf("Expected reload to poll again, got %v", f.calls)
		}
	})
}

// TestClientNearby tests proximity sorting and the radius filter.
func TestClientNearby(t *testing.T) {
	srv := newFixtureServer(t, historyFixture())
	c := NewClientWithFetcher(NewHTTPFetcher(srv.dataURL()))
	c.Refresh(context.Background(), RefreshReplace)

	all := c.Nearby(40.0, -74.0, 0, coordinates.Kilometers)
	got := make([]string, len(all))
	for i, p := range all {
		got[i] = p.Aircraft.Hex
	}
	if !reflect.DeepEqual(got, []string{"aa1111", "bb2222"}) {
		t.Fatalf("Expected [aa1111 bb2222] closest first, got %v", got)
	}
	if all[0].Bearing > 1 && all[0].Bearing < 359 {
		t.Errorf("Expected aa1111 due north, got %f", all[0].Bearing)
	}
	if all[0].Unit != coordinates.Kilometers {
		t.Errorf("Expected km, got %v", all[0].Unit)
	}

	near := c.Nearby(40.0, -74.0, 10, coordinates.Kilometers)
	if len(near) != 1 || near[0].Aircraft.Hex != "aa1111" {
		t.Errorf("Expected only aa1111 within 10 km, got %d entries", len(near))
	}
}

// TestParseRefreshMode tests the config mode strings.
func TestParseRefreshMode(t *testing.T) {
	tests := []struct {
		input   string
		want    RefreshMode
		wantErr bool
	}{
		{"replace", RefreshReplace, false},
		{"MERGE", RefreshMerge, false},
		{" merge ", RefreshMerge, false},
		{"append", RefreshReplace, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRefreshMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	if RefreshMerge.String() != config.ModeMerge {
		t.Errorf("Expected %q, got %q", config.ModeMerge, RefreshMerge.String())
	}
}

// TestClientReferencePoint tests choosing between receiver and configured positions.
func TestClientReferencePoint(t *testing.T) {
	ctx := context.Background()
	obs := config.ObserverConfig{Latitude: 35.0, Longitude: -80.0, Elevation: 200}

	t.Run("Configured position", func(t *testing.T) {
		f := newFakeFetcher(map[string]string{receiverPath: `{"lat": 40.0, "lon": -74.0}`})
		ref := NewClientWithFetcher(f).ReferencePoint(ctx, obs)
		if ref.Latitude != 35.0 || ref.Altitude != 200 {
			t.Errorf("Expected configured observer, got %+v", ref)
		}
		if len(f.calls) != 0 {
			t.Errorf("Expected no requests, got %v", f.calls)
		}
	})

	t.Run("Receiver position", func(t *testing.T) {
		obs := obs
		obs.UseReceiverPosition = true
		f := newFakeFetcher(map[string]string{receiverPath: `{"lat": 40.0, "lon": -74.0}`})
		ref := NewClientWithFetcher(f).ReferencePoint(ctx, obs)
		if ref.Latitude != 40.0 || ref.Longitude != -74.0 {
			t.Errorf("Expected receiver position, got %+v", ref)
		}
	})

	t.Run("Receiver without position", func(t *testing.T) {
		obs := obs
		obs.UseReceiverPosition = true
		f := newFakeFetcher(map[string]string{receiverPath: `{"history": 3}`})
		ref := NewClientWithFetcher(f).ReferencePoint(ctx, obs)
		if ref.Latitude != 35.0 {
			t.Errorf("Expected fallback to configured observer, got %+v", ref)
		}
	})
}
