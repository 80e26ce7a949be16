package dump1090

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

// TestReconcilePrecedence tests that the newest file wins regardless of index.
func TestReconcilePrecedence(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		"history_0.json": `{"now": 1000, "messages": 10, "aircraft": [
			{"hex": "aa1111", "alt_baro": 1000},
			{"hex": "bb2222", "alt_baro": 2000}
		]}`,
		"history_1.json": `{"now": 1030, "messages": 20, "aircraft": [
			{"hex": "aa1111", "alt_baro": 1500}
		]}`,
		"history_2.json": `{"now": 1015, "messages": 30, "aircraft": [
			{"hex": "bb2222", "alt_baro": 2500},
			{"hex": "cc3333", "alt_baro": 3000}
		]}`,
	})

	h, err := Reconcile(context.Background(), f, 2)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if got := hexes(h.Aircraft); !reflect.DeepEqual(got, []string{"aa1111", "bb2222", "cc3333"}) {
		t.Fatalf("Expected [aa1111 bb2222 cc3333], got %v", got)
	}

	want := map[string]float64{"aa1111": 1500, "bb2222": 2500, "cc3333": 3000}
	for _, ac := range h.Aircraft {
		if ac.AltBaro.Feet != want[ac.Hex] {
			t.Errorf("%s: expected altitude %v from newest file, got %v", ac.Hex, want[ac.Hex], ac.AltBaro.Feet)
		}
	}

	if h.Messages != 60 {
		t.Errorf("Expected 60 messages, got %d", h.Messages)
	}
	if h.Files != 3 || len(h.Skipped) != 0 {
		t.Errorf("Expected 3 files and none skipped, got %d/%v", h.Files, h.Skipped)
	}
	if h.Newest.Unix() != 1030 || h.Oldest.Unix() != 1000 {
		t.Errorf("Unexpected range %v..%v", h.Oldest, h.Newest)
	}
	if h.Span() != 30*time.Second {
		t.Errorf("Expected 30s span, got %v", h.Span())
	}
}

// TestReconcileSkipsFailures tests that unreadable files are left out entirely.
func TestReconcileSkipsFailures(t *testing.T) {
	t.Run("Network failure", func(t *testing.T) {
		srv := newFixtureServer(t, map[string]string{
			"history_0.json": `{"now": 100, "messages": 5, "aircraft": [{"hex": "aa1111"}]}`,
			"history_1.json": `{"now": 110, "messages": 7, "aircraft": [{"hex": "bb2222"}]}`,
			"history_2.json": `{"now": 120, "messages": 9, "aircraft": [{"hex": "cc3333"}]}`,
		})
		srv.breakPath("history_1.json")

		h, err := Reconcile(context.Background(), NewHTTPFetcher(srv.dataURL()), 2)
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if h.Messages != 14 {
			t.Errorf("Expected 14 messages without history_1, got %d", h.Messages)
		}
		if !reflect.DeepEqual(h.Skipped, []int{1}) {
			t.Errorf("Expected skipped [1], got %v", h.Skipped)
		}
		if got := hexes(h.Aircraft); !reflect.DeepEqual(got, []string{"cc3333", "aa1111"}) {
			t.Errorf("Expected [cc3333 aa1111], got %v", got)
		}
	})

	t.Run("Missing timestamp", func(t *testing.T) {
		f := newFakeFetcher(map[string]string{
			"history_0.json": `{"now": 100, "messages": 5, "aircraft": [{"hex": "aa1111"}]}`,
			"history_1.json": `{"messages": 7, "aircraft": [{"hex": "bb2222"}]}`,
		})
		h, err := Reconcile(context.Background(), f, 1)
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if h.Files != 1 || h.Messages != 5 {
			t.Errorf("Expected only history_0 counted, got %d files/%d messages", h.Files, h.Messages)
		}
		if !reflect.DeepEqual(h.Skipped, []int{1}) {
			t.Errorf("Expected skipped [1], got %v", h.Skipped)
		}
	})

	t.Run("Missing message count", func(t *testing.T) {
		f := newFakeFetcher(map[string]string{
			"history_0.json": `{"now": 100, "aircraft": [{"hex": "aa1111"}]}`,
		})
		h, err := Reconcile(context.Background(), f, 0)
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if h.Files != 1 || h.Messages != 0 {
			t.Errorf("Expected 1 file with 0 messages, got %d/%d", h.Files, h.Messages)
		}
	})

	t.Run("Everything missing", func(t *testing.T) {
		h, err := Reconcile(context.Background(), newFakeFetcher(nil), 3)
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if len(h.Aircraft) != 0 || h.Files != 0 {
			t.Errorf("Expected empty history, got %d aircraft/%d files", len(h.Aircraft), h.Files)
		}
		if !reflect.DeepEqual(h.Skipped, []int{0, 1, 2, 3}) {
			t.Errorf("Expected all indices skipped, got %v", h.Skipped)
		}
		if !h.Newest.IsZero() || h.Span() != 0 {
			t.Error("Expected zero time range")
		}
	})
}

// TestReconcileIndexRange tests that indices 0 through count are requested in order.
func TestReconcileIndexRange(t *testing.T) {
	t.Run("Inclusive upper bound", func(t *testing.T) {
		f := newFakeFetcher(nil)
		Reconcile(context.Background(), f, 2)
		want := []string{"history_0.json", "history_1.json", "history_2.json"}
		if !reflect.DeepEqual(f.calls, want) {
			t.Errorf("Expected %v, got %v", want, f.calls)
		}
	})

	t.Run("Zero count reads one file", func(t *testing.T) {
		f := newFakeFetcher(nil)
		Reconcile(context.Background(), f, 0)
		if !reflect.DeepEqual(f.calls, []string{"history_0.json"}) {
			t.Errorf("Expected only history_0.json, got %v", f.calls)
		}
	})

	t.Run("Negative count", func(t *testing.T) {
		f := newFakeFetcher(nil)
		_, err := Reconcile(context.Background(), f, -1)
		if !errors.Is(err, ErrHistoryCountUnknown) {
			t.Errorf("Expected ErrHistoryCountUnknown, got %v", err)
		}
		if len(f.calls) != 0 {
			t.Errorf("Expected no requests, got %v", f.calls)
		}
	})

	t.Run("Excessive count", func(t *testing.T) {
		for _, count := range []int{MaxHistoryCount + 1, 1 << 30, math.MaxInt} {
			f := newFakeFetcher(nil)
			_, err := Reconcile(context.Background(), f, count)
			if !errors.Is(err, ErrHistoryCountUnknown) {
				t.Errorf("count %d: expected ErrHistoryCountUnknown, got %v", count, err)
			}
			if len(f.calls) != 0 {
				t.Errorf("count %d: expected no requests, got %d", count, len(f.calls))
			}
		}
	})
}

// TestReconcileCancelled tests that a cancelled context abandons reconciliation.
func TestReconcileCancelled(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		"history_0.json": `{"now": 100, "aircraft": [{"hex": "aa1111"}]}`,
		"history_1.json": `{"now": 110, "aircraft": [{"hex": "bb2222"}]}`,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := Reconcile(ctx, f, 1)
	if h != nil {
		t.Error("Expected no partial history")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(f.calls) != 1 {
		t.Errorf("Expected to stop after the first request, got %v", f.calls)
	}
}

// TestHistoryFind tests lookups against reconciled history.
func TestHistoryFind(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		"history_0.json": `{"now": 100, "aircraft": [{"hex": "aa1111", "flight": "N123AB  "}]}`,
	})
	h, err := Reconcile(context.Background(), f, 0)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if _, ok, _ := h.Find("", "n123ab"); !ok {
		t.Error("Expected callsign match")
	}
	if _, _, err := h.Find("", ""); !errors.Is(err, ErrLookupKeyRequired) {
		t.Errorf("Expected ErrLookupKeyRequired, got %v", err)
	}
}
