package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/unklstewy/ads-bpoll/pkg/config"
	"github.com/unklstewy/ads-bpoll/pkg/coordinates"
	"github.com/unklstewy/ads-bpoll/pkg/dump1090"
)

// main polls a dump1090/PiAware receiver once and logs what it reports.
// Each section is selected with a flag; with no flags only live aircraft
// are shown.
func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	showReceiver := flag.Bool("receiver", false, "Show receiver.json metadata")
	showStats := flag.Bool("stats", false, "Show stats.json counters")
	showHistory := flag.Bool("history", false, "Reconcile and show history_N.json (slow)")
	mode := flag.String("mode", "", "Refresh mode override: replace or merge")
	hex := flag.String("hex", "", "Look up a single aircraft by ICAO hex id")
	flight := flag.String("flight", "", "Look up a single aircraft by callsign")
	radius := flag.Float64("radius", 0, "Only list aircraft within this distance (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *mode != "" {
		cfg.Display.Mode = *mode
	}
	refreshMode, err := dump1090.ParseRefreshMode(cfg.Display.Mode)
	if err != nil {
		log.Fatalf("Invalid refresh mode: %v", err)
	}
	unit, err := coordinates.ParseUnit(cfg.Display.DistanceUnit)
	if err != nil {
		log.Fatalf("Invalid distance unit: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Printf("Receiver: %s", cfg.Receiver.BaseURL())
	client := dump1090.NewClient(cfg.Receiver)

	if *showReceiver {
		dumpReceiver(ctx, client)
	}
	if *showStats {
		dumpStats(ctx, client)
	}

	ref := client.ReferencePoint(ctx, cfg.Observer)
	log.Printf("Reference point: %.4f°, %.4f°", ref.Latitude, ref.Longitude)

	if *hex != "" || *flight != "" {
		ac, ok, err := client.FindAircraft(ctx, *hex, *flight, true)
		if err != nil {
			log.Fatalf("Lookup failed: %v", err)
		}
		if !ok {
			log.Printf("No aircraft matching hex=%q flight=%q", *hex, *flight)
			return
		}
		logAircraft(ac, ref, unit)
		return
	}

	if *showHistory {
		dumpHistory(ctx, client, ref, unit)
		return
	}

	if !client.Refresh(ctx, refreshMode) {
		log.Fatal("No data from aircraft.json")
	}
	live := client.Live()
	log.Printf("Live snapshot at %s: %d aircraft, %d messages",
		live.SnapshotTime().Format("15:04:05"), live.Len(), live.Messages())
	log.Println("=====================================")

	nearby := client.Nearby(ref.Latitude, ref.Longitude, *radius, unit)
	for _, p := range nearby {
		logAircraft(p.Aircraft, ref, unit)
	}
	if *radius <= 0 {
		log.Printf("%d of %d aircraft have a position", len(nearby), live.Len())
	} else {
		log.Printf("%d aircraft within %.1f %s", len(nearby), *radius, unit)
	}
}

func dumpReceiver(ctx context.Context, client *dump1090.Client) {
	r, ok := client.Receiver(ctx, false)
	if !ok {
		log.Println("receiver.json: no data")
		return
	}
	log.Println("Receiver metadata:")
	if r.Version != nil {
		log.Printf("  Version:  %s", *r.Version)
	}
	if d, ok := r.RefreshInterval(); ok {
		log.Printf("  Refresh:  %v", d)
	}
	if n, ok := r.HistoryCount(); ok {
		log.Printf("  History:  %d files", n+1)
	}
	if pos, ok := r.Position(); ok {
		log.Printf("  Location: %.4f°, %.4f°", pos.Latitude, pos.Longitude)
	}
}

func dumpStats(ctx context.Context, client *dump1090.Client) {
	s, ok := client.Stats(ctx, false)
	if !ok {
		log.Println("stats.json: no data")
		return
	}
	windows := []struct {
		name   string
		period *dump1090.StatsPeriod
	}{
		{"latest", s.Latest},
		{"last1min", s.Last1Min},
		{"last5min", s.Last5Min},
		{"last15min", s.Last15Min},
		{"total", s.Total},
	}
	log.Println("Receiver statistics:")
	for _, w := range windows {
		if w.period == nil {
			continue
		}
		var messages int64
		if w.period.Messages != nil {
			messages = *w.period.Messages
		}
		d, _ := w.period.Duration()
		log.Printf("  %-10s %8d messages over %v", w.name, messages, d)
		if l := w.period.Local; l != nil && l.Signal != nil && l.Noise != nil {
			log.Printf("  %-10s signal %.1f dBFS, noise %.1f dBFS", "", *l.Signal, *l.Noise)
		}
		if c := w.period.CPR; c != nil && c.GlobalBad != nil && c.GlobalBad.Count != nil {
			log.Printf("  %-10s %d bad global CPR decodes", "", *c.GlobalBad.Count)
		}
	}
}

func dumpHistory(ctx context.Context, client *dump1090.Client, ref coordinates.Geographic, unit coordinates.Unit) {
	h, err := client.History(ctx, false)
	if errors.Is(err, dump1090.ErrHistoryCountUnknown) {
		log.Fatalf("Receiver does not advertise a history count: %v", err)
	}
	if err != nil {
		log.Fatalf("History failed: %v", err)
	}
	log.Printf("History %s to %s (%v): %d aircraft, %d messages",
		h.Oldest.Format("15:04:05"), h.Newest.Format("15:04:05"), h.Span(),
		len(h.Aircraft), h.Messages)
	if len(h.Skipped) > 0 {
		log.Printf("Skipped history files: %v", h.Skipped)
	}
	log.Println("=====================================")
	for _, ac := range h.Aircraft {
		logAircraft(ac, ref, unit)
	}
}

func logAircraft(ac dump1090.Aircraft, ref coordinates.Geographic, unit coordinates.Unit) {
	callsign := ac.Callsign()
	if callsign == "" {
		callsign = "--------"
	}
	alt := "    ---"
	if ac.AltBaro != nil {
		alt = ac.AltBaro.String()
	}

	dist, ok := ac.DistanceFrom(ref.Latitude, ref.Longitude, unit)
	if !ok {
		log.Printf("%-7s %-8s %10s  (no position)", ac.Hex, callsign, alt)
		return
	}
	bearing, _ := ac.BearingFrom(ref.Latitude, ref.Longitude)
	log.Printf("%-7s %-8s %10s  %7.1f %s  %5.1f° %-3s",
		ac.Hex, callsign, alt, dist, unit, bearing, coordinates.Cardinal(bearing))
}
