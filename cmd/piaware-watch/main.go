package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/ads-bpoll/pkg/config"
	"github.com/unklstewy/ads-bpoll/pkg/coordinates"
	"github.com/unklstewy/ads-bpoll/pkg/dump1090"
)

// Rows shown in the aircraft table
const visibleRows = 20

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	alertStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	noPosStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("237"))
)

// row is one line of the aircraft table.
type row struct {
	aircraft dump1090.Aircraft
	distance float64
	bearing  float64
	hasPos   bool
}

type model struct {
	client *dump1090.Client
	// client is not safe for concurrent use; commands run on their own goroutines
	clientMu *sync.Mutex

	ref         coordinates.Geographic
	unit        coordinates.Unit
	alertRadius float64
	interval    time.Duration
	mode        dump1090.RefreshMode

	rows     []row
	total    int
	snapshot time.Time
	messages int64
	stale    bool

	history        *dump1090.History
	historyRows    []row
	loadingHistory bool
	showHistory    bool

	refreshing bool
	selected   int
	err        error
}

type tickMsg time.Time

type refreshMsg struct {
	ok       bool
	aircraft []dump1090.Aircraft
	snapshot time.Time
	messages int64
}

type historyMsg struct {
	history *dump1090.History
	err     error
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh polls aircraft.json in the background.
func (m model) refresh() tea.Cmd {
	client, mu, mode := m.client, m.clientMu, m.mode
	return func() tea.Msg {
		mu.Lock()
		defer mu.Unlock()

		ok := client.Refresh(context.Background(), mode)
		live := client.Live()
		return refreshMsg{
			ok:       ok,
			aircraft: live.Aircraft(),
			snapshot: live.SnapshotTime(),
			messages: live.Messages(),
		}
	}
}

// loadHistory reconciles every retained history file. This can take a while.
func (m model) loadHistory(reload bool) tea.Cmd {
	client, mu := m.client, m.clientMu
	return func() tea.Msg {
		mu.Lock()
		defer mu.Unlock()

		h, err := client.History(context.Background(), reload)
		return historyMsg{history: h, err: err}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick(m.interval))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Clear error on any keypress
		if m.err != nil {
			m.err = nil
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "m":
			if m.mode == dump1090.RefreshReplace {
				m.mode = dump1090.RefreshMerge
			} else {
				m.mode = dump1090.RefreshReplace
			}
		case "h":
			if m.history != nil {
				m.showHistory = !m.showHistory
				m.selected = 0
				return m, nil
			}
			if !m.loadingHistory {
				m.loadingHistory = true
				return m, m.loadHistory(false)
			}
		case "H":
			if !m.loadingHistory {
				m.loadingHistory = true
				return m, m.loadHistory(true)
			}
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.currentRows())-1 {
				m.selected++
			}
		}

	case tickMsg:
		if m.refreshing {
			return m, tick(m.interval)
		}
		m.refreshing = true
		return m, tea.Batch(m.refresh(), tick(m.interval))

	case refreshMsg:
		m.refreshing = false
		m.stale = !msg.ok
		if msg.ok {
			m.rows = buildRows(msg.aircraft, m.ref, m.unit)
			m.total = len(msg.aircraft)
			m.snapshot = msg.snapshot
			m.messages = msg.messages
		}
		if !m.showHistory && m.selected >= len(m.rows) {
			m.selected = max(len(m.rows)-1, 0)
		}

	case historyMsg:
		m.loadingHistory = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.history = msg.history
		m.historyRows = buildRows(msg.history.Aircraft, m.ref, m.unit)
		m.showHistory = true
		m.selected = 0
	}

	return m, nil
}

func (m model) currentRows() []row {
	if m.showHistory {
		return m.historyRows
	}
	return m.rows
}

// buildRows orders positioned aircraft by distance and appends the rest.
func buildRows(list []dump1090.Aircraft, ref coordinates.Geographic, unit coordinates.Unit) []row {
	rows := make([]row, 0, len(list))
	for _, p := range dump1090.Nearby(list, ref.Latitude, ref.Longitude, 0, unit) {
		rows = append(rows, row{aircraft: p.Aircraft, distance: p.Distance, bearing: p.Bearing, hasPos: true})
	}
	for _, ac := range list {
		if !ac.HasPosition() {
			rows = append(rows, row{aircraft: ac})
		}
	}
	return rows
}

func (m model) View() string {
	var s strings.Builder

	title := fmt.Sprintf("PIAWARE WATCH  [%s]", strings.ToUpper(m.mode.String()))
	if m.showHistory {
		title = "PIAWARE WATCH  [HISTORY]"
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("Press any key to continue..."))
		return s.String()
	}

	if m.showHistory && m.history != nil {
		h := m.history
		s.WriteString(fmt.Sprintf("History %s - %s (%v)  %d aircraft  %d messages  %d files",
			h.Oldest.Format("15:04:05"), h.Newest.Format("15:04:05"), h.Span(),
			len(h.Aircraft), h.Messages, h.Files))
		if len(h.Skipped) > 0 {
			s.WriteString(errStyle.Render(fmt.Sprintf("  %d skipped", len(h.Skipped))))
		}
	} else {
		s.WriteString(fmt.Sprintf("Snapshot %s  %d aircraft  %d messages",
			m.snapshot.Format("15:04:05"), m.total, m.messages))
		if m.stale {
			s.WriteString(errStyle.Render("  (receiver not responding)"))
		}
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(fmt.Sprintf("Reference %.4f°, %.4f°", m.ref.Latitude, m.ref.Longitude)))
	if m.loadingHistory {
		s.WriteString(alertStyle.Render("  Loading history, this may take a while..."))
	}
	s.WriteString("\n\n")

	s.WriteString(m.renderTable())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: Select  M: Replace/Merge  H: History (shift: reload)  Q: Quit"))
	s.WriteString("\n")
	return s.String()
}

func (m model) renderTable() string {
	var t strings.Builder
	rows := m.currentRows()

	t.WriteString(headerStyle.Render(fmt.Sprintf("  %-7s %-8s %10s %6s %5s %9s %7s %6s",
		"HEX", "FLIGHT", "ALT", "GS", "TRK", "DIST", "BRG", "RSSI")))
	t.WriteString("\n")

	if len(rows) == 0 {
		t.WriteString(helpStyle.Render("  No aircraft"))
		t.WriteString("\n")
		return t.String()
	}

	start := 0
	if m.selected >= visibleRows {
		start = m.selected - visibleRows + 1
	}
	end := min(start+visibleRows, len(rows))

	for i := start; i < end; i++ {
		r := rows[i]
		line := m.formatRow(r)

		switch {
		case i == m.selected:
			line = selectedStyle.Render(line)
		case !r.hasPos:
			line = noPosStyle.Render(line)
		case m.alertRadius > 0 && r.distance <= m.alertRadius:
			line = alertStyle.Render(line)
		}
		t.WriteString(line)
		t.WriteString("\n")
	}
	if end < len(rows) {
		t.WriteString(helpStyle.Render(fmt.Sprintf("  ... %d more", len(rows)-end)))
		t.WriteString("\n")
	}
	return t.String()
}

func (m model) formatRow(r row) string {
	ac := r.aircraft
	callsign := ac.Callsign()
	if callsign == "" {
		callsign = "--------"
	}
	alt := "---"
	if ac.AltBaro != nil {
		alt = ac.AltBaro.String()
	}
	gs, trk, rssi := "---", "---", "---"
	if ac.GroundSpeed != nil {
		gs = fmt.Sprintf("%.0f", *ac.GroundSpeed)
	}
	if ac.Track != nil {
		trk = fmt.Sprintf("%.0f", *ac.Track)
	}
	if ac.RSSI != nil {
		rssi = fmt.Sprintf("%.1f", *ac.RSSI)
	}
	dist, brg := "---", "---"
	if r.hasPos {
		dist = fmt.Sprintf("%.1f %s", r.distance, m.unit)
		brg = fmt.Sprintf("%3.0f° %s", r.bearing, coordinates.Cardinal(r.bearing))
	}
	return fmt.Sprintf("  %-7s %-8s %10s %6s %5s %9s %7s %6s",
		ac.Hex, callsign, alt, gs, trk, dist, brg, rssi)
}

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	mode, err := dump1090.ParseRefreshMode(cfg.Display.Mode)
	if err != nil {
		log.Fatalf("Invalid refresh mode: %v", err)
	}
	unit, err := coordinates.ParseUnit(cfg.Display.DistanceUnit)
	if err != nil {
		log.Fatalf("Invalid distance unit: %v", err)
	}

	client := dump1090.NewClient(cfg.Receiver)
	ref := client.ReferencePoint(context.Background(), cfg.Observer)

	// Fetch failures are logged by the client; keep them off the TUI
	if f, err := tea.LogToFile("piaware-watch.log", "piaware-watch"); err == nil {
		defer f.Close()
	}

	m := model{
		client:      client,
		clientMu:    &sync.Mutex{},
		ref:         ref,
		unit:        unit,
		alertRadius: cfg.Display.AlertRadius,
		interval:    time.Duration(cfg.Display.RefreshIntervalSeconds) * time.Second,
		mode:        mode,
		refreshing:  true,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
