package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/ads-bpoll/pkg/config"
	"github.com/unklstewy/ads-bpoll/pkg/coordinates"
	"github.com/unklstewy/ads-bpoll/pkg/dump1090"
)

// App browses the reconciled receiver history.
type App struct {
	client *dump1090.Client
	ref    coordinates.Geographic
	unit   coordinates.Unit

	// UI components
	tviewApp *tview.Application
	table    *tview.Table
	detail   *tview.TextView
	status   *tview.TextView
	search   *tview.InputField
	layout   *tview.Flex

	// State
	mu      sync.Mutex
	history *dump1090.History
	loading bool
}

// NewApp creates the browser for an already loaded history.
func NewApp(client *dump1090.Client, h *dump1090.History, ref coordinates.Geographic, unit coordinates.Unit) *App {
	a := &App{
		client:  client,
		ref:     ref,
		unit:    unit,
		history: h,
	}
	a.setupUI()
	a.populate()
	return a
}

// setupUI initializes the user interface
func (a *App) setupUI() {
	a.tviewApp = tview.NewApplication()

	a.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.table.SetBorder(true).SetTitle(" History ")
	a.table.SetSelectionChangedFunc(func(row, column int) {
		a.showDetail(row - 1)
	})

	a.detail = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	a.detail.SetBorder(true).SetTitle(" Aircraft ")

	a.status = tview.NewTextView().
		SetDynamicColors(true)

	a.search = tview.NewInputField().
		SetLabel("Find (hex or callsign): ").
		SetFieldWidth(12)
	a.search.SetDoneFunc(a.find)

	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.table, 0, 6, true).
		AddItem(a.detail, 0, 4, false)

	a.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(a.status, 1, 0, false).
		AddItem(a.search, 1, 0, false)

	a.tviewApp.SetRoot(a.layout, true)
	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

// handleKeyboard handles keyboard input
func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	if a.search.HasFocus() {
		return event
	}

	switch {
	case event.Key() == tcell.KeyEscape || event.Rune() == 'q':
		a.tviewApp.Stop()
		return nil
	case event.Rune() == 'r':
		a.reload()
		return nil
	case event.Rune() == '/':
		a.tviewApp.SetFocus(a.search)
		return nil
	}
	return event
}

// populate fills the table from the current history
func (a *App) populate() {
	a.mu.Lock()
	h := a.history
	a.mu.Unlock()

	a.table.Clear()
	headers := []string{"HEX", "FLIGHT", "ALT", "GS", "DIST", "BRG", "SQUAWK", "MSGS"}
	for col, name := range headers {
		a.table.SetCell(0, col, tview.NewTableCell(name).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}

	for i, ac := range h.Aircraft {
		cells := a.rowCells(ac)
		for col, text := range cells {
			cell := tview.NewTableCell(text)
			if !ac.HasPosition() {
				cell.SetTextColor(tcell.ColorGray)
			}
			a.table.SetCell(i+1, col, cell)
		}
	}

	a.updateStatus("")
	if len(h.Aircraft) > 0 {
		a.table.Select(1, 0)
		a.showDetail(0)
	} else {
		a.detail.SetText("[gray]No aircraft in history[-]")
	}
}

func (a *App) rowCells(ac dump1090.Aircraft) []string {
	cells := []string{ac.Hex, ac.Callsign(), "", "", "", "", "", ""}
	if ac.AltBaro != nil {
		cells[2] = ac.AltBaro.String()
	}
	if ac.GroundSpeed != nil {
		cells[3] = fmt.Sprintf("%.0f kt", *ac.GroundSpeed)
	}
	if d, ok := ac.DistanceFrom(a.ref.Latitude, a.ref.Longitude, a.unit); ok {
		cells[4] = fmt.Sprintf("%.1f %s", d, a.unit)
	}
	if b, ok := ac.BearingFrom(a.ref.Latitude, a.ref.Longitude); ok {
		cells[5] = fmt.Sprintf("%.0f° %s", b, coordinates.Cardinal(b))
	}
	if ac.Squawk != nil {
		cells[6] = *ac.Squawk
	}
	if ac.Messages != nil {
		cells[7] = fmt.Sprintf("%d", *ac.Messages)
	}
	return cells
}

// showDetail renders every reported field of the aircraft at index
func (a *App) showDetail(index int) {
	a.mu.Lock()
	h := a.history
	a.mu.Unlock()

	if index < 0 || index >= len(h.Aircraft) {
		return
	}
	ac := h.Aircraft[index]

	var b strings.Builder
	field := func(name, value string) {
		fmt.Fprintf(&b, "[gray]%-12s[-] [white]%s[-]\n", name+":", value)
	}
	num := func(name string, v *float64, format string) {
		if v != nil {
			field(name, fmt.Sprintf(format, *v))
		}
	}
	str := func(name string, v *string) {
		if v != nil {
			field(name, *v)
		}
	}

	fmt.Fprintf(&b, "[yellow]%s[-] [gray](%s)[-]\n\n", ac.Callsign(), ac.Hex)
	if ac.AltBaro != nil {
		field("Alt baro", ac.AltBaro.String())
	}
	if ac.AltGeom != nil {
		field("Alt geom", ac.AltGeom.String())
	}
	num("Ground spd", ac.GroundSpeed, "%.1f kt")
	num("IAS", ac.IndicatedAirSpeed, "%.0f kt")
	num("TAS", ac.TrueAirSpeed, "%.0f kt")
	num("Mach", ac.Mach, "%.3f")
	num("Track", ac.Track, "%.1f°")
	num("Mag hdg", ac.MagHeading, "%.1f°")
	num("Baro rate", ac.BaroRate, "%.0f ft/min")
	str("Squawk", ac.Squawk)
	str("Emergency", ac.Emergency)
	str("Category", ac.Category)
	num("Nav alt", ac.NavAltitudeMCP, "%.0f ft")
	num("Nav QNH", ac.NavQNH, "%.1f hPa")
	if len(ac.NavModes) > 0 {
		field("Nav modes", strings.Join(ac.NavModes, ","))
	}

	b.WriteString("\n")
	if pos, ok := ac.Position(); ok {
		field("Position", fmt.Sprintf("%.4f°, %.4f°", pos.Latitude, pos.Longitude))
		d, _ := ac.DistanceFrom(a.ref.Latitude, a.ref.Longitude, a.unit)
		brg, _ := ac.BearingFrom(a.ref.Latitude, a.ref.Longitude)
		field("Distance", fmt.Sprintf("%.2f %s", d, a.unit))
		field("Bearing", fmt.Sprintf("%.1f° %s", brg, coordinates.Cardinal(brg)))
	} else {
		field("Position", "[gray]not reported[-]")
	}

	b.WriteString("\n")
	num("Seen", ac.Seen, "%.1fs ago")
	num("Seen pos", ac.SeenPos, "%.1fs ago")
	num("RSSI", ac.RSSI, "%.1f dBFS")
	if ac.Messages != nil {
		field("Messages", fmt.Sprintf("%d", *ac.Messages))
	}
	if len(ac.MLAT) > 0 {
		field("MLAT", strings.Join(ac.MLAT, ","))
	}

	a.detail.SetText(b.String())
	a.detail.ScrollToBeginning()
}

// find selects the first aircraft matching the search text
func (a *App) find(key tcell.Key) {
	defer a.tviewApp.SetFocus(a.table)
	if key != tcell.KeyEnter {
		return
	}
	text := strings.TrimSpace(a.search.GetText())

	a.mu.Lock()
	h := a.history
	a.mu.Unlock()

	ac, ok, err := h.Find(text, text)
	if err != nil {
		a.updateStatus("[red]" + err.Error() + "[-]")
		return
	}
	if !ok {
		a.updateStatus(fmt.Sprintf("[yellow]No aircraft matching %q[-]", text))
		return
	}
	for i, candidate := range h.Aircraft {
		if candidate.Hex == ac.Hex {
			a.table.Select(i+1, 0)
			break
		}
	}
	a.updateStatus("")
}

// reload rebuilds the history in the background
func (a *App) reload() {
	a.mu.Lock()
	if a.loading {
		a.mu.Unlock()
		return
	}
	a.loading = true
	a.mu.Unlock()

	a.updateStatus("[yellow]Reloading history, this may take a while...[-]")
	go func() {
		h, err := a.client.History(context.Background(), true)

		a.tviewApp.QueueUpdateDraw(func() {
			a.mu.Lock()
			a.loading = false
			if err == nil {
				a.history = h
			}
			a.mu.Unlock()

			if err != nil {
				a.updateStatus(fmt.Sprintf("[red]Reload failed: %v[-]", err))
				return
			}
			a.populate()
		})
	}()
}

func (a *App) updateStatus(extra string) {
	a.mu.Lock()
	h := a.history
	a.mu.Unlock()

	text := fmt.Sprintf("[gray]%s - %s[-]  [white]%d aircraft  %d messages  %d files[-]",
		h.Oldest.Format("15:04:05"), h.Newest.Format("15:04:05"),
		len(h.Aircraft), h.Messages, h.Files)
	if len(h.Skipped) > 0 {
		text += fmt.Sprintf("  [red]%d skipped[-]", len(h.Skipped))
	}
	text += "  [gray]/ find  r reload  q quit[-]"
	if extra != "" {
		text += "  " + extra
	}
	a.status.SetText(text)
}

// Run starts the application
func (a *App) Run() error {
	return a.tviewApp.Run()
}

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	unit, err := coordinates.ParseUnit(cfg.Display.DistanceUnit)
	if err != nil {
		log.Fatalf("Invalid distance unit: %v", err)
	}

	ctx := context.Background()
	client := dump1090.NewClient(cfg.Receiver)
	ref := client.ReferencePoint(ctx, cfg.Observer)

	h, err := client.History(ctx, false)
	if err != nil {
		log.Fatalf("Failed to load history: %v", err)
	}

	// Fetch failures during reload would draw over the table
	if f, err := os.OpenFile("piaware-history.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		defer f.Close()
		log.SetOutput(f)
	}

	app := NewApp(client, h, ref, unit)
	if err := app.Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
