package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Paintersrp/launchpad/internal/cliutil"
	"github.com/Paintersrp/launchpad/internal/engine"
)

const (
	tableTitle     = "Services"
	eventsTitle    = "Events"
	filterPageName = "filter"
)

// DefaultMaxEvents is the event pane history kept when WithMaxEvents is not set.
const DefaultMaxEvents = 500

// Option configures UI behaviour.
type Option func(*UI)

// WithMaxEvents sets the number of events kept in the event pane.
func WithMaxEvents(n int) Option {
	return func(u *UI) {
		if n > 0 {
			u.maxEvents = n
		}
	}
}

// WithCloseHandler sets the callback raised by q or Ctrl-C. Without one the
// UI stops itself.
func WithCloseHandler(fn func() bool) Option {
	return func(u *UI) {
		u.onClose = fn
	}
}

// UI is the terminal host window. It renders lifecycle events and hands close
// requests to the shutdown coordinator instead of exiting on its own.
type UI struct {
	app    *tview.Application
	pages  *tview.Pages
	table  *tview.Table
	events *tview.TextView
	inbox  chan engine.Event

	services map[string]*serviceState
	order    []string
	history  []cliutil.EventRecord

	visible       []string
	selected      string
	eventsJSON    bool
	filter        string
	filterExpr    *regexp.Regexp
	eventsFocused bool
	maxEvents     int
	onClose       func() bool

	mu sync.RWMutex

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

var (
	_ engine.Sink   = (*UI)(nil)
	_ engine.Window = (*UI)(nil)
)

type serviceState struct {
	name      string
	firstSeen time.Time
	lastEvent time.Time
	status    engine.Status
	url       string
	message   string
}

// New constructs a UI configured with the supplied options.
func New(opts ...Option) *UI {
	app := tview.NewApplication()
	table := tview.NewTable().SetFixed(1, 1).SetSelectable(true, false)
	table.SetBorder(true).SetTitle(tableTitle)

	events := tview.NewTextView().SetDynamicColors(false).SetWrap(false)
	events.SetBorder(true).SetTitle(eventsTitle)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(table, 0, 3, true).
		AddItem(events, 0, 2, false)

	pages := tview.NewPages().AddPage("main", flex, true, true)

	ui := &UI{
		app:       app,
		pages:     pages,
		table:     table,
		events:    events,
		inbox:     make(chan engine.Event, 256),
		services:  make(map[string]*serviceState),
		maxEvents: DefaultMaxEvents,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ui)
	}

	app.SetRoot(pages, true)
	app.SetInputCapture(ui.handleKey)

	ui.mu.Lock()
	ui.refreshTableLocked()
	ui.mu.Unlock()

	return ui
}

// Emit queues an event for rendering. It never blocks; events are dropped
// when the window falls behind.
func (u *UI) Emit(ev engine.Event) {
	select {
	case <-u.done:
	case u.inbox <- ev:
	default:
	}
}

// Hide tears the terminal window down so the screen is restored at once.
func (u *UI) Hide() error {
	u.Stop()
	return nil
}

// Focus brings the first service back into view. It is the hook a
// single-instance notifier calls when a second launch is attempted.
func (u *UI) Focus() {
	select {
	case <-u.done:
		return
	default:
	}
	u.app.QueueUpdateDraw(func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		if len(u.visible) > 0 {
			u.selected = u.visible[0]
		}
		u.ensureSelectionLocked()
		u.app.SetFocus(u.table)
		u.eventsFocused = false
	})
}

// Done returns a channel that is closed when the UI stops.
func (u *UI) Done() <-chan struct{} {
	return u.done
}

// Run starts the tview application and processes incoming events until Stop
// is invoked or the provided context is cancelled.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	u.cancelMu.Lock()
	u.cancel = cancel
	u.cancelMu.Unlock()

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.consumeEvents(ctx)
	}()

	go func() {
		<-ctx.Done()
		u.Stop()
	}()

	err := u.app.Run()

	u.cancelMu.Lock()
	cancel = u.cancel
	u.cancel = nil
	u.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}

	u.wg.Wait()
	u.Stop()

	return err
}

// Stop terminates the application loop and releases resources.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		u.cancelMu.Lock()
		cancel := u.cancel
		u.cancel = nil
		u.cancelMu.Unlock()
		if cancel != nil {
			cancel()
		}
		u.app.Stop()
		close(u.done)
	})
}

func (u *UI) consumeEvents(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-u.inbox:
			u.applyEvent(evt)
			u.queueRefresh()
		case <-ticker.C:
			u.queueRefresh()
		}
	}
}

func (u *UI) requestClose() {
	if u.onClose != nil {
		u.onClose()
		return
	}
	go u.Stop()
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if u.overlayFocused() {
		return event
	}
	switch event.Key() {
	case tcell.KeyCtrlC:
		u.requestClose()
		return nil
	case tcell.KeyEnter:
		u.toggleFocus()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			u.requestClose()
			return nil
		case '/':
			u.showFilterPrompt()
			return nil
		case 'j', 'J':
			u.toggleJSON()
			return nil
		}
	}
	return event
}

func (u *UI) overlayFocused() bool {
	focus := u.app.GetFocus()
	return focus != nil && focus != u.table && focus != u.events
}

func (u *UI) toggleFocus() {
	if u.eventsFocused {
		u.app.SetFocus(u.table)
	} else {
		u.app.SetFocus(u.events)
	}
	u.eventsFocused = !u.eventsFocused
}

func (u *UI) toggleJSON() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.eventsJSON = !u.eventsJSON
	u.renderEventsLocked()
}

func (u *UI) showFilterPrompt() {
	u.mu.RLock()
	current := u.filter
	u.mu.RUnlock()

	input := tview.NewInputField().
		SetLabel("Regex filter: ").
		SetText(current).
		SetFieldWidth(40)

	form := tview.NewForm().
		AddFormItem(input).
		AddButton("Apply", func() {
			u.applyFilter(input.GetText())
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		}).
		AddButton("Cancel", func() {
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		})

	form.SetBorder(true).SetTitle("Filter Services")

	grid := tview.NewGrid().
		SetColumns(0, 60, 0).
		SetRows(0, 7, 0).
		AddItem(form, 1, 1, 1, 1, 0, 0, true)

	u.pages.AddPage(filterPageName, grid, true, true)
	u.app.SetFocus(input)
}

func (u *UI) applyFilter(expr string) {
	expr = strings.TrimSpace(expr)
	var re *regexp.Regexp
	if expr != "" {
		var err error
		re, err = regexp.Compile(expr)
		if err != nil {
			u.showErrorModal(fmt.Sprintf("Invalid filter: %v", err))
			return
		}
	}

	u.mu.Lock()
	u.filter = expr
	u.filterExpr = re
	u.refreshTableLocked()
	u.mu.Unlock()
}

func (u *UI) showErrorModal(message string) {
	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		})

	u.pages.RemovePage(filterPageName)
	u.pages.AddPage(filterPageName, modal, true, true)
}

func (u *UI) applyEvent(evt engine.Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	state := u.services[evt.Service]
	if state == nil {
		state = &serviceState{name: evt.Service, firstSeen: evt.Timestamp}
		u.services[evt.Service] = state
		u.order = append(u.order, evt.Service)
	}
	state.lastEvent = evt.Timestamp
	state.status = evt.Status
	state.message = cliutil.RedactSecrets(evt.Message())
	switch evt.Status {
	case engine.StatusReady:
		state.url = evt.URL
	case engine.StatusStarting:
		state.url = ""
	}

	u.history = append(u.history, cliutil.NewEventRecord(evt))
	if len(u.history) > u.maxEvents {
		trim := len(u.history) - u.maxEvents
		u.history = append([]cliutil.EventRecord(nil), u.history[trim:]...)
	}
}

func (u *UI) queueRefresh() {
	u.app.QueueUpdateDraw(func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.refreshTableLocked()
		u.renderEventsLocked()
	})
}

func (u *UI) refreshTableLocked() {
	row, _ := u.table.GetSelection()
	u.syncSelection(row)
	u.table.Clear()

	headers := []string{"SERVICE", "STATUS", "URL", "AGE", "MESSAGE"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold)
		u.table.SetCell(0, col, cell)
	}

	// Services stay in the order they were started.
	names := make([]string, 0, len(u.order))
	for _, name := range u.order {
		if u.filterExpr != nil && !u.filterExpr.MatchString(name) {
			continue
		}
		names = append(names, name)
	}
	u.visible = names

	if u.filter != "" {
		u.table.SetTitle(fmt.Sprintf("%s /%s/", tableTitle, u.filter))
	} else {
		u.table.SetTitle(tableTitle)
	}

	for row, name := range names {
		state := u.services[name]
		age := "-"
		if !state.firstSeen.IsZero() {
			age = time.Since(state.firstSeen).Truncate(time.Second).String()
		}
		url := state.url
		if url == "" {
			url = "-"
		}
		message := state.message
		if len(message) > 80 {
			message = message[:77] + "..."
		}

		values := []string{name, formatStatus(state.status), url, age, message}
		for col, value := range values {
			cell := tview.NewTableCell(value)
			if col == 0 {
				cell = cell.SetReference(name)
			}
			if col == 1 {
				cell = cell.SetTextColor(statusColor(state.status))
			}
			u.table.SetCell(row+1, col, cell)
		}
	}

	u.ensureSelectionLocked()
}

func (u *UI) renderEventsLocked() {
	u.events.Clear()
	for _, record := range u.history {
		if u.eventsJSON {
			data, err := json.Marshal(record)
			if err != nil {
				fmt.Fprintf(u.events, "{\"error\":%q}\n", err.Error())
				continue
			}
			fmt.Fprintf(u.events, "%s\n", data)
			continue
		}
		fmt.Fprintln(u.events, record.String())
	}
	u.events.ScrollToEnd()
}

func (u *UI) ensureSelectionLocked() {
	if len(u.visible) == 0 {
		u.selected = ""
		u.table.Select(0, 0)
		return
	}

	idx := -1
	for i, name := range u.visible {
		if name == u.selected {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = 0
		u.selected = u.visible[0]
	}
	u.table.Select(idx+1, 0)
}

func (u *UI) syncSelection(row int) {
	if row <= 0 || row-1 >= len(u.visible) {
		return
	}
	u.selected = u.visible[row-1]
}

func formatStatus(s engine.Status) string {
	if s == "" {
		return "-"
	}
	str := string(s)
	return strings.ToUpper(str[:1]) + str[1:]
}

func statusColor(s engine.Status) tcell.Color {
	switch s {
	case engine.StatusReady:
		return tcell.ColorGreen
	case engine.StatusError:
		return tcell.ColorRed
	case engine.StatusStarting:
		return tcell.ColorYellow
	default:
		return tcell.ColorDefault
	}
}
