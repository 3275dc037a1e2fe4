// Package tray shows the placement status in the system tray and offers
// pause, calibration and quit entries.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
	"gocv.io/x/gocv"

	"github.com/goggybox/touchtypEd/internal/placement"
	"github.com/goggybox/touchtypEd/internal/render"
)

const (
	titleChecking = "● Checking"
	titlePaused   = "○ Paused"
	titleWaiting  = "Waiting for camera..."
)

// Actions are invoked from the menu. Nil entries are skipped.
type Actions struct {
	// Toggle receives the new checking state.
	Toggle func(enabled bool)
	// Calibrate opens the calibration page.
	Calibrate func()
	// Quit runs before the tray closes.
	Quit func()
}

// Tray is the menu bar entry. It doubles as a render.Renderer that mirrors
// the combined placement status.
type Tray struct {
	mu      sync.RWMutex
	actions Actions
	enabled bool

	status placement.Status
	seen   bool

	ready    bool
	quitting bool
	toggle   *systray.MenuItem
	current  *systray.MenuItem
}

var _ render.Renderer = (*Tray)(nil)

// New returns a tray with checking enabled.
func New() *Tray {
	return &Tray{enabled: true}
}

// Bind sets the menu actions.
func (t *Tray) Bind(a Actions) {
	t.mu.Lock()
	t.actions = a
	t.mu.Unlock()
}

// Run shows the tray and blocks until Quit. It must be called from the main
// goroutine.
func (t *Tray) Run() {
	systray.Run(t.build, func() {})
}

// Quit closes the tray and unblocks Run. Before the menu is built it takes
// effect as soon as it is.
func (t *Tray) Quit() {
	t.mu.Lock()
	ready := t.ready
	t.quitting = !ready
	t.mu.Unlock()

	if ready {
		systray.Quit()
	}
}

func (t *Tray) build() {
	systray.SetTitle("touchtypEd")
	systray.SetTooltip("touchtypEd hand placement guide")

	t.mu.Lock()
	t.toggle = systray.AddMenuItem(titleChecking, "Pause or resume placement checks")
	systray.AddSeparator()
	t.current = systray.AddMenuItem(statusTitle(t.status, t.seen), "Current hand placement")
	t.current.Disable()
	t.ready = true
	quitting := t.quitting
	t.mu.Unlock()

	if quitting {
		systray.Quit()
		return
	}

	systray.AddSeparator()
	calibrate := systray.AddMenuItem("Open Calibration...", "Open calibration in browser")
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Quit touchtypEd")

	go func() {
		for {
			select {
			case <-t.toggle.ClickedCh:
				t.flip()
			case <-calibrate.ClickedCh:
				t.calibrate()
			case <-quit.ClickedCh:
				t.quit()
				return
			}
		}
	}()
}

// flip pauses or resumes checking.
func (t *Tray) flip() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.toggle != nil {
		title := titleChecking
		if !enabled {
			title = titlePaused
		}
		t.toggle.SetTitle(title)
	}
	fn := t.actions.Toggle
	t.mu.Unlock()

	if fn != nil {
		fn(enabled)
	}
}

func (t *Tray) calibrate() {
	t.mu.RLock()
	fn := t.actions.Calibrate
	t.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (t *Tray) quit() {
	t.mu.RLock()
	fn := t.actions.Quit
	t.mu.RUnlock()
	if fn != nil {
		fn()
	}
	systray.Quit()
}

// Render updates the status entry and tooltip when the status changes.
func (t *Tray) Render(_ *gocv.Mat, snap *render.Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen && t.status == snap.Status {
		return nil
	}
	t.status, t.seen = snap.Status, true

	if t.ready {
		title := statusTitle(t.status, true)
		t.current.SetTitle(title)
		systray.SetTooltip("touchtypEd: " + title)
	}
	return nil
}

// Status returns the last rendered status and whether one has been seen.
func (t *Tray) Status() (placement.Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status, t.seen
}

func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func statusTitle(s placement.Status, seen bool) string {
	if !seen {
		return titleWaiting
	}
	return s.Message()
}
