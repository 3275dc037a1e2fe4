package hook

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/goggybox/touchtypEd/internal/placement"
	"github.com/goggybox/touchtypEd/internal/render"
)

// Notifier is a render.Renderer that runs the matching hooks whenever the
// combined status changes. The first frame only sets the baseline. Hooks
// run off the frame loop; a change that arrives while hooks are still
// running is dropped.
type Notifier struct {
	hooks []Hook
	exec  *Executor
	log   logrus.FieldLogger

	last  placement.Status
	known bool

	busy sync.Mutex
	wg   sync.WaitGroup
}

var _ render.Renderer = (*Notifier)(nil)

// NewNotifier creates a Notifier for hooks.
func NewNotifier(hooks []Hook, exec *Executor, log logrus.FieldLogger) *Notifier {
	if exec == nil {
		exec = NewExecutor(DefaultTimeout)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{hooks: hooks, exec: exec, log: log}
}

func (n *Notifier) Render(_ *gocv.Mat, snap *render.Snapshot) error {
	if !n.known {
		n.known = true
		n.last = snap.Status
		return nil
	}
	if snap.Status == n.last {
		return nil
	}

	ev := Event{
		Status:   snap.Status,
		Previous: n.last,
		Message:  snap.Status.Message(),
		Frame:    snap.Frame,
		Time:     time.Now(),
	}
	n.last = snap.Status

	var matched []Hook
	for _, h := range n.hooks {
		if h.Matches(ev.Status) {
			matched = append(matched, h)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	if !n.busy.TryLock() {
		n.log.WithField("status", ev.Status).Debug("hooks still running, change dropped")
		return nil
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer n.busy.Unlock()
		for _, h := range matched {
			out, err := n.exec.Execute(context.Background(), h, ev)
			entry := n.log.WithFields(logrus.Fields{"hook": h.Name, "status": ev.Status})
			if err != nil {
				entry.WithError(err).Warn("hook failed")
				continue
			}
			entry.WithField("output", string(out)).Debug("hook ran")
		}
	}()
	return nil
}

// Wait blocks until running hooks have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
