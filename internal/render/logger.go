package render

import (
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/goggybox/touchtypEd/internal/placement"
)

// LogRenderer writes placement feedback to the log whenever the combined
// status changes.
type LogRenderer struct {
	log   logrus.FieldLogger
	last  placement.Status
	known bool
}

// NewLogRenderer creates a LogRenderer.
func NewLogRenderer(log logrus.FieldLogger) *LogRenderer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogRenderer{log: log}
}

func (l *LogRenderer) Render(_ *gocv.Mat, snap *Snapshot) error {
	if l.known && snap.Status == l.last {
		return nil
	}
	l.last = snap.Status
	l.known = true

	for _, side := range []placement.Side{placement.Left, placement.Right} {
		r, ok := snap.Result(side)
		if !ok {
			continue
		}
		l.log.WithFields(logrus.Fields{
			"side":   side,
			"index":  r.IndexCorrect,
			"second": r.SecondCorrect,
		}).Debug("hand placement")
	}

	entry := l.log.WithFields(logrus.Fields{"status": snap.Status, "frame": snap.Frame})
	if snap.Status == placement.Both {
		entry.Info(snap.Status.Message())
	} else {
		entry.Warn(snap.Status.Message())
	}
	return nil
}
