package server

import (
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"
)

// DefaultStreamInterval polls the frame source at roughly 15 FPS.
const DefaultStreamInterval = 66 * time.Millisecond

const streamBoundary = "frame"

// StreamHandler serves the annotated frames as MJPEG: one multipart part per
// new frame, for as long as the client stays connected.
type StreamHandler struct {
	frames   FrameSource
	interval time.Duration
}

func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames, interval: DefaultStreamInterval}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(streamBoundary); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	rc := http.NewResponseController(w)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint64
	for {
		// Only frames the source has not already handed out are sent.
		if data, seq := h.frames.Latest(); seq != last && len(data) > 0 {
			part, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":   {"image/jpeg"},
				"Content-Length": {strconv.Itoa(len(data))},
			})
			if err != nil {
				return
			}
			if _, err := part.Write(data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			last = seq
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
