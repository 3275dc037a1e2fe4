package server

import (
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"github.com/goggybox/touchtypEd/internal/geom"
	"github.com/goggybox/touchtypEd/internal/placement"
	"github.com/goggybox/touchtypEd/internal/render"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wireHand struct {
	Side      placement.Side `json:"side"`
	IndexTip  wirePoint      `json:"index_tip"`
	SecondTip wirePoint      `json:"second_tip"`
}

// wireResult carries distances as pointers so an unevaluated test encodes
// as null.
type wireResult struct {
	Side           placement.Side `json:"side"`
	Correct        bool           `json:"correct"`
	IndexCorrect   bool           `json:"index_correct"`
	SecondCorrect  bool           `json:"second_correct"`
	IndexDistance  *float64       `json:"index_distance"`
	SecondDistance *float64       `json:"second_distance"`
}

// PlacementMessage is the JSON document sent to placement feed clients.
type PlacementMessage struct {
	Frame     uint64           `json:"frame"`
	Status    placement.Status `json:"status"`
	Message   string           `json:"message"`
	Hands     []wireHand       `json:"hands"`
	Results   []wireResult     `json:"results"`
	Timestamp int64            `json:"timestamp"`
}

func toWirePoint(p geom.Point) wirePoint {
	return wirePoint{X: p.X, Y: p.Y}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NewPlacementMessage converts a snapshot into its wire form.
func NewPlacementMessage(snap *render.Snapshot, now time.Time) PlacementMessage {
	msg := PlacementMessage{
		Frame:     snap.Frame,
		Status:    snap.Status,
		Message:   snap.Status.Message(),
		Hands:     make([]wireHand, 0, len(snap.Hands)),
		Results:   make([]wireResult, 0, len(snap.Results)),
		Timestamp: now.UnixMilli(),
	}
	for _, h := range snap.Hands {
		msg.Hands = append(msg.Hands, wireHand{
			Side:      h.Side,
			IndexTip:  toWirePoint(h.IndexTip),
			SecondTip: toWirePoint(h.SecondTip),
		})
	}
	for _, r := range snap.Results {
		msg.Results = append(msg.Results, wireResult{
			Side:           r.Side,
			Correct:        r.Correct(),
			IndexCorrect:   r.IndexCorrect,
			SecondCorrect:  r.SecondCorrect,
			IndexDistance:  finite(r.IndexDistance),
			SecondDistance: finite(r.SecondDistance),
		})
	}
	return msg
}

// Hub broadcasts placement snapshots to WebSocket clients. It is a
// render.Renderer so the pipeline feeds it like any other output.
type Hub struct {
	log     logrus.FieldLogger
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	latest  []byte

	// limiter thins out repeats of the same status; nil sends every frame.
	limiter *rate.Limiter
	sent    placement.Status
	hasSent bool
}

var _ render.Renderer = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		log:     log,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Limit caps broadcasts of an unchanged status at perSecond. A status
// change is always sent. Zero or less removes the cap.
func (h *Hub) Limit(perSecond float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if perSecond <= 0 {
		h.limiter = nil
		return
	}
	h.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Latest returns the most recently broadcast message, or nil.
func (h *Hub) Latest() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// ServeHTTP handles WebSocket upgrade requests. A new client receives the
// latest message immediately.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	if h.latest != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, h.latest)
	}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Render encodes the snapshot and sends it to every client. Clients that
// fail to accept the write are dropped. Latest always reflects the newest
// snapshot, even when the broadcast is skipped by the rate limit.
func (h *Hub) Render(_ *gocv.Mat, snap *render.Snapshot) error {
	msg, err := json.Marshal(NewPlacementMessage(snap, time.Now()))
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = msg

	changed := !h.hasSent || h.sent != snap.Status
	if h.limiter != nil {
		// Reserve a token either way so a change does not let a burst of
		// repeats through right after it.
		allowed := h.limiter.Allow()
		if !changed && !allowed {
			return nil
		}
	}
	h.sent, h.hasSent = snap.Status, true

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.WithError(err).Debug("dropping placement client")
			delete(h.clients, conn)
			conn.Close()
		}
	}
	return nil
}
