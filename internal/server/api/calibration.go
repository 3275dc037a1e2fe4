package api

import (
	"net/http"

	"github.com/goggybox/touchtypEd/internal/region"
	"github.com/goggybox/touchtypEd/internal/segment"
)

// CalibrationHandler exposes the live HSV range of every anchor class.
type CalibrationHandler struct {
	calibration *segment.Calibration
}

// NewCalibrationHandler creates a CalibrationHandler for c.
func NewCalibrationHandler(c *segment.Calibration) *CalibrationHandler {
	return &CalibrationHandler{calibration: c}
}

type calibrationResponse struct {
	Ranges map[region.Class]segment.HSVRange `json:"ranges"`
}

type classRangeResponse struct {
	Class region.Class     `json:"class"`
	Range segment.HSVRange `json:"range"`
}

// ServeHTTP routes /api/calibration and /api/calibration/{class}.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/calibration")

	switch len(parts) {
	case 0:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, calibrationResponse{Ranges: h.calibration.Snapshot()})
	case 1:
		class := region.Class(parts[0])
		switch r.Method {
		case http.MethodGet:
			h.get(w, class)
		case http.MethodPut:
			h.put(w, r, class)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *CalibrationHandler) get(w http.ResponseWriter, class region.Class) {
	rng, ok := h.calibration.Get(class)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown class")
		return
	}
	writeJSON(w, http.StatusOK, classRangeResponse{Class: class, Range: rng})
}

// put replaces the range of an existing class.
func (h *CalibrationHandler) put(w http.ResponseWriter, r *http.Request, class region.Class) {
	if _, ok := h.calibration.Get(class); !ok {
		writeError(w, http.StatusNotFound, "unknown class")
		return
	}

	var rng segment.HSVRange
	if err := json.NewDecoder(r.Body).Decode(&rng); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.calibration.Set(class, rng); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, classRangeResponse{Class: class, Range: rng})
}
