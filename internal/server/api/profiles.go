package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goggybox/touchtypEd/internal/region"
	"github.com/goggybox/touchtypEd/internal/segment"
	"github.com/goggybox/touchtypEd/internal/store"
)

// ProfileHandler handles HTTP requests for calibration profiles.
type ProfileHandler struct {
	store       *store.Store
	calibration *segment.Calibration
	log         logrus.FieldLogger
}

// NewProfileHandler creates a ProfileHandler. Applying a profile writes its
// ranges into c.
func NewProfileHandler(s *store.Store, c *segment.Calibration, log logrus.FieldLogger) *ProfileHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProfileHandler{store: s, calibration: c, log: log}
}

// ServeHTTP routes /api/profiles, /api/profiles/{id} and
// /api/profiles/{id}/apply.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/profiles")

	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, parts[0])
		case http.MethodDelete:
			h.delete(w, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 2:
		if parts[1] != "apply" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.apply(w, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

type createProfileRequest struct {
	Name string `json:"name"`
	// Ranges defaults to the live calibration when omitted.
	Ranges map[region.Class]segment.HSVRange `json:"ranges,omitempty"`
}

type profileResponse struct {
	ID        string                            `json:"id"`
	Name      string                            `json:"name"`
	CreatedAt string                            `json:"created_at"`
	UpdatedAt string                            `json:"updated_at"`
	Ranges    map[region.Class]segment.HSVRange `json:"ranges,omitempty"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
	Active   string            `json:"active,omitempty"`
}

func toResponse(p *store.Profile, ranges map[region.Class]segment.HSVRange) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Ranges:    ranges,
	}
}

// list handles GET /api/profiles.
func (h *ProfileHandler) list(w http.ResponseWriter) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}

	resp := listProfilesResponse{Profiles: make([]profileResponse, 0, len(profiles))}
	for _, p := range profiles {
		resp.Profiles = append(resp.Profiles, toResponse(p, nil))
	}
	if active, err := h.store.Settings().Get(store.KeyActiveProfile); err == nil {
		resp.Active = active
	}

	writeJSON(w, http.StatusOK, resp)
}

// create handles POST /api/profiles.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	ranges := req.Ranges
	if len(ranges) == 0 {
		ranges = h.calibration.Snapshot()
	}
	for class, rng := range ranges {
		if err := rng.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, string(class)+": "+err.Error())
			return
		}
	}

	p := &store.Profile{Name: req.Name}
	if err := h.store.Profiles().Create(p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "profile name already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create profile")
		return
	}
	if err := h.store.Profiles().SetRanges(p.ID, ranges); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save ranges")
		return
	}

	h.log.WithField("profile", p.Name).Info("calibration profile saved")
	writeJSON(w, http.StatusCreated, toResponse(p, ranges))
}

// get handles GET /api/profiles/{id}.
func (h *ProfileHandler) get(w http.ResponseWriter, id string) {
	p, err := h.store.Profiles().Get(id)
	if err != nil {
		h.storeError(w, err)
		return
	}
	ranges, err := h.store.Profiles().Ranges(id)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(p, ranges))
}

// delete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Profiles().Delete(id); err != nil {
		h.storeError(w, err)
		return
	}
	if active, err := h.store.Settings().Get(store.KeyActiveProfile); err == nil && active == id {
		h.store.Settings().Delete(store.KeyActiveProfile)
	}
	w.WriteHeader(http.StatusNoContent)
}

// apply handles POST /api/profiles/{id}/apply.
func (h *ProfileHandler) apply(w http.ResponseWriter, id string) {
	ranges, err := h.store.Profiles().Activate(id)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if err := h.calibration.Replace(ranges); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.log.WithField("profile", id).Info("calibration profile applied")
	writeJSON(w, http.StatusOK, calibrationResponse{Ranges: h.calibration.Snapshot()})
}

func (h *ProfileHandler) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	h.log.WithError(err).Error("profile store")
	writeError(w, http.StatusInternalServerError, "internal error")
}
