package server

import (
	"bytes"
	stdjson "encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/goggybox/touchtypEd/internal/region"
	"github.com/goggybox/touchtypEd/internal/segment"
	"github.com/goggybox/touchtypEd/internal/store"
)

// call sends a JSON request and decodes the reply into out when out is
// non-nil. It fails the test on a status other than want.
func call(t *testing.T, ts *httptest.Server, method, path string, body any, want int, out any) {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := stdjson.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status = %d, want %d (%s)", method, path, resp.StatusCode, want, msg)
	}
	if out != nil {
		if err := stdjson.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func TestAPI_ProfileWorkflow(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "touchtyped.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	cal := segment.NewCalibration(map[region.Class]segment.HSVRange{
		region.ClassGreen: segment.DefaultGreen,
		region.ClassBlue:  segment.DefaultBlue,
	})
	ts := httptest.NewServer(New(Config{Store: st, Calibration: cal}))
	defer ts.Close()

	// Tune green under evening light and save the result.
	evening := segment.HSVRange{LowH: 40, LowS: 90, LowV: 40, HighH: 80, HighS: 255, HighV: 255}
	call(t, ts, http.MethodPut, "/api/calibration/green", evening, http.StatusOK, nil)

	var created struct {
		ID     string                            `json:"id"`
		Name   string                            `json:"name"`
		Ranges map[region.Class]segment.HSVRange `json:"ranges"`
	}
	call(t, ts, http.MethodPost, "/api/profiles", map[string]string{"name": "evening"}, http.StatusCreated, &created)
	if created.Name != "evening" || created.Ranges[region.ClassGreen] != evening {
		t.Fatalf("created = %+v", created)
	}
	call(t, ts, http.MethodPost, "/api/profiles", map[string]string{"name": "evening"}, http.StatusConflict, nil)

	// Back to daylight, then restore the saved profile.
	if err := cal.Set(region.ClassGreen, segment.DefaultGreen); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	var applied struct {
		Ranges map[region.Class]segment.HSVRange `json:"ranges"`
	}
	call(t, ts, http.MethodPost, "/api/profiles/"+created.ID+"/apply", nil, http.StatusOK, &applied)
	if applied.Ranges[region.ClassGreen] != evening {
		t.Errorf("apply response green = %+v", applied.Ranges[region.ClassGreen])
	}
	if got, _ := cal.Get(region.ClassGreen); got != evening {
		t.Errorf("live green = %+v, want %+v", got, evening)
	}

	var listed struct {
		Profiles []struct {
			ID string `json:"id"`
		} `json:"profiles"`
		Active string `json:"active"`
	}
	call(t, ts, http.MethodGet, "/api/profiles", nil, http.StatusOK, &listed)
	if len(listed.Profiles) != 1 || listed.Active != created.ID {
		t.Fatalf("listed = %+v, want one active profile %s", listed, created.ID)
	}

	call(t, ts, http.MethodDelete, "/api/profiles/"+created.ID, nil, http.StatusNoContent, nil)
	call(t, ts, http.MethodGet, "/api/profiles/"+created.ID, nil, http.StatusNotFound, nil)
	call(t, ts, http.MethodGet, "/api/profiles", nil, http.StatusOK, &listed)
	if len(listed.Profiles) != 0 || listed.Active != "" {
		t.Errorf("after delete listed = %+v", listed)
	}
}

func TestAPI_HealthOverHTTP(t *testing.T) {
	ts := httptest.NewServer(New(Config{}))
	defer ts.Close()

	var health struct {
		Status string `json:"status"`
	}
	call(t, ts, http.MethodGet, "/api/health", nil, http.StatusOK, &health)
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
}
