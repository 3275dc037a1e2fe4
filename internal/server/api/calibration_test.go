package api

import (
	"bytes"
	stdjson "encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goggybox/touchtypEd/internal/region"
	"github.com/goggybox/touchtypEd/internal/segment"
)

func newTestCalibration() *segment.Calibration {
	return segment.NewCalibration(map[region.Class]segment.HSVRange{
		region.ClassGreen: segment.DefaultGreen,
		region.ClassBlue:  segment.DefaultBlue,
	})
}

func TestCalibrationHandler_List(t *testing.T) {
	handler := NewCalibrationHandler(newTestCalibration())

	req := httptest.NewRequest(http.MethodGet, "/api/calibration", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp calibrationResponse
	if err := stdjson.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(resp.Ranges))
	}
	if resp.Ranges[region.ClassGreen] != segment.DefaultGreen {
		t.Errorf("green range = %+v, want %+v", resp.Ranges[region.ClassGreen], segment.DefaultGreen)
	}
}

func TestCalibrationHandler_GetClass(t *testing.T) {
	handler := NewCalibrationHandler(newTestCalibration())

	req := httptest.NewRequest(http.MethodGet, "/api/calibration/blue", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp classRangeResponse
	if err := stdjson.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Class != region.ClassBlue || resp.Range != segment.DefaultBlue {
		t.Errorf("unexpected response %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/calibration/red", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d for unknown class, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestCalibrationHandler_Put(t *testing.T) {
	cal := newTestCalibration()
	handler := NewCalibrationHandler(cal)

	tight := segment.HSVRange{LowH: 45, LowS: 120, LowV: 60, HighH: 75, HighS: 255, HighV: 255}
	body, _ := stdjson.Marshal(tight)

	req := httptest.NewRequest(http.MethodPut, "/api/calibration/green", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if got, _ := cal.Get(region.ClassGreen); got != tight {
		t.Errorf("calibration not updated: got %+v", got)
	}
}

func TestCalibrationHandler_PutInvalid(t *testing.T) {
	cal := newTestCalibration()
	handler := NewCalibrationHandler(cal)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"invalid JSON", "/api/calibration/green", "{", http.StatusBadRequest},
		{"out of range hue", "/api/calibration/green", `{"low_h":0,"high_h":200,"high_s":255,"high_v":255}`, http.StatusBadRequest},
		{"inverted", "/api/calibration/green", `{"low_h":90,"high_h":30,"high_s":255,"high_v":255}`, http.StatusBadRequest},
		{"unknown class", "/api/calibration/red", `{"high_h":10,"high_s":10,"high_v":10}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}

	if got, _ := cal.Get(region.ClassGreen); got != segment.DefaultGreen {
		t.Errorf("rejected updates must not change the calibration, got %+v", got)
	}
}

func TestCalibrationHandler_MethodNotAllowed(t *testing.T) {
	handler := NewCalibrationHandler(newTestCalibration())

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/calibration"},
		{http.MethodDelete, "/api/calibration/green"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
