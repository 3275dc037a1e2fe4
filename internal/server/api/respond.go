// Package api implements the calibration and profile endpoints.
package api

import (
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// writeJSON encodes v as the response body. A nil v sends headers only.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	// The status line is already out; an encode failure only truncates.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{msg})
}

// splitPath returns the non-empty segments of path after prefix, so
// "/api/profiles/abc/apply" under "/api/profiles" is ["abc", "apply"].
func splitPath(path, prefix string) []string {
	return strings.FieldsFunc(strings.TrimPrefix(path, prefix), func(r rune) bool { return r == '/' })
}
