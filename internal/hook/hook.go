// Package hook runs user commands when the placement status changes, for
// example to show a desktop notification or play a sound.
package hook

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/goggybox/touchtypEd/internal/placement"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Environment variables set for every hook command.
const (
	EnvStatus   = "TOUCHTYPED_STATUS"
	EnvPrevious = "TOUCHTYPED_PREVIOUS"
	EnvMessage  = "TOUCHTYPED_MESSAGE"
)

// Hook is an external command run on status changes. The event is written
// to its stdin as JSON.
type Hook struct {
	Name    string   `yaml:"name" json:"name" validate:"required"`
	Command string   `yaml:"command" json:"command" validate:"required"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
	// On limits the hook to these statuses. Empty fires on every change.
	On []string `yaml:"on,omitempty" json:"on,omitempty" validate:"dive,oneof=neither only-left only-right both"`
}

// Matches reports whether the hook fires for status s.
func (h Hook) Matches(s placement.Status) bool {
	if len(h.On) == 0 {
		return true
	}
	for _, on := range h.On {
		if on == s.String() {
			return true
		}
	}
	return false
}

// Event describes a status change.
type Event struct {
	Status   placement.Status `json:"status"`
	Previous placement.Status `json:"previous"`
	Message  string           `json:"message"`
	Frame    uint64           `json:"frame"`
	Time     time.Time        `json:"time"`
}
