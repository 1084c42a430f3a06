package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DeviceState is the last state reported by the lighting controller.
type DeviceState struct {
	On         bool      `json:"on"`
	Brightness int       `json:"bri"`
	Preset     int       `json:"ps"`
	Playlist   int       `json:"pl"`
	ReportedAt time.Time `json:"reported_at"`
}

// ParseDeviceState accepts both a bare state object and the
// {"state": {...}, "info": {...}} envelope pushed over the stream.
func ParseDeviceState(data []byte, at time.Time) (DeviceState, error) {
	var envelope struct {
		State *DeviceState `json:"state"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return DeviceState{}, fmt.Errorf("decoding device state: %w", err)
	}
	if envelope.State != nil {
		envelope.State.ReportedAt = at
		return *envelope.State, nil
	}

	var state DeviceState
	if err := json.Unmarshal(data, &state); err != nil {
		return DeviceState{}, fmt.Errorf("decoding device state: %w", err)
	}
	state.ReportedAt = at
	return state, nil
}
