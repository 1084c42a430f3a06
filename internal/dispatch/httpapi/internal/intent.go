package internal

import (
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/dispatch/usecases"
)

type IntentRequest struct {
	Kind     string  `json:"kind"`
	Value    int     `json:"value"`
	Priority *string `json:"priority,omitempty"`
}

func (r IntentRequest) ToDomain() (domain.Intent, error) {
	intent := domain.Intent{Kind: domain.Kind(r.Kind), Value: r.Value}
	if r.Priority != nil {
		p, err := domain.ParsePriority(*r.Priority)
		if err != nil {
			return domain.Intent{}, err
		}
		intent.Priority = &p
	}
	if _, err := domain.Classify(intent); err != nil {
		return domain.Intent{}, err
	}
	if err := intent.Validate(); err != nil {
		return domain.Intent{}, err
	}
	return intent, nil
}

type IntentResponse struct {
	Accepted bool   `json:"accepted"`
	Kind     string `json:"kind"`
}

type StatsResponse struct {
	usecases.Stats
	Indicator usecases.Indicator `json:"indicator"`
}

type DeviceStateResponse struct {
	On         bool      `json:"on"`
	Brightness int       `json:"bri"`
	Preset     int       `json:"ps"`
	Playlist   int       `json:"pl"`
	ReportedAt time.Time `json:"reported_at"`
	AgeMs      int64     `json:"age_ms"`
}

func ToDeviceStateResponse(state domain.DeviceState, now time.Time) DeviceStateResponse {
	return DeviceStateResponse{
		On:         state.On,
		Brightness: state.Brightness,
		Preset:     state.Preset,
		Playlist:   state.Playlist,
		ReportedAt: state.ReportedAt,
		AgeMs:      now.Sub(state.ReportedAt).Milliseconds(),
	}
}
