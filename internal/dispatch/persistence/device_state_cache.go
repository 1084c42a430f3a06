package persistence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/dispatch/usecases"
	"lumen-remote/internal/infra/cache"
)

const (
	_deviceStateKey       = "device_state"
	DefaultDeviceStateTTL   = 60 * time.Second
)

var ErrStateNotCached = errors.New("device state rejected by cache")

func NewDeviceStateCache(store cache.Cache, ttl time.Duration) *DeviceStateCache {
	if ttl <= 0 {
		ttl = DefaultDeviceStateTTL
	}
	return &DeviceStateCache{store: store, ttl: ttl}
}

var _ usecases.DeviceStateCache = (*DeviceStateCache)(nil)

// DeviceStateCache keeps the controller's last reported state in the
// TTL cache, so a state older than ttl reads as unknown.
type DeviceStateCache struct {
	store cache.Cache
	ttl   time.Duration
}

func (c *DeviceStateCache) SetState(ctx context.Context, state domain.DeviceState) error {
	if !c.store.Set(ctx, _deviceStateKey, state, c.ttl) {
		return ErrStateNotCached
	}
	slog.Debug("device state cached",
		slog.Bool("on", state.On),
		slog.Int("bri", state.Brightness),
		slog.Int("ps", state.Preset))
	return nil
}

func (c *DeviceStateCache) GetState(ctx context.Context) (domain.DeviceState, bool) {
	value, ok := c.store.Get(ctx, _deviceStateKey)
	if !ok {
		return domain.DeviceState{}, false
	}
	state, ok := value.(domain.DeviceState)
	return state, ok
}
