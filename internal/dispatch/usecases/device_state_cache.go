package usecases

import (
	"context"

	"lumen-remote/internal/dispatch/domain"
)

//go:generate mockgen -source=device_state_cache.go -destination=../../../test/unit/doubles/dispatch/usecases/device_state_cache_mock.go -package=usecases -mock_names=DeviceStateCache=MockDeviceStateCache

// DeviceStateCache keeps the last state the lighting controller reported.
// Entries expire, so a miss means "unknown", not "off".
type DeviceStateCache interface {
	SetState(ctx context.Context, state domain.DeviceState) error
	GetState(ctx context.Context) (domain.DeviceState, bool)
}
