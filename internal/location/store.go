package location

import "context"

// Store persists the latest fix per device.
type Store interface {
	// Save replaces the stored fix for fix.DeviceID.
	Save(ctx context.Context, fix Fix) error

	// Latest returns the most recent fix, or ErrNoFix.
	Latest(ctx context.Context, deviceID string) (*Fix, error)

	// Delete forgets a device. Deleting an unknown device is not an error.
	Delete(ctx context.Context, deviceID string) error
}
