package transport

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/alumni-onboard/internal/models"
)

// DevicePermissions grants permissions locally. Platform dialogs are not
// available to a terminal client, so every request is accepted and
// recorded in the log.
type DevicePermissions struct {
	logger *slog.Logger
}

func NewDevicePermissions(logger *slog.Logger) *DevicePermissions {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevicePermissions{logger: logger}
}

func (d *DevicePermissions) GrantPermission(ctx context.Context, id models.PermissionID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.logger.Info("device permission granted", slog.String("permission", string(id)))
	return true, nil
}
