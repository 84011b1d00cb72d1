package publisher

import (
	"context"

	"github.com/nandanugg/fleet-geofence/module/core/domain"
)

// GeofencePublisher delivers crossing alerts to downstream consumers. A nil
// error means the broker accepted the alert.
type GeofencePublisher interface {
	PublishAlert(ctx context.Context, alert *domain.GeofenceAlert) error
}
