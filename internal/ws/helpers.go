package ws

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tasky-chat/internal/observability"
)

const (
	orgRoomPrefix = "org:"
	wsRoutingKey  = "ws_events.org"
)

// OrgRoom names the broadcast room of an organization.
func OrgRoom(organizationID string) string {
	return orgRoomPrefix + organizationID
}

func newConnID() string {
	return uuid.NewString()
}

func publishLifecycle(ctx context.Context, event string, info ConnInfo, reason string) {
	durationMS := int64(0)
	if event != "ws_connect" {
		durationMS = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "org",
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	observability.IncWSEvent(event)
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
