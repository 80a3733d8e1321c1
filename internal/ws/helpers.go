package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"chat-backend/internal/observability"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

func wsRoutingKey(kind string) string {
	if kind == KindGroup {
		return "ws_events.groups"
	}
	return "ws_events.direct"
}

// publishWSEvent counts a connection lifecycle event and publishes it.
func publishWSEvent(ctx context.Context, kind string, resourceID int, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(kind, event)

	var duration int64
	if !info.ConnectedAt.IsZero() {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]any{
		"ws": map[string]any{
			"kind":        kind,
			"resource_id": resourceID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": duration,
			"reason":      reason,
		},
		"identity": map[string]any{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
