package telemetry

import (
	"context"
	"log"
	"strconv"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level   string         `json:"level"`
	Text    string         `json:"text"`
	Details map[string]any `json:"details,omitempty"`
}

// AuditEvent is one entry for the audit stream. Type defaults to "audit_log".
type AuditEvent struct {
	Type      string
	Level     string
	Text      string
	RequestID string
	UserID    *int64
	Details   map[string]any
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes the event; publish failures are logged, never returned.
func (e *AuditEmitter) Emit(ctx context.Context, event AuditEvent) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := e.envelope(event)
	log.Printf("audit emit: event_type=%s level=%s request_id=%s user_id=%s text=%q",
		envelope.EventType, event.Level, event.RequestID, userIDLabel(envelope.UserID), event.Text)

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}

func (e *AuditEmitter) envelope(event AuditEvent) AuditEnvelope {
	eventType := event.Type
	if eventType == "" {
		eventType = "audit_log"
	}

	var userID *string
	if event.UserID != nil {
		id := strconv.FormatInt(*event.UserID, 10)
		userID = &id
	}

	return AuditEnvelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     event.RequestID,
		UserID:        userID,
		Payload: AuditPayload{
			Level:   event.Level,
			Text:    event.Text,
			Details: event.Details,
		},
	}
}

func userIDLabel(id *string) string {
	if id == nil {
		return "-"
	}
	return *id
}
