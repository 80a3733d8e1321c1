package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chat-backend/internal/observability"
)

// ConnInfo identifies a connection in published events.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// TokenValidator resolves an access token to a user id.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (int, error)
}

var errMissingToken = errors.New("missing token")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// authenticate reads the token from the Authorization header or the token
// query parameter.
func authenticate(c *gin.Context, tokens TokenValidator) (int, error) {
	token := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			return 0, errMissingToken
		}
		token = value
	}
	if token == "" {
		return 0, errMissingToken
	}
	return tokens.ValidateToken(c.Request.Context(), token)
}

func startHandshake(c *gin.Context, kind string) trace.Span {
	ctx, span := otel.Tracer("chat-backend/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithAttributes(attribute.String("ws.kind", kind)))
	c.Request = c.Request.WithContext(ctx)
	return span
}

// serve upgrades the request, registers the connection in the room and keeps
// reading until the peer goes away or the hub closes it.
func serve(c *gin.Context, hub *Hub, span trace.Span, kind string, resourceID int, userID int) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	hub.add(kind, resourceID, conn, info)
	observability.IncWSActive(kind)
	publishWSEvent(context.Background(), kind, resourceID, "ws_connect", info, "")

	go func() {
		var closeReason string
		defer func() {
			hub.remove(kind, resourceID, conn)
			observability.DecWSActive(kind)
			publishWSEvent(context.Background(), kind, resourceID, "ws_disconnect", info, closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(context.Background(), kind, resourceID, "ws_error", info, closeReason)
				}
				return
			}
		}
	}()
}
