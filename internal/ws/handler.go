package ws

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"dm-service/internal/auth"
	"dm-service/internal/middleware"
	"dm-service/internal/models"
	"dm-service/internal/observability"
)

// Handler authenticates websocket handshakes and runs connections.
type Handler struct {
	deps  *Deps
	authn *auth.Authenticator
}

// NewHandler constructs a Handler.
func NewHandler(deps *Deps, authn *auth.Authenticator) *Handler {
	return &Handler{deps: deps, authn: authn}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle gates the connection on the bearer credential, upgrades it
// and drives the client until disconnect. Authentication failures
// refuse the connection before any event is processed.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("dm-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var user models.User
	token, err := bearerToken(c)
	if err == nil {
		user, err = h.authn.Authenticate(ctx, token)
	}
	if err != nil {
		code := auth.Code(err)
		status := http.StatusUnauthorized
		if code == "SERVER_ERROR" {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": "authentication error", "code": code})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := newClient(h.deps, conn, user)
	observability.IncWSActive()
	log.Printf("ws connect user=%d conn=%s ip=%s request_id=%s",
		user.ID, client.connID, observability.IPFromRequest(c.Request), middleware.RequestIDFromContext(c))
	h.deps.Notifier.ConnectionEvent(ctx, "ws_connect", user.ID, client.connID, "")

	client.bootstrap(ctx)
	go client.writePump()
	// Run the read pump on the request goroutine so the request
	// context stays alive for the duration of the connection.
	client.readPump(ctx)

	observability.DecWSActive()
	h.deps.Notifier.ConnectionEvent(ctx, "ws_disconnect", user.ID, client.connID, "")
}

// bearerToken extracts the credential from the Authorization header
// or the token query parameter. A header with the wrong shape is an
// invalid token, not a missing one, matching the REST middleware.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1], nil
		}
		return "", auth.ErrTokenInvalid
	}
	return c.Query("token"), nil
}
