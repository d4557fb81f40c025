package ws

import (
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/commentstream/backend/utils"
)

// Handler upgrades HTTP requests into hub subscriptions. The JWT is taken
// from the token query parameter or the Authorization header, matching how
// browser WebSocket clients can actually pass credentials.
type Handler struct {
	hub *Hub
}

// NewHandler wires the upgrade endpoint to a hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Subscribe handles GET /comments/stream.
func (h *Handler) Subscribe(ctx *gin.Context) {
	token := ctx.Query("token")
	if token == "" {
		if auth := ctx.GetHeader("Authorization"); auth != "" {
			token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "missing token")
		return
	}
	if _, err := utils.ParseToken(token); err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	conn, err := websocket.Accept(ctx.Writer, ctx.Request, nil)
	if err != nil {
		return
	}

	client := newClient(h.hub, conn)
	h.hub.register(client)

	go client.writePump()
	client.readPump()
}
