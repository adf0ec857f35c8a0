package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"dreampool/internal/engine"
	ws "dreampool/internal/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	Repo engine.Repository
	Hub  *ws.Hub
}

func NewWebSocketHandler(repo engine.Repository, hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{Repo: repo, Hub: hub}
}

// ServeWs subscribes the connection to one campaign's event stream.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	campaignID := c.Param("id")

	if _, err := h.Repo.Load(c.Request.Context(), campaignID); err != nil {
		respondEngineError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("Failed to upgrade connection:", err)
		return
	}

	client := &ws.Client{
		Hub:        h.Hub,
		Conn:       conn,
		Send:       make(chan []byte, 256),
		CampaignID: campaignID,
	}

	client.Hub.Register <- client

	go h.writePump(client)
	go h.readPump(client)
}

func (h *WebSocketHandler) writePump(client *ws.Client) {
	defer func() {
		client.Conn.Close()
	}()

	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (h *WebSocketHandler) readPump(client *ws.Client) {
	defer func() {
		client.Hub.Unregister <- client
		client.Conn.Close()
	}()

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("readPump error: %v", err)
			}
			break
		}
	}
}
