package websocket

import (
	"encoding/json"
	"log"

	"github.com/gorilla/websocket"
)

type Client struct {
	Hub        *Hub
	Conn       *websocket.Conn
	Send       chan []byte
	CampaignID string
}

// Event types pushed to campaign watchers.
const (
	EventContribution = "contribution"
	EventStatusChange = "status_change"
	EventSettlement   = "settlement"
)

// CampaignEvent is broadcast to everyone watching a campaign.
type CampaignEvent struct {
	CampaignID   string      `json:"campaign_id"`
	Type         string      `json:"type"`
	Status       string      `json:"status,omitempty"`
	AmountCents  int64       `json:"amount_cents,omitempty"`
	Participants int         `json:"participants,omitempty"`
	CurrentCents int64       `json:"current_cents,omitempty"`
	Payload      interface{} `json:"payload,omitempty"`
}

type Hub struct {
	Clients    map[string]map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan CampaignEvent
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan CampaignEvent),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Clients[client.CampaignID] == nil {
				h.Clients[client.CampaignID] = make(map[*Client]bool)
			}
			h.Clients[client.CampaignID][client] = true
			log.Printf("WebSocket client registered for campaign %s", client.CampaignID)

		case client := <-h.Unregister:
			if watchers, ok := h.Clients[client.CampaignID]; ok {
				if _, ok := watchers[client]; ok {
					delete(watchers, client)
					close(client.Send)
					if len(watchers) == 0 {
						delete(h.Clients, client.CampaignID)
					}
					log.Printf("WebSocket client unregistered for campaign %s", client.CampaignID)
				}
			}

		case event := <-h.Broadcast:
			watchers, ok := h.Clients[event.CampaignID]
			if !ok {
				continue
			}
			jsonData, err := json.Marshal(event)
			if err != nil {
				log.Println("Failed to marshal campaign event:", err)
				continue
			}
			for client := range watchers {
				select {
				case client.Send <- jsonData:
				default:
					close(client.Send)
					delete(watchers, client)
				}
			}
		}
	}
}
