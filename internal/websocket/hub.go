package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wisdom-empire/internal/models"
)

type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

// SupporterAlert is pushed to feed clients when a donation completes. It
// carries no contact details.
type SupporterAlert struct {
	Type        string    `json:"type"`
	DonorName   string    `json:"donor_name"`
	Tier        string    `json:"tier"`
	Amount      string    `json:"amount"`
	CompletedAt time.Time `json:"completed_at"`
}

// Greeting is the first frame every feed client receives, once it is
// registered with the hub.
var Greeting = []byte(`{"type":"connected"}`)

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan SupporterAlert
	done       chan struct{}
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan SupporterAlert, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Register adds c to the feed. It returns false when the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// DonationCompleted queues an alert for every connected client.
func (h *Hub) DonationCompleted(rec models.DonationRecord) {
	alert := SupporterAlert{
		Type:      "supporter",
		DonorName: rec.Name,
		Tier:      rec.Tier,
		Amount:    rec.Amount.StringFixed(2),
	}
	if rec.CompletedAt != nil {
		alert.CompletedAt = *rec.CompletedAt
	}
	select {
	case h.broadcast <- alert:
	case <-h.done:
	default:
		h.logger.Warn("supporter feed backlog full, dropping alert", zap.String("donation_id", rec.ID))
	}
}

// Run owns the client set until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			return nil

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("feed client registered", zap.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Debug("feed client unregistered", zap.Int("clients", len(h.clients)))
			}

		case alert := <-h.broadcast:
			jsonData, err := json.Marshal(alert)
			if err != nil {
				h.logger.Error("failed to marshal supporter alert", zap.Error(err))
				continue
			}
			for client := range h.clients {
				select {
				case client.Send <- jsonData:
				default:
					// Slow client; drop it rather than stall the feed.
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}
