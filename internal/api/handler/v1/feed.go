package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/attendry/attendry-api/internal/api/handler/v1/response"
	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Tighten once the dashboard origin is pinned down.
	},
}

type feedClient struct {
	conn    *websocket.Conn
	send    chan []byte
	eventID uint
	userID  uint
}

// FeedHandler fans attendance updates out to dashboard subscribers over
// websockets, one subscription per event. All bookkeeping happens on the Run
// goroutine; the handler only hands clients over via channels.
type FeedHandler struct {
	uSvc UserService

	clients    map[uint]map[*feedClient]bool
	broadcast  chan domain.FeedUpdate
	register   chan *feedClient
	unregister chan *feedClient
}

func NewFeedHandler(uSvc UserService) *FeedHandler {
	return &FeedHandler{
		uSvc:       uSvc,
		clients:    make(map[uint]map[*feedClient]bool),
		broadcast:  make(chan domain.FeedUpdate, 64),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
	}
}

// Notify queues an update for delivery. It never blocks; when the hub is
// backed up, the update is dropped rather than stalling a check-in.
func (h *FeedHandler) Notify(update domain.FeedUpdate) {
	select {
	case h.broadcast <- update:
	default:
		zap.L().Warn("feed backlog full, dropping update",
			zap.Uint("event_id", update.EventID),
			zap.Uint("attendance_id", update.AttendanceID))
	}
}

func (h *FeedHandler) Run() {
	for {
		select {
		case client := <-h.register:
			subs, ok := h.clients[client.eventID]
			if !ok {
				subs = make(map[*feedClient]bool)
				h.clients[client.eventID] = subs
			}
			subs[client] = true
			observability.FeedClients.Inc()
		case client := <-h.unregister:
			if subs, ok := h.clients[client.eventID]; ok && subs[client] {
				h.drop(client)
			}
		case update := <-h.broadcast:
			payload, err := json.Marshal(update)
			if err != nil {
				zap.L().Error("marshal feed update", zap.Error(err))
				continue
			}

			for client := range h.clients[update.EventID] {
				select {
				case client.send <- payload:
				default:
					h.drop(client)
				}
			}
		}
	}
}

func (h *FeedHandler) drop(client *feedClient) {
	delete(h.clients[client.eventID], client)
	if len(h.clients[client.eventID]) == 0 {
		delete(h.clients, client.eventID)
	}
	close(client.send)
	observability.FeedClients.Dec()
}

// HandleEventFeed godoc
// @Summary Subscribe to an event's live attendance feed
// @Description Upgrades the connection to a websocket and streams check-in, check-out, and verification updates for the event as they happen.
// @Tags events,feed
// @Produce json
// @Param eventID path int true "event ID"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 400 {object} response.Err
// @Failure 401 {object} response.Err
// @Failure 500 {object} response.Err
// @Router /events/{eventID}/feed [get]
// @Security BearerAuth
func (h *FeedHandler) HandleEventFeed(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, err := strconv.ParseUint(ctx.Param("eventID"), 10, 64)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid event ID: %w", err)))
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{
		conn:    conn,
		send:    make(chan []byte, 256),
		eventID: uint(eventID),
		userID:  user.ID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *feedClient) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the feed is push-only. Reading is still
// needed to notice the peer going away.
func (c *feedClient) readPump(h *FeedHandler) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("feed client read error", zap.Error(err))
			}
			break
		}
	}
}
