package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/appforge/runtime/internal/app"
	"github.com/appforge/runtime/internal/logging"
	"github.com/appforge/runtime/internal/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS layer
	},
}

// outboundBuffer bounds per-client queueing; slow consumers lose
// messages rather than stalling store listeners.
const outboundBuffer = 256

// Metrics is the optional instrumentation hook for connections.
type Metrics interface {
	RecordWSConnect()
	RecordWSDisconnect()
	RecordWSMessage(direction string)
}

// Handler upgrades clients and streams one app instance's activity to
// them: every store change and every runtime command (navigate,
// notification, refresh) the flow engine emits.
type Handler struct {
	apps    *app.Manager
	log     *logging.Logger
	metrics Metrics
}

// NewHandler creates a WebSocket handler over the instance manager.
func NewHandler(apps *app.Manager, log *logging.Logger, metrics Metrics) *Handler {
	return &Handler{apps: apps, log: log, metrics: metrics}
}

// HandleConnection upgrades the request and attaches the client to the
// instance named by the :id route parameter.
func (h *Handler) HandleConnection(c *gin.Context) {
	inst, ok := h.apps.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "app instance not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Warn("websocket upgrade failed", zap.Error(err))
		}
		return
	}
	defer conn.Close()

	client := &client{
		conn:     conn,
		outbound: make(chan map[string]interface{}, outboundBuffer),
		done:     make(chan struct{}),
	}

	if h.metrics != nil {
		h.metrics.RecordWSConnect()
		defer h.metrics.RecordWSDisconnect()
	}

	storeSub := inst.Runtime.Store.SubscribeAll(func(change types.Change) {
		client.enqueue(map[string]interface{}{
			"type":      "store_change",
			"change":    change.Type,
			"model":     change.Model,
			"record_id": change.RecordID,
			"record":    change.Record,
			"timestamp": time.Now().Unix(),
		})
	})
	defer storeSub.Unsubscribe()

	cmdSub := inst.Runtime.Bus.On("command:*", func(evt types.Event) error {
		client.enqueue(map[string]interface{}{
			"type":      evt.Type,
			"data":      evt.Data,
			"timestamp": evt.Timestamp.Unix(),
		})
		return nil
	})
	defer cmdSub.Unsubscribe()

	go h.writeLoop(client)

	client.enqueue(map[string]interface{}{
		"type":        "connected",
		"instance_id": inst.ID,
		"app_id":      inst.Schema.ID,
	})

	h.readLoop(client)
	close(client.done)
}

type client struct {
	conn     *websocket.Conn
	outbound chan map[string]interface{}
	done     chan struct{}
}

// enqueue queues a message without blocking; full buffers drop.
func (c *client) enqueue(msg map[string]interface{}) {
	select {
	case c.outbound <- msg:
	default:
	}
}

func (h *Handler) writeLoop(c *client) {
	for {
		select {
		case msg := <-c.outbound:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
			if h.metrics != nil {
				h.metrics.RecordWSMessage("out")
			}
		case <-c.done:
			return
		}
	}
}

func (h *Handler) readLoop(c *client) {
	for {
		var msg map[string]interface{}
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in")
		}

		msgType, _ := msg["type"].(string)
		switch msgType {
		case "ping":
			c.enqueue(map[string]interface{}{"type": "pong", "timestamp": time.Now().Unix()})
		default:
			c.enqueue(map[string]interface{}{
				"type":    "error",
				"message": "unknown message type",
			})
		}
	}
}
