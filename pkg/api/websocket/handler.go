package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/aescanero/agentflow/pkg/domain"
	"github.com/aescanero/agentflow/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout = 10 * time.Second

	// drainPeriod is how long unit events may still arrive after the
	// terminal workflow event; topics are not ordered relative to each other.
	drainPeriod = 250 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles WebSocket connections
type Handler struct {
	eventBus ports.EventBus
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(eventBus ports.EventBus, logger *zap.Logger) *Handler {
	return &Handler{
		eventBus: eventBus,
		logger:   logger,
	}
}

// HandleRunStream streams the events of one run until the workflow
// finishes or the client disconnects.
func (h *Handler) HandleRunStream(c *gin.Context) {
	runID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("run_id", runID),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Detect client disconnects; incoming messages are discarded.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	eventChan := make(chan domain.Event, 32)
	h.subscribe(ctx, runID, eventChan)

	var drain <-chan time.Time
	var final domain.EventType
	for {
		select {
		case <-ctx.Done():
			return
		case <-drain:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(final)),
				time.Now().Add(writeTimeout))
			return
		case event := <-eventChan:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Error("failed to write message", zap.Error(err))
				return
			}

			if drain == nil && isTerminal(event.Type) {
				final = event.Type
				drain = time.After(drainPeriod)
			}
		}
	}
}

// subscribe forwards runID's events from the workflow and unit topics.
func (h *Handler) subscribe(ctx context.Context, runID string, ch chan<- domain.Event) {
	eventHandler := func(ctx context.Context, event domain.Event) error {
		if event.RunID != runID {
			return nil
		}

		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			h.logger.Warn("event channel full, dropping event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
		return nil
	}

	for _, topic := range []string{domain.TopicWorkflowEvents, domain.TopicUnitEvents} {
		if err := h.eventBus.Subscribe(ctx, topic, eventHandler); err != nil {
			h.logger.Error("failed to subscribe to events",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}
}

func isTerminal(t domain.EventType) bool {
	return t == domain.EventTypeWorkflowCompleted || t == domain.EventTypeWorkflowFailed
}
