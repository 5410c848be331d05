package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/aggregator"
	"github.com/gambia-creative/assessment/internal/assessment"
	"github.com/gambia-creative/assessment/internal/middleware/validation"
	"github.com/gambia-creative/assessment/pkg/logger"
)

// Message types a streaming client may send.
const (
	MessageUnit     = "unit"
	MessageSnapshot = "snapshot"
	MessageFinalize = "finalize"
)

type streamMessage struct {
	Type string      `json:"type"`
	Unit unitRequest `json:"unit"`
}

type WebSocketHandler struct {
	service *assessment.Service
	limits  validation.Config
}

func NewWebSocketHandler(service *assessment.Service, limits validation.Config) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		limits:  limits,
	}
}

// Upgrade refuses plain HTTP requests on the websocket route.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleConnection owns one accumulator per connection. Each unit message is
// folded and answered with its theme scores and the running summary; finalize
// stores the summary and ends the stream.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	entityID := c.Params("id")
	session := h.service.NewSession(entityID)
	logger.Info("WebSocket stream opened", zap.String("entity_id", entityID))

	defer func() {
		c.Close()
		logger.Info("WebSocket stream closed", zap.String("entity_id", entityID))
	}()

	for {
		var msg streamMessage
		if err := c.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("Failed to read WebSocket message", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case MessageUnit:
			if !h.limits.CheckLength(msg.Unit.Text) {
				h.sendError(c, "text is too long")
				continue
			}
			scores, err := session.Fold(msg.Unit.toUnit())
			if err != nil {
				h.sendError(c, err.Error())
				continue
			}
			if err := c.WriteJSON(fiber.Map{
				"type":    "scores",
				"themes":  assessment.MatchedThemes(scores),
				"summary": session.Snapshot(),
			}); err != nil {
				logger.Error("Failed to write WebSocket message", zap.Error(err))
				return
			}

		case MessageSnapshot:
			if err := h.sendSummary(c, "snapshot", session.Snapshot()); err != nil {
				return
			}

		case MessageFinalize:
			summary, err := session.Finalize(context.Background())
			if err != nil {
				logger.Error("Failed to finalize stream", zap.String("entity_id", entityID), zap.Error(err))
				h.sendError(c, "Failed to finalize summary")
				continue
			}
			h.sendSummary(c, "complete", summary)
			return

		default:
			h.sendError(c, "unknown message type")
		}
	}
}

func (h *WebSocketHandler) sendSummary(c *websocket.Conn, msgType string, summary *aggregator.EntitySummary) error {
	err := c.WriteJSON(fiber.Map{
		"type":    msgType,
		"summary": summary,
	})
	if err != nil {
		logger.Error("Failed to write WebSocket message", zap.Error(err))
	}
	return err
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(fiber.Map{
		"type":  "error",
		"error": errorMsg,
	})
}
