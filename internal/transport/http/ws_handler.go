package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizdesk/internal/app"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type subscribedPayload struct {
	QuizID string `json:"quizId"`
}

// liveAttempts upgrades to a websocket and streams one "attempt" message per
// submission for the quiz until the client goes away.
func (h *Handler) liveAttempts(c *gin.Context) {
	quizID := c.Param("id")
	updates, cancel, err := h.service.SubscribeAttempts(c.Request.Context(), identity(c), quizID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The reader only exists to process control frames and notice disconnects.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeJSON(conn, outboundMessage[subscribedPayload]{Type: "subscribed", Payload: subscribedPayload{QuizID: quizID}}); err != nil {
		return
	}
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := writeJSON(conn, outboundMessage[app.AttemptSummary]{Type: "attempt", Payload: update}); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readerDone:
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
