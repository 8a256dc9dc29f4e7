package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hyperjump/kotoba/internal/humanizer"
	"github.com/hyperjump/kotoba/internal/models"
	"go.uber.org/zap"
)

const (
	wsDefaultIntensity = 0.7
	wsReadLimit        = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket humanizes each {text, intensity} message with the fast tier
// and replies with {id, humanized, timestamp}. Bad messages get an error reply
// and the session continues.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	sessionID := uuid.NewString()
	s.metrics.SessionOpened()
	defer s.metrics.SessionClosed()
	s.logger.Info("websocket connected", zap.String("session", sessionID))

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", zap.String("session", sessionID), zap.Error(err))
			} else {
				s.logger.Info("websocket disconnected", zap.String("session", sessionID))
			}
			return
		}

		reply := s.streamReply(ctx, data)
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Warn("websocket write failed", zap.String("session", sessionID), zap.Error(err))
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Server) streamReply(ctx context.Context, data []byte) models.StreamResponse {
	var msg models.StreamRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.StreamResponse{Error: "invalid message", Timestamp: time.Now().UTC()}
	}
	intensity := wsDefaultIntensity
	if msg.Intensity != nil {
		intensity = *msg.Intensity
	}
	noCache := false
	resp, err := s.svc.Humanize(ctx, &models.HumanizeRequest{
		Text:      msg.Text,
		Tier:      string(humanizer.TierFast),
		Intensity: &intensity,
		Cache:     &noCache,
	})
	if err != nil {
		return models.StreamResponse{Error: err.Error(), Timestamp: time.Now().UTC()}
	}
	return models.StreamResponse{
		ID:        resp.ID,
		Humanized: resp.HumanizedText,
		Timestamp: time.Now().UTC(),
	}
}
