package http

import (
	"context"
	"encoding/json"
	"net/http"

	"aspirant-quiz-service/internal/app"
	"aspirant-quiz-service/internal/domain"
	"aspirant-quiz-service/internal/identity"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler plays one quiz session per connection. The session is created on
// connect and discarded when the connection closes.
type WSHandler struct {
	service  *app.QuizService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option int `json:"option"`
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz session use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	who := identity.FromContext(ctx)

	created, err := h.service.CreateSession(ctx)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload(err)})
		return
	}
	sessionID := created.ID
	defer func() {
		if err := h.service.Discard(context.WithoutCancel(ctx), sessionID); err != nil {
			h.logger.Debug("discard session", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload(err)})
		return
	}
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		broken := false
		for msg := range send {
			if broken {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.String("session_id", sessionID), zap.Error(err))
				broken = true
				// unblocks the reader
				_ = conn.Close()
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "state", Payload: view}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// Start and retry block for the whole generation; actions run one at a time.
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range h.dispatch(ctx, sessionID, who, inbound) {
			send <- msg
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, sessionID string, who *domain.Identity, inbound inboundMessage) []outboundMessage {
	var err error
	switch inbound.Type {
	case "start":
		var req domain.QuizRequest
		if err := json.Unmarshal(inbound.Payload, &req); err != nil {
			return []outboundMessage{{Type: "error", Payload: wsError{Message: "invalid start payload"}}}
		}
		_, err = h.service.Start(ctx, sessionID, who, req)
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return []outboundMessage{{Type: "error", Payload: wsError{Message: "invalid select payload", Field: "option"}}}
		}
		_, err = h.service.SelectOption(ctx, sessionID, payload.Option)
	case "submit":
		var notices []app.Notice
		_, notices, err = h.service.SubmitAnswer(ctx, sessionID, who)
		if err == nil {
			out := make([]outboundMessage, 0, len(notices))
			for _, n := range notices {
				out = append(out, outboundMessage{Type: "notice", Payload: n})
			}
			return out
		}
	case "advance":
		_, err = h.service.Advance(ctx, sessionID)
	case "retry":
		_, err = h.service.Retry(ctx, sessionID, who)
	case "newTopic":
		_, err = h.service.NewTopic(ctx, sessionID)
	default:
		return []outboundMessage{{Type: "error", Payload: wsError{Message: "unsupported message type"}}}
	}
	if err != nil {
		return []outboundMessage{{Type: "error", Payload: errorPayload(err)}}
	}
	return nil
}

// wsError is the payload of outbound "error" messages.
type wsError struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func errorPayload(err error) wsError {
	_, body := statusFor(err)
	return wsError{Message: body.Error, Field: body.Field}
}
