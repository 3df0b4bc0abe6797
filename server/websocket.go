package server

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"
	"github.com/xhad/duo/pkg/llm"
	"go.uber.org/zap"
)

type Message struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// wsConn serializes writes to one websocket and tracks the chat in flight.
type wsConn struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" ||
				slices.Contains(s.config.AllowedOrigins, "*") ||
				slices.Contains(s.config.AllowedOrigins, origin)
		},
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn, logger: s.logger}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Error reading message", zap.Error(err))
			}
			ws.stop()
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			ws.send("error", "invalid message")
			continue
		}

		switch msg.Type {
		case "chat":
			var req chatDualRequest
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				ws.send("error", "invalid chat request")
				continue
			}
			if err := binding.Validator.ValidateStruct(&req); err != nil {
				ws.send("error", "invalid chat request")
				continue
			}

			turnCtx := ws.begin(ctx)
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.streamChat(turnCtx, ws, req)
			}()
		default:
			ws.send("error", "unknown message type: "+msg.Type)
		}
	}
}

// streamChat relays one answer. A newer chat on the same connection
// cancels this one, after which nothing more is written for it.
func (s *Server) streamChat(ctx context.Context, ws *wsConn, req chatDualRequest) {
	stream, err := s.indexer.ChatStream(ctx, req.toModel())
	if err != nil {
		s.logger.Error("chat failed", zap.Error(err))
		ws.sendIfActive(ctx, "error", "chat failed")
		return
	}

	for chunk := range stream {
		if msg, ok := strings.CutPrefix(chunk, llm.ErrorChunkPrefix); ok {
			ws.sendIfActive(ctx, "error", msg)
			return
		}
		if !ws.sendIfActive(ctx, "stream", chunk) {
			return
		}
	}
	ws.sendIfActive(ctx, "done", "")
}

func (ws *wsConn) begin(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	ws.mu.Lock()
	if ws.cancel != nil {
		ws.cancel()
	}
	ws.cancel = cancel
	ws.mu.Unlock()

	return ctx
}

func (ws *wsConn) stop() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.cancel != nil {
		ws.cancel()
	}
}

func (ws *wsConn) sendIfActive(ctx context.Context, msgType, content string) bool {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	return ws.write(msgType, content)
}

func (ws *wsConn) send(msgType, content string) bool {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	return ws.write(msgType, content)
}

func (ws *wsConn) write(msgType, content string) bool {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := ws.conn.WriteJSON(msg); err != nil {
		ws.logger.Warn("Error sending message", zap.Error(err))
		return false
	}
	return true
}
