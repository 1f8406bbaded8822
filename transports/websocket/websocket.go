package websocket

import (
	"sync"

	"voicekit/core"
	"voicekit/handlers/transport"
	"voicekit/protocol"

	"github.com/gorilla/websocket"
)

// WebSocketService implements transport.TransportService over an accepted
// websocket connection. Binary frames carry raw audio, text frames carry
// protocol envelopes.
type WebSocketService struct {
	conn   *websocket.Conn
	mu     sync.Mutex // protects writes
	logger *core.Logger
	closed bool
}

// NewWebSocketService wraps an already-upgraded connection.
func NewWebSocketService(conn *websocket.Conn, logger *core.Logger) *WebSocketService {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &WebSocketService{
		conn:   conn,
		logger: logger.With(map[string]any{"component": "websocket_transport"}),
	}
}

// Connect is a no-op: the HTTP layer already upgraded the connection.
func (ws *WebSocketService) Connect() error {
	if ws.conn == nil {
		return websocket.ErrCloseSent
	}
	return nil
}

func (ws *WebSocketService) SendAudio(chunk core.AudioChunk) error {
	if chunk.Data == nil || len(*chunk.Data) == 0 {
		return nil
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.conn == nil || ws.closed {
		return websocket.ErrCloseSent
	}
	return ws.conn.WriteMessage(websocket.BinaryMessage, *chunk.Data)
}

func (ws *WebSocketService) SendText(data []byte) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.conn == nil || ws.closed {
		return websocket.ErrCloseSent
	}
	return ws.conn.WriteMessage(websocket.TextMessage, data)
}

func (ws *WebSocketService) StartReceiving(out chan<- transport.InboundMessage, errChan chan<- error) {
	go func() {
		for {
			messageType, msg, err := ws.conn.ReadMessage()
			if err != nil {
				errChan <- err
				return
			}

			switch messageType {
			case websocket.BinaryMessage:
				data := make([]byte, len(msg))
				copy(data, msg)
				out <- transport.InboundMessage{
					Audio: &core.AudioChunk{Data: &data, Format: core.PCM},
				}

			case websocket.TextMessage:
				msgType, payload, err := protocol.Unmarshal(msg)
				if err != nil {
					ws.logger.With(map[string]any{"error": err}).Warn("dropping malformed control message")
					continue
				}
				out <- transport.InboundMessage{Type: msgType, Payload: payload}
			}
		}
	}()
}

func (ws *WebSocketService) Close() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.conn == nil || ws.closed {
		return nil
	}
	ws.closed = true
	_ = ws.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return ws.conn.Close()
}
