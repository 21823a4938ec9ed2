package handlers

import (
	"net/http"
	"time"

	"github.com/Harshitk-cp/sovern/internal/service"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamWriteWait   = 10 * time.Second
	streamPongWait    = 60 * time.Second
	streamPingEvery   = (streamPongWait * 9) / 10
	streamEventBuffer = 64
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// StreamHandler pushes belief graph events to websocket observers.
type StreamHandler struct {
	graph  *service.BeliefGraph
	logger *zap.Logger
}

func NewStreamHandler(graph *service.BeliefGraph, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{graph: graph, logger: logger}
}

type streamHello struct {
	Kind    string `json:"kind"`
	Version uint64 `json:"version"`
	Beliefs int    `json:"beliefs"`
}

// Beliefs upgrades to a websocket and streams domain.BeliefEvent JSON frames until the
// client disconnects. Slow clients miss events rather than stall the graph.
func (h *StreamHandler) Beliefs(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("belief stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.graph.Subscribe(streamEventBuffer)
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	// The reader only drains control frames; it exits when the client goes away.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Debug("belief stream opened", zap.String("remote_addr", r.RemoteAddr))
	defer h.logger.Debug("belief stream closed", zap.String("remote_addr", r.RemoteAddr))

	if err := h.write(conn, streamHello{Kind: "hello", Version: h.graph.Version(), Beliefs: h.graph.Len()}); err != nil {
		return
	}

	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-readerDone:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := h.write(conn, evt); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}
