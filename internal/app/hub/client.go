/*
Package hub contains the core logic of the presence and messaging engine.

This file defines the Client struct, representing an active WebSocket connection.
It manages the client's lifecycle and message communication loops (ReadPump and
WritePump). Clients never touch shared state themselves: decoded frames are
handed to the Hub's event loop, which owns all registry and store mutations.
*/
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mdmisri/mapfrens-backend/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// MaxMessageTextBytes is the maximum allowed size (in bytes) for chat message text.
	MaxMessageTextBytes = 5000

	// sendChannelBuffer is the capacity of the per-client outbound queue.
	sendChannelBuffer = 256

	// WsCloseCodeSessionReplaced is a custom WebSocket Close Code (4000-4999
	// range) signalling that the identity moved to a newer connection.
	WsCloseCodeSessionReplaced = 4001
)

// Client represents one active WebSocket connection.
type Client struct {
	// the hub this connection reports to.
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// connID is the transport-level identity assigned at upgrade time.
	connID string

	// userID is the logical identity currently bound to this connection.
	// Owned by the hub loop after registration; pumps never read it.
	userID string

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// closeOnce guards the send channel against double close.
	closeOnce sync.Once

	// closeFrame is the close payload WritePump emits when the send channel
	// closes. Written before the close, published by it.
	closeFrame []byte

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for a freshly upgraded connection. The
// connection id doubles as the initial user id until an explicit identity
// arrives.
func NewClient(h *Hub, wsConn *websocket.Conn, connID string) *Client {
	clientLogger := logx.Logger().With().
		Str("conn_id", connID).
		Logger()

	return &Client{
		hub:    h,
		conn:   wsConn,
		connID: connID,
		userID: connID,
		send:   make(chan []byte, sendChannelBuffer),
		logger: clientLogger,
	}
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), envelope parsing, and performs cleanup upon
// connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

// cleanupOnDisconnect hands the connection back to the hub when ReadPump
// terminates. The hand-off blocks until the hub loop accepts it; a dropped
// disconnect would leave the presence record and routing entry live for the
// rest of the process. Only shutdown preempts the send.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	select {
	case c.hub.unregister <- c:
	case <-c.hub.stopChan:
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error")
		}
	}
}

// processInboundFrame decodes one raw frame and queues it on the hub's event
// loop. Malformed JSON is logged and dropped without disturbing the connection.
func (c *Client) processInboundFrame(frameBytes []byte) {
	var env Envelope
	if err := json.Unmarshal(frameBytes, &env); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame_bytes", frameBytes).
			Msg("Client sent invalid JSON")
		return
	}

	if env.Type == "" {
		c.logger.Warn().Msg("Client sent frame without event type")
		return
	}

	c.hub.dispatch(c, env)
}

// WritePump handles writing frames from the Client.send channel to the
// WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame handles frames pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, c.closeFrame); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// enqueue attempts to queue an encoded frame on the client's send channel.
// A full queue drops the frame with a warning; delivery is best effort.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame")
	}
}

// closeSend closes the send channel exactly once, letting WritePump flush and exit.
func (c *Client) closeSend() {
	c.closeWith(nil)
}

// closeWith closes the send channel exactly once, recording the close frame
// WritePump should emit before exiting.
func (c *Client) closeWith(frame []byte) {
	c.closeOnce.Do(func() {
		c.closeFrame = frame
		close(c.send)
	})
}

// Kick terminates the connection with a custom WebSocket Close Frame (Code
// 4001) indicating that the identity moved elsewhere. WritePump writes the
// frame; it is the only goroutine allowed to write to the connection.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionReplaced).
		Str("reason", reason).
		Msg("Closing connection, identity moved to a new connection.")

	c.closeWith(websocket.FormatCloseMessage(WsCloseCodeSessionReplaced, reason))
}
