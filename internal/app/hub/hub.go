/*
Package hub contains the core logic of the presence and messaging engine.

This file defines the Hub struct, the single owner of all shared presence
state. One goroutine drains the register, unregister, and event channels, so
registry, binder, and conversation mutations are serialized: events from one
connection are processed in arrival order, and a disconnect purges the user's
binding and presence before any later event can reference them.
*/
package hub

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mdmisri/mapfrens-backend/internal/app/geo"
	"github.com/mdmisri/mapfrens-backend/internal/app/presence"
	"github.com/mdmisri/mapfrens-backend/internal/configs"
	"github.com/mdmisri/mapfrens-backend/internal/pkg/logx"
	"github.com/mdmisri/mapfrens-backend/internal/pkg/randx"
)

const eventChannelBuffer = 1024

// event pairs an inbound envelope with the connection it arrived on.
type event struct {
	client *Client
	env    Envelope
}

// Hub coordinates every live connection: it tracks presence, binds connections
// to logical identities, fans out proximity updates, and routes point-to-point
// events.
type Hub struct {
	// Config holds the application's read-only configuration settings.
	cfg *configs.AppConfig

	// registry is the authoritative user-id to presence-record mapping.
	registry *presence.Registry

	// binder is the bidirectional connection-id to user-id mapping.
	binder *presence.Binder

	// convos is the per-pair ephemeral message log.
	convos *ConversationStore

	// waveLabel picks the decorative token attached to a wave notification.
	// Swappable so tests can pin the choice.
	waveLabel func() string

	// clients maps a connection id to its live Client.
	clients map[string]*Client

	// mu protects the clients map.
	mu sync.RWMutex

	// register receives freshly upgraded connections.
	register chan *Client

	// unregister receives connections whose read pump terminated.
	unregister chan *Client

	// events receives decoded inbound envelopes.
	events chan event

	// stopChan signals the run loop to terminate.
	stopChan chan struct{}

	// wg waits for the run loop to finish during shutdown.
	wg sync.WaitGroup

	// structured logger with Hub context.
	logger zerolog.Logger
}

// NewHub constructs a Hub and starts its run loop.
func NewHub(cfg *configs.AppConfig) *Hub {
	h := &Hub{
		cfg:        cfg,
		registry:   presence.NewRegistry(),
		binder:     presence.NewBinder(),
		convos:     NewConversationStore(),
		waveLabel:  randx.WaveLabel,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan event, eventChannelBuffer),
		stopChan:   make(chan struct{}),
		logger:     logx.Logger().With().Str("component", "Hub").Logger(),
	}

	h.wg.Add(1)

	go h.run()

	return h
}

// run is the hub's single event loop.
func (h *Hub) run() {
	defer h.wg.Done()

	h.logger.Info().Str("broadcast_mode", h.cfg.BroadcastMode).Msg("Hub event loop started.")

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case ev := <-h.events:
			h.safeHandle(ev.client, ev.env)

		case <-h.stopChan:
			h.logger.Info().Msg("Hub event loop stopping.")

			h.mu.Lock()
			for _, client := range h.clients {
				client.closeSend()
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()

			return
		}
	}
}

// Shutdown terminates the run loop and waits for it to finish.
func (h *Hub) Shutdown() {
	select {
	case <-h.stopChan:
	default:
		close(h.stopChan)
	}

	h.wg.Wait()

	h.logger.Info().Msg("Hub shutdown complete.")
}

// Register queues a freshly upgraded connection for registration.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stopChan:
		client.closeSend()
	}
}

// dispatch queues a decoded inbound envelope for the event loop.
// A full queue drops the event with a warning; delivery is best effort.
func (h *Hub) dispatch(client *Client, env Envelope) {
	select {
	case h.events <- event{client: client, env: env}:
	default:
		h.logger.Warn().
			Str("event_type", string(env.Type)).
			Str("conn_id", client.connID).
			Msg("Hub event channel full, dropping event.")
	}
}

// ConnectionCount returns the number of currently registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// handleRegister binds a new connection under its own connection id, creates
// its presence record, and sends it the current located-user snapshot.
func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	h.clients[c.connID] = c
	h.mu.Unlock()

	h.binder.Bind(c.connID, c.connID)
	h.registry.Ensure(c.connID)

	h.logger.Info().Str("conn_id", c.connID).Msg("Client connected.")

	// In radius mode there is no center to filter around until the client
	// reports a location, so the initial snapshot is skipped.
	if h.cfg.BroadcastMode == configs.BroadcastModeAll {
		h.sendTo(c, EventUsersUpdate, h.registry.SnapshotWithLocation())
	}
}

// handleUnregister purges a disconnected client: identity binding and presence
// record are removed before any later event can observe them, then the
// remaining clients get a refreshed presence view.
func (h *Hub) handleUnregister(c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.connID]
	if ok && current == c {
		delete(h.clients, c.connID)
	}
	h.mu.Unlock()

	if !ok || current != c {
		h.logger.Info().Str("conn_id", c.connID).Msg("Ignoring unregister for stale connection.")
		return
	}

	c.closeSend()

	userID, bound := h.binder.Unbind(c.connID)
	if bound {
		h.registry.Remove(userID)
		h.logger.Info().Str("conn_id", c.connID).Str("user_id", userID).Msg("Client disconnected.")
		h.refreshPresence()
	} else {
		h.logger.Info().Str("conn_id", c.connID).Msg("Client disconnected (identity already rebound).")
	}
}

// safeHandle isolates one event handler invocation: a panic is logged and the
// process and every other connection continue untouched.
func (h *Hub) safeHandle(c *Client, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().
				Interface("panic", r).
				Str("event_type", string(env.Type)).
				Str("conn_id", c.connID).
				Msg("Recovered from panic in event handler.")
		}
	}()

	h.handleEvent(c, env)
}

// handleEvent decodes and executes one inbound event. Malformed payloads are
// logged and dropped; nothing is surfaced back to the remote peer.
func (h *Hub) handleEvent(c *Client, env Envelope) {
	switch env.Type {
	case EventLocationUpdate:
		var p LocationUpdatePayload
		if !h.decode(c, env, &p) {
			return
		}
		h.handleLocationUpdate(c, p.Latitude, p.Longitude)

	case EventLocation:
		var p LocationPayload
		if !h.decode(c, env, &p) {
			return
		}
		if p.ID != "" && p.ID != c.userID {
			h.rebindIdentity(c, p.ID)
		}
		h.handleLocationUpdate(c, p.Latitude, p.Longitude)

	case EventWave:
		var p WavePayload
		if !h.decode(c, env, &p) {
			return
		}
		h.handleWave(c, p)

	case EventSendMessage:
		var p SendMessagePayload
		if !h.decode(c, env, &p) {
			return
		}
		h.handleSendMessage(c, p)

	case EventTyping:
		var p TypingPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.handleTyping(c, p)

	case EventSeen:
		var p SeenPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.handleSeen(c, p)

	case EventGetMessages:
		var p GetMessagesPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.handleGetMessages(c, p)

	default:
		h.logger.Warn().
			Str("event_type", string(env.Type)).
			Str("conn_id", c.connID).
			Msg("Client sent unsupported event type.")
	}
}

// decode unmarshals an envelope payload, logging and rejecting malformed input.
func (h *Hub) decode(c *Client, env Envelope, out any) bool {
	if err := json.Unmarshal(env.Payload, out); err != nil {
		h.logger.Warn().Err(err).
			Str("event_type", string(env.Type)).
			Str("conn_id", c.connID).
			Msg("Client sent invalid payload.")
		return false
	}
	return true
}

// rebindIdentity moves a connection to an explicit client-supplied user id.
// Any other live connection holding that id is kicked, its routing invalidated,
// and the presence record follows the identity.
func (h *Hub) rebindIdentity(c *Client, newID string) {
	if prevConn, ok := h.binder.ResolveConn(newID); ok && prevConn != c.connID {
		h.mu.Lock()
		old := h.clients[prevConn]
		delete(h.clients, prevConn)
		h.mu.Unlock()

		if old != nil {
			old.Kick("Identity moved to a new connection.")
		}
	}

	oldID := c.userID
	h.binder.Bind(c.connID, newID)
	h.registry.Rename(oldID, newID)
	c.userID = newID
	h.registry.Ensure(newID)

	h.logger.Info().
		Str("conn_id", c.connID).
		Str("old_user_id", oldID).
		Str("user_id", newID).
		Msg("Connection rebound to explicit identity.")
}

// handleLocationUpdate validates and records a location fix, then emits the
// presence update per the configured broadcast policy.
func (h *Hub) handleLocationUpdate(c *Client, lat, lng *float64) {
	if lat == nil || lng == nil {
		h.logger.Warn().Str("conn_id", c.connID).Msg("Location event missing coordinates, dropped.")
		return
	}

	if !h.registry.UpsertLocation(c.userID, *lat, *lng) {
		return
	}

	switch h.cfg.BroadcastMode {
	case configs.BroadcastModeRadius:
		rec, ok := h.registry.Get(c.userID)
		if !ok || !rec.HasLocation() {
			return
		}
		h.sendTo(c, EventUsersUpdate, h.nearby(rec))

	default:
		h.broadcastAll(EventUsersUpdate, h.registry.SnapshotWithLocation())
	}
}

// refreshPresence pushes an updated presence view after a disconnect: the full
// snapshot to everyone in all mode, or each located client's own filtered view
// in radius mode.
func (h *Hub) refreshPresence() {
	if h.cfg.BroadcastMode == configs.BroadcastModeAll {
		h.broadcastAll(EventUsersUpdate, h.registry.SnapshotWithLocation())
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		rec, ok := h.registry.Get(client.userID)
		if !ok || !rec.HasLocation() {
			continue
		}
		h.sendTo(client, EventUsersUpdate, h.nearby(rec))
	}
}

// nearby returns the located records within the configured radius of center,
// boundary inclusive. The center's own record qualifies at distance zero.
func (h *Hub) nearby(center presence.Record) []presence.Record {
	all := h.registry.SnapshotWithLocation()

	out := make([]presence.Record, 0, len(all))
	for _, rec := range all {
		if geo.Distance(center.Point(), rec.Point()) <= h.cfg.ProximityRadiusMeters {
			out = append(out, rec)
		}
	}

	return out
}

// handleWave routes a wave greeting to the recipient's live connection. An
// unresolvable recipient is a normal outcome; the wave is silently dropped.
func (h *Hub) handleWave(c *Client, p WavePayload) {
	if p.To == "" {
		h.logger.Warn().Str("conn_id", c.connID).Msg("Wave event missing recipient, dropped.")
		return
	}

	target := h.clientForUser(p.To)
	if target == nil {
		h.logger.Debug().Str("to", p.To).Msg("Wave recipient not connected, dropped.")
		return
	}

	h.sendTo(target, EventWaveNotification, WaveNotificationPayload{
		From:  c.userID,
		Label: h.waveLabel(),
	})
}

// handleSendMessage appends the message to the pair's conversation, delivers
// it to the recipient if live, and always echoes it back to the sender so the
// sender's view matches what is stored.
func (h *Hub) handleSendMessage(c *Client, p SendMessagePayload) {
	if p.To == "" || p.Text == "" {
		h.logger.Warn().Str("conn_id", c.connID).Msg("Chat message missing recipient or text, dropped.")
		return
	}

	if len(p.Text) > MaxMessageTextBytes {
		h.logger.Warn().
			Str("conn_id", c.connID).
			Int("text_bytes", len(p.Text)).
			Msg("Chat message exceeds maximum length, dropped.")
		return
	}

	msg := h.convos.Append(c.userID, p.To, p.Text)

	if target := h.clientForUser(p.To); target != nil && target != c {
		h.sendTo(target, EventReceiveMessage, msg)
	}

	h.sendTo(c, EventReceiveMessage, msg)
}

// handleTyping unicasts a typing indicator; nothing is stored and an offline
// recipient means the event is dropped.
func (h *Hub) handleTyping(c *Client, p TypingPayload) {
	target := h.clientForUser(p.To)
	if target == nil {
		return
	}

	h.sendTo(target, EventTyping, TypingNoticePayload{From: c.userID})
}

// handleSeen marks the caller's side of the conversation as read and notifies
// the other party if live.
func (h *Hub) handleSeen(c *Client, p SeenPayload) {
	if p.With == "" {
		h.logger.Warn().Str("conn_id", c.connID).Msg("Seen event missing counterpart, dropped.")
		return
	}

	h.convos.MarkSeen(c.userID, p.With)

	if target := h.clientForUser(p.With); target != nil {
		h.sendTo(target, EventSeen, SeenNoticePayload{By: c.userID})
	}
}

// handleGetMessages returns the pair's history to the requester only.
func (h *Hub) handleGetMessages(c *Client, p GetMessagesPayload) {
	if p.With == "" {
		h.logger.Warn().Str("conn_id", c.connID).Msg("History request missing counterpart, dropped.")
		return
	}

	h.sendTo(c, EventMessagesHistory, MessagesHistoryPayload{
		With:     p.With,
		Messages: h.convos.History(c.userID, p.With),
	})
}

// clientForUser resolves a user id to its live client through the binder.
// Nil means not currently routable.
func (h *Hub) clientForUser(userID string) *Client {
	connID, ok := h.binder.ResolveConn(userID)
	if !ok {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.clients[connID]
}

// sendTo encodes one outbound event and queues it on a single client.
func (h *Hub) sendTo(c *Client, eventType EventType, payload any) {
	frame, err := encodeEvent(eventType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Error encoding outbound event.")
		return
	}

	c.enqueue(frame)
}

// broadcastAll encodes one outbound event and queues it on every client.
func (h *Hub) broadcastAll(eventType EventType, payload any) {
	frame, err := encodeEvent(eventType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Error encoding broadcast event.")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		client.enqueue(frame)
	}
}
