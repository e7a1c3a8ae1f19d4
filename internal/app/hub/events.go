/*
Package hub contains the core logic of the presence and messaging engine: the
central event loop, client connection pumps, the per-pair conversation store,
and the wire-level event types exchanged with clients.

This file defines the wire envelope and the inbound/outbound event payloads.
Every frame in both directions is a JSON envelope {"type": ..., "payload": ...}.
*/
package hub

import "encoding/json"

// EventType identifies the kind of event carried by an Envelope.
type EventType string

// Inbound event types (client to server).
const (
	// EventLocationUpdate reports new coordinates under the connection's current identity.
	EventLocationUpdate EventType = "location_update"

	// EventLocation reports coordinates with an optional explicit user id.
	// An explicit id takes precedence and rebinds the connection.
	EventLocation EventType = "location"

	// EventWave requests a wave greeting delivered to another user.
	EventWave EventType = "wave"

	// EventSendMessage sends a direct chat message to another user.
	EventSendMessage EventType = "send_message"

	// EventTyping notifies another user that the sender is typing.
	EventTyping EventType = "typing"

	// EventSeen marks the conversation with another user as read.
	EventSeen EventType = "seen"

	// EventGetMessages requests the conversation history with another user.
	EventGetMessages EventType = "get_messages"
)

// Outbound event types (server to client).
const (
	// EventUsersUpdate carries the current set of located presence records.
	EventUsersUpdate EventType = "users_update"

	// EventWaveNotification delivers a wave greeting.
	EventWaveNotification EventType = "wave_notification"

	// EventReceiveMessage delivers a chat message to recipient and sender alike.
	EventReceiveMessage EventType = "receive_message"

	// EventMessagesHistory delivers a conversation's message sequence to the requester.
	EventMessagesHistory EventType = "messages_history"
)

// Envelope is the wire framing for every event in both directions.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// LocationUpdatePayload is the body of a location_update event. Pointer fields
// distinguish a missing coordinate from zero; a frame with non-numeric values
// fails JSON decoding and is dropped before reaching the registry.
type LocationUpdatePayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// LocationPayload is the body of a location event, carrying an optional
// explicit user id alongside the coordinates.
type LocationPayload struct {
	ID        string   `json:"id,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// WavePayload is the body of an inbound wave event. From is the claimed sender
// id; the hub trusts the connection's bound identity instead.
type WavePayload struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
}

// SendMessagePayload is the body of a send_message event.
type SendMessagePayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// TypingPayload is the body of an inbound typing event.
type TypingPayload struct {
	To string `json:"to"`
}

// SeenPayload is the body of an inbound seen event.
type SeenPayload struct {
	With string `json:"with"`
}

// GetMessagesPayload is the body of a get_messages event.
type GetMessagesPayload struct {
	With string `json:"with"`
}

// WaveNotificationPayload is the body of an outbound wave_notification event.
// Label is a decorative token chosen uniformly from a fixed set.
type WaveNotificationPayload struct {
	From  string `json:"from"`
	Label string `json:"label"`
}

// TypingNoticePayload is the body of an outbound typing event.
type TypingNoticePayload struct {
	From string `json:"from"`
}

// SeenNoticePayload is the body of an outbound seen event.
type SeenNoticePayload struct {
	By string `json:"by"`
}

// MessagesHistoryPayload is the body of an outbound messages_history event.
type MessagesHistoryPayload struct {
	With     string    `json:"with"`
	Messages []Message `json:"messages"`
}

// encodeEvent marshals an outbound event into its wire envelope.
func encodeEvent(eventType EventType, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{
		Type:    eventType,
		Payload: payloadBytes,
	})
}
