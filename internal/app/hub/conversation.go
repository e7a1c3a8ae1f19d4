/*
Package hub contains the core logic of the presence and messaging engine.

This file defines the ConversationStore, the ephemeral per-pair message log.
Conversations are keyed by an order-independent pair of user ids, created
lazily on first message, and live for the process lifetime: because the key is
id-based rather than connection-based, history survives reconnects.
*/
package hub

import (
	"sync"
	"time"
)

// Message is one direct chat message between two users. Timestamp is unix
// milliseconds assigned by the server at append time.
type Message struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Seen      bool   `json:"seen"`
}

// PairKey canonicalizes an unordered pair of user ids so (a,b) and (b,a)
// resolve to the same conversation.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// ConversationStore holds the append-only message log for every active pair.
type ConversationStore struct {
	// convos maps a canonical pair key to its ordered message sequence.
	convos map[string][]*Message

	// mu protects convos and the messages it holds.
	mu sync.RWMutex
}

// NewConversationStore constructs an empty ConversationStore.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		convos: make(map[string][]*Message),
	}
}

// Append stores a new unseen message from one user to another and returns a
// copy of the stored record, so the delivered event matches what is kept.
func (s *ConversationStore) Append(from, to, text string) Message {
	msg := &Message{
		From:      from,
		To:        to,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
		Seen:      false,
	}

	key := PairKey(from, to)

	s.mu.Lock()
	s.convos[key] = append(s.convos[key], msg)
	s.mu.Unlock()

	return *msg
}

// History returns copies of the pair's messages in send order, or an empty
// slice when the pair has never exchanged one. Both sides observe the same
// sequence.
func (s *ConversationStore) History(a, b string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.convos[PairKey(a, b)]

	out := make([]Message, 0, len(stored))
	for _, msg := range stored {
		out = append(out, *msg)
	}

	return out
}

// MarkSeen flips Seen on every message in the pair's conversation addressed to
// self. Messages going the other way are untouched and Seen never reverts.
// It returns the number of messages newly marked.
func (s *ConversationStore) MarkSeen(self, other string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := 0
	for _, msg := range s.convos[PairKey(self, other)] {
		if msg.To == self && !msg.Seen {
			msg.Seen = true
			marked++
		}
	}

	return marked
}
