/*
Package randx provides functions for generating random identifiers and display tokens.

It is primarily used to assign UUID connection ids, derive short display names from
user ids, and pick the decorative labels attached to wave notifications.
*/
package randx

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const (
	// ShortIDLength is the number of leading id characters used for display purposes.
	ShortIDLength = 8
)

// waveLabels is the fixed immutable set of decorative tokens a wave
// notification may carry. One is chosen uniformly per wave.
var waveLabels = []string{
	"A Friend", "👾", "🚀", "🌟", "🎉", "🦄", "😎", "🤖", "🧑‍💻", "🎈",
}

// ConnectionID generates a standard UUID v4 string to serve as the transport-level
// identity of a freshly upgraded connection.
func ConnectionID() string {
	return uuid.New().String()
}

// ShortID returns the leading ShortIDLength characters of the given id,
// or the whole id when it is shorter than that.
func ShortID(id string) string {
	if len(id) <= ShortIDLength {
		return id
	}
	return id[:ShortIDLength]
}

// DisplayName derives a deterministic human-friendly name from a user id.
func DisplayName(id string) string {
	return "User " + ShortID(id)
}

// WaveLabel picks one decorative wave token uniformly using crypto/rand.
// It falls back to the first token if the random source fails.
func WaveLabel() string {
	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(waveLabels))))
	if err != nil {
		return waveLabels[0]
	}

	return waveLabels[num.Int64()]
}
