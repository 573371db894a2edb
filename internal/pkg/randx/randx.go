/*
Package randx provides functions for generating unique identifiers used across the chat service.

Channel and message identifiers are UUID v4 strings. The package also offers
validation helpers so transport handlers can reject malformed identifiers before
touching the persistence layer.
*/
package randx

import (
	"github.com/google/uuid"
)

// ChannelID generates a fresh unique identifier for a newly created channel.
// Identifiers are never reused; a dissolved channel's id stays dead.
func ChannelID() string {
	return uuid.New().String()
}

// MessageID generates a unique identifier for a chat message.
func MessageID() string {
	return uuid.New().String()
}

// IsValidID checks whether the given string parses as a UUID, which all
// channel and message identifiers are.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
