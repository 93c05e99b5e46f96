package utils

import "github.com/google/uuid"

// NewID returns a random identifier for short-lived objects such as connections.
func NewID() string {
	return uuid.NewString()
}
