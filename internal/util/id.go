package util

import "github.com/google/uuid"

// NewID returns a random UUID string used for thread, turn, and job IDs.
func NewID() string {
	return uuid.NewString()
}
