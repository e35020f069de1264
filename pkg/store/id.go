package store

import "github.com/google/uuid"

// newThreadID mints an identifier for a freshly created thread.
func newThreadID() string {
	return uuid.NewString()
}
