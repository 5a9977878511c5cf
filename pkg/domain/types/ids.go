package types

import (
	"crypto/rand"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/oklog/ulid/v2"
)

// UserID identifies a registered user.
type UserID string

// NewUserID generates a new UUID v4 UserID
func NewUserID() UserID {
	return UserID(uuid.New().String())
}

// Validate checks if the UserID is valid
func (x UserID) Validate() error {
	if x == "" {
		return goerr.New("user ID cannot be empty")
	}
	return nil
}

// String returns the string representation of UserID
func (x UserID) String() string {
	return string(x)
}

// InteractionID identifies a single inbound interaction.
type InteractionID string

// NewInteractionID generates a new UUID v4 InteractionID
func NewInteractionID() InteractionID {
	return InteractionID(uuid.New().String())
}

// String returns the string representation of InteractionID
func (x InteractionID) String() string {
	return string(x)
}

// MemoryRecordID identifies a relational memory record. ULIDs are used
// so that lexicographic order matches creation order.
type MemoryRecordID string

// NewMemoryRecordID generates a new ULID-based MemoryRecordID
func NewMemoryRecordID() MemoryRecordID {
	return MemoryRecordID(ulid.MustNew(ulid.Now(), rand.Reader).String())
}

// String returns the string representation of MemoryRecordID
func (x MemoryRecordID) String() string {
	return string(x)
}

// MessageSID is the transport-assigned message identifier. It is the
// idempotency key for interaction creation: re-delivery of the same SID
// must return the existing interaction.
type MessageSID string

// Validate checks if the MessageSID is valid
func (x MessageSID) Validate() error {
	if x == "" {
		return goerr.New("message SID cannot be empty")
	}
	return nil
}

// String returns the string representation of MessageSID
func (x MessageSID) String() string {
	return string(x)
}

// ExternalMemoryID is the semantic backend's identifier for a stored
// memory. It is a weak reference: the backend record may no longer
// exist when the ID is dereferenced.
type ExternalMemoryID string

// String returns the string representation of ExternalMemoryID
func (x ExternalMemoryID) String() string {
	return string(x)
}
