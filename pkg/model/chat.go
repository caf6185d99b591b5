package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatQueryID string

// NewChatQueryID generates a new unique ChatQueryID
func NewChatQueryID() ChatQueryID {
	return ChatQueryID(uuid.New().String())
}

// RequestStatus is the lifecycle state of a chat query or batch request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestCompleted RequestStatus = "completed"
	RequestFailed    RequestStatus = "failed"
)

// Terminal reports whether the request has reached a final state.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestFailed
}

// ChatQuery is a conversational question over the owner's processed
// thoughts. The answering worker writes Answer or ErrorMsg exactly once.
type ChatQuery struct {
	ID        ChatQueryID   `firestore:"-"`
	OwnerID   string        `firestore:"userId"`
	QueryText string        `firestore:"query"`
	Status    RequestStatus `firestore:"status"`
	Answer    string        `firestore:"answer,omitempty"`
	ErrorMsg  string        `firestore:"error,omitempty"`

	CreatedAt   time.Time  `firestore:"timestamp,serverTimestamp"`
	CompletedAt *time.Time `firestore:"completed_at,omitempty"`
}
