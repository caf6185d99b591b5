package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BatchRequestID string

// NewBatchRequestID generates a new unique BatchRequestID
func NewBatchRequestID() BatchRequestID {
	return BatchRequestID(uuid.New().String())
}

// BatchRequest asks for a sweep of all non-terminal thoughts. The
// reconciler aggregates per-thought outcomes into the counts below.
type BatchRequest struct {
	ID             BatchRequestID `firestore:"-"`
	OwnerID        string         `firestore:"userId"`
	Status         RequestStatus  `firestore:"status"`
	ProcessedCount int            `firestore:"processed"`
	FailedCount    int            `firestore:"failed"`
	Message        string         `firestore:"message,omitempty"`
	ErrorMsg       string         `firestore:"error,omitempty"`

	CreatedAt   time.Time  `firestore:"timestamp,serverTimestamp"`
	CompletedAt *time.Time `firestore:"completed_at,omitempty"`
}

// SweepSummary formats the human-readable result of a batch sweep.
func SweepSummary(processed, failed int) string {
	return fmt.Sprintf("Processed %d thoughts. %d failed.", processed, failed)
}
