package model

import (
	"time"

	"github.com/google/uuid"
)

type ThoughtID string

// NewThoughtID generates a new unique ThoughtID
func NewThoughtID() ThoughtID {
	return ThoughtID(uuid.New().String())
}

// Status is the enrichment lifecycle state of a thought. It starts as
// StatusPending and transitions exactly once to StatusProcessed or
// StatusFailed, never back.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final. Workers must not touch a
// record whose status is already terminal.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

type SourceType string

const (
	SourceTypeText  SourceType = "text"
	SourceTypeAudio SourceType = "audio_note"
)

// Thought is a captured note plus its AI-derived metadata. Field names
// match the production Firestore documents.
type Thought struct {
	ID       ThoughtID `firestore:"-"`
	OwnerID  string    `firestore:"userId"`
	RawText  string    `firestore:"raw_text"`
	Status   Status    `firestore:"ai_status"`
	Title    string    `firestore:"ai_title,omitempty"`
	Summary  string    `firestore:"ai_summary,omitempty"`
	Keywords []string  `firestore:"keywords,omitempty"`
	ErrorMsg string    `firestore:"error_message,omitempty"`
	Source   SourceType `firestore:"type,omitempty"`
	AudioURL string     `firestore:"audio_url,omitempty"`

	CreatedAt   time.Time  `firestore:"timestamp,serverTimestamp"`
	ProcessedAt *time.Time `firestore:"processed_at,omitempty"`
}

// Enrichment is the structured metadata returned by the AI service for a
// single thought.
type Enrichment struct {
	Title    string
	Summary  string
	Keywords []string
}

// Transcript is the result of the joint transcribe+enrich call for an
// audio object.
type Transcript struct {
	RawText string
	Enrichment
}
