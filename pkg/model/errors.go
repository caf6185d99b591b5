package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrThoughtNotFound is returned when a thought document does not exist
	ErrThoughtNotFound = goerr.New("thought not found")

	// ErrChatQueryNotFound is returned when a chat query document does not exist
	ErrChatQueryNotFound = goerr.New("chat query not found")

	// ErrBatchRequestNotFound is returned when a batch request document does not exist
	ErrBatchRequestNotFound = goerr.New("batch request not found")

	// ErrInvalidCredential is returned when a bearer credential is missing or
	// fails validation. It never causes a record mutation.
	ErrInvalidCredential = goerr.New("invalid credential")

	// ErrMalformedResponse is returned when the model answer cannot be parsed
	// into the expected structure
	ErrMalformedResponse = goerr.New("malformed model response")
)
