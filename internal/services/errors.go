// Package services holds the reply pipeline and the read services behind the
// operator API. This file centralizes service-level error values so they can
// be returned consistently and mapped to acknowledgments or HTTP status codes
// by the handler layer.
package services

import "errors"

// Pipeline errors.
var (
	// ErrInvalidPayload indicates a structurally invalid webhook event. It is
	// returned before any side effect.
	ErrInvalidPayload = errors.New("invalid webhook payload")

	// ErrUpstreamFetch indicates that the conversation API failed.
	ErrUpstreamFetch = errors.New("conversation fetch failed")

	// ErrAlreadyResponded indicates that the cast hash is already part of a
	// recorded interaction.
	ErrAlreadyResponded = errors.New("cast already responded")

	// ErrPipelinePanic indicates that a collaborator panicked while the
	// event was processed.
	ErrPipelinePanic = errors.New("webhook pipeline panicked")
)

// Read API errors.
var (
	// ErrInteractionNotFound indicates that the requested interaction does not exist.
	ErrInteractionNotFound = errors.New("interaction not found")
)
