// Package history provides bounded per-conversation message storage.
// Conversations are scoped by the (userID, sessionID, agentID) triple and
// trimmed to a configured number of exchange pairs on every append.
package history

import (
	"context"
	"errors"

	"github.com/switchboard-dev/switchboard/pkg/models"
)

// ErrStorageUnavailable indicates the backing store could not serve the
// request. Callers surface it to operators; it never silently disappears.
var ErrStorageUnavailable = errors.New("history storage unavailable")

// DefaultMaxPairs bounds stored history when a caller passes a
// non-positive maxPairs.
const DefaultMaxPairs = 10

// Store is the conversation history contract consumed by the orchestrator.
// Implementations must serialize appends for the same triple; appends for
// different triples must not block each other.
type Store interface {
	// LoadRecent returns at most 2*maxPairs messages for the triple,
	// oldest-first. It retains no cursor state between calls.
	LoadRecent(ctx context.Context, userID, sessionID, agentID string, maxPairs int) ([]models.Message, error)

	// AppendExchange atomically appends one user/agent message pair and
	// trims the conversation to the newest maxPairs pairs.
	AppendExchange(ctx context.Context, userID, sessionID, agentID string, userMsg, agentMsg models.Message, maxPairs int) error
}

// validatePair checks both halves of an exchange before storage.
func validatePair(userMsg, agentMsg models.Message) error {
	if err := userMsg.Validate(); err != nil {
		return err
	}
	if err := agentMsg.Validate(); err != nil {
		return err
	}
	if userMsg.Role != models.RoleUser {
		return &models.MalformedMessageError{Reason: "exchange user half has role " + string(userMsg.Role)}
	}
	if agentMsg.Role != models.RoleAssistant {
		return &models.MalformedMessageError{Reason: "exchange agent half has role " + string(agentMsg.Role)}
	}
	return nil
}

func normalizeMaxPairs(maxPairs int) int {
	if maxPairs < 1 {
		return DefaultMaxPairs
	}
	return maxPairs
}
