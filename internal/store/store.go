// Package store persists guest credit balances and a short audit trail of
// server-side generations.
//
// The package uses a single-table DynamoDB design where all records for a
// user share a partition key (USER#{userId}). Sort keys distinguish record
// types: CREDITS holds the balance, GEN#{timestamp}#{id} holds one
// generation. Generation records carry a TTL attribute (expiresAt) so the
// audit trail ages out on its own; the balance record never expires.
package store

import (
	"context"
	"time"

	"github.com/fpang/redo-ai/internal/credits"
)

// GenerationTTL is how long a generation record is kept.
const GenerationTTL = 30 * 24 * time.Hour

// CreditStore is a credits.Ledger that also keeps generation history.
// All methods are safe for concurrent use; balance changes are atomic on
// the server side.
type CreditStore interface {
	credits.Ledger

	// PutGeneration records one server-side generation.
	PutGeneration(ctx context.Context, g *Generation) error

	// ListGenerations returns up to limit of the user's most recent
	// generations, newest first.
	ListGenerations(ctx context.Context, userID string, limit int) ([]*Generation, error)
}

// Generation is one guest generation handled by the server
// (DynamoDB SK = GEN#{createdAt}#{id}).
type Generation struct {
	ID         string   `json:"id" dynamodbav:"id"`
	UserID     string   `json:"-" dynamodbav:"-"`
	Mode       string   `json:"mode" dynamodbav:"mode"`
	Filters    []string `json:"filters" dynamodbav:"filters,stringset,omitempty"`
	Model      string   `json:"model" dynamodbav:"model"`
	Result     string   `json:"result" dynamodbav:"result"`
	Kind       string   `json:"kind,omitempty" dynamodbav:"kind,omitempty"`
	Cost       int      `json:"cost" dynamodbav:"cost"`
	DurationMs int64    `json:"durationMs" dynamodbav:"durationMs"`
	CreatedAt  int64    `json:"createdAt" dynamodbav:"createdAt"`
}
