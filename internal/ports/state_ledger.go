package ports

import (
	"context"
	"time"
)

// StateLedger records issued OAuth state nonces so each can be consumed once
type StateLedger interface {
	Save(ctx context.Context, state string, shop string, ttl time.Duration) error

	// Consume returns the shop the state was issued for and removes it.
	// An unknown or already consumed state returns "" and no error.
	Consume(ctx context.Context, state string) (string, error)
}
