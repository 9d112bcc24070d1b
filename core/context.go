package core

import (
	"context"

	"github.com/huangsam/actimerge/internal/contract"
)

// Context keys for run options
type contextKey string

const (
	runStoreKey contextKey = "runStore"
	runIDKey    contextKey = "runID"
)

// WithRunStore attaches the run ledger to the context. Runs started with this
// context record their metadata in it.
func WithRunStore(ctx context.Context, store contract.RunStore) context.Context {
	return context.WithValue(ctx, runStoreKey, store)
}

// runStoreFromContext returns the run ledger from context, or nil
func runStoreFromContext(ctx context.Context) contract.RunStore {
	val := ctx.Value(runStoreKey)
	if val == nil {
		return nil // default: no tracking
	}
	store, ok := val.(contract.RunStore)
	if !ok {
		return nil
	}
	return store
}

// withRunID sets the ledger run ID in the context
func withRunID(ctx context.Context, runID int64) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// getRunID returns the ledger run ID from context, or 0 when untracked
func getRunID(ctx context.Context) int64 {
	val := ctx.Value(runIDKey)
	if val == nil {
		return 0
	}
	id, ok := val.(int64)
	if !ok {
		return 0
	}
	return id
}
