// Package alias assigns stable per-(user, course) pseudonyms for course chat.
// A user keeps the same name across reconnects within a course and may show
// a different one in another course.
package alias

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/courseconnect/courseconnect-server/internal/store"
)

// ErrNamePoolExhausted is returned when every pool name is already assigned
// within the course. Callers may retry or fall back to a numeric suffix.
var ErrNamePoolExhausted = errors.New("anonymous name pool exhausted")

// Allocator mints and resolves anonymous identities.
type Allocator struct {
	store store.AliasStore
	pool  *Pool
	log   *zerolog.Logger

	// mu serializes minting. The store's unique constraints are the
	// backstop; the mutex keeps concurrent first-joins from burning
	// through candidates against each other.
	mu sync.Mutex
}

// NewAllocator creates an allocator over the given store and name pool.
func NewAllocator(aliasStore store.AliasStore, pool *Pool, logger *zerolog.Logger) *Allocator {
	return &Allocator{
		store: aliasStore,
		pool:  pool,
		log:   logger,
	}
}

// Resolve returns the pseudonym for (userID, courseID), minting one on first
// join. Repeated calls return the same name. Safe for concurrent use.
func (a *Allocator) Resolve(ctx context.Context, userID, courseID int64) (string, error) {
	name, err := a.store.GetAlias(ctx, userID, courseID)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("get alias: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Another goroutine may have minted while we waited for the lock.
	name, err = a.store.GetAlias(ctx, userID, courseID)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("get alias: %w", err)
	}

	for _, candidate := range a.pool.Candidates() {
		err := a.store.CreateAlias(ctx, userID, courseID, candidate)
		if err == nil {
			a.log.Debug().
				Int64("user_id", userID).
				Int64("course_id", courseID).
				Str("display_name", candidate).
				Msg("anonymous name minted")
			return candidate, nil
		}
		if errors.Is(err, store.ErrConflict) {
			// Either the name is taken in this course or the user got an
			// alias through another path. Re-read settles which.
			if name, getErr := a.store.GetAlias(ctx, userID, courseID); getErr == nil {
				return name, nil
			}
			continue
		}
		return "", fmt.Errorf("create alias: %w", err)
	}

	a.log.Warn().
		Int64("user_id", userID).
		Int64("course_id", courseID).
		Msg("anonymous name pool exhausted")
	return "", ErrNamePoolExhausted
}
