package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Allocation policy constants. The floor keeps new identifiers clear of
// possible legacy low-numbered ids; the prefix marks fallback identifiers as
// non-sequential.
const (
	pidFloor         = 1001
	maxProbeAttempts = 10
	fallbackPrefix   = "P"
)

// PIDStore is the slice of the record store the allocator probes.
type PIDStore interface {
	MaxNumericPID(ctx context.Context) (int64, error)
	PIDExists(ctx context.Context, pid string) (bool, error)
}

// PIDAllocator hands out human-facing plant identifiers. The probe loop is
// best-effort de-duplication under light concurrency; two concurrent callers
// can still race on the same candidate, and the UNIQUE constraint on
// plants.pid is the correctness backstop at insert time.
type PIDAllocator struct {
	store PIDStore
}

func NewPIDAllocator(store PIDStore) *PIDAllocator {
	return &PIDAllocator{store: store}
}

// Next returns a candidate identifier believed free at probe time: one more
// than the highest numeric pid on record (floored at pidFloor), advanced past
// any taken values. When every probe within the attempt budget is taken it
// returns a fallback identifier instead of failing; the insert's unique
// constraint decides the final outcome either way.
func (a *PIDAllocator) Next(ctx context.Context) (string, error) {
	max, err := a.store.MaxNumericPID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read max pid: %w", err)
	}

	candidate := max + 1
	if candidate < pidFloor {
		candidate = pidFloor
	}

	for attempt := 0; attempt < maxProbeAttempts; attempt++ {
		pid := fmt.Sprintf("%d", candidate)
		taken, err := a.store.PIDExists(ctx, pid)
		if err != nil {
			return "", fmt.Errorf("failed to probe pid %s: %w", pid, err)
		}
		if !taken {
			return pid, nil
		}
		candidate++
	}

	return a.FallbackPID(), nil
}

// FallbackPID builds a collision-resistant identifier from the prefix, the
// current unix timestamp and a random suffix. Fits varchar(20).
func (a *PIDAllocator) FallbackPID() string {
	return fmt.Sprintf("%s%d%s", fallbackPrefix, time.Now().Unix(), randomDigits(4))
}

// RandomPID is the last-resort tier: no timestamp component, all entropy.
func (a *PIDAllocator) RandomPID() string {
	return fallbackPrefix + randomDigits(14)
}

func randomDigits(n int) string {
	digits := ""
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// degrade to a fixed digit rather than panic mid-request.
			digits += "0"
			continue
		}
		digits += fmt.Sprintf("%d", v.Int64())
	}
	return digits
}
