package worker

import (
	"strconv"
	"testing"
	"time"

	"giftcard-service/internal/registry"

	"github.com/stretchr/testify/assert"
)

func entryAt(key string, at time.Time) registry.Entry {
	return registry.Entry{
		Key:    key,
		Value:  strconv.FormatInt(at.UnixMilli(), 10),
		Exists: true,
	}
}

func TestExpiredFreshEntry(t *testing.T) {
	now := time.Now()
	e := entryAt("giftcard:reserve:1", now.Add(-time.Minute))

	assert.False(t, expired(e, now, 5*time.Minute))
}

func TestExpiredOverdueEntry(t *testing.T) {
	now := time.Now()
	e := entryAt("giftcard:reserve:1", now.Add(-6*time.Minute))

	assert.True(t, expired(e, now, 5*time.Minute))
}

func TestExpiredExactlyAtTimeout(t *testing.T) {
	// Reclaim requires strictly more than the timeout to have elapsed.
	// Truncate to millisecond precision so the UnixMilli round-trip in
	// entryAt doesn't make the entry fractionally older than the timeout.
	now := time.Now().Truncate(time.Millisecond)
	e := entryAt("giftcard:reserve:1", now.Add(-5*time.Minute))

	assert.False(t, expired(e, now, 5*time.Minute))
}

func TestExpiredMissingValue(t *testing.T) {
	e := registry.Entry{Key: "giftcard:reserve:1", Exists: false}

	assert.True(t, expired(e, time.Now(), 5*time.Minute))
}

func TestExpiredCorruptValue(t *testing.T) {
	// Garbage values fail safe toward reclaiming the card
	e := registry.Entry{Key: "giftcard:reserve:1", Value: "not-a-timestamp", Exists: true}

	assert.True(t, expired(e, time.Now(), 5*time.Minute))
}

func TestSweepIdempotence(t *testing.T) {
	t.Skip("Integration test - requires database and Redis")

	// Running two sweeps back-to-back with no new expirations must leave
	// the pool unchanged: the batch reset only touches RESERVED rows and
	// the first sweep already deleted the expired keys.
}
