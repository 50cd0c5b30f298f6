package worker

import (
	"context"
	"strconv"
	"time"

	"giftcard-service/internal/broker"
	"giftcard-service/internal/models"
	"giftcard-service/internal/registry"
	"giftcard-service/internal/store"
	"giftcard-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reaper periodically reclaims expired reservations: registry entries past
// their timeout (or unreadable) get their cards reset to UNUSED and the
// keys deleted. Sweeps are idempotent and safe to run back-to-back; every
// mutation is conditioned on the card still being RESERVED.
type Reaper struct {
	store          *store.Store
	registry       *registry.Client
	eventPublisher *broker.EventPublisher
	reapTimeout    time.Duration
	interval       time.Duration
	logger         *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewReaper creates a new reaper
func NewReaper(
	store *store.Store,
	registry *registry.Client,
	eventPublisher *broker.EventPublisher,
	reapTimeout time.Duration,
	interval time.Duration,
) *Reaper {
	return &Reaper{
		store:          store,
		registry:       registry,
		eventPublisher: eventPublisher,
		reapTimeout:    reapTimeout,
		interval:       interval,
		logger:         util.GetLogger(),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is
// called
func (r *Reaper) Start(ctx context.Context) {
	defer close(r.done)

	r.logger.Info("Starting reservation reaper",
		zap.Duration("interval", r.interval),
		zap.Duration("reap_timeout", r.reapTimeout))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for the in-flight sweep
func (r *Reaper) Stop() {
	close(r.stop)
	<-r.done
}

// expired classifies a scanned registry entry. Entries with a missing
// value, an over-age timestamp, or an unparseable value are all reclaimed;
// corrupt bookkeeping must not leak reservations.
func expired(e registry.Entry, now time.Time, timeout time.Duration) bool {
	if !e.Exists {
		return true
	}
	ts, err := strconv.ParseInt(e.Value, 10, 64)
	if err != nil {
		return true
	}
	return now.Sub(time.UnixMilli(ts)) > timeout
}

// Sweep performs one reclamation pass. Per-entry failures are logged and
// skipped; a single bad entry must not block reclaiming the rest.
func (r *Reaper) Sweep(ctx context.Context) {
	ctx, span := util.StartSpan(ctx, "Reaper.Sweep")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReaperSweepLatency.Observe(time.Since(start).Seconds())
	}()

	entries, err := r.registry.Scan(ctx)
	if err != nil {
		r.logger.Error("Reaper failed to scan registry", zap.Error(err))
		return
	}

	now := time.Now()
	var (
		expiredKeys []string
		cardIDs     []int64
	)

	for _, e := range entries {
		if !expired(e, now, r.reapTimeout) {
			continue
		}
		if e.Exists {
			if _, err := strconv.ParseInt(e.Value, 10, 64); err != nil {
				r.logger.Warn("Reservation entry has a corrupt timestamp, reclaiming",
					zap.String("key", e.Key),
					zap.String("value", e.Value))
			}
		}

		expiredKeys = append(expiredKeys, e.Key)

		id, err := r.registry.CardIDFromKey(e.Key)
		if err != nil {
			r.logger.Warn("Cannot derive card id from reservation key, clearing key only",
				zap.String("key", e.Key),
				zap.Error(err))
			continue
		}
		cardIDs = append(cardIDs, id)
	}

	released := int64(0)
	if len(cardIDs) > 0 {
		released, err = r.store.BatchResetToUnused(ctx, cardIDs)
		if err != nil {
			r.logger.Error("Reaper failed to reset expired cards", zap.Error(err))
			// Keep the keys; the next sweep retries with the reservations
			// still marked expired.
			return
		}
	}

	// Delete every marked key, including those whose cards were already
	// confirmed, so keys never leak.
	if len(expiredKeys) > 0 {
		if err := r.registry.DeleteKeys(ctx, expiredKeys); err != nil {
			r.logger.Error("Reaper failed to delete expired reservation keys", zap.Error(err))
		} else {
			util.RegistryKeysClearedTotal.Add(float64(len(expiredKeys)))
		}
	}

	staleIDs, staleReleased := r.sweepStaleReserved(ctx, now)
	released += staleReleased
	cardIDs = append(cardIDs, staleIDs...)

	if released == 0 && len(expiredKeys) == 0 {
		return
	}

	util.CardsReclaimedTotal.Add(float64(released))
	r.logger.Info("Reaper sweep completed",
		zap.Int64("cards_released", released),
		zap.Int("keys_cleared", len(expiredKeys)))

	if released > 0 {
		event := &models.CardsReclaimedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCardsReclaimed,
				Timestamp: time.Now(),
			},
			CardIDs:     cardIDs,
			KeysCleared: len(expiredKeys),
		}
		if err := r.eventPublisher.PublishCardsReclaimed(ctx, event); err != nil {
			r.logger.Error("Failed to publish CardsReclaimed event", zap.Error(err))
		}
	}
}

// sweepStaleReserved reclaims cards stuck RESERVED past the timeout with
// no live registry entry, which happens when the registry write failed
// after the status committed. Returns the reclaimed ids and count.
func (r *Reaper) sweepStaleReserved(ctx context.Context, now time.Time) ([]int64, int64) {
	cutoff := now.Add(-r.reapTimeout)

	stale, err := r.store.ListStaleReserved(ctx, cutoff)
	if err != nil {
		r.logger.Error("Reaper failed to scan for stale reserved cards", zap.Error(err))
		return nil, 0
	}

	var orphaned []int64
	for _, card := range stale {
		held, err := r.registry.Exists(ctx, card.ID)
		if err != nil {
			r.logger.Error("Reaper failed to check registry for stale card",
				zap.Int64("card_id", card.ID),
				zap.Error(err))
			continue
		}
		if !held {
			orphaned = append(orphaned, card.ID)
		}
	}

	if len(orphaned) == 0 {
		return nil, 0
	}

	released, err := r.store.BatchResetToUnused(ctx, orphaned)
	if err != nil {
		r.logger.Error("Reaper failed to reset stale reserved cards", zap.Error(err))
		return nil, 0
	}

	r.logger.Info("Reclaimed reserved cards with no registry entry",
		zap.Int64s("card_ids", orphaned),
		zap.Int64("released", released))
	return orphaned, released
}
