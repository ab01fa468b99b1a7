package worker

import (
	"context"
	"log"
	"time"
)

// Sweepable is anything that can evict state older than a cutoff and
// report how much it removed. The hub's presence registry and the
// activity-log throttle gate both satisfy it.
type Sweepable interface {
	Sweep(olderThan time.Duration) int
}

// PresenceSweeper periodically evicts room members whose connections
// stopped refreshing presence, covering connections that died without a
// clean close. It also expires stale throttle entries so the gate's
// memory stays bounded.
type PresenceSweeper struct {
	presence Sweepable
	throttle Sweepable

	intervalSeconds int
	presenceTTL     time.Duration
}

func NewPresenceSweeper(presence Sweepable, throttle Sweepable, intervalSeconds int, presenceTTL time.Duration) *PresenceSweeper {
	return &PresenceSweeper{
		presence:        presence,
		throttle:        throttle,
		intervalSeconds: intervalSeconds,
		presenceTTL:     presenceTTL,
	}
}

func (s *PresenceSweeper) Run(shutdownCtx context.Context) {
	ticker := time.NewTicker(time.Duration(s.intervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-shutdownCtx.Done():
			return
		case <-ticker.C:
			if evicted := s.presence.Sweep(s.presenceTTL); evicted > 0 {
				log.Printf("presence sweep evicted %d stale room members", evicted)
			}
			s.throttle.Sweep(s.presenceTTL)
		}
	}
}
