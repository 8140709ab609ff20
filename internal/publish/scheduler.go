package publish

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signalforge/internal/models"
	"signalforge/internal/store"
)

const sendTimeout = 30 * time.Second

// NoticeFunc receives delivery outcomes for the run's event log.
type NoticeFunc func(msg string, fields map[string]any)

// Scheduler hands content to audience tiers: premium immediately, the rest
// after their configured delay. Deliveries are explicit fire-and-forget
// tasks — the pipeline run does not wait for them, but every completion is
// observed, logged and backfilled onto the run record.
type Scheduler struct {
	delivery Delivery
	store    store.Store
	delays   map[models.Tier]time.Duration
	log      zerolog.Logger
	notify   NoticeFunc
	wg       sync.WaitGroup
}

func NewScheduler(delivery Delivery, st store.Store, delays map[models.Tier]time.Duration, log zerolog.Logger, notify NoticeFunc) *Scheduler {
	return &Scheduler{
		delivery: delivery,
		store:    st,
		delays:   delays,
		log:      log,
		notify:   notify,
	}
}

// Publish fans the content out to the given tiers according to their
// delays and returns immediately.
func (s *Scheduler) Publish(runID, content string, tiers []models.Tier) {
	for _, tier := range tiers {
		if s.delays[tier] > 0 {
			s.ScheduleDelayed(runID, tier, content)
		} else {
			s.DeliverImmediate(runID, tier, content)
		}
	}
}

// DeliverImmediate sends to one tier right away, asynchronously.
func (s *Scheduler) DeliverImmediate(runID string, tier models.Tier, content string) {
	s.spawn(runID, tier, content, 0)
}

// ScheduleDelayed sends to one tier after its configured delay.
func (s *Scheduler) ScheduleDelayed(runID string, tier models.Tier, content string) {
	s.spawn(runID, tier, content, s.delays[tier])
}

func (s *Scheduler) spawn(runID string, tier models.Tier, content string, delay time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if delay > 0 {
			time.Sleep(delay)
		}

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		err := s.delivery.Send(ctx, tier, content)
		if err != nil {
			s.log.Error().Str("run_id", runID).Str("tier", string(tier)).Err(err).Msg("tier delivery failed")
			if s.notify != nil {
				s.notify("delivery failed for "+string(tier)+" tier", map[string]any{
					"run_id": runID,
					"tier":   string(tier),
					"error":  err.Error(),
				})
			}
			return
		}

		now := time.Now().UTC()
		if err := s.store.MarkDelivered(ctx, runID, tier, now); err != nil {
			s.log.Error().Str("run_id", runID).Str("tier", string(tier)).Err(err).Msg("delivery timestamp backfill failed")
		}
		s.log.Info().Str("run_id", runID).Str("tier", string(tier)).Msg("tier delivered")
		if s.notify != nil {
			s.notify("delivered to "+string(tier)+" tier", map[string]any{"run_id": runID, "tier": string(tier)})
		}
	}()
}

// Wait blocks until all in-flight deliveries finish. Used on shutdown and
// in tests; the pipeline itself never calls it.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
