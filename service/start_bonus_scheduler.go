package service

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const startBonusGrantTimeout = 10 * time.Second

// StartBonusTimer grants delayed start bonuses. Schedule arms an in-process
// timer per account; a periodic sweep grants every persisted due bonus, so
// bonuses armed before a restart are still paid. Both paths end in the
// idempotent GrantStartBonus.
type StartBonusTimer struct {
	promo    PromoService
	interval time.Duration
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timers map[int64]*time.Timer
	wg     sync.WaitGroup
}

// NewStartBonusTimer creates a scheduler sweeping every interval
func NewStartBonusTimer(promo PromoService, interval time.Duration) *StartBonusTimer {
	ctx, cancel := context.WithCancel(context.Background())
	return &StartBonusTimer{
		promo:    promo,
		interval: interval,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		timers:   make(map[int64]*time.Timer),
	}
}

// Schedule arms a timer granting the start bonus of telegramID at dueAt.
// Scheduling an account twice keeps the first timer.
func (s *StartBonusTimer) Schedule(telegramID int64, dueAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// stopTimers cancels before taking mu, so a timer armed here is either
	// stopped by it or never armed
	if s.ctx.Err() != nil {
		return
	}
	if _, ok := s.timers[telegramID]; ok {
		return
	}

	delay := max(dueAt.Sub(s.now()), 0)
	s.wg.Add(1)
	s.timers[telegramID] = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.fire(telegramID)
	})

	log.WithFields(log.Fields{
		"telegramID": telegramID,
		"delay":      delay,
	}).Debug("Scheduled start bonus")
}

// Pending returns the number of armed timers
func (s *StartBonusTimer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *StartBonusTimer) fire(telegramID int64) {
	s.mu.Lock()
	delete(s.timers, telegramID)
	s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, startBonusGrantTimeout)
	defer cancel()

	result, err := s.promo.GrantStartBonus(ctx, telegramID)
	if err != nil {
		// the sweep retries from the persisted schedule
		log.WithFields(log.Fields{
			"telegramID": telegramID,
			"error":      err,
		}).Error("Failed to grant start bonus")
		return
	}

	log.WithFields(log.Fields{
		"telegramID": telegramID,
		"outcome":    result.Outcome,
	}).Debug("Start bonus timer fired")
}

// sweep grants every due bonus that no timer picked up
func (s *StartBonusTimer) sweep() {
	granted, err := s.promo.GrantDueStartBonuses(s.ctx, s.now())
	if err != nil {
		log.WithError(err).Error("Start bonus sweep failed")
	}
	if granted > 0 {
		log.WithField("granted", granted).Info("Start bonus sweep granted pending bonuses")
	}
}

// Start runs a sweep immediately and then every interval until ctx is done or
// the returned cleanup function is called. Cleanup also stops armed timers.
func (s *StartBonusTimer) Start(ctx context.Context) func() {
	ticker := time.NewTicker(s.interval)
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		log.Info("Start bonus worker started")

		s.sweep()
		for {
			select {
			case <-ctx.Done():
				log.Info("Start bonus worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Start bonus worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(stopChan)
			<-done
			s.stopTimers()
		})
	}
}

func (s *StartBonusTimer) stopTimers() {
	s.cancel()

	s.mu.Lock()
	for id, timer := range s.timers {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
