package moderation

import (
	"errors"
	"log"
	"sync"
	"time"

	"modguard/model"
	"modguard/utils/database"

	"github.com/jmoiron/sqlx"
)

// Scheduler drives auto-expiry of duration-bearing infractions. The durable
// work queue is the infractions table itself: every pass queries the store
// for the next due row, so a restart loses nothing and a stale in-memory
// deadline can never expire the wrong record. Timers only decide when to
// look; the store decides what is due.
type Scheduler struct {
	db        *sqlx.DB
	lifecycle *Lifecycle
	poll      time.Duration
	wake      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler polling at most every poll interval.
func NewScheduler(db *sqlx.DB, lifecycle *Lifecycle, poll time.Duration) *Scheduler {
	if poll <= 0 {
		poll = 5 * time.Minute
	}
	return &Scheduler{
		db:        db,
		lifecycle: lifecycle,
		poll:      poll,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start launches the expiry loop. The first pass reloads pending expiries
// from the store immediately.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop terminates the expiry loop and waits for it to finish.
func (s *Scheduler) Stop() {
	close(s.done)
	s.wg.Wait()
}

// Wake nudges the loop to re-read the store, shortening the wait when a new
// deadline lands earlier than the current one.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for {
		wait := s.poll

		next, err := database.NextDueInfraction(s.db)
		switch {
		case errors.Is(err, model.ErrNotFound):
			// Nothing pending; sleep the full poll interval.
		case err != nil:
			log.Printf("Expiry scheduler failed to read store: %v", err)
		default:
			until := time.Until(time.Unix(next.ExpiresAt.Int64, 0))
			if until <= 0 {
				// AutoExpire re-checks the state itself, so a concurrent
				// manual rescind is a harmless no-op here.
				if err := s.lifecycle.AutoExpire(next.InfractionID); err != nil {
					log.Printf("Auto-expire of infraction %d failed: %v", next.InfractionID, err)
				} else {
					// Look for the next due row right away.
					select {
					case <-s.done:
						return
					default:
						continue
					}
				}
			} else if until < wait {
				wait = until
			}
		}

		select {
		case <-time.After(wait):
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}
