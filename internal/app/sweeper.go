package app

import (
	"context"
	"log"
	"time"
)

// Expirer is the unit of work a Sweeper runs on every tick.
type Expirer interface {
	CheckAndAutoSubmitExpiredAttempts(ctx context.Context) (int, error)
}

// Sweeper periodically force-submits attempts that outlived their quiz duration.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
}

// NewSweeper builds a sweeper; non-positive intervals fall back to one minute.
func NewSweeper(expirer Expirer, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{expirer: expirer, interval: interval}
}

// Run sweeps every interval until ctx is canceled. A failing or panicking sweep is
// logged and the loop keeps going. Cancellation is observed between sweeps; a sweep
// already running completes. Run returns nil on cancellation.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepOnce(context.WithoutCancel(ctx))
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sweeper: recovered from panic: %v", r)
		}
	}()

	submitted, err := s.expirer.CheckAndAutoSubmitExpiredAttempts(ctx)
	if err != nil {
		log.Printf("sweeper: sweep failed: %v", err)
	}
	if submitted > 0 {
		log.Printf("sweeper: auto-submitted %d expired attempt(s)", submitted)
	}
}
