package app

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Janitor periodically expires unanswered calls and forgets old tombstones.
type Janitor struct {
	cron  *cron.Cron
	calls *CallHub

	ringTimeout  time.Duration
	tombstoneTTL time.Duration
}

func NewJanitor(calls *CallHub, ringTimeout, tombstoneTTL time.Duration) *Janitor {
	if ringTimeout <= 0 {
		ringTimeout = 60 * time.Second
	}
	if tombstoneTTL <= 0 {
		tombstoneTTL = 10 * time.Minute
	}
	return &Janitor{
		cron:         cron.New(cron.WithSeconds()),
		calls:        calls,
		ringTimeout:  ringTimeout,
		tombstoneTTL: tombstoneTTL,
	}
}

func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc("@every 15s", j.sweepRinging); err != nil {
		return fmt.Errorf("schedule ringing sweep: %w", err)
	}
	if _, err := j.cron.AddFunc("@every 5m", j.sweepTombstones); err != nil {
		return fmt.Errorf("schedule tombstone sweep: %w", err)
	}
	j.cron.Start()
	log.Info().Str("module", "app.janitor").Dur("ring_timeout", j.ringTimeout).Dur("tombstone_ttl", j.tombstoneTTL).Msg("janitor started")
	return nil
}

// Every schedules an extra maintenance job. Call before Start.
func (j *Janitor) Every(spec, name string, fn func()) error {
	if _, err := j.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	log.Debug().Str("module", "app.janitor").Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

// Stop waits for running jobs to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Str("module", "app.janitor").Msg("janitor stopped")
}

func (j *Janitor) sweepRinging() {
	if n := j.calls.ExpireRinging(j.ringTimeout); n > 0 {
		log.Info().Str("module", "app.janitor").Int("expired", n).Msg("expired unanswered calls")
	}
}

func (j *Janitor) sweepTombstones() {
	if n := j.calls.PruneTombstones(j.tombstoneTTL); n > 0 {
		log.Debug().Str("module", "app.janitor").Int("pruned", n).Msg("pruned call tombstones")
	}
}
