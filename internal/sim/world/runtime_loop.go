package world

import (
	"context"
	"time"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log.WithField("tick_rate_hz", w.cfg.TickRateHz).Info("world loop started")
	var pending []Command
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case cmd := <-w.inbox:
			pending = append(pending, cmd)
		case <-ticker.C:
			w.stepInternal(pending)
			pending = pending[:0]
		}
	}
}

// Stop ends Run. It must be called at most once.
func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering
// semantics as Run. It is intended for tests and replays.
func (w *World) StepOnce(cmds []Command) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.stepInternal(cmds)
	return tick, w.stateDigest()
}
