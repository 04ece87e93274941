package world

import (
	"github.com/sirupsen/logrus"

	"voxelbuilder.ai/internal/observerproto"
	"voxelbuilder.ai/internal/sim/builder"
)

func (w *World) stepInternal(cmds []Command) {
	nowTick := w.tick.Load()
	w.transitions = w.transitions[:0]
	w.effects = effectCounts{}

	// Commands apply at the tick boundary in inbox order.
	recorded := make([]Command, 0, len(cmds))
	for _, cmd := range cmds {
		res := w.applyCommand(cmd)
		if cmd.Resp != nil {
			cmd.Resp <- res
		}
		cmd.Resp = nil
		recorded = append(recorded, cmd)
	}

	// Power supply, then one cell per builder in id order.
	for _, id := range w.order {
		b := w.builders[id]
		if b.Powered() {
			b.Energy().Recharge(b.Energy().ChargeRate())
		}
	}
	reports := make(map[string]builder.StepReport, len(w.order))
	var steps []StepRecord
	var audits []AuditEntry
	for _, id := range w.order {
		b := w.builders[id]
		rep := b.Step(w)
		reports[id] = rep
		if rep.Action == builder.ActionIdle {
			continue
		}
		steps = append(steps, StepRecord{
			BuilderID: id,
			Action:    string(rep.Action),
			Pos:       rep.Pos.ToArray(),
			Cost:      rep.Cost,
			Status:    b.Status().String(),
		})
		if rep.Action == builder.ActionBreak || rep.Action == builder.ActionPlace {
			audits = append(audits, AuditEntry{
				Tick:   nowTick,
				Actor:  id,
				Owner:  b.Config().Owner,
				Action: string(rep.Action),
				Pos:    rep.Pos.ToArray(),
				From:   rep.From,
				To:     rep.To,
				Cost:   rep.Cost,
			})
		}
	}

	if w.auditLogger != nil {
		for _, a := range audits {
			if err := w.auditLogger.WriteAudit(a); err != nil {
				w.log.WithError(err).Warn("audit log write failed")
				break
			}
		}
	}

	w.refreshBootstrap()
	transitions := append([]observerproto.Transition(nil), w.transitions...)
	if len(w.observers) > 0 {
		msg := w.buildTickMsg(nowTick, reports, transitions, audits)
		for _, o := range w.observers {
			o.ObserveTick(msg)
		}
	}

	digest := w.stateDigest()
	if w.tickLogger != nil {
		entry := TickLogEntry{Tick: nowTick, Commands: recorded, Steps: steps, Transitions: transitions, Digest: digest}
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.log.WithError(err).Warn("tick log write failed")
		}
	}

	// Snapshot every N ticks, starting after tick 0.
	if w.snapshotSink != nil && nowTick != 0 && w.cfg.SnapshotEveryTicks > 0 {
		if nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
			snap := w.ExportSnapshot(nowTick)
			select {
			case w.snapshotSink <- snap:
			default:
				w.log.WithField("tick", nowTick).Warn("snapshot sink backed up; snapshot dropped")
			}
		}
	}

	if len(steps) > 0 {
		w.log.WithFields(logrus.Fields{
			"tick":      nowTick,
			"steps":     len(steps),
			"sounds":    w.effects.Sounds,
			"particles": w.effects.Particles,
		}).Debug("tick")
	}
	w.tick.Add(1)
}
