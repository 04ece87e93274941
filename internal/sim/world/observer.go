package world

import (
	"voxelbuilder.ai/internal/observerproto"
	"voxelbuilder.ai/internal/sim/builder"
	"voxelbuilder.ai/internal/sim/builder/display"
)

func (w *World) buildTickMsg(tick uint64, reports map[string]builder.StepReport, transitions []observerproto.Transition, audits []AuditEntry) observerproto.TickMsg {
	msg := observerproto.TickMsg{
		Type:            observerproto.TypeTick,
		ProtocolVersion: observerproto.Version,
		Tick:            tick,
		Builders:        make([]observerproto.BuilderStatusMsg, 0, len(w.order)),
		Transitions:     transitions,
	}
	for _, id := range w.order {
		msg.Builders = append(msg.Builders, StatusMsg(w.builders[id], tick, reports[id].Action))
	}
	for _, a := range audits {
		msg.Audits = append(msg.Audits, observerproto.AuditEntry{
			Tick:   a.Tick,
			Actor:  a.Actor,
			Action: a.Action,
			Pos:    a.Pos,
			From:   a.From,
			To:     a.To,
			Cost:   a.Cost,
		})
	}
	return msg
}

// StatusMsg renders b for observers.
func StatusMsg(b *builder.Builder, tick uint64, action builder.Action) observerproto.BuilderStatusMsg {
	st := b.Status()
	return observerproto.BuilderStatusMsg{
		Type:      observerproto.TypeBuilderStatus,
		ID:        b.ID(),
		Tick:      tick,
		Mode:      b.Mode().String(),
		Status:    st.String(),
		Color:     string(display.For(st).Color),
		Sign:      display.SignLabel(b),
		Cursor:    b.Cursor().ToArray(),
		Charge:    b.Energy().Charge(),
		MaxCharge: b.Energy().MaxCharge(),
		Material:  b.Inventory().Total(),
		Powered:   b.Powered(),
		Action:    string(action),
		Summary:   b.Summary(),
	}
}

// refreshBootstrap publishes a copy of the builder layout for readers on
// other goroutines.
func (w *World) refreshBootstrap() {
	out := make([]observerproto.BuilderInfo, 0, len(w.order))
	for _, id := range w.order {
		b := w.builders[id]
		cfg := b.Config()
		info := observerproto.BuilderInfo{
			ID:    id,
			Owner: cfg.Owner,
			Pos:   cfg.Pos.ToArray(),
		}
		vol, ok := b.WorkArea()
		m1, _ := w.ResolveMarker(b.MarkerRef(0))
		m2, _ := w.ResolveMarker(b.MarkerRef(1))
		info.Label = display.WorkAreaLabel(vol, ok, m1, m2)
		if ok {
			area := &observerproto.AreaInfo{
				Min:   vol.Min.ToArray(),
				Max:   vol.Max.ToArray(),
				Cells: vol.Cells(),
			}
			for i, c := range vol.Corners() {
				area.Corners[i] = c.ToArray()
			}
			info.WorkArea = area
		}
		out = append(out, info)
	}
	w.bootstrap.Store(&out)
}
