package influx

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"voxelbuilder.ai/internal/observerproto"
)

// PointWriter is the subset of api.WriteAPI the recorder uses.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// Recorder turns tick messages into points. Builder state is sampled every
// SampleEvery ticks and on every status change; every break or place becomes
// one "builder_op" point.
type Recorder struct {
	w           PointWriter
	worldID     string
	sampleEvery uint64
	now         func() time.Time
}

func NewRecorder(w PointWriter, worldID string, sampleEvery uint64) *Recorder {
	if sampleEvery == 0 {
		sampleEvery = 20
	}
	return &Recorder{w: w, worldID: worldID, sampleEvery: sampleEvery, now: time.Now}
}

// ObserveTick implements world.TickObserver.
func (r *Recorder) ObserveTick(msg observerproto.TickMsg) {
	ts := r.now()
	changed := make(map[string]bool, len(msg.Transitions))
	for _, tr := range msg.Transitions {
		changed[tr.BuilderID] = true
	}
	sample := msg.Tick%r.sampleEvery == 0
	for _, b := range msg.Builders {
		if !sample && !changed[b.ID] {
			continue
		}
		r.w.WritePoint(write.NewPoint("builder",
			map[string]string{
				"world":   r.worldID,
				"builder": b.ID,
				"mode":    b.Mode,
				"status":  b.Status,
			},
			map[string]interface{}{
				"tick":       int64(msg.Tick),
				"charge":     b.Charge,
				"max_charge": b.MaxCharge,
				"material":   int64(b.Material),
				"powered":    b.Powered,
				"cursor_x":   int64(b.Cursor[0]),
				"cursor_y":   int64(b.Cursor[1]),
				"cursor_z":   int64(b.Cursor[2]),
			},
			ts))
	}
	for _, a := range msg.Audits {
		r.w.WritePoint(write.NewPoint("builder_op",
			map[string]string{
				"world":   r.worldID,
				"builder": a.Actor,
				"action":  a.Action,
			},
			map[string]interface{}{
				"tick": int64(a.Tick),
				"cost": a.Cost,
				"from": a.From,
				"to":   a.To,
			},
			ts))
	}
}
