package builder

import (
	"fmt"

	"voxelbuilder.ai/internal/sim/geom"
)

// Config is fixed per builder instance.
type Config struct {
	ID      string
	Owner   string
	WorldID string
	Pos     geom.Vec3i

	BaseCost    float64 // SCU per operation
	MaxCharge   float64
	ChargeRate  float64
	MaxDistance int
	InputSlots  int
}

// Action is what a single step did to its cell.
type Action string

const (
	ActionIdle   Action = "IDLE"   // not running or unpowered
	ActionBreak  Action = "BREAK"  // cell cleared
	ActionPlace  Action = "PLACE"  // material placed
	ActionSkip   Action = "SKIP"   // nothing to do at this cell
	ActionStall  Action = "STALL"  // not enough charge, retry next tick
	ActionHalt   Action = "HALT"   // resource exhaustion
	ActionDenied Action = "DENIED" // permission refused
)

// StepReport describes one tick of work.
type StepReport struct {
	Action   Action
	Pos      geom.Vec3i
	From     string
	To       string
	Cost     float64
	Advanced bool
}

// Builder is the build/clear automaton. It is single-owner: the host calls
// every method from its tick goroutine.
type Builder struct {
	cfg Config

	mode    Mode
	status  Status
	powered bool

	markers [2]string
	area    *geom.Volume

	cursor   Cursor
	energy   *EnergyLedger
	inv      *InventorySource
	baseCost float64

	onTransition func(from, to Status)
}

func New(cfg Config) *Builder {
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = DefaultMaxDistance
	}
	if cfg.BaseCost <= 0 {
		cfg.BaseCost = 1
	}
	return &Builder{
		cfg:      cfg,
		mode:     ModeClear,
		status:   StatusNoWorkArea,
		powered:  true,
		energy:   NewEnergyLedger(cfg.MaxCharge, cfg.ChargeRate),
		inv:      NewInventorySource(cfg.InputSlots),
		baseCost: cfg.BaseCost,
	}
}

func (b *Builder) ID() string                  { return b.cfg.ID }
func (b *Builder) Config() Config              { return b.cfg }
func (b *Builder) Status() Status              { return b.status }
func (b *Builder) Mode() Mode                  { return b.mode }
func (b *Builder) Energy() *EnergyLedger       { return b.energy }
func (b *Builder) Inventory() *InventorySource { return b.inv }
func (b *Builder) Cursor() geom.Vec3i          { return b.cursor.Pos() }
func (b *Builder) Powered() bool               { return b.powered }
func (b *Builder) SetPowered(on bool)          { b.powered = on }
func (b *Builder) Self() Marker                { return Marker{WorldID: b.cfg.WorldID, Pos: b.cfg.Pos} }

// OnTransition registers fn to observe every status change.
func (b *Builder) OnTransition(fn func(from, to Status)) { b.onTransition = fn }

func (b *Builder) MarkerRef(slot int) string {
	if slot < 0 || slot > 1 {
		return ""
	}
	return b.markers[slot]
}

// WorkArea returns the resolved volume, if any.
func (b *Builder) WorkArea() (geom.Volume, bool) {
	if b.area == nil {
		return geom.Volume{}, false
	}
	return *b.area, true
}

func (b *Builder) setStatus(s Status) {
	if s == b.status {
		return
	}
	from := b.status
	b.status = s
	if b.onTransition != nil {
		b.onTransition(from, s)
	}
}

// SetMode changes the build mode. It is refused while running.
func (b *Builder) SetMode(m Mode) bool {
	if b.status == StatusRunning || !m.Valid() {
		return false
	}
	b.mode = m
	if b.area == nil {
		b.setStatus(StatusNoWorkArea)
	} else {
		b.setStatus(StatusReady)
	}
	return true
}

// OnMarkerSlotChanged records the item now held in marker slot 0 or 1 and
// re-resolves the work area. Edits are refused while running.
func (b *Builder) OnMarkerSlotChanged(r MarkerResolver, slot int, ref string) bool {
	if b.status == StatusRunning || slot < 0 || slot > 1 {
		return false
	}
	b.markers[slot] = ref
	b.setStatus(b.setupWorkArea(r))
	return true
}

// InsertMarker places a marked marker into the first free marker slot.
func (b *Builder) InsertMarker(r MarkerResolver, ref string) bool {
	if b.status == StatusRunning {
		return false
	}
	if _, ok := r.ResolveMarker(ref); !ok {
		return false
	}
	switch {
	case b.markers[0] == "":
		return b.OnMarkerSlotChanged(r, 0, ref)
	case b.markers[1] == "":
		return b.OnMarkerSlotChanged(r, 1, ref)
	}
	return false
}

func (b *Builder) setupWorkArea(r MarkerResolver) Status {
	b.area = nil
	m1 := b.resolveSlot(r, 0)
	m2 := b.resolveSlot(r, 1)
	vol, st := ResolveWorkArea(m1, m2, b.Self(), b.cfg.MaxDistance)
	if st == StatusReady {
		b.area = &vol
	}
	return st
}

func (b *Builder) resolveSlot(r MarkerResolver, slot int) *Marker {
	ref := b.markers[slot]
	if ref == "" || r == nil {
		return nil
	}
	m, ok := r.ResolveMarker(ref)
	if !ok {
		return nil
	}
	return &m
}

// Start begins or resumes a traversal. Interrupted traversals (paused,
// halted, out of material) resume at the cursor; all others rewind.
func (b *Builder) Start(r MarkerResolver) Status {
	if b.status == StatusRunning {
		return b.status
	}
	b.baseCost = b.cfg.BaseCost
	if b.area == nil {
		if st := b.setupWorkArea(r); st != StatusReady {
			b.setStatus(st)
			return b.status
		}
	}
	if b.status.ResetsCursor() || b.cursor.Volume() != *b.area {
		b.cursor.Reset(*b.area, b.mode.YDirection())
	}
	if !b.mode.Builds() || b.inv.ResetPointer() {
		b.setStatus(StatusRunning)
	} else {
		b.setStatus(StatusNoInventory)
	}
	return b.status
}

// Stop pauses a running traversal; it is a no-op otherwise.
func (b *Builder) Stop() bool {
	if b.status != StatusRunning {
		return false
	}
	b.setStatus(StatusPaused)
	return true
}

// Toggle is the single start/stop button.
func (b *Builder) Toggle(r MarkerResolver) Status {
	if b.status == StatusRunning {
		b.Stop()
		return b.status
	}
	return b.Start(r)
}

// Step performs at most one cell operation.
func (b *Builder) Step(env StepEnv) StepReport {
	if !b.powered || b.status != StatusRunning || b.area == nil {
		return StepReport{Action: ActionIdle}
	}
	pos := b.cursor.Pos()
	mat := env.MaterialAt(pos)
	rep := StepReport{Pos: pos, From: mat, To: mat, Advanced: true}

	if b.mode.Builds() {
		if !b.stepBuild(env, &rep) {
			return rep
		}
	} else if !b.stepClear(env, &rep) {
		return rep
	}

	if rep.Advanced && b.cursor.Advance() {
		b.setStatus(StatusFinished)
	}
	return rep
}

// stepClear returns false when the tick must end without advancing.
func (b *Builder) stepClear(env StepEnv, rep *StepReport) bool {
	pos, mat := rep.Pos, rep.From
	hardness, breakable := env.Hardness(mat)
	if !breakable {
		rep.Action = ActionSkip
		return true
	}
	liquid := env.IsLiquid(pos)
	cost := b.baseCost * hardness
	if liquid {
		cost = b.baseCost * 5
	}
	if cost < 0 {
		cost = 0
	}
	if !env.CanBreak(b.cfg.Owner, pos) {
		rep.Action = ActionDenied
		rep.Advanced = false
		b.setStatus(StatusNoPermission)
		return false
	}
	switch {
	case !b.energy.CanAfford(cost):
		if hardness >= 0 && (liquid || env.IsSolid(mat)) {
			rep.Action = ActionHalt
			rep.Advanced = false
			b.setStatus(StatusHalted)
			return false
		}
		rep.Action = ActionSkip
	case mat != Air:
		env.StepSound(pos, mat)
		env.SetMaterial(pos, Air)
		b.energy.Debit(cost)
		rep.Action = ActionBreak
		rep.To = Air
		rep.Cost = cost
	default:
		env.IdleParticles(pos)
		rep.Action = ActionSkip
	}
	return true
}

func (b *Builder) stepBuild(env StepEnv, rep *StepReport) bool {
	pos, mat := rep.Pos, rep.From
	if !env.CanPlace(b.cfg.Owner, pos) {
		rep.Action = ActionDenied
		rep.Advanced = false
		b.setStatus(StatusNoPermission)
		return false
	}
	if !Eligible(b.mode, b.cursor.Volume(), pos) {
		env.IdleParticles(pos)
		rep.Action = ActionSkip
		return true
	}
	cost := b.baseCost
	if !b.energy.CanAfford(cost) {
		rep.Action = ActionStall
		rep.Advanced = false
		return false
	}
	if mat != Air && !env.IsLiquid(pos) {
		// Already built.
		rep.Action = ActionSkip
		return true
	}
	item, ok := b.inv.TakeOne()
	if !ok {
		rep.Action = ActionHalt
		rep.Advanced = false
		b.setStatus(StatusNoInventory)
		b.setStatus(StatusHalted)
		return false
	}
	env.SetMaterial(pos, item.Material)
	env.StepSound(pos, item.Material)
	b.energy.Debit(cost)
	rep.Action = ActionPlace
	rep.To = item.Material
	rep.Cost = cost
	return true
}

// Summary is a one-line human-readable description for displays and logs.
func (b *Builder) Summary() string {
	switch b.status {
	case StatusRunning, StatusPaused, StatusHalted, StatusNoInventory:
		p := b.cursor.Pos()
		return fmt.Sprintf("%s %s at %d:%d:%d", b.status, b.mode, p.X, p.Y, p.Z)
	}
	if b.area != nil {
		return fmt.Sprintf("%s %s area %s (%d cells)", b.status, b.mode, b.area, b.area.Cells())
	}
	return fmt.Sprintf("%s %s", b.status, b.mode)
}
