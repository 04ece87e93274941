package world

import (
	"context"
	"errors"
	"fmt"

	"voxelbuilder.ai/internal/sim/builder"
	"voxelbuilder.ai/internal/sim/geom"
)

type CommandKind string

const (
	CmdStart          CommandKind = "START"
	CmdStop           CommandKind = "STOP"
	CmdToggle         CommandKind = "TOGGLE"
	CmdSetMode        CommandKind = "SET_MODE"
	CmdSetMarker      CommandKind = "SET_MARKER"
	CmdInsertMarker   CommandKind = "INSERT_MARKER"
	CmdInsertMaterial CommandKind = "INSERT_MATERIAL"
	CmdRecharge       CommandKind = "RECHARGE"
	CmdSetPowered     CommandKind = "SET_POWERED"
	CmdMarkLocation   CommandKind = "MARK_LOCATION"
)

// Command is an operator request applied at the next tick boundary.
type Command struct {
	Kind      CommandKind `json:"kind"`
	BuilderID string      `json:"builder_id,omitempty"`
	// Actor, when set, must own the builder.
	Actor string `json:"actor,omitempty"`

	Mode     string  `json:"mode,omitempty"`
	Slot     int     `json:"slot,omitempty"`
	Ref      string  `json:"ref,omitempty"`
	WorldID  string  `json:"world_id,omitempty"`
	Pos      [3]int  `json:"pos,omitempty"`
	Material string  `json:"material,omitempty"`
	Count    int     `json:"count,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	Powered  bool    `json:"powered,omitempty"`

	Resp chan CommandResult `json:"-"`
}

type CommandResult struct {
	Status builder.Status
	// Accepted is the quantity taken by INSERT_MATERIAL or RECHARGE.
	Accepted float64
	Err      error
}

// Submit queues cmd for the next tick and waits for its result. It is safe
// to call from other goroutines while Run is active.
func (w *World) Submit(ctx context.Context, cmd Command) (CommandResult, error) {
	resp := make(chan CommandResult, 1)
	cmd.Resp = resp

	select {
	case w.inbox <- cmd:
	case <-w.stop:
		return CommandResult{}, ErrWorldNotRunning
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}

	select {
	case r := <-resp:
		return r, r.Err
	case <-w.stop:
		return CommandResult{}, ErrWorldNotRunning
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
}

func (w *World) applyCommand(cmd Command) CommandResult {
	if cmd.Kind == CmdMarkLocation {
		err := w.MarkLocation(cmd.Ref, builder.Marker{WorldID: cmd.WorldID, Pos: geom.FromArray(cmd.Pos)})
		return CommandResult{Err: err}
	}

	b, err := w.Builder(cmd.BuilderID)
	if err != nil {
		return CommandResult{Err: err}
	}
	if cmd.Actor != "" && cmd.Actor != b.Config().Owner {
		return CommandResult{Status: b.Status(), Err: fmt.Errorf("%w: %s does not own %s", ErrNotOwner, cmd.Actor, b.ID())}
	}
	res := CommandResult{}
	switch cmd.Kind {
	case CmdStart:
		b.Start(w)
	case CmdStop:
		b.Stop()
	case CmdToggle:
		b.Toggle(w)
	case CmdSetMode:
		m, perr := builder.ParseMode(cmd.Mode)
		switch {
		case perr != nil:
			res.Err = perr
		case !b.SetMode(m):
			res.Err = fmt.Errorf("set mode on %s: %w", b.ID(), ErrRunning)
		}
	case CmdSetMarker:
		if cmd.Slot < 0 || cmd.Slot > 1 {
			res.Err = fmt.Errorf("marker slot %d out of range", cmd.Slot)
		} else if !b.OnMarkerSlotChanged(w, cmd.Slot, cmd.Ref) {
			res.Err = fmt.Errorf("set marker on %s: %w", b.ID(), ErrRunning)
		}
	case CmdInsertMarker:
		switch {
		case b.Status() == builder.StatusRunning:
			res.Err = fmt.Errorf("insert marker on %s: %w", b.ID(), ErrRunning)
		case !b.InsertMarker(w, cmd.Ref):
			if _, ok := w.ResolveMarker(cmd.Ref); !ok {
				res.Err = fmt.Errorf("%w: %s", ErrUnknownMarker, cmd.Ref)
			} else {
				res.Err = fmt.Errorf("insert marker on %s: both slots are full", b.ID())
			}
		}
	case CmdInsertMaterial:
		if !w.catalogs.Blocks.AcceptsMaterial(cmd.Material) {
			res.Err = fmt.Errorf("%w: %s", ErrRejectedItem, cmd.Material)
			break
		}
		res.Accepted = float64(b.Inventory().Insert(builder.Stack{Material: cmd.Material, Count: cmd.Count}, 64))
	case CmdRecharge:
		res.Accepted = b.Energy().Recharge(cmd.Amount)
	case CmdSetPowered:
		b.SetPowered(cmd.Powered)
	default:
		res.Err = fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Kind)
	}
	res.Status = b.Status()
	if res.Err != nil && !errors.Is(res.Err, ErrRunning) {
		w.log.WithField("builder", cmd.BuilderID).WithError(res.Err).Warn("command rejected")
	}
	return res
}

// Apply runs cmd immediately outside the tick loop. It must not be called
// while Run is active; it is used to seed a world before it starts.
func (w *World) Apply(cmd Command) CommandResult { return w.applyCommand(cmd) }
