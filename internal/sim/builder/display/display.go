// Package display maps builder state to operator-facing text. The builder
// core never imports it.
package display

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"voxelbuilder.ai/internal/sim/builder"
	"voxelbuilder.ai/internal/sim/geom"
)

// Color names follow the dye palette used by status lamps.
type Color string

const (
	ColorLime      Color = "LIME"
	ColorYellow    Color = "YELLOW"
	ColorRed       Color = "RED"
	ColorGold      Color = "GOLD"
	ColorGreen     Color = "GREEN"
	ColorLightBlue Color = "LIGHT_BLUE"
	ColorOrange    Color = "ORANGE"
	ColorBlack     Color = "BLACK"
	ColorWhite     Color = "WHITE"
)

type Presentation struct {
	Color Color
	Lines []string // panel label
	Sign  string   // short sign text
}

var presentations = map[builder.Status]Presentation{
	builder.StatusReady:         {ColorLime, []string{"Ready to operate!"}, "Ready"},
	builder.StatusNoWorkArea:    {ColorYellow, []string{"No work area has been defined yet"}, "Set work area"},
	builder.StatusNoInventory:   {ColorRed, []string{"Out of building material!", "Place more blocks in the inventory", "and press Start to resume"}, "No material"},
	builder.StatusNoPermission:  {ColorRed, []string{"Builder doesn't have building rights in this area"}, "No permission"},
	builder.StatusTooNear:       {ColorRed, []string{"Builder is inside the work area!"}, "Too near"},
	builder.StatusTooFar:        {ColorRed, []string{"Builder is too far away from the work area!", fmt.Sprintf("Place it %d blocks or less from the edge", builder.DefaultMaxDistance)}, "Too far"},
	builder.StatusWorldMismatch: {ColorRed, []string{"Markers are from different worlds!"}, "Worlds differ"},
	builder.StatusRunning:       {ColorLightBlue, []string{"Builder is running", "Press Start to pause"}, "Running"},
	builder.StatusPaused:        {ColorOrange, []string{"Builder has been paused", "Press Start to resume"}, "Paused"},
	builder.StatusHalted:        {ColorBlack, []string{"Builder has encountered a problem!", "Check power or materials!"}, "Halted"},
	builder.StatusFinished:      {ColorWhite, []string{"Builder has finished!", "Ready for next operation"}, "Finished"},
}

func For(s builder.Status) Presentation {
	if p, ok := presentations[s]; ok {
		return p
	}
	return Presentation{Color: ColorRed, Lines: []string{s.String()}, Sign: s.String()}
}

// SignLabel renders the four lines of a sign attached to a builder.
func SignLabel(b *builder.Builder) [4]string {
	st := b.Status()
	p := For(st)
	var out [4]string
	out[0] = "Builder " + b.ID()
	if st == builder.StatusRunning {
		c := b.Cursor()
		out[1] = fmt.Sprintf("Working: %d:%d:%d", c.X, c.Y, c.Z)
	} else {
		out[1] = p.Sign
	}
	out[2] = fmt.Sprintf("-( %s )-", strings.ToLower(string(p.Color)))
	out[3] = ChargeString(b.Energy().Charge(), b.Energy().MaxCharge())
	return out
}

// ChargeColor grades a charge level into thirds.
func ChargeColor(charge, maxCharge float64) Color {
	d := 0.0
	if maxCharge > 0 {
		d = charge / maxCharge
	}
	switch {
	case d < 0.333:
		return ColorRed
	case d < 0.666:
		return ColorGold
	default:
		return ColorGreen
	}
}

// ChargeString is the sign's charge line, e.g. "⌁ 250/10K SCU".
func ChargeString(charge, maxCharge float64) string {
	return fmt.Sprintf("⌁ %s/%s SCU", Compact(math.Round(charge)), Compact(math.Trunc(maxCharge)))
}

var compactUnits = []struct {
	limit float64
	div   float64
	unit  string
}{
	{1e3, 1, ""},
	{1e6, 1e3, "K"},
	{1e9, 1e6, "M"},
	{1e12, 1e9, "B"},
	{1e15, 1e12, "T"},
}

// Compact formats v with at most two decimals and a K/M/B/T/Q suffix.
func Compact(v float64) string {
	if v < 0 {
		return "-" + Compact(-v)
	}
	for _, u := range compactUnits {
		if v < u.limit {
			return twoDecimals(v/u.div) + u.unit
		}
	}
	return twoDecimals(v/1e15) + "Q"
}

func twoDecimals(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// WorkAreaLabel describes the selected area for the marker panel.
func WorkAreaLabel(vol geom.Volume, ok bool, m1, m2 builder.Marker) []string {
	if !ok {
		return []string{"Place two marked markers here to select an area"}
	}
	return []string{
		"Selected area:",
		FormatMarker(m1),
		FormatMarker(m2),
		fmt.Sprintf("%d blocks", vol.Cells()),
	}
}

func FormatMarker(m builder.Marker) string {
	return fmt.Sprintf("%s,%d,%d,%d", m.WorldID, m.Pos.X, m.Pos.Y, m.Pos.Z)
}
