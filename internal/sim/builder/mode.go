package builder

import (
	"fmt"
	"strings"

	"voxelbuilder.ai/internal/sim/geom"
)

type Mode int

const (
	ModeClear Mode = iota
	ModeFill
	ModeWalls
	ModeFrame
)

var modeNames = [...]string{"CLEAR", "FILL", "WALLS", "FRAME"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown build mode %q", s)
}

func (m Mode) Valid() bool { return m >= ModeClear && m <= ModeFrame }

// YDirection is -1 for top-down demolition and +1 for bottom-up construction.
func (m Mode) YDirection() int {
	if m == ModeClear {
		return -1
	}
	return 1
}

func (m Mode) Builds() bool { return m != ModeClear }

// Eligible reports whether pos is a build target for m within vol.
// Clear never consults it.
func Eligible(m Mode, vol geom.Volume, pos geom.Vec3i) bool {
	switch m {
	case ModeFill:
		return true
	case ModeWalls:
		return faceCount(vol, pos) >= 1
	case ModeFrame:
		return faceCount(vol, pos) >= 2
	default:
		return false
	}
}

func faceCount(vol geom.Volume, pos geom.Vec3i) int {
	n := 0
	if pos.X <= vol.Min.X || pos.X >= vol.Max.X {
		n++
	}
	if pos.Y <= vol.Min.Y || pos.Y >= vol.Max.Y {
		n++
	}
	if pos.Z <= vol.Min.Z || pos.Z >= vol.Max.Z {
		n++
	}
	return n
}
