package builder

import (
	"testing"

	"voxelbuilder.ai/internal/sim/geom"
)

func TestResolveWorkAreaNormalizesCorners(t *testing.T) {
	m1 := &Marker{WorldID: "W", Pos: geom.Vec3i{X: 10, Y: 70, Z: -5}}
	m2 := &Marker{WorldID: "W", Pos: geom.Vec3i{X: 2, Y: 64, Z: 3}}
	self := Marker{WorldID: "W", Pos: geom.Vec3i{X: 0, Y: 64, Z: 0}}
	vol, st := ResolveWorkArea(m1, m2, self, DefaultMaxDistance)
	if st != StatusReady {
		t.Fatalf("expected READY, got %s", st)
	}
	if vol.Min != (geom.Vec3i{X: 2, Y: 64, Z: -5}) || vol.Max != (geom.Vec3i{X: 10, Y: 70, Z: 3}) {
		t.Fatalf("unexpected volume %s", vol)
	}
	// Marker order does not matter.
	vol2, _ := ResolveWorkArea(m2, m1, self, DefaultMaxDistance)
	if vol2 != vol {
		t.Fatalf("swapped markers gave %s", vol2)
	}
}

func TestResolveWorkAreaMissingMarker(t *testing.T) {
	m := &Marker{WorldID: "W"}
	self := Marker{WorldID: "W", Pos: geom.Vec3i{X: -1}}
	for _, tc := range []struct{ a, b *Marker }{{nil, nil}, {m, nil}, {nil, m}} {
		if _, st := ResolveWorkArea(tc.a, tc.b, self, 5); st != StatusNoWorkArea {
			t.Fatalf("expected NO_WORKAREA, got %s", st)
		}
	}
}

func TestResolveWorkAreaWorldChecks(t *testing.T) {
	m1 := &Marker{WorldID: "W", Pos: geom.Vec3i{}}
	m2 := &Marker{WorldID: "N", Pos: geom.Vec3i{X: 3}}
	self := Marker{WorldID: "W", Pos: geom.Vec3i{X: -1}}
	if _, st := ResolveWorkArea(m1, m2, self, 5); st != StatusWorldMismatch {
		t.Fatalf("expected WORLD_MISMATCH, got %s", st)
	}
	m2.WorldID = "W"
	self.WorldID = "N"
	if _, st := ResolveWorkArea(m1, m2, self, 5); st != StatusTooFar {
		t.Fatalf("expected TOO_FAR for other world, got %s", st)
	}
}

// Every position around a fixed volume classifies as exactly one of
// inside, within reach, or out of reach.
func TestResolveWorkAreaReachIsExhaustive(t *testing.T) {
	m1 := &Marker{WorldID: "W", Pos: geom.Vec3i{X: 0, Y: 0, Z: 0}}
	m2 := &Marker{WorldID: "W", Pos: geom.Vec3i{X: 4, Y: 2, Z: 3}}
	const reach = 2
	for x := -5; x <= 9; x++ {
		for y := -5; y <= 7; y++ {
			for z := -5; z <= 8; z++ {
				p := geom.Vec3i{X: x, Y: y, Z: z}
				_, st := ResolveWorkArea(m1, m2, Marker{WorldID: "W", Pos: p}, reach)
				inside := x >= 0 && x <= 4 && y >= 0 && y <= 2 && z >= 0 && z <= 3
				near := x >= -reach && x <= 4+reach && y >= -reach && y <= 2+reach && z >= -reach && z <= 3+reach
				var want Status
				switch {
				case inside:
					want = StatusTooNear
				case near:
					want = StatusReady
				default:
					want = StatusTooFar
				}
				if st != want {
					t.Fatalf("pos %v: got %s want %s", p, st, want)
				}
			}
		}
	}
}

func TestModeEligibilityOnCube(t *testing.T) {
	vol := geom.NewVolume(geom.Vec3i{}, geom.Vec3i{X: 2, Y: 2, Z: 2})
	count := func(m Mode) int {
		n := 0
		for x := 0; x <= 2; x++ {
			for y := 0; y <= 2; y++ {
				for z := 0; z <= 2; z++ {
					if Eligible(m, vol, geom.Vec3i{X: x, Y: y, Z: z}) {
						n++
					}
				}
			}
		}
		return n
	}
	if n := count(ModeFill); n != 27 {
		t.Fatalf("fill: got %d", n)
	}
	if n := count(ModeWalls); n != 26 {
		t.Fatalf("walls: got %d", n)
	}
	center := geom.Vec3i{X: 1, Y: 1, Z: 1}
	if Eligible(ModeWalls, vol, center) {
		t.Fatalf("walls must skip the center")
	}
	// Frame keeps the 12 edge cells and the 8 corners; face centers and the
	// core are skipped.
	if n := count(ModeFrame); n != 20 {
		t.Fatalf("frame: got %d", n)
	}
	edges := 0
	for _, p := range []geom.Vec3i{
		{X: 1, Y: 0, Z: 0}, {X: 1, Y: 2, Z: 0}, {X: 1, Y: 0, Z: 2}, {X: 1, Y: 2, Z: 2},
		{X: 0, Y: 1, Z: 0}, {X: 2, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 2}, {X: 2, Y: 1, Z: 2},
		{X: 0, Y: 0, Z: 1}, {X: 2, Y: 0, Z: 1}, {X: 0, Y: 2, Z: 1}, {X: 2, Y: 2, Z: 1},
	} {
		if Eligible(ModeFrame, vol, p) {
			edges++
		}
	}
	if edges != 12 {
		t.Fatalf("expected all 12 edge cells in frame, got %d", edges)
	}
	if Eligible(ModeFrame, vol, geom.Vec3i{X: 1, Y: 0, Z: 1}) {
		t.Fatalf("face center must not be part of the frame")
	}
	if Eligible(ModeClear, vol, geom.Vec3i{}) {
		t.Fatalf("clear has no eligibility")
	}
}

func TestModeParse(t *testing.T) {
	for _, m := range []Mode{ModeClear, ModeFill, ModeWalls, ModeFrame} {
		got, err := ParseMode(" " + m.String() + " ")
		if err != nil || got != m {
			t.Fatalf("parse %s: %v %v", m, got, err)
		}
	}
	if _, err := ParseMode("dig"); err == nil {
		t.Fatalf("expected error")
	}
	if Mode(9).Valid() {
		t.Fatalf("Mode(9) must be invalid")
	}
}

func TestCursorSingleLayer(t *testing.T) {
	var c Cursor
	c.Reset(geom.NewVolume(geom.Vec3i{X: 3, Y: 5, Z: 3}, geom.Vec3i{X: 4, Y: 5, Z: 3}), -1)
	if c.Pos() != (geom.Vec3i{X: 3, Y: 5, Z: 3}) {
		t.Fatalf("unexpected start %v", c.Pos())
	}
	if c.Advance() {
		t.Fatalf("finished early")
	}
	if !c.Advance() {
		t.Fatalf("expected done after two cells")
	}
	if c.Restore(c.Volume(), geom.Vec3i{X: 9}, 1) {
		t.Fatalf("restore outside volume accepted")
	}
}
