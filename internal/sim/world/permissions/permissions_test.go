package permissions

import (
	"testing"

	"voxelbuilder.ai/internal/sim/geom"
)

func TestForLand(t *testing.T) {
	flags := Flags{AllowBuild: false, AllowBreak: true}

	member := ForLand(true, flags)
	if !member.CanBuild || !member.CanBreak {
		t.Fatalf("member permissions mismatch: %+v", member)
	}

	visitor := ForLand(false, flags)
	if visitor.CanBuild || !visitor.CanBreak {
		t.Fatalf("visitor permissions mismatch: %+v", visitor)
	}
}

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry()
	r.Put(&Claim{
		LandID:  "L2",
		Owner:   "alice",
		Area:    geom.NewVolume(geom.Vec3i{}, geom.Vec3i{X: 9, Y: 9, Z: 9}),
		Members: map[string]bool{"bob": true},
	})
	r.Put(&Claim{
		LandID: "L1",
		Owner:  "carol",
		Area:   geom.NewVolume(geom.Vec3i{X: 5}, geom.Vec3i{X: 20, Y: 9, Z: 9}),
		Flags:  Flags{AllowBuild: true},
	})

	if c := r.At(geom.Vec3i{X: 6, Y: 1, Z: 1}); c == nil || c.LandID != "L1" {
		t.Fatalf("overlap must resolve to the lowest id, got %+v", c)
	}
	if !r.CanBreak("bob", geom.Vec3i{X: 1}) || !r.CanPlace("alice", geom.Vec3i{X: 1}) {
		t.Fatalf("members must be allowed")
	}
	if r.CanBreak("eve", geom.Vec3i{X: 1}) || r.CanPlace("eve", geom.Vec3i{X: 1}) {
		t.Fatalf("outsider allowed on closed land")
	}
	if !r.CanPlace("eve", geom.Vec3i{X: 15}) || r.CanBreak("eve", geom.Vec3i{X: 15}) {
		t.Fatalf("flags not honored")
	}
	if !r.CanBreak("eve", geom.Vec3i{X: 50}) {
		t.Fatalf("wild land must be open")
	}
	if len(r.All()) != 2 || r.All()[0].LandID != "L1" {
		t.Fatalf("All must sort by id")
	}
	r.Remove("L1")
	if r.Get("L1") != nil {
		t.Fatalf("remove failed")
	}
}
