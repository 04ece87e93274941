package permissions

import (
	"sort"

	"voxelbuilder.ai/internal/sim/geom"
)

type Flags struct {
	AllowBuild bool
	AllowBreak bool
}

type Permissions struct {
	CanBuild bool
	CanBreak bool
}

func WildPermissions() Permissions {
	return Permissions{CanBuild: true, CanBreak: true}
}

// ForLand resolves what an actor may do inside a claim.
func ForLand(isMember bool, flags Flags) Permissions {
	if isMember {
		return Permissions{CanBuild: true, CanBreak: true}
	}
	return Permissions{CanBuild: flags.AllowBuild, CanBreak: flags.AllowBreak}
}

type Claim struct {
	LandID  string
	Owner   string
	Area    geom.Volume
	Flags   Flags
	Members map[string]bool
}

func (c *Claim) IsMember(actor string) bool {
	return actor != "" && (actor == c.Owner || c.Members[actor])
}

// Registry holds the land claims of one world.
type Registry struct {
	claims map[string]*Claim
}

func NewRegistry() *Registry {
	return &Registry{claims: map[string]*Claim{}}
}

func (r *Registry) Put(c *Claim) {
	if c.Members == nil {
		c.Members = map[string]bool{}
	}
	r.claims[c.LandID] = c
}

func (r *Registry) Remove(landID string) { delete(r.claims, landID) }

func (r *Registry) Get(landID string) *Claim { return r.claims[landID] }

// All returns claims sorted by land id.
func (r *Registry) All() []*Claim {
	out := make([]*Claim, 0, len(r.claims))
	for _, c := range r.claims {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LandID < out[j].LandID })
	return out
}

// At returns the claim covering pos. Overlaps resolve to the lowest land id.
func (r *Registry) At(pos geom.Vec3i) *Claim {
	var best *Claim
	for _, c := range r.claims {
		if !c.Area.Contains(pos) {
			continue
		}
		if best == nil || c.LandID < best.LandID {
			best = c
		}
	}
	return best
}

func (r *Registry) For(actor string, pos geom.Vec3i) Permissions {
	c := r.At(pos)
	if c == nil {
		return WildPermissions()
	}
	return ForLand(c.IsMember(actor), c.Flags)
}

func (r *Registry) CanBreak(actor string, pos geom.Vec3i) bool { return r.For(actor, pos).CanBreak }
func (r *Registry) CanPlace(actor string, pos geom.Vec3i) bool { return r.For(actor, pos).CanBuild }
