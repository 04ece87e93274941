package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voxelbuilder.ai/internal/sim/geom"
	"voxelbuilder.ai/internal/sim/world"
	"voxelbuilder.ai/internal/sim/world/permissions"
)

// Scenario is the seed content of a fresh world.
type Scenario struct {
	WorldID  string            `yaml:"world_id"`
	Seed     int64             `yaml:"seed"`
	Markers  []ScenarioMarker  `yaml:"markers"`
	Claims   []ScenarioClaim   `yaml:"claims"`
	Builders []ScenarioBuilder `yaml:"builders"`
}

type ScenarioMarker struct {
	Ref   string `yaml:"ref"`
	World string `yaml:"world"`
	Pos   []int  `yaml:"pos"`
}

type ScenarioClaim struct {
	LandID     string   `yaml:"land_id"`
	Owner      string   `yaml:"owner"`
	Min        []int    `yaml:"min"`
	Max        []int    `yaml:"max"`
	AllowBuild bool     `yaml:"allow_build"`
	AllowBreak bool     `yaml:"allow_break"`
	Members    []string `yaml:"members"`
}

type ScenarioBuilder struct {
	ID         string          `yaml:"id"`
	Owner      string          `yaml:"owner"`
	Pos        []int           `yaml:"pos"`
	Mode       string          `yaml:"mode"`
	Markers    []string        `yaml:"markers"`
	Materials  []ScenarioStack `yaml:"materials"`
	Charge     float64         `yaml:"charge"`
	MaxCharge  float64         `yaml:"max_charge"`
	ChargeRate float64         `yaml:"charge_rate"`
	Powered    *bool           `yaml:"powered"`
	Start      bool            `yaml:"start"`
}

type ScenarioStack struct {
	Material string `yaml:"material"`
	Count    int    `yaml:"count"`
}

func LoadScenario(path string) (Scenario, error) {
	var s Scenario
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("scenario: %w", err)
	}
	return s, s.validate()
}

func (s Scenario) validate() error {
	for _, m := range s.Markers {
		if m.Ref == "" || len(m.Pos) != 3 {
			return fmt.Errorf("scenario: marker %q needs ref and pos [x,y,z]", m.Ref)
		}
	}
	for _, c := range s.Claims {
		if c.LandID == "" || len(c.Min) != 3 || len(c.Max) != 3 {
			return fmt.Errorf("scenario: claim %q needs land_id, min and max", c.LandID)
		}
	}
	for _, b := range s.Builders {
		if b.ID == "" || len(b.Pos) != 3 {
			return fmt.Errorf("scenario: builder %q needs id and pos [x,y,z]", b.ID)
		}
		if len(b.Markers) > 2 {
			return fmt.Errorf("scenario: builder %s has %d markers, max 2", b.ID, len(b.Markers))
		}
	}
	return nil
}

func vec(p []int) geom.Vec3i { return geom.Vec3i{X: p[0], Y: p[1], Z: p[2]} }

// Apply seeds w. It must run before the world loop starts.
func (s Scenario) Apply(w *world.World) error {
	for _, m := range s.Markers {
		res := w.Apply(world.Command{Kind: world.CmdMarkLocation, Ref: m.Ref, WorldID: m.World, Pos: vec(m.Pos).ToArray()})
		if res.Err != nil {
			return fmt.Errorf("marker %s: %w", m.Ref, res.Err)
		}
	}
	for _, c := range s.Claims {
		members := map[string]bool{}
		for _, id := range c.Members {
			members[id] = true
		}
		w.PutClaim(&permissions.Claim{
			LandID:  c.LandID,
			Owner:   c.Owner,
			Area:    geom.NewVolume(vec(c.Min), vec(c.Max)),
			Flags:   permissions.Flags{AllowBuild: c.AllowBuild, AllowBreak: c.AllowBreak},
			Members: members,
		})
	}
	for _, sb := range s.Builders {
		if err := sb.apply(w); err != nil {
			return fmt.Errorf("builder %s: %w", sb.ID, err)
		}
	}
	return nil
}

func (sb ScenarioBuilder) apply(w *world.World) error {
	if _, err := w.AddBuilder(world.BuilderSpec{
		ID:         sb.ID,
		Owner:      sb.Owner,
		Pos:        vec(sb.Pos),
		MaxCharge:  sb.MaxCharge,
		ChargeRate: sb.ChargeRate,
	}); err != nil {
		return err
	}
	cmds := []world.Command{}
	if sb.Mode != "" {
		cmds = append(cmds, world.Command{Kind: world.CmdSetMode, Mode: sb.Mode})
	}
	for i, ref := range sb.Markers {
		cmds = append(cmds, world.Command{Kind: world.CmdSetMarker, Slot: i, Ref: ref})
	}
	for _, st := range sb.Materials {
		cmds = append(cmds, world.Command{Kind: world.CmdInsertMaterial, Material: st.Material, Count: st.Count})
	}
	if sb.Charge > 0 {
		cmds = append(cmds, world.Command{Kind: world.CmdRecharge, Amount: sb.Charge})
	}
	if sb.Powered != nil {
		cmds = append(cmds, world.Command{Kind: world.CmdSetPowered, Powered: *sb.Powered})
	}
	if sb.Start {
		cmds = append(cmds, world.Command{Kind: world.CmdStart})
	}
	for _, c := range cmds {
		c.BuilderID = sb.ID
		if res := w.Apply(c); res.Err != nil {
			return fmt.Errorf("%s: %w", c.Kind, res.Err)
		}
	}
	return nil
}
