package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	WorldHeight        int `yaml:"world_height"`
	BoundaryR          int `yaml:"boundary_r"`

	Builder Builder `yaml:"builder"`
}

// Builder holds the per-machine defaults applied to every registered builder.
type Builder struct {
	SCUPerOp    float64 `yaml:"scu_per_op"`
	MaxCharge   float64 `yaml:"max_charge"`
	ChargeRate  float64 `yaml:"charge_rate"`
	MaxDistance int     `yaml:"max_distance"`
	InputSlots  int     `yaml:"input_slots"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         5,
		SnapshotEveryTicks: 3000,
		WorldHeight:        64,
		BoundaryR:          512,
		Builder: Builder{
			SCUPerOp:    1,
			MaxCharge:   10000,
			ChargeRate:  50,
			MaxDistance: 5,
			InputSlots:  10,
		},
	}
}

// Load reads path over Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0")
	case t.SnapshotEveryTicks < 0:
		return fmt.Errorf("snapshot_every_ticks must be >= 0")
	case t.WorldHeight <= 0 || t.WorldHeight > 4096:
		return fmt.Errorf("world_height out of range: %d", t.WorldHeight)
	case t.BoundaryR <= 0:
		return fmt.Errorf("boundary_r must be > 0")
	case t.Builder.SCUPerOp <= 0:
		return fmt.Errorf("builder.scu_per_op must be > 0")
	case t.Builder.MaxCharge <= 0:
		return fmt.Errorf("builder.max_charge must be > 0")
	case t.Builder.ChargeRate < 0:
		return fmt.Errorf("builder.charge_rate must be >= 0")
	case t.Builder.MaxDistance < 0:
		return fmt.Errorf("builder.max_distance must be >= 0")
	case t.Builder.InputSlots <= 0:
		return fmt.Errorf("builder.input_slots must be > 0")
	}
	return nil
}
