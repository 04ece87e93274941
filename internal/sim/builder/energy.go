package builder

// EnergyLedger holds a bounded, non-negative charge in SCU.
type EnergyLedger struct {
	charge     float64
	maxCharge  float64
	chargeRate float64
}

func NewEnergyLedger(maxCharge, chargeRate float64) *EnergyLedger {
	if maxCharge < 0 {
		maxCharge = 0
	}
	if chargeRate < 0 {
		chargeRate = 0
	}
	return &EnergyLedger{maxCharge: maxCharge, chargeRate: chargeRate}
}

func (e *EnergyLedger) Charge() float64     { return e.charge }
func (e *EnergyLedger) MaxCharge() float64  { return e.maxCharge }
func (e *EnergyLedger) ChargeRate() float64 { return e.chargeRate }

func (e *EnergyLedger) CanAfford(cost float64) bool { return cost <= e.charge }

// Debit removes cost. Callers check CanAfford first; an overdraw is refused.
func (e *EnergyLedger) Debit(cost float64) bool {
	if cost <= 0 {
		return true
	}
	if cost > e.charge {
		return false
	}
	e.charge -= cost
	return true
}

// Recharge adds up to amount and returns how much was accepted.
func (e *EnergyLedger) Recharge(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	room := e.maxCharge - e.charge
	if amount > room {
		amount = room
	}
	e.charge += amount
	return amount
}

// SetCharge clamps v into [0, max].
func (e *EnergyLedger) SetCharge(v float64) {
	switch {
	case v < 0:
		v = 0
	case v > e.maxCharge:
		v = e.maxCharge
	}
	e.charge = v
}
