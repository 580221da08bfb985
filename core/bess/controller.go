// Package bess models a single stationary battery: state of charge, a
// safety envelope, and a peak-shave/valley-fill policy. It has no knowledge
// of charging sessions.
package bess

import (
	"sync"
	"time"
)

const (
	minSocFraction            = 0.10
	maxSocFraction            = 0.95
	emergencyFraction         = 0.05
	sustainabilityWindowHours = 0.25
)

// Config is the immutable physical description of the battery.
type Config struct {
	Capacity float64 // kWh
	Power    float64 // kW, symmetric max charge/discharge
}

// Controller owns the battery's mutable state and enforces its safety
// envelope. Soc and currentPower are guarded by mu so that concurrent
// discharge/charge requests serialize with respect to the soc floor/ceiling.
type Controller struct {
	mu sync.Mutex

	capacity float64
	power    float64

	soc          float64
	currentPower float64
	lastUpdate   time.Time
}

// New constructs a Controller starting at full charge, as required for
// startup state.
func New(cfg Config, now time.Time) *Controller {
	return &Controller{
		capacity:   cfg.Capacity,
		power:      cfg.Power,
		soc:        cfg.Capacity,
		lastUpdate: now,
	}
}

// IsAvailable reports whether the battery can be used at all.
func (c *Controller) IsAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity > 0 && c.power > 0
}

// State is an immutable snapshot of the battery for reporting.
type State struct {
	Soc          float64
	Capacity     float64
	MaxPower     float64
	CurrentPower float64
	LastUpdate   time.Time
}

// Snapshot returns a consistent copy of the battery's state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Soc:          c.soc,
		Capacity:     c.capacity,
		MaxPower:     c.power,
		CurrentPower: c.currentPower,
		LastUpdate:   c.lastUpdate,
	}
}

// AvailableDischarge returns the power the battery can currently sustain
// discharging, capped so that it could be sustained over the
// sustainability window given the energy available above the soc floor.
func (c *Controller) AvailableDischarge() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.availableDischargeLocked()
}

func (c *Controller) availableDischargeLocked() float64 {
	if c.capacity <= 0 || c.power <= 0 {
		return 0
	}
	floor := minSocFraction * c.capacity
	if c.soc <= floor {
		return 0
	}
	avail := (c.soc - floor) / sustainabilityWindowHours
	if avail > c.power {
		avail = c.power
	}
	if avail < 0 {
		return 0
	}
	return avail
}

// AvailableCharge returns the power the battery can currently sustain
// absorbing, symmetric to AvailableDischarge about the soc ceiling.
func (c *Controller) AvailableCharge() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.availableChargeLocked()
}

func (c *Controller) availableChargeLocked() float64 {
	if c.capacity <= 0 || c.power <= 0 {
		return 0
	}
	ceiling := maxSocFraction * c.capacity
	if c.soc >= ceiling {
		return 0
	}
	avail := (ceiling - c.soc) / sustainabilityWindowHours
	if avail > c.power {
		avail = c.power
	}
	if avail < 0 {
		return 0
	}
	return avail
}

// Discharge requests the battery supply requestedKw for durationSec seconds
// and returns the power actually applied. Non-positive requests return 0
// and leave state unchanged.
func (c *Controller) Discharge(requestedKw float64, durationSec float64, now time.Time) float64 {
	if requestedKw <= 0 || durationSec <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	actual := requestedKw
	if avail := c.availableDischargeLocked(); actual > avail {
		actual = avail
	}
	if actual <= 0 {
		return 0
	}

	floor := minSocFraction * c.capacity
	energy := actual * (durationSec / 3600.0)
	newSoc := c.soc - energy
	if newSoc < floor {
		newSoc = floor
		energy = c.soc - floor
		if energy < 0 {
			energy = 0
		}
		actual = energy / (durationSec / 3600.0)
	}
	c.soc = newSoc
	c.currentPower = actual
	c.lastUpdate = now
	return actual
}

// Charge is the symmetric counterpart of Discharge.
func (c *Controller) Charge(requestedKw float64, durationSec float64, now time.Time) float64 {
	if requestedKw <= 0 || durationSec <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	actual := requestedKw
	if avail := c.availableChargeLocked(); actual > avail {
		actual = avail
	}
	if actual <= 0 {
		return 0
	}

	ceiling := maxSocFraction * c.capacity
	energy := actual * (durationSec / 3600.0)
	newSoc := c.soc + energy
	if newSoc > ceiling {
		newSoc = ceiling
		energy = ceiling - c.soc
		if energy < 0 {
			energy = 0
		}
		actual = energy / (durationSec / 3600.0)
	}
	c.soc = newSoc
	c.currentPower = -actual
	c.lastUpdate = now
	return actual
}

// SetIdle records that the battery is neither charging nor discharging.
func (c *Controller) SetIdle(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentPower = 0
	c.lastUpdate = now
}

// IsEmergencyState reports whether the battery has dropped to or below its
// emergency floor. It documents a condition; callers decide what to do.
func (c *Controller) IsEmergencyState() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capacity <= 0 || c.power <= 0 {
		return false
	}
	return c.soc <= emergencyFraction*c.capacity
}

// CalculateOptimalPower recommends a peak-shave discharge, a valley-fill
// charge, or idle, given the current grid load and capacity. Positive
// return values are a discharge recommendation; negative are charge.
func (c *Controller) CalculateOptimalPower(gridLoad, gridCapacity, safetyMargin float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	effectiveCap := gridCapacity - safetyMargin
	if gridLoad > effectiveCap {
		need := gridLoad - effectiveCap
		avail := c.availableDischargeLocked()
		if need > avail {
			need = avail
		}
		return need
	}

	surplus := effectiveCap - gridLoad
	if surplus > 10 {
		want := surplus * 0.5
		avail := c.availableChargeLocked()
		if want > avail {
			want = avail
		}
		return -want
	}
	return 0
}
