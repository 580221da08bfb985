// Package allocator computes a proportional-fair, constraint-respecting
// power allocation across a station's active sessions and drives the
// station's battery from the result. It is a pure function of its inputs:
// it holds no state of its own between calls.
package allocator

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/stationcore/core/bess"
	"github.com/kilianp07/stationcore/core/logger"
	"github.com/kilianp07/stationcore/core/model"
)

const (
	staticLoad              = 3.0  // kW, station auxiliary draw
	safetyMargin            = 5.0  // kW, headroom below grid capacity
	maxIterations           = 20
	convergenceThresholdKw  = 0.01
	binarySearchIterations  = 15
	epsilon                 = 1e-3 // kW, floor to avoid division/log collapse
	bessUpdateWindowSeconds = 300
	bessChargeThreshold     = 0.7 // fraction of gridCapacity below which we valley-fill
)

// Battery is the capability the allocator needs from a battery controller.
// core/bess.Controller implements this.
type Battery interface {
	IsAvailable() bool
	AvailableDischarge() float64
	Discharge(requestedKw, durationSec float64, now time.Time) float64
	Charge(requestedKw, durationSec float64, now time.Time) float64
	SetIdle(now time.Time)
}

var _ Battery = (*bess.Controller)(nil)

// Allocator computes power allocations. It carries no mutable state; every
// field is read-only configuration or a collaborator.
type Allocator struct {
	station model.StationConfig
	battery Battery
	log     logger.Logger
}

// New constructs an Allocator bound to a station configuration and an
// optional battery (nil if the station has none).
func New(station model.StationConfig, battery Battery, log logger.Logger) *Allocator {
	return &Allocator{station: station, battery: battery, log: log}
}

// Result is the output of one recomputation: the per-session allocation and
// the realized station load used to drive the battery.
type Result struct {
	Allocations  map[string]float64
	RealizedLoad float64
	BudgetTotal  float64
}

// Recompute implements the allocation algorithm: water-fill across the
// snapshot, per-charger capping, a global rescale, write-back, and a
// battery policy decision. It never fails; degenerate inputs yield all-zero
// allocations and an idled battery.
func (a *Allocator) Recompute(snapshot []model.Snapshot, now time.Time) Result {
	gridBudget := a.station.GridCapacity - staticLoad - safetyMargin
	if gridBudget < 0 {
		gridBudget = 0
	}

	bessBudget := 0.0
	if a.battery != nil && a.battery.IsAvailable() {
		bessBudget = a.battery.AvailableDischarge()
	}
	totalBudget := gridBudget + bessBudget

	if len(snapshot) == 0 {
		if a.battery != nil {
			a.battery.SetIdle(now)
		}
		return Result{Allocations: map[string]float64{}, RealizedLoad: staticLoad, BudgetTotal: totalBudget}
	}

	ids := make([]string, len(snapshot))
	caps := make([]float64, len(snapshot))
	for i, s := range snapshot {
		ids[i] = s.ID
		caps[i] = s.VehicleMaxPower
	}

	var alloc []float64
	if totalBudget <= 0 {
		alloc = make([]float64, len(snapshot))
	} else {
		alloc = waterFill(caps, totalBudget)
	}

	alloc = a.enforceChargerCaps(snapshot, alloc)
	alloc = rescaleToFit(alloc, totalBudget)

	allocations := make(map[string]float64, len(snapshot))
	realized := staticLoad
	for i, id := range ids {
		allocations[id] = alloc[i]
		realized += alloc[i]
	}

	// Zero budget or all-zero vehicle caps are a degenerate input, not a
	// valley, so the battery idles rather than running the normal
	// peak-shave/valley-fill policy.
	if totalBudget <= 0 || floats.Sum(caps) <= 0 {
		if a.battery != nil {
			a.battery.SetIdle(now)
		}
	} else {
		a.driveBess(realized, now)
	}

	return Result{Allocations: allocations, RealizedLoad: realized, BudgetTotal: totalBudget}
}

// waterFill implements the proportional-fair allocation of spec step 2:
// maximize Σ log(a_i) subject to Σ a_i ≤ targetTotal and 0 ≤ a_i ≤ cap_i,
// via iterative binary search on the water level λ. The first pass searches
// λ over [0, targetTotal·1000]; later passes start from the previous pass's
// allocation, whose λ is near 1, and search [0, 2] so the bracket resolves it.
func waterFill(caps []float64, targetTotal float64) []float64 {
	n := len(caps)
	a := make([]float64, n)
	for i := range a {
		a[i] = epsilon
	}

	for iter := 0; iter < maxIterations; iter++ {
		lo, hi := 0.0, targetTotal*1000.0
		if iter > 0 {
			hi = 2.0
		}
		if hi <= 0 {
			hi = 1.0
		}

		var mid float64
		trial := make([]float64, n)
		for step := 0; step < binarySearchIterations; step++ {
			mid = (lo + hi) / 2
			sum := 0.0
			for i, weightBase := range a {
				v := mid * weightBase
				if v > caps[i] {
					v = caps[i]
				}
				if v < 0 {
					v = 0
				}
				trial[i] = v
				sum += v
			}
			if sum < targetTotal {
				lo = mid
			} else {
				hi = mid
			}
		}

		maxDelta := 0.0
		for i := range a {
			v := mid * a[i]
			if v > caps[i] {
				v = caps[i]
			}
			if v < epsilon {
				v = epsilon
			}
			delta := v - a[i]
			if delta < 0 {
				delta = -delta
			}
			if delta > maxDelta {
				maxDelta = delta
			}
			a[i] = v
		}

		if maxDelta < convergenceThresholdKw {
			break
		}
	}

	// The epsilon floor only seeds the iteration; the result respects caps.
	for i := range a {
		if a[i] > caps[i] {
			a[i] = caps[i]
		}
		if a[i] < 0 {
			a[i] = 0
		}
	}
	return a
}

// enforceChargerCaps scales down, per charger, the sessions whose combined
// allocation exceeds that charger's maxPower.
func (a *Allocator) enforceChargerCaps(snapshot []model.Snapshot, alloc []float64) []float64 {
	byCharger := make(map[string][]int)
	for i, s := range snapshot {
		byCharger[s.ChargerID] = append(byCharger[s.ChargerID], i)
	}

	out := append([]float64(nil), alloc...)
	for chargerID, idxs := range byCharger {
		charger, ok := a.station.ChargerByID(chargerID)
		if !ok {
			if a.log != nil {
				a.log.Warnf("allocator: unknown charger %s in session snapshot, skipping cap", chargerID)
			}
			continue
		}

		sum := 0.0
		for _, i := range idxs {
			sum += out[i]
		}
		if sum > charger.MaxPower && sum > 0 {
			scale := charger.MaxPower / sum
			for _, i := range idxs {
				out[i] *= scale
			}
		}
	}
	return out
}

// rescaleToFit enforces the global budget cap: if the total exceeds budget,
// scale every allocation down uniformly.
func rescaleToFit(alloc []float64, budget float64) []float64 {
	total := floats.Sum(alloc)
	if budget <= 0 {
		return make([]float64, len(alloc))
	}
	if total <= budget {
		return alloc
	}
	scale := budget / total
	out := make([]float64, len(alloc))
	for i, v := range alloc {
		out[i] = v * scale
	}
	return out
}

// driveBess implements step 6: peak-shave, valley-fill, or idle, based on
// the realized station load.
func (a *Allocator) driveBess(realizedLoad float64, now time.Time) {
	if a.battery == nil {
		return
	}

	gridCapacity := a.station.GridCapacity
	switch {
	case realizedLoad > gridCapacity:
		a.battery.Discharge(realizedLoad-gridCapacity, bessUpdateWindowSeconds, now)
	case realizedLoad < bessChargeThreshold*gridCapacity:
		a.battery.Charge((gridCapacity-realizedLoad)*0.5, bessUpdateWindowSeconds, now)
	default:
		a.battery.SetIdle(now)
	}
}
