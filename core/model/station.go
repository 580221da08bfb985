package model

import "fmt"

// ChargerConfig describes one physical charger. MaxPower is shared across all
// of its connectors; Connectors is the number of 1-based connector slots.
type ChargerConfig struct {
	ID         string  `json:"id"`
	MaxPower   float64 `json:"max_power"`
	Connectors int     `json:"connectors"`
}

// Validate checks that the charger configuration is internally consistent.
func (c ChargerConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("charger: id is required")
	}
	if c.MaxPower <= 0 {
		return fmt.Errorf("charger %s: max_power must be positive", c.ID)
	}
	if c.Connectors <= 0 {
		return fmt.Errorf("charger %s: connectors must be positive", c.ID)
	}
	return nil
}

// BatteryConfig describes a stationary BESS. Power is symmetric: it bounds
// both charge and discharge.
type BatteryConfig struct {
	Capacity float64 `json:"capacity"` // kWh
	Power    float64 `json:"power"`    // kW
}

// Validate checks that the battery configuration is internally consistent.
func (b BatteryConfig) Validate() error {
	if b.Capacity < 0 || b.Power < 0 {
		return fmt.Errorf("battery: capacity and power must be non-negative")
	}
	return nil
}

// StationConfig is the immutable configuration of a charging station: its
// grid import limit, the chargers it exposes, and an optional battery.
type StationConfig struct {
	StationID    string          `json:"station_id"`
	GridCapacity float64         `json:"grid_capacity"` // kW
	Chargers     []ChargerConfig `json:"chargers"`
	Battery      *BatteryConfig  `json:"battery,omitempty"`
}

// Validate checks the station configuration and every charger it carries.
func (s StationConfig) Validate() error {
	if s.StationID == "" {
		return fmt.Errorf("station: station_id is required")
	}
	if s.GridCapacity <= 0 {
		return fmt.Errorf("station %s: grid_capacity must be positive", s.StationID)
	}
	seen := make(map[string]struct{}, len(s.Chargers))
	for _, c := range s.Chargers {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, ok := seen[c.ID]; ok {
			return fmt.Errorf("station %s: duplicate charger id %s", s.StationID, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	if s.Battery != nil {
		if err := s.Battery.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ChargerByID returns the charger configuration with the given id.
func (s StationConfig) ChargerByID(id string) (ChargerConfig, bool) {
	for _, c := range s.Chargers {
		if c.ID == id {
			return c, true
		}
	}
	return ChargerConfig{}, false
}

// ValidConnector reports whether connectorID is a valid 1-based connector on
// the given charger.
func (c ChargerConfig) ValidConnector(connectorID int) bool {
	return connectorID >= 1 && connectorID <= c.Connectors
}
