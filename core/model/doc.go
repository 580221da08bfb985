// Package model defines the shared data types for the charging station
// control core: station/charger/battery configuration, the charging
// session, and the domain errors returned by the registry.
package model
