package models

import "time"

// Canonical metric names produced by flattening a validated record.
// Feature engineering and preprocessing address fields by these names.
const (
	MetricEmissionsScope1 = "emissions_scope1"
	MetricEmissionsScope2 = "emissions_scope2"
	MetricEmissionsScope3 = "emissions_scope3"
	MetricEmissionsTotal  = "emissions_total"
	MetricEnergyConsumed  = "energy_consumption"
	MetricEnergyRenewable = "energy_renewable"
	MetricProduction      = "production_volume"
	MetricRevenue         = "revenue"
	MetricTemperature     = "temperature"
)

// EmissionsData groups the greenhouse-gas emissions fields of a record.
// All values are in tCO2e. Scope1 is direct, Scope2 energy-indirect,
// Scope3 value-chain.
type EmissionsData struct {
	Scope1 *float64 `validate:"omitempty,gte=0"`
	Scope2 *float64 `validate:"omitempty,gte=0"`
	Scope3 *float64 `validate:"omitempty,gte=0"`
	Total  *float64 `validate:"omitempty,gte=0"`
}

// EnergyData groups energy consumption fields (MWh).
type EnergyData struct {
	Consumption *float64 `validate:"omitempty,gte=0"`
	Renewable   *float64 `validate:"omitempty,gte=0"`
}

// Supplier describes one supply-chain entry on a record.
type Supplier struct {
	Name      string
	Location  string
	RiskScore *float64 `validate:"omitempty,gte=0,lte=100"`
}

// RawRecord is the sparse input shape supplied by the application layer.
// Only Timestamp is structurally required; every other field may be absent
// and consumers pattern-match on presence.
type RawRecord struct {
	Timestamp   *time.Time `validate:"required"`
	Emissions   *EmissionsData
	Energy      *EnergyData
	Production  *float64 `validate:"omitempty,gte=0"`
	Revenue     *float64 `validate:"omitempty,gte=0"`
	Temperature *float64 `validate:"omitempty,gte=-50,lte=50"`
	Suppliers   []Supplier
}

// ValidatedRecord is the flattened, range-checked form of a RawRecord after
// preprocessing. Metrics holds only the numeric fields that were present on
// the input, keyed by the Metric* constants.
type ValidatedRecord struct {
	Timestamp time.Time
	Metrics   map[string]float64
	Suppliers []Supplier
}

// Metric returns the named metric and whether it was present on the input.
func (r *ValidatedRecord) Metric(name string) (float64, bool) {
	v, ok := r.Metrics[name]
	return v, ok
}
