package models

import "time"

// ExperimentRecord is one append-only training history entry. Records are
// observability data only and never feed correctness decisions.
type ExperimentRecord struct {
	ID        string
	ModelID   string
	Family    ModelFamily
	Config    ModelConfig
	Metrics   ModelMetrics
	Timestamp time.Time
}
