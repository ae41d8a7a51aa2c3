package models

// Detection method names reported on AnomalyResult.
const (
	MethodEnsemble        = "ensemble"
	MethodIsolationForest = "isolation_forest"
	MethodReconstruction  = "autoencoder"
)

// AnomalyResult is one scored input. Score is always in [0,1].
type AnomalyResult struct {
	Score     float64
	IsAnomaly bool
	Method    string
}
