package features

import (
	"EsgPulse/internal/domain/models"
)

// domainRatios derives ESG intensity and supply-chain features. Missing
// optional inputs skip the derived feature, they are never an error.
func domainRatios(rec *models.ValidatedRecord) []models.Feature {
	out := make([]models.Feature, 0, 12)
	num := func(name string, v float64) {
		out = append(out, models.Feature{Name: name, Value: v, Kind: models.FeatureNumeric})
	}

	total, hasTotal := rec.Metric(models.MetricEmissionsTotal)
	revenue, hasRevenue := rec.Metric(models.MetricRevenue)
	energy, hasEnergy := rec.Metric(models.MetricEnergyConsumed)
	renewable, hasRenewable := rec.Metric(models.MetricEnergyRenewable)
	production, hasProduction := rec.Metric(models.MetricProduction)

	if hasTotal && hasRevenue && revenue > 0 {
		num("emissions_intensity", total/revenue)
	}
	if hasTotal && total > 0 {
		if s1, ok := rec.Metric(models.MetricEmissionsScope1); ok {
			num("scope1_ratio", s1/total)
		}
		if s2, ok := rec.Metric(models.MetricEmissionsScope2); ok {
			num("scope2_ratio", s2/total)
		}
		if s3, ok := rec.Metric(models.MetricEmissionsScope3); ok {
			num("scope3_ratio", s3/total)
		}
	}
	if hasProduction && hasEnergy && energy > 0 {
		num("energy_efficiency", production/energy)
	}
	if hasRenewable && hasEnergy && energy > 0 {
		num("renewable_percentage", renewable/energy*100)
	}
	if hasEnergy && hasRevenue && revenue > 0 {
		num("energy_intensity", energy/revenue)
	}

	if n := len(rec.Suppliers); n > 0 {
		scored := 0
		riskSum := 0.0
		locations := make(map[string]bool, n)
		for _, s := range rec.Suppliers {
			if s.RiskScore != nil {
				riskSum += *s.RiskScore
				scored++
			}
			if s.Location != "" {
				locations[s.Location] = true
			}
		}
		if scored > 0 {
			num("supply_chain_risk", riskSum/float64(scored))
		}
		num("supplier_count", float64(n))
		num("geographic_diversity", float64(len(locations))/float64(n))
	}

	return out
}
