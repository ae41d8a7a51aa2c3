package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"EsgPulse/internal/domain/models"
	domrepo "EsgPulse/internal/domain/repository"
	applogger "EsgPulse/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Preprocessing step types. Unknown types are no-ops.
const (
	StepNormalize   = "normalize"
	StepStandardize = "standardize"
	StepImpute      = "impute"
)

// zCap bounds standardized values; it doubles as the "already standardized"
// guard that keeps a second validation pass from rewriting values again.
const zCap = 5.0

// Step is one ordered preprocessing operation. Each step rewrites only the
// metric names it targets.
type Step struct {
	Type   string   `yaml:"type"`
	Fields []string `yaml:"fields"`
	// normalize bounds
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max" default:"1"`
	// standardize parameters
	Mean float64 `yaml:"mean"`
	Std  float64 `yaml:"std" default:"1"`
	// impute fill value
	Fill float64 `yaml:"fill"`
}

// Config holds the static preprocessing pipeline. Validation is purely a
// function of the input record plus this config.
type Config struct {
	Steps []Step `yaml:"steps"`
}

// Validator performs structural, type and range validation of raw records
// and applies the configured preprocessing steps.
type Validator struct {
	v       *validator.Validate
	cfg     Config
	metrics domrepo.Metrics
	l       *applogger.Logger
}

// New creates a Validator with the given preprocessing config.
func New(cfg Config, m domrepo.Metrics, l *applogger.Logger) (*Validator, error) {
	for i := range cfg.Steps {
		if err := defaults.Set(&cfg.Steps[i]); err != nil {
			return nil, fmt.Errorf("step defaults: %w", err)
		}
	}
	return &Validator{
		v:       validator.New(),
		cfg:     cfg,
		metrics: m,
		l:       l,
	}, nil
}

// Validate checks a raw record and returns its flattened, preprocessed form.
// Failures are reported as ValidationErrors carrying the full taxonomy;
// the caller corrects the input, nothing is retried here.
func (s *Validator) Validate(rec *models.RawRecord) (*models.ValidatedRecord, error) {
	if rec == nil {
		return nil, s.fail(models.ValidationErrors{{
			Code:    models.CodeMissingField,
			Field:   "record",
			Message: "record is nil",
		}})
	}

	var errs models.ValidationErrors

	// Finiteness first: a NaN/Inf numeric is a type mismatch, not a range
	// violation.
	for name, v := range flatten(rec) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, models.ValidationError{
				Code:    models.CodeTypeMismatch,
				Field:   name,
				Message: fmt.Sprintf("%s must be a finite number", name),
			})
		}
	}
	for i, sup := range rec.Suppliers {
		if sup.RiskScore != nil && (math.IsNaN(*sup.RiskScore) || math.IsInf(*sup.RiskScore, 0)) {
			errs = append(errs, models.ValidationError{
				Code:    models.CodeTypeMismatch,
				Field:   fmt.Sprintf("suppliers[%d].risk_score", i),
				Message: "risk score must be a finite number",
			})
		}
	}
	if len(errs) > 0 {
		return nil, s.fail(errs)
	}

	if err := s.v.Struct(rec); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			for _, fe := range ves {
				errs = append(errs, mapFieldError(fe))
			}
			return nil, s.fail(errs)
		}
		return nil, fmt.Errorf("validate record: %w", err)
	}

	out := &models.ValidatedRecord{
		Timestamp: *rec.Timestamp,
		Metrics:   flatten(rec),
		Suppliers: rec.Suppliers,
	}

	for _, step := range s.cfg.Steps {
		applyStep(out.Metrics, step)
	}

	if s.metrics != nil {
		s.metrics.RecordValidated()
	}
	return out, nil
}

func (s *Validator) fail(errs models.ValidationErrors) error {
	if s.metrics != nil {
		for _, e := range errs {
			s.metrics.RecordValidationFailure(e.Code)
		}
	}
	if s.l != nil {
		s.l.Debug("record rejected", applogger.Int("errors", len(errs)))
	}
	return errs
}

// flatten maps the present numeric fields of a record to canonical metric
// names. Absent fields are simply absent from the result.
func flatten(rec *models.RawRecord) map[string]float64 {
	m := make(map[string]float64, 9)
	if e := rec.Emissions; e != nil {
		if e.Scope1 != nil {
			m[models.MetricEmissionsScope1] = *e.Scope1
		}
		if e.Scope2 != nil {
			m[models.MetricEmissionsScope2] = *e.Scope2
		}
		if e.Scope3 != nil {
			m[models.MetricEmissionsScope3] = *e.Scope3
		}
		if e.Total != nil {
			m[models.MetricEmissionsTotal] = *e.Total
		}
	}
	if en := rec.Energy; en != nil {
		if en.Consumption != nil {
			m[models.MetricEnergyConsumed] = *en.Consumption
		}
		if en.Renewable != nil {
			m[models.MetricEnergyRenewable] = *en.Renewable
		}
	}
	if rec.Production != nil {
		m[models.MetricProduction] = *rec.Production
	}
	if rec.Revenue != nil {
		m[models.MetricRevenue] = *rec.Revenue
	}
	if rec.Temperature != nil {
		m[models.MetricTemperature] = *rec.Temperature
	}
	return m
}

// applyStep rewrites only the fields the step targets. Every step is
// idempotent by construction so re-validating an already preprocessed
// record changes nothing.
func applyStep(metrics map[string]float64, step Step) {
	switch step.Type {
	case StepNormalize:
		for _, f := range step.Fields {
			v, ok := metrics[f]
			if !ok {
				continue
			}
			// values already unit-scaled are left untouched
			if v >= 0 && v <= 1 {
				continue
			}
			span := step.Max - step.Min
			if span <= 0 {
				continue
			}
			scaled := (v - step.Min) / span
			metrics[f] = clamp(scaled, 0, 1)
		}
	case StepStandardize:
		for _, f := range step.Fields {
			v, ok := metrics[f]
			if !ok {
				continue
			}
			// values already inside the z band count as standardized
			if v >= -zCap && v <= zCap {
				continue
			}
			if step.Std <= 0 {
				continue
			}
			z := (v - step.Mean) / step.Std
			metrics[f] = clamp(z, -zCap, zCap)
		}
	case StepImpute:
		for _, f := range step.Fields {
			if _, ok := metrics[f]; !ok {
				metrics[f] = step.Fill
			}
		}
	default:
		// unknown step types are no-ops
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mapFieldError(fe validator.FieldError) models.ValidationError {
	field := namespaceToField(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return models.ValidationError{
			Code:    models.CodeMissingField,
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
		}
	case "gte", "lte", "gt", "lt", "min", "max":
		return models.ValidationError{
			Code:    models.CodeRangeViolation,
			Field:   field,
			Message: fmt.Sprintf("%s out of range (%s %s)", field, fe.Tag(), fe.Param()),
			Params:  map[string]interface{}{fe.Tag(): fe.Param()},
		}
	default:
		return models.ValidationError{
			Code:    models.CodeTypeMismatch,
			Field:   field,
			Message: fmt.Sprintf("%s failed validation: %s", field, fe.Tag()),
		}
	}
}

// namespaceToField turns "RawRecord.Emissions.Scope1" into
// "emissions.scope1".
func namespaceToField(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, ".")
}
