// Package config loads and validates the two configuration surfaces of the
// engine: the scoring configuration (weights, elimination criteria, threshold
// tables) from a YAML file, and service settings (logging, HTTP, Kafka,
// worker count) from environment variables.
//
// Scoring configuration is validated once at load time and passed into each
// component as an immutable value; nothing reads it from ambient state. A
// ValidationError is fatal and must prevent any candidate from being
// processed.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/bess-site-scout/internal/domain"
)

// weightSumTolerance is the permitted floating-point slack when checking
// that factor weights sum to 1.0.
const weightSumTolerance = 1e-6

// ValidationError describes a fatal configuration problem, surfaced before
// any candidate is processed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Severity tags an elimination criterion. ELIMINATE removes the candidate
// from ranking; WARNING only appends a risk flag.
type Severity string

const (
	SeverityEliminate Severity = "ELIMINATE"
	SeverityWarning   Severity = "WARNING"
)

func (s Severity) valid() bool {
	return s == SeverityEliminate || s == SeverityWarning
}

// Weights maps each scoring factor to its share of the composite. All
// weights must lie in (0,1] and sum to 1.0 within tolerance.
type Weights struct {
	Proximity     float64 `yaml:"proximity"`
	Voltage       float64 `yaml:"voltage"`
	Environmental float64 `yaml:"environmental"`
	LandCost      float64 `yaml:"land_cost"`
	ParcelSize    float64 `yaml:"parcel_size"`
	FloodRisk     float64 `yaml:"flood_risk"`
	GridDensity   float64 `yaml:"grid_density"`
	SolarResource float64 `yaml:"solar_resource"`
}

// Sum returns the total of all factor weights.
func (w Weights) Sum() float64 {
	return w.Proximity + w.Voltage + w.Environmental + w.LandCost +
		w.ParcelSize + w.FloodRisk + w.GridDensity + w.SolarResource
}

func (w Weights) validate() error {
	factors := map[string]float64{
		"proximity":      w.Proximity,
		"voltage":        w.Voltage,
		"environmental":  w.Environmental,
		"land_cost":      w.LandCost,
		"parcel_size":    w.ParcelSize,
		"flood_risk":     w.FloodRisk,
		"grid_density":   w.GridDensity,
		"solar_resource": w.SolarResource,
	}
	for name, v := range factors {
		if v <= 0 || v > 1 {
			return &ValidationError{
				Field:  "weights." + name,
				Reason: fmt.Sprintf("weight %g outside (0,1]", v),
			}
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return &ValidationError{
			Field:  "weights",
			Reason: fmt.Sprintf("weights sum to %.6f, must sum to 1.0", sum),
		}
	}
	return nil
}

// Criteria names the elimination predicates and their severities. Severity
// defaults follow the original screening policy; any can be downgraded to
// WARNING or upgraded to ELIMINATE per deployment.
type Criteria struct {
	CriticalHabitatOverlap Severity `yaml:"critical_habitat_overlap"`
	NPLWithinQuarterMile   Severity `yaml:"npl_within_quarter_mile"`
	InSFHA                 Severity `yaml:"in_sfha"`
	HighRiskFloodZone      Severity `yaml:"high_risk_flood_zone"`
}

func (c Criteria) validate() error {
	checks := map[string]Severity{
		"critical_habitat_overlap": c.CriticalHabitatOverlap,
		"npl_within_quarter_mile":  c.NPLWithinQuarterMile,
		"in_sfha":                  c.InSFHA,
		"high_risk_flood_zone":     c.HighRiskFloodZone,
	}
	for name, sev := range checks {
		if !sev.valid() {
			return &ValidationError{
				Field:  "criteria." + name,
				Reason: fmt.Sprintf("severity %q must be ELIMINATE or WARNING", sev),
			}
		}
	}
	return nil
}

// Assembly configures the candidate assembler.
type Assembly struct {
	SearchRadiusMiles       float64 `yaml:"search_radius_miles"`
	MinVoltageClass         string  `yaml:"min_voltage_class"`
	MinConnectedLines       int     `yaml:"min_connected_lines"`
	SyntheticFootprintAcres float64 `yaml:"synthetic_footprint_acres"`
}

func (a Assembly) validate() error {
	if a.SearchRadiusMiles <= 0 {
		return &ValidationError{Field: "assembly.search_radius_miles", Reason: "must be positive"}
	}
	if !knownVoltageClass(a.MinVoltageClass) {
		return &ValidationError{
			Field:  "assembly.min_voltage_class",
			Reason: fmt.Sprintf("unknown voltage class %q", a.MinVoltageClass),
		}
	}
	if a.SyntheticFootprintAcres <= 0 {
		return &ValidationError{Field: "assembly.synthetic_footprint_acres", Reason: "must be positive"}
	}
	return nil
}

// Screening configures the environmental screener's penalty tables and
// search radii. Penalty caps bound each source's contribution so no single
// registry can zero out a site on its own.
type Screening struct {
	FloodPenaltyModerate     float64 `yaml:"flood_penalty_moderate"`
	FloodPenaltyUndetermined float64 `yaml:"flood_penalty_undetermined"`
	FloodPenaltyHigh         float64 `yaml:"flood_penalty_high"`
	FloodPenaltyCap          float64 `yaml:"flood_penalty_cap"`

	ContaminationRadiusMiles float64 `yaml:"contamination_radius_miles"`
	NPLProximityMiles        float64 `yaml:"npl_proximity_miles"`
	NPLNearMiles             float64 `yaml:"npl_near_miles"`
	LPSTProximityMiles       float64 `yaml:"lpst_proximity_miles"`
	LPSTNearMiles            float64 `yaml:"lpst_near_miles"`
	FederalPenaltyCap        float64 `yaml:"federal_penalty_cap"`
	StatePenaltyCap          float64 `yaml:"state_penalty_cap"`

	HabitatRadiusMiles float64 `yaml:"habitat_radius_miles"`
	HabitatPenaltyCap  float64 `yaml:"habitat_penalty_cap"`
}

func (s Screening) validate() error {
	if s.ContaminationRadiusMiles <= 0 {
		return &ValidationError{Field: "screening.contamination_radius_miles", Reason: "must be positive"}
	}
	if s.NPLProximityMiles <= 0 || s.NPLProximityMiles > s.ContaminationRadiusMiles {
		return &ValidationError{
			Field:  "screening.npl_proximity_miles",
			Reason: "must be positive and within the contamination search radius",
		}
	}
	if s.HabitatRadiusMiles <= 0 {
		return &ValidationError{Field: "screening.habitat_radius_miles", Reason: "must be positive"}
	}
	return nil
}

// Decay selects the proximity sub-score curve.
type Decay string

const (
	DecayExponential Decay = "exponential"
	DecayLinear      Decay = "linear"
)

// Assessment configures the grid & solar assessor.
type Assessment struct {
	VoltageScores map[string]float64 `yaml:"voltage_scores"`

	ProximityDecay         Decay   `yaml:"proximity_decay"`
	MaxUsefulDistanceMiles float64 `yaml:"max_useful_distance_miles"`
	ProximityFloor         float64 `yaml:"proximity_floor"`

	GenerationRadiusMiles float64 `yaml:"generation_radius_miles"`
	SaturationCapacityMW  float64 `yaml:"saturation_capacity_mw"`

	SolarRadiusMiles float64 `yaml:"solar_radius_miles"`
}

func (a Assessment) validate() error {
	for class := range a.VoltageScores {
		if !knownVoltageClass(class) {
			return &ValidationError{
				Field:  "assessment.voltage_scores",
				Reason: fmt.Sprintf("unknown voltage class %q", class),
			}
		}
	}
	if a.ProximityDecay != DecayExponential && a.ProximityDecay != DecayLinear {
		return &ValidationError{
			Field:  "assessment.proximity_decay",
			Reason: fmt.Sprintf("decay %q must be exponential or linear", a.ProximityDecay),
		}
	}
	if a.MaxUsefulDistanceMiles <= 0 {
		return &ValidationError{Field: "assessment.max_useful_distance_miles", Reason: "must be positive"}
	}
	if a.ProximityFloor < 0 || a.ProximityFloor > 100 {
		return &ValidationError{Field: "assessment.proximity_floor", Reason: "must be within [0,100]"}
	}
	if a.SaturationCapacityMW <= 0 {
		return &ValidationError{Field: "assessment.saturation_capacity_mw", Reason: "must be positive"}
	}
	return nil
}

// Composite configures the composite scorer.
type Composite struct {
	MaxPricePerAcre  float64 `yaml:"max_price_per_acre"`
	IdealParcelAcres float64 `yaml:"ideal_parcel_acres"`
	ParcelSigmaAcres float64 `yaml:"parcel_sigma_acres"`
	NeutralScore     float64 `yaml:"neutral_score"`
}

func (c Composite) validate() error {
	if c.MaxPricePerAcre <= 0 {
		return &ValidationError{Field: "composite.max_price_per_acre", Reason: "must be positive"}
	}
	if c.IdealParcelAcres <= 0 {
		return &ValidationError{Field: "composite.ideal_parcel_acres", Reason: "must be positive"}
	}
	if c.ParcelSigmaAcres <= 0 {
		return &ValidationError{Field: "composite.parcel_sigma_acres", Reason: "must be positive"}
	}
	if c.NeutralScore < 0 || c.NeutralScore > 100 {
		return &ValidationError{Field: "composite.neutral_score", Reason: "must be within [0,100]"}
	}
	return nil
}

// Scoring is the full, immutable scoring configuration for a run.
type Scoring struct {
	Weights    Weights    `yaml:"weights"`
	Criteria   Criteria   `yaml:"criteria"`
	Assembly   Assembly   `yaml:"assembly"`
	Screening  Screening  `yaml:"screening"`
	Assessment Assessment `yaml:"assessment"`
	Composite  Composite  `yaml:"composite"`
}

// DefaultScoring returns the baseline configuration. The weight distribution
// and penalty tables follow the production screening policy.
func DefaultScoring() Scoring {
	return Scoring{
		Weights: Weights{
			Proximity:     0.25,
			Voltage:       0.15,
			Environmental: 0.20,
			LandCost:      0.10,
			ParcelSize:    0.05,
			FloodRisk:     0.05,
			GridDensity:   0.10,
			SolarResource: 0.10,
		},
		Criteria: Criteria{
			CriticalHabitatOverlap: SeverityEliminate,
			NPLWithinQuarterMile:   SeverityEliminate,
			InSFHA:                 SeverityWarning,
			HighRiskFloodZone:      SeverityWarning,
		},
		Assembly: Assembly{
			SearchRadiusMiles:       3.0,
			MinVoltageClass:         string(domain.Voltage161),
			MinConnectedLines:       1,
			SyntheticFootprintAcres: 40,
		},
		Screening: Screening{
			FloodPenaltyModerate:     10,
			FloodPenaltyUndetermined: 15,
			FloodPenaltyHigh:         25,
			FloodPenaltyCap:          30,
			ContaminationRadiusMiles: 1.0,
			NPLProximityMiles:        0.25,
			NPLNearMiles:             0.5,
			LPSTProximityMiles:       0.1,
			LPSTNearMiles:            0.25,
			FederalPenaltyCap:        30,
			StatePenaltyCap:          25,
			HabitatRadiusMiles:       0.5,
			HabitatPenaltyCap:        15,
		},
		Assessment: Assessment{
			VoltageScores: map[string]float64{
				string(domain.Voltage500Plus):  100,
				string(domain.Voltage345):      100,
				string(domain.Voltage230):      75,
				string(domain.Voltage161):      50,
				string(domain.VoltageUnder161): 25,
			},
			ProximityDecay:         DecayExponential,
			MaxUsefulDistanceMiles: 10,
			ProximityFloor:         0,
			GenerationRadiusMiles:  15,
			SaturationCapacityMW:   5000,
			SolarRadiusMiles:       10,
		},
		Composite: Composite{
			MaxPricePerAcre:  50000,
			IdealParcelAcres: 40,
			ParcelSigmaAcres: 20,
			NeutralScore:     50,
		},
	}
}

// Validate checks the whole scoring configuration, returning a
// ValidationError on the first problem found.
func (s Scoring) Validate() error {
	if err := s.Weights.validate(); err != nil {
		return err
	}
	if err := s.Criteria.validate(); err != nil {
		return err
	}
	if err := s.Assembly.validate(); err != nil {
		return err
	}
	if err := s.Screening.validate(); err != nil {
		return err
	}
	if err := s.Assessment.validate(); err != nil {
		return err
	}
	return s.Composite.validate()
}

// LoadScoring reads a YAML scoring configuration, layering it over the
// defaults. Unknown keys are rejected so a typoed factor name fails loudly
// instead of silently keeping its default.
func LoadScoring(path string) (Scoring, error) {
	cfg := DefaultScoring()
	if path == "" {
		return cfg, cfg.Validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return Scoring{}, fmt.Errorf("open scoring config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Scoring{}, &ValidationError{Field: path, Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return Scoring{}, err
	}
	return cfg, nil
}

// MinVoltageRank resolves the assembler's minimum voltage class to its
// comparable rank.
func (a Assembly) MinVoltageRank() int {
	return domain.VoltageClass(a.MinVoltageClass).Rank()
}

func knownVoltageClass(class string) bool {
	switch domain.VoltageClass(class) {
	case domain.Voltage500Plus, domain.Voltage345, domain.Voltage230,
		domain.Voltage161, domain.VoltageUnder161:
		return true
	default:
		return false
	}
}

// Service holds runtime settings read from environment variables, applying
// defaults where unset.
type Service struct {
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	KafkaBrokers    []string
	KafkaTopic      string
	Workers         int
	ShutdownTimeout time.Duration
}

// KafkaEnabled reports whether a ranked-output sink is configured.
func (s Service) KafkaEnabled() bool {
	return len(s.KafkaBrokers) > 0
}

// LoadService reads service settings from the environment.
func LoadService() (Service, error) {
	workers, err := parsePositiveInt("SCOUT_WORKERS", 0)
	if err != nil {
		return Service{}, err
	}

	shutdownTimeout, err := time.ParseDuration(envOrDefault("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil || shutdownTimeout <= 0 {
		return Service{}, &ValidationError{Field: "SHUTDOWN_TIMEOUT", Reason: "must be a positive duration"}
	}

	svc := Service{
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      envOrDefault("KAFKA_SINK_TOPIC", "scored-sites"),
		Workers:         workers,
		ShutdownTimeout: shutdownTimeout,
	}

	if svc.KafkaEnabled() && svc.KafkaTopic == "" {
		return Service{}, &ValidationError{Field: "KAFKA_SINK_TOPIC", Reason: "required when KAFKA_BROKERS is set"}
	}
	return svc, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parsePositiveInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &ValidationError{Field: key, Reason: "must be a non-negative integer"}
	}
	return n, nil
}
