// Package score aggregates sub-scores into the weighted composite, assigns
// letter grades, and ranks the surviving candidates deterministically.
package score

import (
	"math"
	"sort"

	"github.com/couchcryptid/bess-site-scout/internal/config"
	"github.com/couchcryptid/bess-site-scout/internal/domain"
)

// Scorer computes composite scores and ranks.
type Scorer struct {
	weights config.Weights
	cfg     config.Composite
}

// New creates a Scorer with validated configuration.
func New(weights config.Weights, cfg config.Composite) *Scorer {
	return &Scorer{weights: weights, cfg: cfg}
}

// Score fills the candidate's sub-score set and composite. Factors whose
// source was unavailable take the configured neutral score so a data gap
// neither sinks nor inflates a site. Eliminated candidates still get a
// composite for transparency; grading and ranking skip them.
//
// The composite is the weighted sum of the eight factors, rounded
// half-away-from-zero to one decimal.
func (s *Scorer) Score(c *domain.CandidateSite) {
	neutral := s.cfg.NeutralScore

	sub := domain.SubScores{
		Proximity:     domain.FactorScore{Weight: s.weights.Proximity, Score: neutral},
		Voltage:       domain.FactorScore{Weight: s.weights.Voltage, Score: neutral},
		Environmental: domain.FactorScore{Weight: s.weights.Environmental, Score: neutral},
		LandCost:      domain.FactorScore{Weight: s.weights.LandCost, Score: neutral},
		ParcelSize:    domain.FactorScore{Weight: s.weights.ParcelSize, Score: neutral},
		FloodRisk:     domain.FactorScore{Weight: s.weights.FloodRisk, Score: neutral},
		GridDensity:   domain.FactorScore{Weight: s.weights.GridDensity, Score: neutral},
		SolarResource: domain.FactorScore{Weight: s.weights.SolarResource, Score: neutral},
	}

	if g := c.Grid; g != nil {
		sub.Proximity.Score = g.ProximityScore
		sub.Voltage.Score = g.VoltageScore
		if !hasGap(g.DataGaps, "generation") {
			sub.GridDensity.Score = g.GridDensityScore
		}
		if !hasGap(g.DataGaps, "solar") {
			sub.SolarResource.Score = g.SolarScore
		}
	}

	if sc := c.Screening; sc != nil {
		sub.Environmental.Score = sc.Score
		if !sc.Flood.DataGap {
			sub.FloodRisk.Score = FloodRiskScore(sc.Flood.RiskLevel)
		}
	}

	if p := c.Parcel; p != nil {
		// $0/acre is the top of the linear scale, not a missing value;
		// only a missing parcel leaves land cost at neutral.
		sub.LandCost.Score = s.LandCostScore(p.PricePerAcre)
		if p.Acres > 0 {
			sub.ParcelSize.Score = s.ParcelSizeScore(p.Acres)
		}
	}

	c.SubScores = sub
	c.CompositeScore = round1(
		sub.Proximity.Score*sub.Proximity.Weight +
			sub.Voltage.Score*sub.Voltage.Weight +
			sub.Environmental.Score*sub.Environmental.Weight +
			sub.LandCost.Score*sub.LandCost.Weight +
			sub.ParcelSize.Score*sub.ParcelSize.Weight +
			sub.FloodRisk.Score*sub.FloodRisk.Weight +
			sub.GridDensity.Score*sub.GridDensity.Weight +
			sub.SolarResource.Score*sub.SolarResource.Weight)

	if !c.Eliminate {
		c.Grade = Grade(c.CompositeScore)
	}
}

// LandCostScore maps price per acre linearly from 100 at free land to 0 at
// the configured maximum, clamped.
func (s *Scorer) LandCostScore(pricePerAcre float64) float64 {
	score := 100 * (1 - pricePerAcre/s.cfg.MaxPricePerAcre)
	return math.Max(0, math.Min(100, score))
}

// ParcelSizeScore rewards acreage near the ideal with a Gaussian falloff.
// Too small means insufficient buildable area; too large means paying for
// land the project cannot use.
func (s *Scorer) ParcelSizeScore(acres float64) float64 {
	diff := acres - s.cfg.IdealParcelAcres
	sigma := s.cfg.ParcelSigmaAcres
	return 100 * math.Exp(-(diff*diff)/(2*sigma*sigma))
}

// FloodRiskScore converts the screened flood risk level into the standalone
// flood factor.
func FloodRiskScore(level domain.RiskLevel) float64 {
	switch level {
	case domain.RiskLow:
		return 100
	case domain.RiskModerate:
		return 50
	case domain.RiskUndetermined:
		return 30
	case domain.RiskHigh:
		return 0
	default:
		return 50
	}
}

// Grade assigns the letter grade. Lower bounds are inclusive: exactly 80.0
// is an A, exactly 79.9 a B.
func Grade(composite float64) string {
	switch {
	case composite >= 80:
		return "A"
	case composite >= 65:
		return "B"
	case composite >= 50:
		return "C"
	case composite >= 35:
		return "D"
	default:
		return "F"
	}
}

// Rank sorts the surviving candidates and assigns 1-based ranks, returning
// (ranked, eliminated). Order: composite descending, then distance to node
// ascending, then candidate ID ascending — a total order, so identical
// inputs always rank identically. Eliminated candidates keep their composite
// but carry no grade or rank.
func Rank(candidates []*domain.CandidateSite) (ranked, eliminated []*domain.CandidateSite) {
	for _, c := range candidates {
		if c.Eliminate {
			eliminated = append(eliminated, c)
		} else {
			ranked = append(ranked, c)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if a.DistanceToNodeMi != b.DistanceToNodeMi {
			return a.DistanceToNodeMi < b.DistanceToNodeMi
		}
		return a.ID < b.ID
	})
	for i, c := range ranked {
		c.Rank = i + 1
	}

	sort.Slice(eliminated, func(i, j int) bool {
		return eliminated[i].ID < eliminated[j].ID
	})
	return ranked, eliminated
}

func hasGap(gaps []string, source string) bool {
	for _, g := range gaps {
		if g == source {
			return true
		}
	}
	return false
}

// round1 rounds half away from zero to one decimal, the documented export
// rounding.
func round1(v float64) float64 { return math.Round(v*10) / 10 }
