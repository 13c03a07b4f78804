// Package assess computes the grid-side and solar-resource sub-scores for a
// candidate: proximity decay, voltage class, generation density, and annual
// GHI. All scoring functions are pure; dataset lookups go through prebuilt
// spatial indexes.
package assess

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/couchcryptid/bess-site-scout/internal/config"
	"github.com/couchcryptid/bess-site-scout/internal/domain"
	"github.com/couchcryptid/bess-site-scout/internal/geo"
)

// Datasets wraps the generation and solar collections with spatial indexes
// built once per run. A nil or empty input collection marks the source as a
// data gap: zero records cannot be told apart from an unsurveyed area.
type Datasets struct {
	plants     []domain.GenerationPlant
	plantIndex *geo.Index
	plantsOK   bool

	solar      []domain.SolarSample
	solarIndex *geo.Index
	solarOK    bool

	skipped int
}

// NewDatasets indexes the generation fleet and solar samples, dropping and
// counting records with malformed coordinates.
func NewDatasets(plants []domain.GenerationPlant, solar []domain.SolarSample) *Datasets {
	d := &Datasets{
		plantIndex: geo.NewIndex(),
		solarIndex: geo.NewIndex(),
		plantsOK:   len(plants) > 0,
		solarOK:    len(solar) > 0,
	}
	for _, p := range plants {
		if !p.Location.Valid() {
			d.skipped++
			continue
		}
		d.plants = append(d.plants, p)
		d.plantIndex.InsertPoint(strconv.Itoa(len(d.plants)-1), p.Location)
	}
	for _, s := range solar {
		if !s.Location.Valid() {
			d.skipped++
			continue
		}
		d.solar = append(d.solar, s)
		d.solarIndex.InsertPoint(strconv.Itoa(len(d.solar)-1), s.Location)
	}
	return d
}

// SkippedGeometries returns how many records were dropped during indexing.
func (d *Datasets) SkippedGeometries() int { return d.skipped }

// Assessor computes grid and solar sub-scores.
type Assessor struct {
	cfg    config.Assessment
	logger *slog.Logger
}

// New creates an Assessor with validated configuration.
func New(cfg config.Assessment, logger *slog.Logger) *Assessor {
	return &Assessor{cfg: cfg, logger: logger}
}

// Assess fills the grid assessment for one candidate. Voltage and proximity
// derive from the candidate itself; density and solar consult the indexed
// datasets, falling back to data-gap flags when a layer is absent.
func (a *Assessor) Assess(c *domain.CandidateSite, data *Datasets) domain.GridAssessment {
	g := domain.GridAssessment{
		ProximityScore: a.ProximityScore(c.DistanceToNodeMi),
		VoltageScore:   a.VoltageScore(c.Node.VoltageClass),
	}

	a.assessDensity(c, data, &g)
	a.assessSolar(c, data, &g)
	return g
}

// ProximityScore maps distance to the interconnection node onto [0,100].
// Exponential decay scores 100·e^(-d/2); linear decay falls straight to the
// floor at the max useful distance. Either way the score never drops below
// the configured floor, and zero distance scores exactly 100.
func (a *Assessor) ProximityScore(distMiles float64) float64 {
	if distMiles <= 0 {
		return 100
	}
	var score float64
	switch a.cfg.ProximityDecay {
	case config.DecayLinear:
		frac := distMiles / a.cfg.MaxUsefulDistanceMiles
		if frac > 1 {
			frac = 1
		}
		score = 100 * (1 - frac)
	default:
		score = 100 * math.Exp(-0.5*distMiles)
	}
	return math.Max(score, a.cfg.ProximityFloor)
}

// VoltageScore looks the node's voltage class up in the configured table.
// Unlisted classes score 0 rather than erroring; validation rejects unknown
// class names at load time, so this only happens with a deliberately sparse
// table.
func (a *Assessor) VoltageScore(class domain.VoltageClass) float64 {
	return a.cfg.VoltageScores[string(class)]
}

// DensityScore converts nearby generation capacity into a step score.
// Clustered generation means existing transmission headroom and familiar
// interconnection queues. saturationMW is the capacity that earns full marks.
func DensityScore(capacityMW, saturationMW float64, plants int) float64 {
	switch {
	case capacityMW >= saturationMW:
		return 100
	case capacityMW >= 1000:
		return 80
	case capacityMW >= 500:
		return 60
	case capacityMW >= 100:
		return 40
	case plants > 0:
		return 20
	default:
		return 5
	}
}

// SolarScore converts annual-average GHI (kWh/m²/day) into a step score.
// Thresholds follow NREL resource-class boundaries.
func SolarScore(ghi float64) float64 {
	switch {
	case ghi >= 5.5:
		return 100
	case ghi >= 5.0:
		return 85
	case ghi >= 4.5:
		return 70
	case ghi >= 4.0:
		return 55
	case ghi >= 3.5:
		return 35
	default:
		return 15
	}
}

func (a *Assessor) assessDensity(c *domain.CandidateSite, data *Datasets, g *domain.GridAssessment) {
	// A missing generation layer is a data gap: the composite scorer
	// substitutes the neutral score for flagged gaps.
	if !data.plantsOK {
		g.DataGaps = append(g.DataGaps, "generation")
		g.RiskFlags = append(g.RiskFlags, "DATA GAP: generation dataset unavailable")
		return
	}

	center := c.Node.Location
	for _, id := range data.plantIndex.SearchRadius(center, a.cfg.GenerationRadiusMiles) {
		p := data.plants[mustAtoi(id)]
		dist := geo.Distance(center, p.Location)
		if dist > a.cfg.GenerationRadiusMiles {
			continue
		}
		g.NearbyPlants++
		g.NearbyCapacityMW += p.CapacityMW
	}
	g.GridDensityScore = DensityScore(g.NearbyCapacityMW, a.cfg.SaturationCapacityMW, g.NearbyPlants)

	if g.NearbyCapacityMW >= a.cfg.SaturationCapacityMW {
		g.RiskFlags = append(g.RiskFlags, fmt.Sprintf(
			"NOTE: %.0f MW of generation within %.0f mi, interconnection queue may be congested",
			g.NearbyCapacityMW, a.cfg.GenerationRadiusMiles))
	}
}

func (a *Assessor) assessSolar(c *domain.CandidateSite, data *Datasets, g *domain.GridAssessment) {
	if !data.solarOK {
		g.DataGaps = append(g.DataGaps, "solar")
		g.RiskFlags = append(g.RiskFlags, "DATA GAP: solar dataset unavailable")
		return
	}

	center := c.Footprint.Centroid()
	nearest, dist := a.nearestSample(center, data)
	if nearest == nil || dist > a.cfg.SolarRadiusMiles {
		g.DataGaps = append(g.DataGaps, "solar")
		g.RiskFlags = append(g.RiskFlags, "DATA GAP: no solar sample within range")
		return
	}
	g.GHIAnnual = nearest.GHI
	g.SolarScore = SolarScore(nearest.GHI)
	g.CoLocation = CoLocationLabel(nearest.GHI)
}

// CoLocationLabel rates solar co-location potential from annual GHI.
func CoLocationLabel(ghi float64) string {
	switch {
	case ghi >= 5.5:
		return "excellent"
	case ghi >= 5.0:
		return "high"
	case ghi >= 4.5:
		return "medium"
	default:
		return "low"
	}
}

// nearestSample finds the closest solar sample via widening index searches,
// falling back to a full scan if the radius search comes up empty.
func (a *Assessor) nearestSample(center geo.Point, data *Datasets) (*domain.SolarSample, float64) {
	var best *domain.SolarSample
	bestDist := math.MaxFloat64
	consider := func(s *domain.SolarSample) {
		d := geo.Distance(center, s.Location)
		if d < bestDist {
			best, bestDist = s, d
		}
	}

	ids := data.solarIndex.SearchRadius(center, a.cfg.SolarRadiusMiles)
	for _, id := range ids {
		consider(&data.solar[mustAtoi(id)])
	}
	if best == nil {
		for i := range data.solar {
			consider(&data.solar[i])
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestDist
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
