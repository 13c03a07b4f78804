// Package screen evaluates candidate sites against flood, contamination,
// and habitat hazard layers, producing the environmental sub-score and the
// hard-eliminate verdict.
package screen

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/bess-site-scout/internal/config"
	"github.com/couchcryptid/bess-site-scout/internal/domain"
	"github.com/couchcryptid/bess-site-scout/internal/geo"
)

// floodQueryPadMiles keeps the centroid query rect non-degenerate for the
// R-tree, which rejects zero-length rects. The flood predicate is exact
// containment afterwards, so any zone containing the centroid already
// intersects the query box; the pad carries no correctness weight.
const floodQueryPadMiles = 0.1

// High-risk zones are the SFHA (100-year floodplain) designations; D is
// unmapped/undetermined.
var highRiskZones = map[string]bool{
	"A": true, "AE": true, "AH": true, "AO": true,
	"AR": true, "V": true, "VE": true, "A99": true,
}

// Datasets wraps the hazard collections with spatial indexes built once per
// run. It is read-only after construction and safe to share across scoring
// workers. A nil or empty input collection marks that source as unavailable:
// zero features cannot be told apart from an unsurveyed area, so the screener
// applies no penalty and no elimination for it, but records a data-gap flag
// to keep "clean" and "unknown" distinguishable.
type Datasets struct {
	floodZones []domain.FloodZone
	floodIndex *geo.Index
	floodOK    bool

	contamination []domain.ContaminationSite
	contIndex     *geo.Index
	contOK        bool

	habitats []domain.HabitatArea
	habIndex *geo.Index
	habOK    bool

	skipped int
}

// NewDatasets indexes the hazard layers. Records with malformed geometry are
// dropped and counted; they never abort the run.
func NewDatasets(flood []domain.FloodZone, contamination []domain.ContaminationSite, habitats []domain.HabitatArea) *Datasets {
	d := &Datasets{
		floodIndex: geo.NewIndex(),
		contIndex:  geo.NewIndex(),
		habIndex:   geo.NewIndex(),
		floodOK:    len(flood) > 0,
		contOK:     len(contamination) > 0,
		habOK:      len(habitats) > 0,
	}
	for _, z := range flood {
		if !z.Area.Valid() {
			d.skipped++
			continue
		}
		d.floodZones = append(d.floodZones, z)
		d.floodIndex.InsertPolygon(strconv.Itoa(len(d.floodZones)-1), z.Area)
	}
	for _, c := range contamination {
		if !c.Location.Valid() {
			d.skipped++
			continue
		}
		d.contamination = append(d.contamination, c)
		d.contIndex.InsertPoint(strconv.Itoa(len(d.contamination)-1), c.Location)
	}
	for _, h := range habitats {
		if !h.Area.Valid() {
			d.skipped++
			continue
		}
		d.habitats = append(d.habitats, h)
		d.habIndex.InsertPolygon(strconv.Itoa(len(d.habitats)-1), h.Area)
	}
	return d
}

// SkippedGeometries returns how many hazard records were dropped for
// malformed geometry during indexing.
func (d *Datasets) SkippedGeometries() int { return d.skipped }

// Screener computes environmental screening verdicts.
type Screener struct {
	cfg    config.Screening
	crit   config.Criteria
	logger *slog.Logger
}

// New creates a Screener with validated configuration.
func New(cfg config.Screening, crit config.Criteria, logger *slog.Logger) *Screener {
	return &Screener{cfg: cfg, crit: crit, logger: logger}
}

// Screen evaluates one candidate against all hazard layers. The sub-score
// starts from a baseline of 100 and subtracts per-source penalties, each
// capped so no single registry can zero a site alone. Risk flags accumulate
// in evaluation order: flood, contamination (NPL, brownfields, TRI, LPST,
// UST, IHW), habitat.
func (s *Screener) Screen(c *domain.CandidateSite, data *Datasets) domain.ScreeningResult {
	var r domain.ScreeningResult

	floodPen := s.screenFlood(c, data, &r)
	fedPen, statePen := s.screenContamination(c, data, &r)
	habPen := s.screenHabitat(c, data, &r)

	total := math.Min(floodPen, s.cfg.FloodPenaltyCap) +
		math.Min(fedPen, s.cfg.FederalPenaltyCap) +
		math.Min(statePen, s.cfg.StatePenaltyCap) +
		math.Min(habPen, s.cfg.HabitatPenaltyCap)

	r.Score = round1(math.Max(0, 100-total))
	return r
}

func (s *Screener) screenFlood(c *domain.CandidateSite, data *Datasets, r *domain.ScreeningResult) float64 {
	if !data.floodOK {
		r.Flood = domain.FloodResult{RiskLevel: domain.RiskUnknown, DataGap: true}
		s.recordGap(r, "flood")
		return 0
	}

	center := c.Footprint.Centroid()
	var present []domain.FloodZone
	for _, id := range data.floodIndex.SearchRadius(center, floodQueryPadMiles) {
		z := data.floodZones[mustAtoi(id)]
		if z.Area.Contains(center) {
			present = append(present, z)
		}
	}

	flood := domain.FloodResult{RiskLevel: domain.RiskLow}
	if len(present) == 0 {
		r.Flood = flood
		return 0
	}

	for _, z := range present {
		if z.SFHA {
			flood.InSFHA = true
		}
		switch {
		case highRiskZones[z.Zone]:
			flood.RiskLevel = domain.RiskHigh
			flood.Zone = z.Zone
		case z.Zone == "D" && flood.RiskLevel != domain.RiskHigh:
			flood.RiskLevel = domain.RiskUndetermined
			flood.Zone = z.Zone
		case isShadedX(z) && flood.RiskLevel == domain.RiskLow:
			flood.RiskLevel = domain.RiskModerate
			flood.Zone = z.Zone
		case flood.Zone == "":
			flood.Zone = z.Zone
		}
	}

	var penalty float64
	switch flood.RiskLevel {
	case domain.RiskHigh:
		penalty = s.cfg.FloodPenaltyHigh
	case domain.RiskUndetermined:
		penalty = s.cfg.FloodPenaltyUndetermined
	case domain.RiskModerate:
		penalty = s.cfg.FloodPenaltyModerate
	}
	flood.Penalty = penalty
	r.Flood = flood

	if flood.InSFHA {
		s.applyCriterion(s.crit.InSFHA, "site lies within a FEMA Special Flood Hazard Area", r)
	}
	if flood.RiskLevel == domain.RiskHigh {
		s.applyCriterion(s.crit.HighRiskFloodZone,
			fmt.Sprintf("high-risk flood zone %s at site", flood.Zone), r)
	}
	return penalty
}

func (s *Screener) screenContamination(c *domain.CandidateSite, data *Datasets, r *domain.ScreeningResult) (federal, state float64) {
	if !data.contOK {
		r.Contamination = domain.ContaminationResult{DataGap: true}
		s.recordGap(r, "contamination")
		return 0, 0
	}

	center := c.Footprint.Centroid()
	byCat := map[domain.ContaminationCategory]*domain.CategoryResult{}
	for _, cat := range []domain.ContaminationCategory{
		domain.ContaminationNPL, domain.ContaminationBrownfield, domain.ContaminationTRI,
		domain.ContaminationLPST, domain.ContaminationUST, domain.ContaminationIHW,
	} {
		byCat[cat] = &domain.CategoryResult{}
	}

	for _, id := range data.contIndex.SearchRadius(center, s.cfg.ContaminationRadiusMiles) {
		site := data.contamination[mustAtoi(id)]
		dist := geo.Distance(center, site.Location)
		if dist > s.cfg.ContaminationRadiusMiles {
			continue
		}
		cr, ok := byCat[site.Category]
		if !ok {
			continue
		}
		cr.Count++
		if !cr.HasNearest || dist < cr.NearestMi {
			cr.NearestMi = round2(dist)
			cr.HasNearest = true
		}
	}

	r.Contamination = domain.ContaminationResult{
		NPL:         *byCat[domain.ContaminationNPL],
		Brownfields: *byCat[domain.ContaminationBrownfield],
		TRI:         *byCat[domain.ContaminationTRI],
		LPST:        *byCat[domain.ContaminationLPST],
		UST:         *byCat[domain.ContaminationUST],
		IHW:         *byCat[domain.ContaminationIHW],
	}

	// Federal penalties combine by maximum: overlapping federal findings
	// describe the same contamination picture, not additive harm.
	npl := r.Contamination.NPL
	if npl.Count > 0 {
		switch {
		case npl.NearestMi < s.cfg.NPLProximityMiles:
			federal = math.Max(federal, 30)
			s.applyCriterion(s.crit.NPLWithinQuarterMile,
				fmt.Sprintf("Superfund NPL site within %.2f mi", npl.NearestMi), r)
		case npl.NearestMi < s.cfg.NPLNearMiles:
			federal = math.Max(federal, 20)
			r.RiskFlags = append(r.RiskFlags,
				fmt.Sprintf("WARNING: Superfund NPL site within %.2f mi", npl.NearestMi))
		default:
			federal = math.Max(federal, 10)
			r.RiskFlags = append(r.RiskFlags,
				fmt.Sprintf("WARNING: %d Superfund site(s) within %.1f mi", npl.Count, s.cfg.ContaminationRadiusMiles))
		}
	}
	if bf := r.Contamination.Brownfields; bf.Count > 0 {
		federal = math.Max(federal, math.Min(5*float64(bf.Count), 10))
		r.RiskFlags = append(r.RiskFlags,
			fmt.Sprintf("NOTE: %d brownfield site(s) within %.1f mi", bf.Count, s.cfg.ContaminationRadiusMiles))
	}
	if tri := r.Contamination.TRI; tri.Count > 0 {
		if tri.Count > 3 {
			federal = math.Max(federal, 10)
		} else {
			federal = math.Max(federal, 5)
		}
		r.RiskFlags = append(r.RiskFlags,
			fmt.Sprintf("NOTE: %d TRI facility(ies) within %.1f mi", tri.Count, s.cfg.ContaminationRadiusMiles))
	}

	// State penalties accumulate: leaking tanks and waste handlers are
	// distinct liabilities.
	if lpst := r.Contamination.LPST; lpst.Count > 0 {
		switch {
		case lpst.NearestMi < s.cfg.LPSTProximityMiles:
			state += 20
			r.RiskFlags = append(r.RiskFlags,
				fmt.Sprintf("WARNING: leaking petroleum storage tank within %.2f mi", lpst.NearestMi))
		case lpst.NearestMi < s.cfg.LPSTNearMiles:
			state += 12
			r.RiskFlags = append(r.RiskFlags,
				fmt.Sprintf("WARNING: leaking petroleum storage tank within %.2f mi", lpst.NearestMi))
		default:
			state += 5
		}
	}
	if ust := r.Contamination.UST; ust.Count > 0 {
		state += math.Min(2*float64(ust.Count), 5)
	}
	if ihw := r.Contamination.IHW; ihw.Count > 0 {
		state += math.Min(3*float64(ihw.Count), 8)
		r.RiskFlags = append(r.RiskFlags,
			fmt.Sprintf("NOTE: %d industrial/hazardous waste site(s) within %.1f mi", ihw.Count, s.cfg.ContaminationRadiusMiles))
	}

	return federal, state
}

func (s *Screener) screenHabitat(c *domain.CandidateSite, data *Datasets, r *domain.ScreeningResult) float64 {
	if !data.habOK {
		r.Habitat = domain.HabitatResult{DataGap: true}
		s.recordGap(r, "habitat")
		return 0
	}

	center := c.Footprint.Centroid()
	var wetlands, critical []geo.Polygon
	var species string
	for _, id := range data.habIndex.SearchRadius(center, s.cfg.HabitatRadiusMiles) {
		h := data.habitats[mustAtoi(id)]
		switch h.Kind {
		case domain.HabitatWetland:
			wetlands = append(wetlands, h.Area)
		case domain.HabitatCritical:
			critical = append(critical, h.Area)
			if species == "" {
				species = h.Name
			}
		}
	}

	var penalty float64
	hab := domain.HabitatResult{}

	hab.WetlandsPct = round1(geo.IntersectionPct(c.Footprint, wetlands))
	switch {
	case hab.WetlandsPct > 25:
		penalty = math.Max(penalty, 12)
	case hab.WetlandsPct > 10:
		penalty = math.Max(penalty, 8)
	case hab.WetlandsPct > 0:
		penalty = math.Max(penalty, 4)
	}
	if hab.WetlandsPct > 0 {
		r.RiskFlags = append(r.RiskFlags,
			fmt.Sprintf("WARNING: %.1f%% of footprint intersects NWI wetlands, Section 404 permitting may be required", hab.WetlandsPct))
	}

	if overlapsFootprint(c.Footprint, critical) {
		hab.CriticalHabitatPresent = true
		hab.Species = species
		penalty = math.Max(penalty, 12)
		msg := "designated critical habitat overlaps footprint"
		if species != "" {
			msg = fmt.Sprintf("designated critical habitat (%s) overlaps footprint", species)
		}
		s.applyCriterion(s.crit.CriticalHabitatOverlap, msg, r)
	}

	r.Habitat = hab
	return penalty
}

// overlapsFootprint tests whether any overlay polygon overlaps the candidate
// footprint: either a sampled intersection percentage above zero, or mutual
// centroid containment for the fully-nested cases sampling can miss.
func overlapsFootprint(footprint geo.Polygon, overlays []geo.Polygon) bool {
	if len(overlays) == 0 {
		return false
	}
	if geo.IntersectionPct(footprint, overlays) > 0 {
		return true
	}
	center := footprint.Centroid()
	for _, ov := range overlays {
		if ov.Contains(center) || footprint.Contains(ov.Centroid()) {
			return true
		}
	}
	return false
}

func (s *Screener) applyCriterion(sev config.Severity, msg string, r *domain.ScreeningResult) {
	if sev == config.SeverityEliminate {
		r.Eliminate = true
		r.RiskFlags = append(r.RiskFlags, "ELIMINATE: "+msg)
		return
	}
	r.RiskFlags = append(r.RiskFlags, "WARNING: "+msg)
}

func (s *Screener) recordGap(r *domain.ScreeningResult, source string) {
	r.DataGaps = append(r.DataGaps, source)
	r.RiskFlags = append(r.RiskFlags, fmt.Sprintf("DATA GAP: %s dataset unavailable", source))
}

// isShadedX reports whether a zone X polygon is the shaded variant (0.2%
// annual chance, the 500-year floodplain). Unshaded X is minimal risk.
func isShadedX(z domain.FloodZone) bool {
	if z.Zone != "X" {
		return false
	}
	sub := strings.ToUpper(z.Subtype)
	return strings.Contains(sub, "0.2 PCT") || strings.Contains(sub, "SHADED")
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
