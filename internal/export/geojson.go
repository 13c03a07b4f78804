// Package export renders scoring results as GeoJSON with a fixed, versioned
// flattened property schema. Downstream GIS tooling keys on these property
// names; changing any of them is a schema version bump.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/bess-site-scout/internal/domain"
	"github.com/couchcryptid/bess-site-scout/internal/pipeline"
)

// SchemaVersion identifies the flattened property layout. Version 2 added
// the per-factor weights and the contamination nearest-distance fields.
const SchemaVersion = "2"

// Geometry is a GeoJSON point in [lon, lat] order.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// ScoredFeature is the flattened property record for one candidate. Every
// field is always present (zero-valued when inapplicable) so column sets
// stay stable across exports.
type ScoredFeature struct {
	SchemaVersion string `json:"schema_version"`
	CandidateID   string `json:"candidate_id"`

	NodeID         string `json:"node_id"`
	NodeName       string `json:"node_name"`
	NodeOwner      string `json:"node_owner"`
	NodeOperator   string `json:"node_operator"`
	VoltageClass   string `json:"voltage_class"`
	ConnectedLines int    `json:"connected_lines"`

	ParcelID     string  `json:"parcel_id"`
	ParcelCounty string  `json:"parcel_county"`
	ParcelState  string  `json:"parcel_state"`
	ParcelAcres  float64 `json:"parcel_acres"`
	PricePerAcre float64 `json:"price_per_acre"`
	Synthetic    bool    `json:"synthetic"`

	DistanceToNodeMi float64 `json:"distance_to_node_mi"`

	Rank           int     `json:"rank"`
	Grade          string  `json:"grade"`
	CompositeScore float64 `json:"composite_score"`
	Eliminate      bool    `json:"eliminate"`

	ScoreProximity      float64 `json:"score_proximity"`
	WeightProximity     float64 `json:"weight_proximity"`
	ScoreVoltage        float64 `json:"score_voltage"`
	WeightVoltage       float64 `json:"weight_voltage"`
	ScoreEnvironmental  float64 `json:"score_environmental"`
	WeightEnvironmental float64 `json:"weight_environmental"`
	ScoreLandCost       float64 `json:"score_land_cost"`
	WeightLandCost      float64 `json:"weight_land_cost"`
	ScoreParcelSize     float64 `json:"score_parcel_size"`
	WeightParcelSize    float64 `json:"weight_parcel_size"`
	ScoreFloodRisk      float64 `json:"score_flood_risk"`
	WeightFloodRisk     float64 `json:"weight_flood_risk"`
	ScoreGridDensity    float64 `json:"score_grid_density"`
	WeightGridDensity   float64 `json:"weight_grid_density"`
	ScoreSolar          float64 `json:"score_solar_resource"`
	WeightSolar         float64 `json:"weight_solar_resource"`

	FloodZone      string  `json:"flood_zone"`
	FloodRiskLevel string  `json:"flood_risk_level"`
	InSFHA         bool    `json:"in_sfha"`
	NPLCount       int     `json:"npl_count"`
	NPLNearestMi   float64 `json:"npl_nearest_mi"`
	BrownfieldCnt  int     `json:"brownfield_count"`
	TRICount       int     `json:"tri_count"`
	LPSTCount      int     `json:"lpst_count"`
	LPSTNearestMi  float64 `json:"lpst_nearest_mi"`
	USTCount       int     `json:"ust_count"`
	IHWCount       int     `json:"ihw_count"`
	WetlandsPct    float64 `json:"wetlands_pct"`
	CriticalHab    bool    `json:"critical_habitat"`

	GHIAnnual          float64 `json:"ghi_annual"`
	SolarCoLocation    string  `json:"solar_co_location"`
	NearbyGenerationMW float64 `json:"nearby_generation_mw"`
	NearbyPlants       int     `json:"nearby_plants"`

	RiskFlags string `json:"risk_flags"`
	ScoredAt  string `json:"scored_at"`
}

// Feature is one GeoJSON feature.
type Feature struct {
	Type       string        `json:"type"`
	Geometry   Geometry      `json:"geometry"`
	Properties ScoredFeature `json:"properties"`
}

// FeatureCollection is a standard GeoJSON collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// RunSummary is the export metadata block for one run.
type RunSummary struct {
	RunID             string         `json:"run_id"`
	GeneratedAt       time.Time      `json:"generated_at"`
	SchemaVersion     string         `json:"schema_version"`
	QualifyingNodes   int            `json:"qualifying_nodes"`
	Candidates        int            `json:"candidates"`
	Ranked            int            `json:"ranked"`
	Eliminated        int            `json:"eliminated"`
	SkippedGeometries int            `json:"skipped_geometries"`
	DataGaps          map[string]int `json:"data_gaps"`
}

// Document is the full export: run metadata, the ranked collection in rank
// order, and eliminated candidates in their own collection.
type Document struct {
	Run        RunSummary        `json:"run"`
	Ranked     FeatureCollection `json:"ranked"`
	Eliminated FeatureCollection `json:"eliminated"`
}

// NewDocument flattens a run result. runID is caller-supplied so replays can
// pin it; GeneratedAt comes from the package clock.
func NewDocument(runID string, res *pipeline.Result) Document {
	doc := Document{
		Run: RunSummary{
			RunID:             runID,
			GeneratedAt:       domain.Now().UTC(),
			SchemaVersion:     SchemaVersion,
			QualifyingNodes:   res.Counters.QualifyingNodes,
			Candidates:        res.Counters.Candidates,
			Ranked:            res.Counters.Ranked,
			Eliminated:        res.Counters.Eliminated,
			SkippedGeometries: res.Counters.SkippedGeometries,
			DataGaps:          res.Counters.DataGaps,
		},
		Ranked:     FeatureCollection{Type: "FeatureCollection", Features: []Feature{}},
		Eliminated: FeatureCollection{Type: "FeatureCollection", Features: []Feature{}},
	}
	if doc.Run.DataGaps == nil {
		doc.Run.DataGaps = map[string]int{}
	}
	for _, c := range res.Ranked {
		doc.Ranked.Features = append(doc.Ranked.Features, NewFeature(c))
	}
	for _, c := range res.Eliminated {
		doc.Eliminated.Features = append(doc.Eliminated.Features, NewFeature(c))
	}
	return doc
}

// NewFeature flattens one candidate into its export feature. The geometry is
// the footprint centroid, [lon, lat] per GeoJSON.
func NewFeature(c *domain.CandidateSite) Feature {
	center := c.Footprint.Centroid()

	props := ScoredFeature{
		SchemaVersion: SchemaVersion,
		CandidateID:   c.ID,

		NodeID:         c.Node.ID,
		NodeName:       c.Node.Name,
		NodeOwner:      c.Node.Owner,
		NodeOperator:   c.Node.Operator,
		VoltageClass:   string(c.Node.VoltageClass),
		ConnectedLines: c.Node.ConnectedLines,

		Synthetic:        c.Synthetic,
		DistanceToNodeMi: c.DistanceToNodeMi,

		Rank:           c.Rank,
		Grade:          c.Grade,
		CompositeScore: c.CompositeScore,
		Eliminate:      c.Eliminate,

		ScoreProximity:      c.SubScores.Proximity.Score,
		WeightProximity:     c.SubScores.Proximity.Weight,
		ScoreVoltage:        c.SubScores.Voltage.Score,
		WeightVoltage:       c.SubScores.Voltage.Weight,
		ScoreEnvironmental:  c.SubScores.Environmental.Score,
		WeightEnvironmental: c.SubScores.Environmental.Weight,
		ScoreLandCost:       c.SubScores.LandCost.Score,
		WeightLandCost:      c.SubScores.LandCost.Weight,
		ScoreParcelSize:     c.SubScores.ParcelSize.Score,
		WeightParcelSize:    c.SubScores.ParcelSize.Weight,
		ScoreFloodRisk:      c.SubScores.FloodRisk.Score,
		WeightFloodRisk:     c.SubScores.FloodRisk.Weight,
		ScoreGridDensity:    c.SubScores.GridDensity.Score,
		WeightGridDensity:   c.SubScores.GridDensity.Weight,
		ScoreSolar:          c.SubScores.SolarResource.Score,
		WeightSolar:         c.SubScores.SolarResource.Weight,

		RiskFlags: strings.Join(c.RiskFlags, "; "),
	}

	if p := c.Parcel; p != nil {
		props.ParcelID = p.ID
		props.ParcelCounty = p.County
		props.ParcelState = p.State
		props.ParcelAcres = p.Acres
		props.PricePerAcre = p.PricePerAcre
	}

	if sc := c.Screening; sc != nil {
		props.FloodZone = sc.Flood.Zone
		props.FloodRiskLevel = string(sc.Flood.RiskLevel)
		props.InSFHA = sc.Flood.InSFHA
		props.NPLCount = sc.Contamination.NPL.Count
		props.NPLNearestMi = sc.Contamination.NPL.NearestMi
		props.BrownfieldCnt = sc.Contamination.Brownfields.Count
		props.TRICount = sc.Contamination.TRI.Count
		props.LPSTCount = sc.Contamination.LPST.Count
		props.LPSTNearestMi = sc.Contamination.LPST.NearestMi
		props.USTCount = sc.Contamination.UST.Count
		props.IHWCount = sc.Contamination.IHW.Count
		props.WetlandsPct = sc.Habitat.WetlandsPct
		props.CriticalHab = sc.Habitat.CriticalHabitatPresent
	}

	if g := c.Grid; g != nil {
		props.GHIAnnual = g.GHIAnnual
		props.SolarCoLocation = g.CoLocation
		props.NearbyGenerationMW = g.NearbyCapacityMW
		props.NearbyPlants = g.NearbyPlants
	}

	if !c.ScoredAt.IsZero() {
		props.ScoredAt = c.ScoredAt.UTC().Format(time.RFC3339)
	}

	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: []float64{center.Lon, center.Lat},
		},
		Properties: props,
	}
}

// Write streams the document as indented JSON.
func Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export document: %w", err)
	}
	return nil
}

// WriteFile writes the document to path, creating or truncating it.
func WriteFile(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := Write(f, doc); err != nil {
		return err
	}
	return f.Close()
}
