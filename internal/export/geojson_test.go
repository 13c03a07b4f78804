package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/bess-site-scout/internal/domain"
	"github.com/couchcryptid/bess-site-scout/internal/geo"
	"github.com/couchcryptid/bess-site-scout/internal/pipeline"
)

func scoredCandidate() *domain.CandidateSite {
	center := geo.Point{Lat: 30.5, Lon: -97.7}
	return &domain.CandidateSite{
		ID: "sub-1/p-1",
		Node: domain.GridNode{
			ID:             "sub-1",
			Name:           "Round Rock 345",
			Owner:          "ONCOR",
			VoltageClass:   domain.Voltage345,
			ConnectedLines: 4,
			Location:       center,
		},
		Parcel: &domain.Parcel{
			ID:           "p-1",
			Acres:        40,
			PricePerAcre: 12000,
			County:       "Williamson",
			State:        "TX",
			Location:     center,
		},
		DistanceToNodeMi: 0.8,
		Footprint:        geo.SquareBuffer(center, 40),
		Screening: &domain.ScreeningResult{
			Score: 95,
			Flood: domain.FloodResult{Zone: "X", RiskLevel: domain.RiskLow},
		},
		Grid: &domain.GridAssessment{
			GHIAnnual:        5.2,
			CoLocation:       "high",
			NearbyCapacityMW: 700,
			NearbyPlants:     2,
		},
		SubScores: domain.SubScores{
			Proximity: domain.FactorScore{Score: 67.0, Weight: 0.25},
			Voltage:   domain.FactorScore{Score: 100, Weight: 0.15},
		},
		CompositeScore: 84.2,
		Grade:          "A",
		Rank:           1,
		RiskFlags:      []string{"WARNING: one", "NOTE: two"},
		ScoredAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewFeatureFlattensCandidate(t *testing.T) {
	f := NewFeature(scoredCandidate())

	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "Point", f.Geometry.Type)
	require.Len(t, f.Geometry.Coordinates, 2)
	assert.InDelta(t, -97.7, f.Geometry.Coordinates[0], 1e-6, "lon first per GeoJSON")
	assert.InDelta(t, 30.5, f.Geometry.Coordinates[1], 1e-6)

	p := f.Properties
	assert.Equal(t, SchemaVersion, p.SchemaVersion)
	assert.Equal(t, "sub-1/p-1", p.CandidateID)
	assert.Equal(t, "345kV", p.VoltageClass)
	assert.Equal(t, "Williamson", p.ParcelCounty)
	assert.Equal(t, 84.2, p.CompositeScore)
	assert.Equal(t, "A", p.Grade)
	assert.Equal(t, 1, p.Rank)
	assert.Equal(t, 67.0, p.ScoreProximity)
	assert.Equal(t, 0.25, p.WeightProximity)
	assert.Equal(t, "X", p.FloodZone)
	assert.Equal(t, "high", p.SolarCoLocation)
	assert.Equal(t, "WARNING: one; NOTE: two", p.RiskFlags)
	assert.Equal(t, "2025-06-01T12:00:00Z", p.ScoredAt)
}

func TestNewFeatureSyntheticCandidate(t *testing.T) {
	c := scoredCandidate()
	c.Parcel = nil
	c.Synthetic = true

	f := NewFeature(c)

	assert.True(t, f.Properties.Synthetic)
	assert.Empty(t, f.Properties.ParcelID)
	assert.Zero(t, f.Properties.ParcelAcres)
}

func TestNewDocumentSeparatesEliminated(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	kept := scoredCandidate()
	dropped := scoredCandidate()
	dropped.ID = "sub-1/p-2"
	dropped.Eliminate = true
	dropped.Grade = ""
	dropped.Rank = 0

	res := &pipeline.Result{
		Ranked:     []*domain.CandidateSite{kept},
		Eliminated: []*domain.CandidateSite{dropped},
		Counters: pipeline.Counters{
			QualifyingNodes: 1,
			Candidates:      2,
			Ranked:          1,
			Eliminated:      1,
			DataGaps:        map[string]int{"solar": 2},
		},
	}

	doc := NewDocument("run-1", res)

	assert.Equal(t, "run-1", doc.Run.RunID)
	assert.Equal(t, SchemaVersion, doc.Run.SchemaVersion)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), doc.Run.GeneratedAt)
	assert.Equal(t, 2, doc.Run.Candidates)
	assert.Equal(t, map[string]int{"solar": 2}, doc.Run.DataGaps)

	require.Len(t, doc.Ranked.Features, 1)
	require.Len(t, doc.Eliminated.Features, 1)
	assert.Equal(t, "sub-1/p-1", doc.Ranked.Features[0].Properties.CandidateID)
	assert.True(t, doc.Eliminated.Features[0].Properties.Eliminate)
}

func TestWriteIsByteDeterministic(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	res := &pipeline.Result{
		Ranked:   []*domain.CandidateSite{scoredCandidate()},
		Counters: pipeline.Counters{Candidates: 1, Ranked: 1},
	}

	var first, second bytes.Buffer
	require.NoError(t, Write(&first, NewDocument("run-1", res)))
	require.NoError(t, Write(&second, NewDocument("run-1", res)))

	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestSchemaFieldsStable(t *testing.T) {
	raw, err := json.Marshal(NewFeature(scoredCandidate()).Properties)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	// Downstream GIS tooling keys on these names; renames are breaking.
	for _, key := range []string{
		"schema_version", "candidate_id", "node_id", "voltage_class",
		"parcel_id", "distance_to_node_mi", "rank", "grade", "composite_score",
		"score_proximity", "weight_proximity", "score_solar_resource",
		"flood_zone", "in_sfha", "npl_count", "wetlands_pct", "critical_habitat",
		"ghi_annual", "nearby_generation_mw", "eliminate", "risk_flags",
	} {
		assert.Contains(t, fields, key)
	}
}
