package assess

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/bess-site-scout/internal/config"
	"github.com/couchcryptid/bess-site-scout/internal/domain"
	"github.com/couchcryptid/bess-site-scout/internal/geo"
)

var nodeLoc = geo.Point{Lat: 30.5, Lon: -97.7}

func testAssessor() *Assessor {
	return New(config.DefaultScoring().Assessment, slog.Default())
}

func testCandidate(distMiles float64) *domain.CandidateSite {
	return &domain.CandidateSite{
		ID: "sub-1/p-1",
		Node: domain.GridNode{
			ID:           "sub-1",
			VoltageClass: domain.Voltage345,
			Location:     nodeLoc,
		},
		DistanceToNodeMi: distMiles,
		Footprint:        geo.SquareBuffer(nodeLoc, 40),
	}
}

func TestProximityScoreExponential(t *testing.T) {
	a := testAssessor()

	assert.Equal(t, 100.0, a.ProximityScore(0))
	assert.InDelta(t, 60.65, a.ProximityScore(1), 0.01)
	assert.InDelta(t, 36.79, a.ProximityScore(2), 0.01)
	assert.InDelta(t, 22.31, a.ProximityScore(3), 0.01)
}

func TestProximityScoreMonotonicallyDecreasing(t *testing.T) {
	a := testAssessor()
	prev := a.ProximityScore(0)
	for d := 0.5; d <= 20; d += 0.5 {
		cur := a.ProximityScore(d)
		assert.LessOrEqual(t, cur, prev, "distance %v", d)
		assert.GreaterOrEqual(t, cur, 0.0)
		prev = cur
	}
}

func TestProximityScoreLinearDecay(t *testing.T) {
	cfg := config.DefaultScoring().Assessment
	cfg.ProximityDecay = config.DecayLinear
	cfg.MaxUsefulDistanceMiles = 10
	cfg.ProximityFloor = 5
	a := New(cfg, slog.Default())

	assert.Equal(t, 100.0, a.ProximityScore(0))
	assert.InDelta(t, 50.0, a.ProximityScore(5), 1e-9)
	assert.Equal(t, 5.0, a.ProximityScore(10), "floor holds at max distance")
	assert.Equal(t, 5.0, a.ProximityScore(25), "never below floor")
}

func TestVoltageScoreTable(t *testing.T) {
	a := testAssessor()

	tests := []struct {
		class domain.VoltageClass
		want  float64
	}{
		{domain.Voltage500Plus, 100},
		{domain.Voltage345, 100},
		{domain.Voltage230, 75},
		{domain.Voltage161, 50},
		{domain.VoltageUnder161, 25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.VoltageScore(tt.class), "class=%s", tt.class)
	}
}

func TestDensityScoreSteps(t *testing.T) {
	tests := []struct {
		capacityMW float64
		plants     int
		want       float64
	}{
		{6000, 4, 100},
		{5000, 3, 100},
		{1500, 3, 80},
		{700, 2, 60},
		{150, 1, 40},
		{50, 1, 20},
		{0, 0, 5},
	}
	for _, tt := range tests {
		got := DensityScore(tt.capacityMW, 5000, tt.plants)
		assert.Equal(t, tt.want, got, "capacity=%v plants=%d", tt.capacityMW, tt.plants)
	}
}

func TestSolarScoreBreakpoints(t *testing.T) {
	tests := []struct {
		ghi  float64
		want float64
	}{
		{5.8, 100},
		{5.5, 100},
		{5.2, 85},
		{4.7, 70},
		{4.2, 55},
		{3.7, 35},
		{3.0, 15},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SolarScore(tt.ghi), "ghi=%v", tt.ghi)
	}
}

func TestCoLocationLabel(t *testing.T) {
	assert.Equal(t, "excellent", CoLocationLabel(5.6))
	assert.Equal(t, "high", CoLocationLabel(5.1))
	assert.Equal(t, "medium", CoLocationLabel(4.6))
	assert.Equal(t, "low", CoLocationLabel(4.0))
}

func TestAssessAggregatesNearbyGeneration(t *testing.T) {
	plants := []domain.GenerationPlant{
		{Name: "near-1", CapacityMW: 400, Location: geo.Point{Lat: 30.55, Lon: -97.7}},
		{Name: "near-2", CapacityMW: 300, Location: geo.Point{Lat: 30.45, Lon: -97.7}},
		{Name: "too-far", CapacityMW: 900, Location: geo.Point{Lat: 31.5, Lon: -97.7}},
	}
	data := NewDatasets(plants, []domain.SolarSample{
		{Location: nodeLoc, GHI: 5.2},
	})

	g := testAssessor().Assess(testCandidate(1.0), data)

	assert.Equal(t, 2, g.NearbyPlants)
	assert.Equal(t, 700.0, g.NearbyCapacityMW)
	assert.Equal(t, 60.0, g.GridDensityScore)
	assert.Equal(t, 5.2, g.GHIAnnual)
	assert.Equal(t, 85.0, g.SolarScore)
	assert.Equal(t, "high", g.CoLocation)
	assert.Empty(t, g.DataGaps)
}

func TestAssessSaturationWarning(t *testing.T) {
	plants := []domain.GenerationPlant{
		{Name: "huge", CapacityMW: 5200, Location: geo.Point{Lat: 30.52, Lon: -97.7}},
	}
	data := NewDatasets(plants, []domain.SolarSample{{Location: nodeLoc, GHI: 5.0}})

	g := testAssessor().Assess(testCandidate(1.0), data)

	assert.Equal(t, 100.0, g.GridDensityScore)
	require.NotEmpty(t, g.RiskFlags)
	assert.Contains(t, g.RiskFlags[0], "interconnection queue")
}

func TestAssessDataGaps(t *testing.T) {
	data := NewDatasets(nil, nil)

	g := testAssessor().Assess(testCandidate(1.0), data)

	assert.Equal(t, []string{"generation", "solar"}, g.DataGaps)
	assert.Zero(t, g.GridDensityScore)
	assert.Zero(t, g.SolarScore)
	require.Len(t, g.RiskFlags, 2)
	assert.Contains(t, g.RiskFlags[0], "DATA GAP")
}

func TestAssessSolarSampleOutOfRange(t *testing.T) {
	data := NewDatasets([]domain.GenerationPlant{
		{Name: "near", CapacityMW: 200, Location: geo.Point{Lat: 30.52, Lon: -97.7}},
	}, []domain.SolarSample{
		{Location: geo.Point{Lat: 45.0, Lon: -120.0}, GHI: 6.0},
	})

	g := testAssessor().Assess(testCandidate(1.0), data)

	assert.Equal(t, []string{"solar"}, g.DataGaps)
	assert.Zero(t, g.GHIAnnual)
}

func TestAssessEmptyCollectionsAreGaps(t *testing.T) {
	data := NewDatasets([]domain.GenerationPlant{}, []domain.SolarSample{})

	g := testAssessor().Assess(testCandidate(1.0), data)

	assert.Equal(t, []string{"generation", "solar"}, g.DataGaps,
		"zero records cannot be told apart from an unsurveyed area")
}

func TestDatasetsCountSkippedGeometry(t *testing.T) {
	data := NewDatasets(
		[]domain.GenerationPlant{{Name: "bad", Location: geo.Point{Lat: 200}}},
		[]domain.SolarSample{{Location: geo.Point{Lon: 300}, GHI: 5}},
	)

	assert.Equal(t, 2, data.SkippedGeometries())
}
