package screen

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/bess-site-scout/internal/config"
	"github.com/couchcryptid/bess-site-scout/internal/domain"
	"github.com/couchcryptid/bess-site-scout/internal/geo"
)

var (
	siteCenter = geo.Point{Lat: 30.3, Lon: -97.9}

	// remote is ~69 mi north, outside every screening radius.
	remote = geo.Point{Lat: 31.3, Lon: -97.9}
)

func testScreener() *Screener {
	cfg := config.DefaultScoring()
	return New(cfg.Screening, cfg.Criteria, slog.Default())
}

func testCandidate() *domain.CandidateSite {
	return &domain.CandidateSite{
		ID:        "sub-1/p-1",
		Footprint: geo.SquareBuffer(siteCenter, 40),
	}
}

// zoneAround builds a flood polygon comfortably containing the site center.
func zoneAround(zone, subtype string, sfha bool) domain.FloodZone {
	return domain.FloodZone{
		Zone:    zone,
		Subtype: subtype,
		SFHA:    sfha,
		Area:    geo.SquareBuffer(siteCenter, 5000),
	}
}

// siteAtMiles places a contamination site north of the center at the given
// distance.
func siteAtMiles(cat domain.ContaminationCategory, miles float64) domain.ContaminationSite {
	return domain.ContaminationSite{
		Category: cat,
		Location: geo.Point{Lat: siteCenter.Lat + miles/69.0, Lon: siteCenter.Lon},
	}
}

// The remote* helpers populate a layer with features far from the site, so
// screening sees a surveyed-and-clean layer rather than a data gap.
func remoteFloodZones() []domain.FloodZone {
	return []domain.FloodZone{{
		Zone:    "X",
		Subtype: "AREA OF MINIMAL FLOOD HAZARD",
		Area:    geo.SquareBuffer(remote, 40),
	}}
}

func remoteContamination() []domain.ContaminationSite {
	return []domain.ContaminationSite{{Category: domain.ContaminationTRI, Location: remote}}
}

func remoteHabitats() []domain.HabitatArea {
	return []domain.HabitatArea{{Kind: domain.HabitatWetland, Area: geo.SquareBuffer(remote, 40)}}
}

func cleanData() *Datasets {
	return NewDatasets(remoteFloodZones(), remoteContamination(), remoteHabitats())
}

func TestScreenCleanSiteScoresFull(t *testing.T) {
	r := testScreener().Screen(testCandidate(), cleanData())

	assert.Equal(t, 100.0, r.Score)
	assert.False(t, r.Eliminate)
	assert.Empty(t, r.RiskFlags)
	assert.Empty(t, r.DataGaps)
	assert.Equal(t, domain.RiskLow, r.Flood.RiskLevel)
}

func TestScreenFloodZones(t *testing.T) {
	tests := []struct {
		name      string
		zone      domain.FloodZone
		wantLevel domain.RiskLevel
		wantScore float64
		wantSFHA  bool
	}{
		{
			name:      "high risk AE",
			zone:      zoneAround("AE", "1 PCT ANNUAL CHANCE FLOOD HAZARD", true),
			wantLevel: domain.RiskHigh,
			wantScore: 75,
			wantSFHA:  true,
		},
		{
			name:      "undetermined D",
			zone:      zoneAround("D", "", false),
			wantLevel: domain.RiskUndetermined,
			wantScore: 85,
		},
		{
			name:      "moderate shaded X",
			zone:      zoneAround("X", "0.2 PCT ANNUAL CHANCE FLOOD HAZARD", false),
			wantLevel: domain.RiskModerate,
			wantScore: 90,
		},
		{
			name:      "unshaded X is low",
			zone:      zoneAround("X", "AREA OF MINIMAL FLOOD HAZARD", false),
			wantLevel: domain.RiskLow,
			wantScore: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := NewDatasets([]domain.FloodZone{tt.zone}, remoteContamination(), remoteHabitats())

			r := testScreener().Screen(testCandidate(), data)

			assert.Equal(t, tt.wantLevel, r.Flood.RiskLevel)
			assert.Equal(t, tt.wantScore, r.Score)
			assert.Equal(t, tt.wantSFHA, r.Flood.InSFHA)
			assert.False(t, r.Eliminate, "flood criteria default to WARNING")
		})
	}
}

func TestScreenNPLProximityEliminates(t *testing.T) {
	data := NewDatasets(remoteFloodZones(), []domain.ContaminationSite{
		siteAtMiles(domain.ContaminationNPL, 0.2),
	}, remoteHabitats())

	r := testScreener().Screen(testCandidate(), data)

	assert.True(t, r.Eliminate)
	assert.Equal(t, 70.0, r.Score)
	assert.Equal(t, 1, r.Contamination.NPL.Count)
	require.NotEmpty(t, r.RiskFlags)
	assert.Contains(t, r.RiskFlags[0], "ELIMINATE")
}

func TestScreenNPLNearWarnsOnly(t *testing.T) {
	data := NewDatasets(remoteFloodZones(), []domain.ContaminationSite{
		siteAtMiles(domain.ContaminationNPL, 0.4),
	}, remoteHabitats())

	r := testScreener().Screen(testCandidate(), data)

	assert.False(t, r.Eliminate)
	assert.Equal(t, 80.0, r.Score)
	require.NotEmpty(t, r.RiskFlags)
	assert.Contains(t, r.RiskFlags[0], "WARNING")
}

func TestScreenNPLSeverityDowngrade(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.Criteria.NPLWithinQuarterMile = config.SeverityWarning
	s := New(cfg.Screening, cfg.Criteria, slog.Default())

	data := NewDatasets(remoteFloodZones(), []domain.ContaminationSite{
		siteAtMiles(domain.ContaminationNPL, 0.2),
	}, remoteHabitats())

	r := s.Screen(testCandidate(), data)

	assert.False(t, r.Eliminate)
	assert.Equal(t, 70.0, r.Score, "penalty applies regardless of severity")
}

func TestScreenBrownfieldsCapped(t *testing.T) {
	data := NewDatasets(remoteFloodZones(), []domain.ContaminationSite{
		siteAtMiles(domain.ContaminationBrownfield, 0.5),
		siteAtMiles(domain.ContaminationBrownfield, 0.6),
		siteAtMiles(domain.ContaminationBrownfield, 0.7),
	}, remoteHabitats())

	r := testScreener().Screen(testCandidate(), data)

	// min(5*3, 10) = 10
	assert.Equal(t, 90.0, r.Score)
	assert.Equal(t, 3, r.Contamination.Brownfields.Count)
	assert.False(t, r.Eliminate)
}

func TestScreenLPSTProximity(t *testing.T) {
	data := NewDatasets(remoteFloodZones(), []domain.ContaminationSite{
		siteAtMiles(domain.ContaminationLPST, 0.05),
	}, remoteHabitats())

	r := testScreener().Screen(testCandidate(), data)

	assert.Equal(t, 80.0, r.Score)
	assert.False(t, r.Eliminate)
}

func TestScreenStatePenaltyCap(t *testing.T) {
	sites := []domain.ContaminationSite{
		siteAtMiles(domain.ContaminationLPST, 0.05), // 20
	}
	for i := 0; i < 5; i++ {
		sites = append(sites, siteAtMiles(domain.ContaminationUST, 0.3+float64(i)*0.01)) // min(10,5)=5
	}
	for i := 0; i < 3; i++ {
		sites = append(sites, siteAtMiles(domain.ContaminationIHW, 0.4+float64(i)*0.01)) // min(9,8)=8
	}
	data := NewDatasets(remoteFloodZones(), sites, remoteHabitats())

	r := testScreener().Screen(testCandidate(), data)

	// 20+5+8 = 33, capped at 25.
	assert.Equal(t, 75.0, r.Score)
}

func TestScreenCriticalHabitatEliminates(t *testing.T) {
	data := NewDatasets(remoteFloodZones(), remoteContamination(), []domain.HabitatArea{
		{
			Kind: domain.HabitatCritical,
			Name: "Golden-cheeked Warbler",
			Area: geo.SquareBuffer(siteCenter, 5000),
		},
	})

	r := testScreener().Screen(testCandidate(), data)

	assert.True(t, r.Eliminate)
	assert.True(t, r.Habitat.CriticalHabitatPresent)
	assert.Equal(t, "Golden-cheeked Warbler", r.Habitat.Species)
	assert.Equal(t, 88.0, r.Score, "eliminated sites still get a transparent score")
}

func TestScreenWetlandsPenalty(t *testing.T) {
	data := NewDatasets(remoteFloodZones(), remoteContamination(), []domain.HabitatArea{
		{
			Kind: domain.HabitatWetland,
			Area: geo.SquareBuffer(siteCenter, 5000),
		},
	})

	r := testScreener().Screen(testCandidate(), data)

	assert.False(t, r.Eliminate)
	assert.Greater(t, r.Habitat.WetlandsPct, 25.0)
	assert.Equal(t, 88.0, r.Score)
	require.NotEmpty(t, r.RiskFlags)
	assert.Contains(t, r.RiskFlags[0], "wetlands")
}

func TestScreenDataGaps(t *testing.T) {
	data := NewDatasets(nil, nil, nil)

	r := testScreener().Screen(testCandidate(), data)

	assert.Equal(t, 100.0, r.Score, "gaps carry no penalty")
	assert.False(t, r.Eliminate, "gaps never eliminate")
	assert.Equal(t, []string{"flood", "contamination", "habitat"}, r.DataGaps)
	assert.True(t, r.Flood.DataGap)
	assert.True(t, r.Contamination.DataGap)
	assert.True(t, r.Habitat.DataGap)
	require.Len(t, r.RiskFlags, 3)
	for _, flag := range r.RiskFlags {
		assert.Contains(t, flag, "DATA GAP")
	}
}

func TestScreenEmptyCollectionsAreGaps(t *testing.T) {
	data := NewDatasets([]domain.FloodZone{}, []domain.ContaminationSite{}, []domain.HabitatArea{})

	r := testScreener().Screen(testCandidate(), data)

	assert.Equal(t, 100.0, r.Score)
	assert.False(t, r.Eliminate)
	assert.Equal(t, []string{"flood", "contamination", "habitat"}, r.DataGaps,
		"zero features cannot be told apart from an unsurveyed area")
	require.Len(t, r.RiskFlags, 3)
	for _, flag := range r.RiskFlags {
		assert.Contains(t, flag, "DATA GAP")
	}
}

func TestScreenFlagOrderDeterministic(t *testing.T) {
	data := NewDatasets(
		[]domain.FloodZone{zoneAround("AE", "", true)},
		[]domain.ContaminationSite{siteAtMiles(domain.ContaminationNPL, 0.4)},
		[]domain.HabitatArea{{Kind: domain.HabitatWetland, Area: geo.SquareBuffer(siteCenter, 5000)}},
	)

	first := testScreener().Screen(testCandidate(), data)
	for i := 0; i < 5; i++ {
		again := testScreener().Screen(testCandidate(), data)
		assert.Equal(t, first.RiskFlags, again.RiskFlags)
		assert.Equal(t, first.Score, again.Score)
	}

	// Flood flags precede contamination flags, which precede habitat flags.
	require.Len(t, first.RiskFlags, 4)
	assert.Contains(t, first.RiskFlags[0], "Flood Hazard Area")
	assert.Contains(t, first.RiskFlags[1], "flood zone")
	assert.Contains(t, first.RiskFlags[2], "NPL")
	assert.Contains(t, first.RiskFlags[3], "wetlands")
}

func TestDatasetsCountSkippedGeometry(t *testing.T) {
	data := NewDatasets(
		[]domain.FloodZone{{Zone: "AE", Area: geo.Polygon{}}},
		[]domain.ContaminationSite{{Category: domain.ContaminationTRI, Location: geo.Point{Lat: 200}}},
		[]domain.HabitatArea{{Kind: domain.HabitatWetland, Area: geo.Polygon{}}},
	)

	assert.Equal(t, 3, data.SkippedGeometries())
}
