package domain

import (
	"fmt"
	"time"

	"github.com/couchcryptid/bess-site-scout/internal/geo"
)

// NodeStatus is the operational state of a grid node. Only active nodes
// qualify for candidate generation.
type NodeStatus string

const (
	NodeActive   NodeStatus = "active"
	NodeRetired  NodeStatus = "retired"
	NodeProposed NodeStatus = "proposed"
)

// VoltageClass is the categorical bucket of a substation's maximum operating
// voltage, used as a proxy for interconnection capacity.
type VoltageClass string

const (
	Voltage500Plus  VoltageClass = "500kV+"
	Voltage345      VoltageClass = "345kV"
	Voltage230      VoltageClass = "230kV"
	Voltage161      VoltageClass = "161kV"
	VoltageUnder161 VoltageClass = "<161kV"
)

// ClassifyVoltage buckets a maximum operating voltage in kV. The 220-287 kV
// range collapses into the 230kV class, matching the HIFLD class boundaries.
func ClassifyVoltage(maxKV float64) VoltageClass {
	switch {
	case maxKV >= 500:
		return Voltage500Plus
	case maxKV >= 345:
		return Voltage345
	case maxKV >= 220:
		return Voltage230
	case maxKV >= 161:
		return Voltage161
	default:
		return VoltageUnder161
	}
}

// Rank orders voltage classes from weakest (0) to strongest, for threshold
// comparisons in the assembler.
func (v VoltageClass) Rank() int {
	switch v {
	case Voltage500Plus:
		return 4
	case Voltage345:
		return 3
	case Voltage230:
		return 2
	case Voltage161:
		return 1
	default:
		return 0
	}
}

// GridNode is a transmission substation. Sourced once per run; read-only to
// the scoring engine.
type GridNode struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Owner          string       `json:"owner,omitempty"`
	Operator       string       `json:"operator,omitempty"`
	MaxVoltageKV   float64      `json:"max_voltage_kv"`
	VoltageClass   VoltageClass `json:"voltage_class"`
	ConnectedLines int          `json:"connected_lines"`
	Location       geo.Point    `json:"location"`
	Status         NodeStatus   `json:"status"`
}

// Parcel is a real-estate unit. Read-only input.
type Parcel struct {
	ID           string       `json:"id"`
	Owner        string       `json:"owner,omitempty"`
	Acres        float64      `json:"acres"`
	PricePerAcre float64      `json:"price_per_acre"`
	Location     geo.Point    `json:"location"`
	Boundary     *geo.Polygon `json:"boundary,omitempty"`
	County       string       `json:"county,omitempty"`
	State        string       `json:"state,omitempty"`
}

// RiskLevel classifies flood exposure at a candidate site.
type RiskLevel string

const (
	RiskLow          RiskLevel = "low"
	RiskModerate     RiskLevel = "moderate"
	RiskHigh         RiskLevel = "high"
	RiskUndetermined RiskLevel = "undetermined"
	RiskUnknown      RiskLevel = "unknown"
)

// FloodZone is a normalized FEMA NFHL flood hazard polygon.
type FloodZone struct {
	Zone    string      `json:"zone"`    // e.g. "AE", "X", "D"
	Subtype string      `json:"subtype"` // e.g. "0.2 PCT ANNUAL CHANCE FLOOD HAZARD"
	SFHA    bool        `json:"sfha"`
	Area    geo.Polygon `json:"area"`
}

// ContaminationCategory identifies the registry a contamination site came from.
type ContaminationCategory string

const (
	ContaminationNPL        ContaminationCategory = "npl"
	ContaminationBrownfield ContaminationCategory = "brownfield"
	ContaminationTRI        ContaminationCategory = "tri"
	ContaminationLPST       ContaminationCategory = "lpst"
	ContaminationUST        ContaminationCategory = "ust"
	ContaminationIHW        ContaminationCategory = "ihw"
)

// ContaminationSite is a normalized point record from a federal or state
// contamination registry.
type ContaminationSite struct {
	Category ContaminationCategory `json:"category"`
	Name     string                `json:"name,omitempty"`
	Location geo.Point             `json:"location"`
}

// HabitatKind distinguishes wetland polygons from designated critical habitat.
type HabitatKind string

const (
	HabitatWetland  HabitatKind = "wetland"
	HabitatCritical HabitatKind = "critical_habitat"
)

// HabitatArea is a normalized USFWS wetland or critical-habitat polygon.
type HabitatArea struct {
	Kind HabitatKind `json:"kind"`
	Name string      `json:"name,omitempty"` // species common name for critical habitat
	Area geo.Polygon `json:"area"`
}

// GenerationPlant is a power plant with nameplate capacity, used for
// grid-density assessment.
type GenerationPlant struct {
	Name       string    `json:"name"`
	Fuel       string    `json:"fuel,omitempty"`
	CapacityMW float64   `json:"capacity_mw"`
	Location   geo.Point `json:"location"`
}

// SolarSample is an annual-average GHI measurement at a location, in
// kWh/m²/day.
type SolarSample struct {
	Location geo.Point `json:"location"`
	GHI      float64   `json:"ghi"`
}

// Datasets bundles every normalized upstream collection consumed by a run.
// All fields are read-only once handed to the pipeline; a nil slice marks
// that source as unavailable (a data gap, not an error).
type Datasets struct {
	GridNodes     []GridNode
	Parcels       []Parcel
	FloodZones    []FloodZone
	Contamination []ContaminationSite
	Habitats      []HabitatArea
	Generation    []GenerationPlant
	Solar         []SolarSample
}

// CandidateID builds the deterministic identifier for a node/parcel pairing.
// Synthetic candidates (no parcel layer) use the "buffer" suffix.
func CandidateID(nodeID, parcelID string) string {
	if parcelID == "" {
		return fmt.Sprintf("%s/buffer", nodeID)
	}
	return fmt.Sprintf("%s/%s", nodeID, parcelID)
}

// CandidateSite is the central entity: a grid node joined to a parcel (or a
// synthetic footprint around the node). The screener and assessor each fill
// only their own slot; the composite scorer sets the final fields once, and
// Rank is assigned exactly once during the final sort.
type CandidateSite struct {
	ID               string      `json:"id"`
	Node             GridNode    `json:"node"`
	Parcel           *Parcel     `json:"parcel,omitempty"`
	DistanceToNodeMi float64     `json:"distance_to_node_mi"`
	Footprint        geo.Polygon `json:"footprint"`
	Synthetic        bool        `json:"synthetic"`

	Screening *ScreeningResult `json:"screening,omitempty"`
	Grid      *GridAssessment  `json:"grid,omitempty"`

	SubScores      SubScores `json:"sub_scores"`
	CompositeScore float64   `json:"composite_score"`
	Grade          string    `json:"grade,omitempty"`
	Rank           int       `json:"rank,omitempty"`
	Eliminate      bool      `json:"eliminate"`
	RiskFlags      []string  `json:"risk_flags,omitempty"`

	ScoredAt time.Time `json:"scored_at,omitempty"`
}

// FactorScore is one sub-score with the weight it carried into the composite.
type FactorScore struct {
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// SubScores is the fixed factor set feeding the composite. An explicit struct
// rather than a map keeps the export schema stable and field order
// deterministic.
type SubScores struct {
	Proximity     FactorScore `json:"proximity"`
	Voltage       FactorScore `json:"voltage"`
	Environmental FactorScore `json:"environmental"`
	LandCost      FactorScore `json:"land_cost"`
	ParcelSize    FactorScore `json:"parcel_size"`
	FloodRisk     FactorScore `json:"flood_risk"`
	GridDensity   FactorScore `json:"grid_density"`
	SolarResource FactorScore `json:"solar_resource"`
}

// FloodResult is the flood portion of a screening verdict.
type FloodResult struct {
	Zone      string    `json:"zone,omitempty"`
	RiskLevel RiskLevel `json:"risk_level"`
	InSFHA    bool      `json:"in_sfha"`
	Penalty   float64   `json:"penalty"`
	DataGap   bool      `json:"data_gap,omitempty"`
}

// CategoryResult summarizes contamination hits for one registry category.
type CategoryResult struct {
	Count      int     `json:"count"`
	NearestMi  float64 `json:"nearest_mi,omitempty"`
	HasNearest bool    `json:"-"`
}

// ContaminationResult holds the per-category contamination summaries.
type ContaminationResult struct {
	NPL         CategoryResult `json:"npl"`
	Brownfields CategoryResult `json:"brownfields"`
	TRI         CategoryResult `json:"tri"`
	LPST        CategoryResult `json:"lpst"`
	UST         CategoryResult `json:"ust"`
	IHW         CategoryResult `json:"ihw"`
	DataGap     bool           `json:"data_gap,omitempty"`
}

// HabitatResult is the wetlands/critical-habitat portion of a screening
// verdict.
type HabitatResult struct {
	WetlandsPct            float64 `json:"wetlands_pct"`
	CriticalHabitatPresent bool    `json:"critical_habitat_present"`
	Species                string  `json:"species,omitempty"`
	DataGap                bool    `json:"data_gap,omitempty"`
}

// ScreeningResult is the Environmental Screener's verdict for one candidate:
// a 0-100 sub-score (100 = cleanest), a hard-eliminate flag, and the ordered
// risk-flag list. RiskFlags preserves evaluation order; it is never sorted.
type ScreeningResult struct {
	Score         float64             `json:"score"`
	Eliminate     bool                `json:"eliminate"`
	Flood         FloodResult         `json:"flood"`
	Contamination ContaminationResult `json:"contamination"`
	Habitat       HabitatResult       `json:"habitat"`
	RiskFlags     []string            `json:"risk_flags,omitempty"`
	DataGaps      []string            `json:"data_gaps,omitempty"`
}

// GridAssessment is the Grid & Solar Assessor's output for one candidate.
type GridAssessment struct {
	ProximityScore   float64 `json:"proximity_score"`
	VoltageScore     float64 `json:"voltage_score"`
	GridDensityScore float64 `json:"grid_density_score"`
	SolarScore       float64 `json:"solar_score"`

	NearbyPlants     int     `json:"nearby_plants"`
	NearbyCapacityMW float64 `json:"nearby_capacity_mw"`
	GHIAnnual        float64 `json:"ghi_annual"`
	CoLocation       string  `json:"co_location,omitempty"`

	RiskFlags []string `json:"risk_flags,omitempty"`
	DataGaps  []string `json:"data_gaps,omitempty"`
}
