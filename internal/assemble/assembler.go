// Package assemble joins grid nodes to nearby parcels, producing the
// candidate sites the rest of the engine scores.
package assemble

import (
	"log/slog"
	"sort"

	"github.com/couchcryptid/bess-site-scout/internal/config"
	"github.com/couchcryptid/bess-site-scout/internal/domain"
	"github.com/couchcryptid/bess-site-scout/internal/geo"
)

// Assembler produces candidate sites from grid nodes and parcels.
type Assembler struct {
	cfg    config.Assembly
	logger *slog.Logger
}

// New creates an Assembler with validated configuration.
func New(cfg config.Assembly, logger *slog.Logger) *Assembler {
	return &Assembler{cfg: cfg, logger: logger}
}

// Result carries the assembled candidates plus the run-level count of
// records skipped for malformed geometry.
type Result struct {
	Candidates        []*domain.CandidateSite
	SkippedGeometries int
	QualifyingNodes   int
}

// Assemble builds one candidate per qualifying (node, parcel) pair within
// the search radius, deduplicated on node ID + parcel ID. Nodes below the
// voltage or line-count thresholds produce zero candidates; that is silent
// exclusion, not an error. When the parcel layer is absent or empty, each
// qualifying node gets a single synthetic candidate centered on the node.
//
// Guarantees: every candidate has distance_to_node >= 0, never exceeding the
// search radius, and a resolved grid node reference. Output order is sorted
// by candidate ID so identical inputs assemble identically.
func (a *Assembler) Assemble(nodes []domain.GridNode, parcels []domain.Parcel) Result {
	var res Result

	valid := make([]domain.Parcel, 0, len(parcels))
	index := geo.NewIndex()
	for _, p := range parcels {
		if !p.Location.Valid() || (p.Boundary != nil && !p.Boundary.Valid()) {
			a.logger.Warn("skipping parcel with malformed geometry", "parcel_id", p.ID)
			res.SkippedGeometries++
			continue
		}
		index.InsertPoint(p.ID, p.Location)
		valid = append(valid, p)
	}
	byID := make(map[string]domain.Parcel, len(valid))
	for _, p := range valid {
		byID[p.ID] = p
	}

	seen := make(map[string]struct{})
	minRank := a.cfg.MinVoltageRank()

	for _, node := range nodes {
		if !node.Location.Valid() {
			a.logger.Warn("skipping node with malformed geometry", "node_id", node.ID)
			res.SkippedGeometries++
			continue
		}
		if !a.qualifies(node, minRank) {
			continue
		}
		res.QualifyingNodes++

		if len(parcels) == 0 {
			c := a.syntheticCandidate(node)
			if _, dup := seen[c.ID]; !dup {
				seen[c.ID] = struct{}{}
				res.Candidates = append(res.Candidates, c)
			}
			continue
		}

		for _, parcelID := range index.SearchRadius(node.Location, a.cfg.SearchRadiusMiles) {
			parcel := byID[parcelID]
			dist := geo.Distance(node.Location, parcel.Location)
			if dist > a.cfg.SearchRadiusMiles {
				continue // index prefilter over-approximates
			}
			id := domain.CandidateID(node.ID, parcel.ID)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			res.Candidates = append(res.Candidates, a.parcelCandidate(node, parcel, dist))
		}
	}

	sort.Slice(res.Candidates, func(i, j int) bool {
		return res.Candidates[i].ID < res.Candidates[j].ID
	})

	a.logger.Info("assembly complete",
		"qualifying_nodes", res.QualifyingNodes,
		"candidates", len(res.Candidates),
		"skipped_geometries", res.SkippedGeometries,
	)
	return res
}

func (a *Assembler) qualifies(node domain.GridNode, minRank int) bool {
	if node.Status != domain.NodeActive {
		return false
	}
	if node.VoltageClass.Rank() < minRank {
		return false
	}
	return node.ConnectedLines >= a.cfg.MinConnectedLines
}

func (a *Assembler) parcelCandidate(node domain.GridNode, parcel domain.Parcel, dist float64) *domain.CandidateSite {
	p := parcel
	footprint := a.footprintFor(p)
	return &domain.CandidateSite{
		ID:               domain.CandidateID(node.ID, p.ID),
		Node:             node,
		Parcel:           &p,
		DistanceToNodeMi: dist,
		Footprint:        footprint,
	}
}

// footprintFor uses the parcel boundary when present, otherwise a square
// buffer sized to the parcel's stated acreage around its representative
// point.
func (a *Assembler) footprintFor(p domain.Parcel) geo.Polygon {
	if p.Boundary != nil && p.Boundary.Valid() {
		return *p.Boundary
	}
	acres := p.Acres
	if acres <= 0 {
		acres = a.cfg.SyntheticFootprintAcres
	}
	return geo.SquareBuffer(p.Location, acres)
}

func (a *Assembler) syntheticCandidate(node domain.GridNode) *domain.CandidateSite {
	return &domain.CandidateSite{
		ID:               domain.CandidateID(node.ID, ""),
		Node:             node,
		DistanceToNodeMi: 0,
		Footprint:        geo.SquareBuffer(node.Location, a.cfg.SyntheticFootprintAcres),
		Synthetic:        true,
	}
}
