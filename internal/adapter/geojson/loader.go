// Package geojson is the ingestion boundary: it reads upstream feature
// collections (HIFLD substations, county parcels, FEMA NFHL, EPA/TCEQ
// registries, USFWS habitat, EIA generation, NREL solar) into the engine's
// normalized types. Unknown upstream attributes are dropped here; only the
// fields the typed property structs name survive into a run.
package geojson

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/bess-site-scout/internal/domain"
	"github.com/couchcryptid/bess-site-scout/internal/geo"
)

// Paths names the input files for one run. Nodes is required; an empty path
// for any other layer marks that source unavailable (a data gap, not an
// error).
type Paths struct {
	Nodes         string
	Parcels       string
	Flood         string
	Contamination string
	Habitats      string
	Generation    string
	Solar         string
}

// Loader reads and normalizes input feature collections.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadDatasets reads every configured layer. Optional layers with empty
// paths come back nil so downstream stages apply data-gap policy.
func (l *Loader) LoadDatasets(paths Paths) (domain.Datasets, error) {
	var data domain.Datasets
	var err error

	if data.GridNodes, err = l.LoadGridNodes(paths.Nodes); err != nil {
		return domain.Datasets{}, err
	}

	optional := []struct {
		name string
		path string
		load func(string) error
	}{
		{"parcels", paths.Parcels, func(p string) error { v, e := l.LoadParcels(p); data.Parcels = v; return e }},
		{"flood", paths.Flood, func(p string) error { v, e := l.LoadFloodZones(p); data.FloodZones = v; return e }},
		{"contamination", paths.Contamination, func(p string) error { v, e := l.LoadContamination(p); data.Contamination = v; return e }},
		{"habitat", paths.Habitats, func(p string) error { v, e := l.LoadHabitats(p); data.Habitats = v; return e }},
		{"generation", paths.Generation, func(p string) error { v, e := l.LoadGeneration(p); data.Generation = v; return e }},
		{"solar", paths.Solar, func(p string) error { v, e := l.LoadSolar(p); data.Solar = v; return e }},
	}
	for _, layer := range optional {
		if layer.path == "" {
			l.logger.Warn("input layer not configured, treating as data gap", "layer", layer.name)
			continue
		}
		if err := layer.load(layer.path); err != nil {
			return domain.Datasets{}, fmt.Errorf("load %s layer: %w", layer.name, err)
		}
	}
	return data, nil
}

type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type rawFeature struct {
	Type       string          `json:"type"`
	Geometry   rawGeometry     `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

func readCollection(path string) (rawCollection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return rawCollection{}, err
	}
	var fc rawCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return rawCollection{}, fmt.Errorf("parse feature collection: %w", err)
	}
	return fc, nil
}

func (g rawGeometry) point() (geo.Point, bool) {
	if g.Type != "Point" {
		return geo.Point{}, false
	}
	var coords []float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil || len(coords) < 2 {
		return geo.Point{}, false
	}
	return geo.Point{Lat: coords[1], Lon: coords[0]}, true
}

func (g rawGeometry) polygon() (geo.Polygon, bool) {
	if g.Type != "Polygon" {
		return geo.Polygon{}, false
	}
	var rings [][][]float64
	if err := json.Unmarshal(g.Coordinates, &rings); err != nil || len(rings) == 0 {
		return geo.Polygon{}, false
	}
	exterior := make(geo.Ring, 0, len(rings[0]))
	for _, c := range rings[0] {
		if len(c) < 2 {
			return geo.Polygon{}, false
		}
		exterior = append(exterior, geo.Point{Lat: c[1], Lon: c[0]})
	}
	return geo.Polygon{Exterior: exterior}, true
}

// LoadGridNodes reads the substation layer. This layer is required: a run
// without grid nodes has nothing to score.
func (l *Loader) LoadGridNodes(path string) ([]domain.GridNode, error) {
	if path == "" {
		return nil, fmt.Errorf("grid node layer is required")
	}
	fc, err := readCollection(path)
	if err != nil {
		return nil, fmt.Errorf("load grid nodes: %w", err)
	}

	type props struct {
		ID             string  `json:"id"`
		Name           string  `json:"name"`
		Owner          string  `json:"owner"`
		Operator       string  `json:"operator"`
		MaxVoltageKV   float64 `json:"max_voltage_kv"`
		ConnectedLines int     `json:"connected_lines"`
		Status         string  `json:"status"`
	}

	nodes := make([]domain.GridNode, 0, len(fc.Features))
	for _, f := range fc.Features {
		var p props
		if err := json.Unmarshal(f.Properties, &p); err != nil {
			l.logger.Warn("skipping grid node with malformed properties", "error", err)
			continue
		}
		loc, ok := f.Geometry.point()
		if !ok {
			l.logger.Warn("skipping grid node with non-point geometry", "node_id", p.ID)
			continue
		}
		status := domain.NodeStatus(p.Status)
		if p.Status == "" {
			status = domain.NodeActive
		}
		nodes = append(nodes, domain.GridNode{
			ID:             p.ID,
			Name:           p.Name,
			Owner:          p.Owner,
			Operator:       p.Operator,
			MaxVoltageKV:   p.MaxVoltageKV,
			VoltageClass:   domain.ClassifyVoltage(p.MaxVoltageKV),
			ConnectedLines: p.ConnectedLines,
			Location:       loc,
			Status:         status,
		})
	}
	return nodes, nil
}

// LoadParcels reads the parcel layer. Point features carry a representative
// location only; polygon features also keep their boundary.
func (l *Loader) LoadParcels(path string) ([]domain.Parcel, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}

	type props struct {
		ID           string  `json:"id"`
		Owner        string  `json:"owner"`
		Acres        float64 `json:"acres"`
		PricePerAcre float64 `json:"price_per_acre"`
		County       string  `json:"county"`
		State        string  `json:"state"`
	}

	parcels := make([]domain.Parcel, 0, len(fc.Features))
	for _, f := range fc.Features {
		var p props
		if err := json.Unmarshal(f.Properties, &p); err != nil {
			l.logger.Warn("skipping parcel with malformed properties", "error", err)
			continue
		}
		parcel := domain.Parcel{
			ID:           p.ID,
			Owner:        p.Owner,
			Acres:        p.Acres,
			PricePerAcre: p.PricePerAcre,
			County:       p.County,
			State:        p.State,
		}
		if loc, ok := f.Geometry.point(); ok {
			parcel.Location = loc
		} else if poly, ok := f.Geometry.polygon(); ok {
			parcel.Boundary = &poly
			parcel.Location = poly.Centroid()
		} else {
			l.logger.Warn("skipping parcel with unsupported geometry", "parcel_id", p.ID)
			continue
		}
		parcels = append(parcels, parcel)
	}
	return parcels, nil
}

// LoadFloodZones reads the FEMA NFHL layer.
func (l *Loader) LoadFloodZones(path string) ([]domain.FloodZone, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}

	type props struct {
		Zone    string `json:"zone"`
		Subtype string `json:"subtype"`
		SFHA    bool   `json:"sfha"`
	}

	zones := make([]domain.FloodZone, 0, len(fc.Features))
	for _, f := range fc.Features {
		var p props
		if err := json.Unmarshal(f.Properties, &p); err != nil {
			continue
		}
		poly, ok := f.Geometry.polygon()
		if !ok {
			l.logger.Warn("skipping flood zone with non-polygon geometry", "zone", p.Zone)
			continue
		}
		zones = append(zones, domain.FloodZone{
			Zone:    p.Zone,
			Subtype: p.Subtype,
			SFHA:    p.SFHA,
			Area:    poly,
		})
	}
	return zones, nil
}

// LoadContamination reads a combined contamination registry layer, each
// feature tagged with its source category.
func (l *Loader) LoadContamination(path string) ([]domain.ContaminationSite, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}

	type props struct {
		Category string `json:"category"`
		Name     string `json:"name"`
	}

	sites := make([]domain.ContaminationSite, 0, len(fc.Features))
	for _, f := range fc.Features {
		var p props
		if err := json.Unmarshal(f.Properties, &p); err != nil {
			continue
		}
		loc, ok := f.Geometry.point()
		if !ok {
			l.logger.Warn("skipping contamination site with non-point geometry", "name", p.Name)
			continue
		}
		sites = append(sites, domain.ContaminationSite{
			Category: domain.ContaminationCategory(p.Category),
			Name:     p.Name,
			Location: loc,
		})
	}
	return sites, nil
}

// LoadHabitats reads the USFWS wetlands / critical habitat layer.
func (l *Loader) LoadHabitats(path string) ([]domain.HabitatArea, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}

	type props struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}

	areas := make([]domain.HabitatArea, 0, len(fc.Features))
	for _, f := range fc.Features {
		var p props
		if err := json.Unmarshal(f.Properties, &p); err != nil {
			continue
		}
		poly, ok := f.Geometry.polygon()
		if !ok {
			l.logger.Warn("skipping habitat area with non-polygon geometry", "name", p.Name)
			continue
		}
		areas = append(areas, domain.HabitatArea{
			Kind: domain.HabitatKind(p.Kind),
			Name: p.Name,
			Area: poly,
		})
	}
	return areas, nil
}

// LoadGeneration reads the EIA generation fleet layer.
func (l *Loader) LoadGeneration(path string) ([]domain.GenerationPlant, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}

	type props struct {
		Name       string  `json:"name"`
		Fuel       string  `json:"fuel"`
		CapacityMW float64 `json:"capacity_mw"`
	}

	plants := make([]domain.GenerationPlant, 0, len(fc.Features))
	for _, f := range fc.Features {
		var p props
		if err := json.Unmarshal(f.Properties, &p); err != nil {
			continue
		}
		loc, ok := f.Geometry.point()
		if !ok {
			l.logger.Warn("skipping plant with non-point geometry", "name", p.Name)
			continue
		}
		plants = append(plants, domain.GenerationPlant{
			Name:       p.Name,
			Fuel:       p.Fuel,
			CapacityMW: p.CapacityMW,
			Location:   loc,
		})
	}
	return plants, nil
}

// LoadSolar reads the NREL solar resource sample layer.
func (l *Loader) LoadSolar(path string) ([]domain.SolarSample, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}

	type props struct {
		GHI float64 `json:"ghi"`
	}

	samples := make([]domain.SolarSample, 0, len(fc.Features))
	for _, f := range fc.Features {
		var p props
		if err := json.Unmarshal(f.Properties, &p); err != nil {
			continue
		}
		loc, ok := f.Geometry.point()
		if !ok {
			continue
		}
		samples = append(samples, domain.SolarSample{Location: loc, GHI: p.GHI})
	}
	return samples, nil
}
