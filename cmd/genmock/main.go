// Command genmock generates deterministic GeoJSON input fixtures for the
// scoring engine: a small Central-Texas study area with substations, parcels,
// hazard layers, generation, and solar samples. The same invocation always
// produces byte-identical files, so test fixtures can be regenerated without
// churning diffs.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/mock
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

type geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type collection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

func point(lat, lon float64) geometry {
	return geometry{Type: "Point", Coordinates: []float64{lon, lat}}
}

// square builds a closed square polygon ring centered on (lat, lon) with the
// given half-side in degrees.
func square(lat, lon, half float64) geometry {
	ring := [][]float64{
		{lon - half, lat - half},
		{lon + half, lat - half},
		{lon + half, lat + half},
		{lon - half, lat + half},
		{lon - half, lat - half},
	}
	return geometry{Type: "Polygon", Coordinates: [][][]float64{ring}}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "output directory for fixture files")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Study area around 30.5N 97.7W. sub-strong is the clean high-voltage
	// site; sub-hazard sits next to every hazard layer; sub-weak fails the
	// assembler's voltage threshold.
	files := map[string]collection{
		"nodes.geojson":         nodes(),
		"parcels.geojson":       parcels(),
		"flood.geojson":         flood(),
		"contamination.geojson": contamination(),
		"habitats.geojson":      habitats(),
		"generation.geojson":    generation(),
		"solar.geojson":         solar(),
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fc := files[name]
		if err := writeJSON(filepath.Join(*outDir, name), fc); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d features)\n", name, len(fc.Features))
	}
	return nil
}

func nodes() collection {
	return collection{Type: "FeatureCollection", Features: []feature{
		{Type: "Feature", Geometry: point(30.50, -97.70), Properties: map[string]any{
			"id": "sub-strong", "name": "Round Rock 345", "owner": "ONCOR",
			"max_voltage_kv": 345.0, "connected_lines": 6, "status": "active",
		}},
		{Type: "Feature", Geometry: point(30.30, -97.90), Properties: map[string]any{
			"id": "sub-hazard", "name": "Bee Creek 230", "owner": "LCRA",
			"max_voltage_kv": 230.0, "connected_lines": 3, "status": "active",
		}},
		{Type: "Feature", Geometry: point(30.10, -97.50), Properties: map[string]any{
			"id": "sub-weak", "name": "Mustang Ridge 69", "owner": "AE",
			"max_voltage_kv": 69.0, "connected_lines": 2, "status": "active",
		}},
		{Type: "Feature", Geometry: point(30.70, -97.60), Properties: map[string]any{
			"id": "sub-retired", "name": "Granger 138", "owner": "ONCOR",
			"max_voltage_kv": 138.0, "connected_lines": 1, "status": "retired",
		}},
	}}
}

func parcels() collection {
	return collection{Type: "FeatureCollection", Features: []feature{
		{Type: "Feature", Geometry: point(30.51, -97.71), Properties: map[string]any{
			"id": "parcel-ideal", "owner": "Wilco Land LLC", "acres": 40.0,
			"price_per_acre": 12000.0, "county": "Williamson", "state": "TX",
		}},
		{Type: "Feature", Geometry: square(30.49, -97.69, 0.004), Properties: map[string]any{
			"id": "parcel-bounded", "owner": "Chisholm Ranch", "acres": 62.0,
			"price_per_acre": 18000.0, "county": "Williamson", "state": "TX",
		}},
		{Type: "Feature", Geometry: point(30.31, -97.91), Properties: map[string]any{
			"id": "parcel-floodside", "owner": "Pedernales Trust", "acres": 35.0,
			"price_per_acre": 9000.0, "county": "Travis", "state": "TX",
		}},
		{Type: "Feature", Geometry: point(30.29, -97.89), Properties: map[string]any{
			"id": "parcel-habitat", "owner": "Hill Country Holdings", "acres": 48.0,
			"price_per_acre": 15000.0, "county": "Travis", "state": "TX",
		}},
		{Type: "Feature", Geometry: point(30.11, -97.51), Properties: map[string]any{
			"id": "parcel-orphan", "owner": "Caldwell Farms", "acres": 120.0,
			"price_per_acre": 6000.0, "county": "Caldwell", "state": "TX",
		}},
	}}
}

func flood() collection {
	return collection{Type: "FeatureCollection", Features: []feature{
		{Type: "Feature", Geometry: square(30.31, -97.91, 0.02), Properties: map[string]any{
			"zone": "AE", "subtype": "1 PCT ANNUAL CHANCE FLOOD HAZARD", "sfha": true,
		}},
		{Type: "Feature", Geometry: square(30.51, -97.75, 0.01), Properties: map[string]any{
			"zone": "X", "subtype": "0.2 PCT ANNUAL CHANCE FLOOD HAZARD", "sfha": false,
		}},
		{Type: "Feature", Geometry: square(30.10, -97.50, 0.02), Properties: map[string]any{
			"zone": "D", "subtype": "", "sfha": false,
		}},
	}}
}

func contamination() collection {
	return collection{Type: "FeatureCollection", Features: []feature{
		{Type: "Feature", Geometry: point(30.295, -97.893), Properties: map[string]any{
			"category": "npl", "name": "Bee Creek Industrial",
		}},
		{Type: "Feature", Geometry: point(30.305, -97.905), Properties: map[string]any{
			"category": "brownfield", "name": "Old Quarry Yard",
		}},
		{Type: "Feature", Geometry: point(30.308, -97.915), Properties: map[string]any{
			"category": "tri", "name": "Hill Country Coatings",
		}},
		{Type: "Feature", Geometry: point(30.312, -97.908), Properties: map[string]any{
			"category": "lpst", "name": "FM 2244 Fuel Stop",
		}},
		{Type: "Feature", Geometry: point(30.298, -97.912), Properties: map[string]any{
			"category": "ust", "name": "Bee Cave Storage",
		}},
		{Type: "Feature", Geometry: point(30.302, -97.898), Properties: map[string]any{
			"category": "ihw", "name": "Westlake Waste Transfer",
		}},
	}}
}

func habitats() collection {
	return collection{Type: "FeatureCollection", Features: []feature{
		{Type: "Feature", Geometry: square(30.29, -97.89, 0.01), Properties: map[string]any{
			"kind": "critical_habitat", "name": "Golden-cheeked Warbler",
		}},
		{Type: "Feature", Geometry: square(30.31, -97.905, 0.006), Properties: map[string]any{
			"kind": "wetland", "name": "Bee Creek Riparian",
		}},
	}}
}

func generation() collection {
	return collection{Type: "FeatureCollection", Features: []feature{
		{Type: "Feature", Geometry: point(30.55, -97.65), Properties: map[string]any{
			"name": "Sandow Peaker", "fuel": "gas", "capacity_mw": 620.0,
		}},
		{Type: "Feature", Geometry: point(30.45, -97.75), Properties: map[string]any{
			"name": "Wilco Solar One", "fuel": "solar", "capacity_mw": 180.0,
		}},
		{Type: "Feature", Geometry: point(30.60, -97.70), Properties: map[string]any{
			"name": "Granger Wind", "fuel": "wind", "capacity_mw": 300.0,
		}},
	}}
}

func solar() collection {
	fc := collection{Type: "FeatureCollection"}
	// Coarse GHI lattice over the study area, trending sunnier to the west.
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			lat := 30.0 + 0.2*float64(i)
			lon := -98.1 + 0.2*float64(j)
			ghi := 5.6 - 0.15*float64(j)
			fc.Features = append(fc.Features, feature{
				Type:       "Feature",
				Geometry:   point(lat, lon),
				Properties: map[string]any{"ghi": ghi},
			})
		}
	}
	return fc
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
