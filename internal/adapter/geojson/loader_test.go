package geojson

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/bess-site-scout/internal/domain"
)

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layer.geojson")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadGridNodes(t *testing.T) {
	path := writeFixture(t, `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [-97.7, 30.5]},
				"properties": {
					"id": "sub-1", "name": "Round Rock 345", "owner": "ONCOR",
					"max_voltage_kv": 345, "connected_lines": 4, "status": "active",
					"unknown_upstream_column": "dropped"
				}
			},
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [-97.5, 30.1]},
				"properties": {"id": "sub-2", "max_voltage_kv": 69}
			}
		]
	}`)

	nodes, err := NewLoader(slog.Default()).LoadGridNodes(path)

	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "sub-1", nodes[0].ID)
	assert.Equal(t, domain.Voltage345, nodes[0].VoltageClass)
	assert.Equal(t, 30.5, nodes[0].Location.Lat)
	assert.Equal(t, -97.7, nodes[0].Location.Lon)
	assert.Equal(t, domain.NodeActive, nodes[0].Status)

	assert.Equal(t, domain.VoltageUnder161, nodes[1].VoltageClass)
	assert.Equal(t, domain.NodeActive, nodes[1].Status, "missing status defaults to active")
}

func TestLoadGridNodesRequired(t *testing.T) {
	_, err := NewLoader(slog.Default()).LoadGridNodes("")
	assert.Error(t, err)
}

func TestLoadGridNodesSkipsBadGeometry(t *testing.T) {
	path := writeFixture(t, `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]},
				"properties": {"id": "poly-node", "max_voltage_kv": 345}
			}
		]
	}`)

	nodes, err := NewLoader(slog.Default()).LoadGridNodes(path)

	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestLoadParcelsPointAndPolygon(t *testing.T) {
	path := writeFixture(t, `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [-97.71, 30.51]},
				"properties": {"id": "p-point", "acres": 40, "price_per_acre": 12000, "county": "Williamson", "state": "TX"}
			},
			{
				"type": "Feature",
				"geometry": {"type": "Polygon", "coordinates": [[[-97.70, 30.49], [-97.68, 30.49], [-97.68, 30.50], [-97.70, 30.50], [-97.70, 30.49]]]},
				"properties": {"id": "p-poly", "acres": 62}
			}
		]
	}`)

	parcels, err := NewLoader(slog.Default()).LoadParcels(path)

	require.NoError(t, err)
	require.Len(t, parcels, 2)

	assert.Nil(t, parcels[0].Boundary)
	assert.Equal(t, 30.51, parcels[0].Location.Lat)

	require.NotNil(t, parcels[1].Boundary)
	assert.True(t, parcels[1].Boundary.Valid())
	assert.InDelta(t, 30.494, parcels[1].Location.Lat, 0.01, "polygon parcels use the centroid")
}

func TestLoadFloodZones(t *testing.T) {
	path := writeFixture(t, `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Polygon", "coordinates": [[[-97.92, 30.29], [-97.90, 30.29], [-97.90, 30.33], [-97.92, 30.33], [-97.92, 30.29]]]},
				"properties": {"zone": "AE", "subtype": "1 PCT ANNUAL CHANCE FLOOD HAZARD", "sfha": true}
			}
		]
	}`)

	zones, err := NewLoader(slog.Default()).LoadFloodZones(path)

	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "AE", zones[0].Zone)
	assert.True(t, zones[0].SFHA)
	assert.True(t, zones[0].Area.Valid())
}

func TestLoadContamination(t *testing.T) {
	path := writeFixture(t, `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [-97.893, 30.295]},
				"properties": {"category": "npl", "name": "Bee Creek Industrial"}
			}
		]
	}`)

	sites, err := NewLoader(slog.Default()).LoadContamination(path)

	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, domain.ContaminationNPL, sites[0].Category)
}

func TestLoadDatasetsTreatsMissingLayersAsGaps(t *testing.T) {
	nodes := writeFixture(t, `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [-97.7, 30.5]},
				"properties": {"id": "sub-1", "max_voltage_kv": 345, "connected_lines": 2}
			}
		]
	}`)

	data, err := NewLoader(slog.Default()).LoadDatasets(Paths{Nodes: nodes})

	require.NoError(t, err)
	assert.Len(t, data.GridNodes, 1)
	assert.Nil(t, data.Parcels)
	assert.Nil(t, data.FloodZones)
	assert.Nil(t, data.Contamination)
	assert.Nil(t, data.Habitats)
	assert.Nil(t, data.Generation)
	assert.Nil(t, data.Solar)
}

func TestLoadDatasetsMissingNodeFileErrors(t *testing.T) {
	_, err := NewLoader(slog.Default()).LoadDatasets(Paths{Nodes: "/nonexistent/nodes.geojson"})
	assert.Error(t, err)
}

func TestLoadDatasetsBadLayerFileErrors(t *testing.T) {
	nodes := writeFixture(t, `{"type": "FeatureCollection", "features": []}`)
	bad := writeFixture(t, `not json`)

	_, err := NewLoader(slog.Default()).LoadDatasets(Paths{Nodes: nodes, Flood: bad})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "flood")
}
