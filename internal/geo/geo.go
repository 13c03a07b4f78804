// Package geo provides the geometry primitives used across the scoring
// engine: great-circle distance, nearest-point search, polygon containment,
// and buffer construction. All functions are pure; callers can share inputs
// across goroutines freely.
package geo

import "math"

const (
	earthRadiusMiles = 3958.8

	// Approximate miles per degree of latitude. Longitude degrees shrink
	// with cos(lat); see BufferBounds.
	milesPerDegree = 69.0

	acresPerSquareMile = 640.0
)

// Point is a WGS-84 latitude/longitude coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point holds a finite coordinate inside the
// WGS-84 domain.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Ring is a closed sequence of vertices. The closing edge from the last
// vertex back to the first is implicit.
type Ring []Point

// Polygon is a simple polygon described by its exterior ring. Hazard layers
// are normalized to exterior rings at the ingestion boundary.
type Polygon struct {
	Exterior Ring `json:"exterior"`
}

// Valid reports whether the polygon has at least three valid vertices.
func (pg Polygon) Valid() bool {
	if len(pg.Exterior) < 3 {
		return false
	}
	for _, v := range pg.Exterior {
		if !v.Valid() {
			return false
		}
	}
	return true
}

// Bounds returns the polygon's bounding box as (min, max) corner points.
func (pg Polygon) Bounds() (Point, Point) {
	if len(pg.Exterior) == 0 {
		return Point{}, Point{}
	}
	minPt := pg.Exterior[0]
	maxPt := pg.Exterior[0]
	for _, v := range pg.Exterior[1:] {
		minPt.Lat = math.Min(minPt.Lat, v.Lat)
		minPt.Lon = math.Min(minPt.Lon, v.Lon)
		maxPt.Lat = math.Max(maxPt.Lat, v.Lat)
		maxPt.Lon = math.Max(maxPt.Lon, v.Lon)
	}
	return minPt, maxPt
}

// Centroid returns the vertex mean of the exterior ring. Adequate as a
// representative point for the small, near-convex footprints this engine
// works with.
func (pg Polygon) Centroid() Point {
	if len(pg.Exterior) == 0 {
		return Point{}
	}
	var lat, lon float64
	for _, v := range pg.Exterior {
		lat += v.Lat
		lon += v.Lon
	}
	n := float64(len(pg.Exterior))
	return Point{Lat: lat / n, Lon: lon / n}
}

// Contains reports whether p lies inside the polygon.
func (pg Polygon) Contains(p Point) bool {
	return pointInRing(p, pg.Exterior)
}

// Distance returns the great-circle (haversine) distance between two points
// in statute miles. Planar distance is not acceptable here: candidates span
// continental extents and planar error becomes material over tens of miles.
func Distance(a, b Point) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMiles * c
}

// RefPoint pairs an identifier with a location, for nearest-neighbor scans.
type RefPoint struct {
	ID       string
	Location Point
}

// Nearest returns the candidate closest to from. The boolean result is false
// when candidates is empty; no sentinel distance is ever returned. Ties are
// broken by ascending ID so repeated runs agree.
func Nearest(from Point, candidates []RefPoint) (RefPoint, float64, bool) {
	if len(candidates) == 0 {
		return RefPoint{}, 0, false
	}
	best := candidates[0]
	bestDist := Distance(from, best.Location)
	for _, c := range candidates[1:] {
		d := Distance(from, c.Location)
		if d < bestDist || (d == bestDist && c.ID < best.ID) {
			best = c
			bestDist = d
		}
	}
	return best, bestDist, true
}

// PointInPolygon reports whether p lies inside poly, using even-odd ray
// casting against the exterior ring. Points exactly on an edge may land on
// either side; hazard screening treats that as acceptable.
func PointInPolygon(p Point, poly Polygon) bool {
	return pointInRing(p, poly.Exterior)
}

func pointInRing(p Point, ring Ring) bool {
	if len(ring) < 3 {
		return false
	}
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) {
			x := (vj.Lon-vi.Lon)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lon
			if p.Lon < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// BufferBounds returns the (min, max) corners of a bounding box extending
// radiusMiles in every direction from center. Longitude extent widens with
// latitude so the box always covers the full radius.
func BufferBounds(center Point, radiusMiles float64) (Point, Point) {
	dLat := radiusMiles / milesPerDegree
	cosLat := math.Cos(radians(center.Lat))
	if cosLat < 0.01 {
		cosLat = 0.01 // near-polar guard
	}
	dLon := radiusMiles / (milesPerDegree * cosLat)
	return Point{Lat: center.Lat - dLat, Lon: center.Lon - dLon},
		Point{Lat: center.Lat + dLat, Lon: center.Lon + dLon}
}

// SquareBuffer builds a square footprint polygon of the given acreage
// centered on a point. Used when no parcel layer is configured and a
// synthetic candidate footprint is needed around a grid node.
func SquareBuffer(center Point, acres float64) Polygon {
	if acres <= 0 {
		acres = 1
	}
	sideMiles := math.Sqrt(acres / acresPerSquareMile)
	half := sideMiles / 2
	dLat := half / milesPerDegree
	cosLat := math.Cos(radians(center.Lat))
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := half / (milesPerDegree * cosLat)
	return Polygon{Exterior: Ring{
		{Lat: center.Lat - dLat, Lon: center.Lon - dLon},
		{Lat: center.Lat - dLat, Lon: center.Lon + dLon},
		{Lat: center.Lat + dLat, Lon: center.Lon + dLon},
		{Lat: center.Lat + dLat, Lon: center.Lon - dLon},
	}}
}

// intersectionGridSize controls the sampling density of IntersectionPct.
// A 20x20 lattice keeps the estimate within a few percent for the parcel
// sizes this engine screens, at negligible cost.
const intersectionGridSize = 20

// IntersectionPct estimates the percentage of footprint covered by any of
// the overlay polygons, by sampling a fixed lattice over the footprint's
// bounding box. The lattice is deterministic, so repeated runs produce
// identical percentages.
func IntersectionPct(footprint Polygon, overlays []Polygon) float64 {
	if !footprint.Valid() || len(overlays) == 0 {
		return 0
	}
	minPt, maxPt := footprint.Bounds()
	var inside, covered int
	for i := 0; i < intersectionGridSize; i++ {
		for j := 0; j < intersectionGridSize; j++ {
			p := Point{
				Lat: minPt.Lat + (maxPt.Lat-minPt.Lat)*(float64(i)+0.5)/intersectionGridSize,
				Lon: minPt.Lon + (maxPt.Lon-minPt.Lon)*(float64(j)+0.5)/intersectionGridSize,
			}
			if !footprint.Contains(p) {
				continue
			}
			inside++
			for _, ov := range overlays {
				if ov.Contains(p) {
					covered++
					break
				}
			}
		}
	}
	if inside == 0 {
		return 0
	}
	return 100 * float64(covered) / float64(inside)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
