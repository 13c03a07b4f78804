package geo

import (
	"sort"

	"github.com/dhconnelly/rtreego"
)

const (
	indexDimensions  = 2
	indexMinChildren = 25
	indexMaxChildren = 50

	// Degenerate rects break R-tree splitting; points get a hair of width.
	pointRectTolerance = 0.0001
)

// Index is a read-after-build R-tree over identified points and polygon
// bounding boxes, axes (lat, lon) in degrees. It is a prefilter: SearchRadius
// over-approximates, and callers apply the exact distance or containment
// predicate afterwards. Build it once, then share it across workers; the
// tree is not written to after construction.
type Index struct {
	tree  *rtreego.Rtree
	count int
}

type indexItem struct {
	id   string
	rect *rtreego.Rect
}

func (it *indexItem) Bounds() *rtreego.Rect { return it.rect }

// NewIndex creates an empty spatial index.
func NewIndex() *Index {
	return &Index{tree: rtreego.NewTree(indexDimensions, indexMinChildren, indexMaxChildren)}
}

// InsertPoint adds an identified point to the index.
func (ix *Index) InsertPoint(id string, p Point) {
	rect := rtreego.Point{p.Lat, p.Lon}.ToRect(pointRectTolerance)
	ix.tree.Insert(&indexItem{id: id, rect: rect})
	ix.count++
}

// InsertPolygon adds an identified polygon, indexed by its bounding box.
func (ix *Index) InsertPolygon(id string, poly Polygon) {
	minPt, maxPt := poly.Bounds()
	lengths := []float64{maxPt.Lat - minPt.Lat, maxPt.Lon - minPt.Lon}
	for i, l := range lengths {
		if l <= 0 {
			lengths[i] = pointRectTolerance
		}
	}
	rect, err := rtreego.NewRect(rtreego.Point{minPt.Lat, minPt.Lon}, lengths)
	if err != nil {
		return
	}
	ix.tree.Insert(&indexItem{id: id, rect: rect})
	ix.count++
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return ix.count }

// SearchRadius returns the IDs of all entries whose bounding rectangle
// intersects a radiusMiles box around center, sorted ascending for
// deterministic iteration. The result may include entries farther than the
// radius; callers must re-check with Distance or a containment test.
func (ix *Index) SearchRadius(center Point, radiusMiles float64) []string {
	minPt, maxPt := BufferBounds(center, radiusMiles)
	bounds, err := rtreego.NewRect(
		rtreego.Point{minPt.Lat, minPt.Lon},
		[]float64{maxPt.Lat - minPt.Lat, maxPt.Lon - minPt.Lon},
	)
	if err != nil {
		return nil
	}

	matches := ix.tree.SearchIntersect(bounds)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		item, ok := m.(*indexItem)
		if !ok {
			continue
		}
		ids = append(ids, item.id)
	}
	sort.Strings(ids)
	return ids
}
