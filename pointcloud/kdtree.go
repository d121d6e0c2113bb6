package pointcloud

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTree is a k-d tree over the 3D positions of a FeatureCloud, used to
// answer 1-nearest-neighbor queries when building correspondences against
// the previous sweep's "last" clouds. The tree only ever reports the index
// of the matched point within the cloud it was built from; ring-adjacency
// scanning is then done by the caller walking that cloud's original array
// order, not the tree.
//
// Built on gonum.org/v1/gonum/spatial/kdtree, the same gonum module already
// used for the solver's linear algebra.
type KDTree struct {
	cloud FeatureCloud
	tree  *kdtree.Tree
}

// indexedPoint is a position plus its index into the owning FeatureCloud,
// satisfying kdtree.Comparable.
type indexedPoint struct {
	pos r3.Vector
	idx int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	switch d {
	case 0:
		return p.pos.X - q.pos.X
	case 1:
		return p.pos.Y - q.pos.Y
	case 2:
		return p.pos.Z - q.pos.Z
	default:
		panic("pointcloud: illegal dimension")
	}
}

func (p indexedPoint) Dims() int { return 3 }

func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	d := p.pos.Sub(q.pos)
	return d.Dot(d)
}

// indexedPoints is a kdtree.Interface over a slice of indexedPoint.
type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p indexedPoints) Pivot(d kdtree.Dim) int {
	plane := indexedPointsPlane{indexedPoints: p, dim: d}
	return kdtree.Partition(plane, kdtree.MedianOfRandoms(plane, 100))
}

// indexedPointsPlane implements kdtree.SortSlicer, sorting indexedPoints
// along a single axis.
type indexedPointsPlane struct {
	indexedPoints
	dim kdtree.Dim
}

func (p indexedPointsPlane) axisValue(i int) float64 {
	pos := p.indexedPoints[i].pos
	switch p.dim {
	case 0:
		return pos.X
	case 1:
		return pos.Y
	default:
		return pos.Z
	}
}

func (p indexedPointsPlane) Less(i, j int) bool { return p.axisValue(i) < p.axisValue(j) }

func (p indexedPointsPlane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

func (p indexedPointsPlane) Slice(start, end int) kdtree.SortSlicer {
	return indexedPointsPlane{indexedPoints: p.indexedPoints[start:end], dim: p.dim}
}

// NewKDTree builds a k-d tree over cloud. The cloud is retained by
// reference; callers must not mutate it while the tree is in use.
func NewKDTree(cloud FeatureCloud) *KDTree {
	t := &KDTree{cloud: cloud}
	if len(cloud) == 0 {
		return t
	}
	points := make(indexedPoints, len(cloud))
	for i, p := range cloud {
		points[i] = indexedPoint{pos: p.Position, idx: i}
	}
	t.tree = kdtree.New(points, false)
	return t
}

// Nearest returns the index into the cloud the tree was built from of the
// point closest to q, the squared distance to it, and whether the tree is
// non-empty.
func (t *KDTree) Nearest(q r3.Vector) (index int, sqDist float64, ok bool) {
	if t.tree == nil {
		return -1, 0, false
	}
	nearest, dist := t.tree.Nearest(indexedPoint{pos: q})
	return nearest.(indexedPoint).idx, dist, true
}

// Len returns the number of points indexed by the tree.
func (t *KDTree) Len() int { return len(t.cloud) }
