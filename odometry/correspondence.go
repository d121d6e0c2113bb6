package odometry

import (
	"github.com/golang/geo/r3"

	"github.com/baoxianzhang/loam-note/pointcloud"
	"github.com/baoxianzhang/loam-note/spatialmath"
)

// nearestSqDistThreshold is the squared-distance gate on the initial
// 1-nearest-neighbor hit: anything farther than 5m (25 = 5^2) is not a
// plausible match and the whole correspondence is abandoned.
const nearestSqDistThreshold = 25.0

// ringWindow bounds how many rings away from the nearest hit's ring the
// forward/backward scans are allowed to travel while looking for a second
// (or third) point to complete the edge or plane.
const ringWindow = 2

// edgeMatch is a cached edge correspondence: a query point (implicit, by
// index into the sharp cloud) matches lastCorner[AIdx] and, if found,
// lastCorner[BIdx] on a different ring within the ring window. BIdx is -1
// if no second point was found; AIdx is -1 if even the first nearest-
// neighbor search failed the distance gate.
type edgeMatch struct {
	AIdx, BIdx int
}

// planarMatch is a cached planar correspondence against lastSurface: A is
// the nearest neighbor, B is the nearest same-or-closer-ring candidate, C
// is the nearest different-ring candidate. Any of B, C is -1 if not found.
type planarMatch struct {
	AIdx, BIdx, CIdx int
}

func squaredDistanceToPosition(q r3.Vector, p pointcloud.FeaturePoint) float64 {
	d := q.Sub(p.Position)
	return d.Dot(d)
}

// findEdgeCorrespondence locates the two lastCorner points that define the
// matching edge line for a de-skewed query position, following the scan
// rules in the correspondence builder design: a 1-NN hit A, then a ring-
// windowed forward/backward scan through lastCorner (by array index, not
// by spatial locality) for the nearest point B on a different ring.
func findEdgeCorrespondence(query r3.Vector, index *pointcloud.KDTree, lastCorner pointcloud.FeatureCloud) edgeMatch {
	aIdx, sqDist, ok := index.Nearest(query)
	if !ok || sqDist >= nearestSqDistThreshold {
		return edgeMatch{AIdx: -1, BIdx: -1}
	}

	ringA := lastCorner[aIdx].Ring()
	bIdx := -1
	minSq := nearestSqDistThreshold

	for j := aIdx + 1; j < len(lastCorner); j++ {
		ringJ := lastCorner[j].Ring()
		if ringJ > ringA+ringWindow {
			break
		}
		if ringJ > ringA {
			if d := squaredDistanceToPosition(query, lastCorner[j]); d < minSq {
				minSq = d
				bIdx = j
			}
		}
	}
	for j := aIdx - 1; j >= 0; j-- {
		ringJ := lastCorner[j].Ring()
		if ringJ < ringA-ringWindow {
			break
		}
		if ringJ < ringA {
			if d := squaredDistanceToPosition(query, lastCorner[j]); d < minSq {
				minSq = d
				bIdx = j
			}
		}
	}

	return edgeMatch{AIdx: aIdx, BIdx: bIdx}
}

// findPlanarCorrespondence locates the three lastSurface points that define
// the matching plane for a de-skewed query position: a 1-NN hit A, a
// nearest same-or-closer-ring candidate B, and a nearest different-ring
// candidate C, both ring-windowed around A.
func findPlanarCorrespondence(query r3.Vector, index *pointcloud.KDTree, lastSurface pointcloud.FeatureCloud) planarMatch {
	aIdx, sqDist, ok := index.Nearest(query)
	if !ok || sqDist >= nearestSqDistThreshold {
		return planarMatch{AIdx: -1, BIdx: -1, CIdx: -1}
	}

	ringA := lastSurface[aIdx].Ring()
	bIdx, cIdx := -1, -1
	minSqB, minSqC := nearestSqDistThreshold, nearestSqDistThreshold

	for j := aIdx + 1; j < len(lastSurface); j++ {
		ringJ := lastSurface[j].Ring()
		if ringJ > ringA+ringWindow {
			break
		}
		d := squaredDistanceToPosition(query, lastSurface[j])
		if ringJ <= ringA {
			if d < minSqB {
				minSqB = d
				bIdx = j
			}
		} else if d < minSqC {
			minSqC = d
			cIdx = j
		}
	}
	for j := aIdx - 1; j >= 0; j-- {
		ringJ := lastSurface[j].Ring()
		if ringJ < ringA-ringWindow {
			break
		}
		d := squaredDistanceToPosition(query, lastSurface[j])
		if ringJ >= ringA {
			if d < minSqB {
				minSqB = d
				bIdx = j
			}
		} else if d < minSqC {
			minSqC = d
			cIdx = j
		}
	}

	return planarMatch{AIdx: aIdx, BIdx: bIdx, CIdx: cIdx}
}

// correspondenceCache holds the edge and planar matches for a sweep's
// sharp/flat query clouds. It is rebuilt every 5th Gauss-Newton iteration
// and reused verbatim in between, amortizing the k-d tree search cost.
type correspondenceCache struct {
	edge   []edgeMatch
	planar []planarMatch
}

func newCorrespondenceCache() *correspondenceCache {
	return &correspondenceCache{}
}

// rebuild re-runs nearest-neighbor search for every sharp/flat query point,
// de-skewing each with the current transform estimate before searching.
func (c *correspondenceCache) rebuild(
	sharp, flat pointcloud.FeatureCloud,
	transform spatialmath.Transform6DoF,
	cornerIndex *pointcloud.KDTree, lastCorner pointcloud.FeatureCloud,
	surfaceIndex *pointcloud.KDTree, lastSurface pointcloud.FeatureCloud,
) {
	if cap(c.edge) < len(sharp) {
		c.edge = make([]edgeMatch, len(sharp))
	} else {
		c.edge = c.edge[:len(sharp)]
	}
	if cap(c.planar) < len(flat) {
		c.planar = make([]planarMatch, len(flat))
	} else {
		c.planar = c.planar[:len(flat)]
	}

	for i, p := range sharp {
		q := toStart(p, transform)
		c.edge[i] = findEdgeCorrespondence(q.Position, cornerIndex, lastCorner)
	}
	for i, p := range flat {
		q := toStart(p, transform)
		c.planar[i] = findPlanarCorrespondence(q.Position, surfaceIndex, lastSurface)
	}
}
