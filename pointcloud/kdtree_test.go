package pointcloud

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestKDTreeNearestMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	cloud := make(FeatureCloud, 200)
	for i := range cloud {
		cloud[i] = NewFeaturePoint(r3.Vector{
			X: r.Float64()*20 - 10,
			Y: r.Float64()*20 - 10,
			Z: r.Float64()*20 - 10,
		}, i%16, r.Float64())
	}
	tree := NewKDTree(cloud)

	for q := 0; q < 50; q++ {
		query := r3.Vector{X: r.Float64()*20 - 10, Y: r.Float64()*20 - 10, Z: r.Float64()*20 - 10}

		bestIdx, bestSq := -1, 0.0
		for i, p := range cloud {
			d := query.Sub(p.Position).Norm2()
			if bestIdx == -1 || d < bestSq {
				bestIdx, bestSq = i, d
			}
		}

		idx, sq, ok := tree.Nearest(query)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, sq, test.ShouldAlmostEqual, bestSq, 1e-9)
		test.That(t, cloud[idx].Position, test.ShouldResemble, cloud[bestIdx].Position)
	}
}

func TestKDTreeEmpty(t *testing.T) {
	tree := NewKDTree(nil)
	_, _, ok := tree.Nearest(r3.Vector{})
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, tree.Len(), test.ShouldEqual, 0)
}

func TestFeaturePointRingAndRelTime(t *testing.T) {
	p := NewFeaturePoint(r3.Vector{X: 1, Y: 2, Z: 3}, 7, 0.42)
	test.That(t, p.Ring(), test.ShouldEqual, 7)
	test.That(t, p.RelTime(), test.ShouldAlmostEqual, 0.42, 1e-9)

	stripped := p.WithoutRelTime()
	test.That(t, stripped.Ring(), test.ShouldEqual, 7)
	test.That(t, stripped.RelTime(), test.ShouldAlmostEqual, 0.0, 1e-9)
}
