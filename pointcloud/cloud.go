package pointcloud

// FeatureCloud is an ordered sequence of feature points. Ordering matters:
// the correspondence builder scans forward and backward through a
// FeatureCloud from a nearest-neighbor hit by array index, not by spatial
// locality, so callers must preserve the order the upstream extractor
// produced.
type FeatureCloud []FeaturePoint

// Len returns the number of points in the cloud.
func (c FeatureCloud) Len() int { return len(c) }

// Clone returns a shallow copy of the cloud (FeaturePoint is a value type,
// so this is a deep copy in practice).
func (c FeatureCloud) Clone() FeatureCloud {
	if c == nil {
		return nil
	}
	out := make(FeatureCloud, len(c))
	copy(out, c)
	return out
}

// Buffers holds the four per-sweep feature clouds the upstream feature
// extractor produces, plus the "last" corner and surface clouds carried
// forward from the previous sweep as the matching target set.
type Buffers struct {
	CornerSharp     FeatureCloud
	CornerLessSharp FeatureCloud
	SurfFlat        FeatureCloud
	SurfLessFlat    FeatureCloud

	LastCorner  FeatureCloud
	LastSurface FeatureCloud
}

// SwapInLessClouds installs the current sweep's less-sharp/less-flat clouds
// as the new "last" clouds, per the end-of-sweep double-buffer swap
// described for the spatial index lifecycle. The caller is responsible for
// having already projected these clouds to the sweep-end frame.
func (b *Buffers) SwapInLessClouds() {
	b.LastCorner, b.CornerLessSharp = b.CornerLessSharp, b.LastCorner
	b.LastSurface, b.SurfLessFlat = b.SurfLessFlat, b.LastSurface
}

// MeetsRebuildThreshold reports whether the carried-forward "last" clouds
// are large enough to justify rebuilding the spatial index: more than 10
// corners and more than 100 surfaces.
func (b *Buffers) MeetsRebuildThreshold() bool {
	return len(b.LastCorner) > 10 && len(b.LastSurface) > 100
}
