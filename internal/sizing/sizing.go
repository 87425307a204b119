// Package sizing maps input length to the desired density of a generated mind map.
package sizing

import "mindmapgen/internal/types"

// MaxLength is the largest input length the table is defined for.
const MaxLength = 4000

type bucket struct {
	upper  int // exclusive; 0 means unbounded
	target types.SizingTarget
}

// buckets partition [0, MaxLength] in ascending order.
var buckets = []bucket{
	{upper: 200, target: types.SizingTarget{MinNodes: 3, MaxNodes: 5, TargetNodes: 4, DepthLevels: 2}},
	{upper: 600, target: types.SizingTarget{MinNodes: 5, MaxNodes: 8, TargetNodes: 6, DepthLevels: 2}},
	{upper: 1200, target: types.SizingTarget{MinNodes: 8, MaxNodes: 12, TargetNodes: 10, DepthLevels: 3}},
	{upper: 2000, target: types.SizingTarget{MinNodes: 12, MaxNodes: 18, TargetNodes: 15, DepthLevels: 3}},
	{upper: 3000, target: types.SizingTarget{MinNodes: 18, MaxNodes: 25, TargetNodes: 22, DepthLevels: 3}},
	{upper: 0, target: types.SizingTarget{MinNodes: 25, MaxNodes: 35, TargetNodes: 30, DepthLevels: 4}},
}

// For returns the sizing target for a text of the given length in characters.
func For(textLength int) types.SizingTarget {
	for _, b := range buckets {
		if b.upper == 0 || textLength < b.upper {
			return b.target
		}
	}
	return buckets[len(buckets)-1].target
}

// DensityBand selects how much supporting detail the prompt asks for.
type DensityBand string

const (
	BandShort  DensityBand = "short"
	BandMedium DensityBand = "medium"
	BandLong   DensityBand = "long"
)

// Band classifies a text length: <600 short, <2000 medium, otherwise long.
func Band(textLength int) DensityBand {
	switch {
	case textLength < 600:
		return BandShort
	case textLength < 2000:
		return BandMedium
	default:
		return BandLong
	}
}
