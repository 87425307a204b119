package types

// Request-scoped pipeline values -----------------------------------------------------

// SizingTarget is the desired node-count range and hierarchy depth for an input.
type SizingTarget struct {
	MinNodes    int `json:"min_nodes"`
	MaxNodes    int `json:"max_nodes"`
	TargetNodes int `json:"target_nodes"`
	DepthLevels int `json:"depth_levels"`
}

// InRange reports whether n lies within [MinNodes, MaxNodes].
func (s SizingTarget) InRange(n int) bool {
	return n >= s.MinNodes && n <= s.MaxNodes
}

// Chunk is a contiguous segment of the input text. Start and End are rune offsets.
type Chunk struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}
