package types

// Mind map documents ---------------------------------------------------------------

type NodeData struct {
	Label string `json:"label"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeStyle carries presentation-only attributes assigned after generation.
type NodeStyle struct {
	BackgroundColor string  `json:"backgroundColor"`
	Color           string  `json:"color"`
	Opacity         float64 `json:"opacity"`
}

type Node struct {
	ID       string     `json:"id"`
	Data     NodeData   `json:"data"`
	Position Position   `json:"position"`
	Style    *NodeStyle `json:"style,omitempty"`
}

type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type MindMap struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// GenerationResult is the response document of a single generation request.
type GenerationResult struct {
	KeyPoints []string `json:"key_points"`
	MindMap   MindMap  `json:"mindmap"`
}

// NodeIDs returns the set of node ids in the map.
func (m MindMap) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(m.Nodes))
	for _, n := range m.Nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}
