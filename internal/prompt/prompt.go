// Package prompt renders the mind map generation instruction.
package prompt

import (
	"bytes"
	"fmt"
	"strings"

	"mindmapgen/internal/sizing"
	"mindmapgen/internal/types"
)

const (
	// LevelSpacingX is the horizontal offset between hierarchy levels.
	LevelSpacingX = 250
	// NodeSpacingY is the minimum vertical gap between sibling nodes.
	NodeSpacingY = 100
)

// Field describes a single output field in the response schema.
type Field struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// Spec is everything a prompt is built from.
type Spec struct {
	TextLength int
	Target     types.SizingTarget
	Context    []types.ScoredChunk
	Query      string
}

var outputFields = []Field{
	{Name: "key_points", Type: "[]string", Required: true, Description: "Main ideas of the text, most important first."},
	{Name: "mindmap.nodes", Type: "[]object", Required: true, Description: "Every node of the mindmap."},
	{Name: "mindmap.nodes[].id", Type: "string", Required: true, Description: "Unique within the response."},
	{Name: "mindmap.nodes[].data.label", Type: "string", Required: true, Description: "Concise label, 3-8 words."},
	{Name: "mindmap.nodes[].position.x", Type: "number", Required: true},
	{Name: "mindmap.nodes[].position.y", Type: "number", Required: true},
	{Name: "mindmap.edges", Type: "[]object", Required: true, Description: "Parent to child links."},
	{Name: "mindmap.edges[].id", Type: "string", Required: true, Description: "Unique within the response, e.g. e1-2."},
	{Name: "mindmap.edges[].source", Type: "string", Required: true, Description: "id of the parent node."},
	{Name: "mindmap.edges[].target", Type: "string", Required: true, Description: "id of the child node."},
}

const outputExample = `{
  "key_points": ["main idea 1", "main idea 2"],
  "mindmap": {
    "nodes": [
      { "id": "1", "data": { "label": "Main Topic" }, "position": { "x": 0, "y": 0 } },
      { "id": "2", "data": { "label": "Subtopic A" }, "position": { "x": 250, "y": -100 } },
      { "id": "3", "data": { "label": "Detail A1" }, "position": { "x": 500, "y": -150 } }
    ],
    "edges": [
      { "id": "e1-2", "source": "1", "target": "2" },
      { "id": "e2-3", "source": "2", "target": "3" }
    ]
  }
}`

// Query is the synthetic task description used both to retrieve context and as
// the prompt's input line.
func Query(textLength int, target types.SizingTarget) string {
	return fmt.Sprintf(
		"Generate a mindmap with appropriate detail level for this %d-character text. "+
			"Create approximately %d nodes organized in %d hierarchical levels. "+
			"Focus on the most important concepts.",
		textLength, target.TargetNodes, target.DepthLevels)
}

// Compose renders the full instruction. It performs no I/O.
func Compose(spec Spec) (string, error) {
	if spec.Target.TargetNodes <= 0 || spec.Target.DepthLevels <= 0 {
		return "", fmt.Errorf("prompt: sizing target is empty")
	}
	if strings.TrimSpace(spec.Query) == "" {
		return "", fmt.Errorf("prompt: query is empty")
	}
	retrieved := formatContext(spec.Context)
	if retrieved == "" {
		return "", fmt.Errorf("prompt: retrieved context is empty")
	}
	t := spec.Target

	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE",
		"You are an expert mindmap generator. Analyze the provided text and create a comprehensive hierarchical mindmap structure.")
	writeSection(&buf, "TEXT_ANALYSIS", formatList([]string{
		fmt.Sprintf("Text length: %d characters", spec.TextLength),
		fmt.Sprintf("Expected node range: %d-%d nodes (target: %d)", t.MinNodes, t.MaxNodes, t.TargetNodes),
		fmt.Sprintf("Expected hierarchy depth: %d levels", t.DepthLevels),
	}))
	writeSection(&buf, "REQUIREMENTS", formatList([]string{
		"Extract the main key points/concepts from the text.",
		fmt.Sprintf("Create a mindmap with approximately %d nodes (range: %d-%d).", t.TargetNodes, t.MinNodes, t.MaxNodes),
		fmt.Sprintf("Organize it in a logical hierarchy with %d levels of depth under a single main topic node.", t.DepthLevels),
		"Every edge must connect two existing node ids, parent as source and child as target.",
		"Adjust the level of detail to the text length and complexity.",
	}))
	writeSection(&buf, "OUTPUT", formatFields(outputFields))
	writeSection(&buf, "OUTPUT_EXAMPLE", outputExample)
	writeSection(&buf, "POSITIONING", formatList(positioning(t)))
	writeSection(&buf, "CONTENT_GUIDELINES", formatList(contentGuidelines(spec.TextLength)))
	writeSection(&buf, "CONTEXT", retrieved)
	writeSection(&buf, "INPUT", spec.Query)
	writeSection(&buf, "OUTPUT_FORMAT",
		"Return ONLY a single valid JSON object with exactly the structure above. No prose, no markdown, no code fences.")

	return strings.TrimSpace(buf.String()) + "\n", nil
}

func positioning(t types.SizingTarget) []string {
	out := []string{
		"Main topic at the center (x: 0, y: 0).",
		fmt.Sprintf("First-level subtopics at x = ±%d, with y values spaced around the center.", LevelSpacingX),
	}
	for level := 2; level < t.DepthLevels; level++ {
		out = append(out, fmt.Sprintf("Level %d nodes at x = ±%d, next to their parent.", level, level*LevelSpacingX))
	}
	out = append(out,
		fmt.Sprintf("Deeper levels: add %d to |x| for each level.", LevelSpacingX),
		fmt.Sprintf("Space sibling nodes vertically by at least %d to avoid overlap.", NodeSpacingY),
		fmt.Sprintf("For %d nodes, distribute them evenly in the space.", t.TargetNodes),
	)
	return out
}

func contentGuidelines(textLength int) []string {
	var focus string
	switch sizing.Band(textLength) {
	case sizing.BandShort:
		focus = "This is a very short text: focus only on the main concepts."
	case sizing.BandMedium:
		focus = "This is a medium-length text: include the main concepts and some supporting details."
	default:
		focus = "This is a long text: include the main concepts with comprehensive supporting details and examples."
	}
	return []string{
		focus,
		"Keep node labels descriptive but concise (3-8 words max).",
		"Maintain logical relationships between concepts.",
		"Prioritize the most important information from the text.",
	}
}

func formatContext(chunks []types.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if s := strings.TrimSpace(c.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func formatFields(fields []Field) string {
	var buf strings.Builder
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		if f.Description != "" {
			fmt.Fprintf(&buf, "- %s (%s, %s): %s\n", name, f.Type, req, f.Description)
		} else {
			fmt.Fprintf(&buf, "- %s (%s, %s)\n", name, f.Type, req)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatList(items []string) string {
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
