// Package parse turns raw model output into a validated GenerationResult.
package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"mindmapgen/internal/apperr"
	"mindmapgen/internal/types"
)

// Options configures a Parser. The zero value decodes strictly and logs nothing.
type Options struct {
	// RepairJSON runs a JSON repair pass on output that fails to decode.
	RepairJSON bool
	Logger     *zap.Logger
	// OutOfRange is called when the node count falls outside the sizing target.
	OutOfRange func(nodes int, target types.SizingTarget)
}

type Parser struct {
	repair     bool
	log        *zap.Logger
	outOfRange func(int, types.SizingTarget)
}

func New(opts Options) *Parser {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{repair: opts.RepairJSON, log: log, outOfRange: opts.OutOfRange}
}

// Parse decodes raw and checks its structure. A node count outside the target
// range is reported but does not fail the parse.
func (p *Parser) Parse(raw []byte, target types.SizingTarget) (*types.GenerationResult, error) {
	doc, err := p.decode(raw)
	if err != nil {
		return nil, err
	}
	res, err := build(doc)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidStructure, "invalid mindmap structure", err)
	}
	if n := len(res.MindMap.Nodes); !target.InRange(n) {
		p.log.Warn("node count outside target range",
			zap.Int("nodes", n),
			zap.Int("min", target.MinNodes),
			zap.Int("max", target.MaxNodes),
			zap.Int("target", target.TargetNodes))
		if p.outOfRange != nil {
			p.outOfRange(n, target)
		}
	}
	return res, nil
}

func (p *Parser) decode(raw []byte) (map[string]any, error) {
	text := StripFences(string(raw))
	v, err := decodeValue(text)
	if err != nil && p.repair {
		repaired, rerr := jsonrepair.JSONRepair(text)
		if rerr != nil {
			return nil, apperr.Wrap(apperr.MalformedJSON, "output is not valid JSON", errors.Join(err, rerr))
		}
		p.log.Debug("repaired model output", zap.Int("raw_len", len(text)), zap.Int("repaired_len", len(repaired)))
		v, err = decodeValue(repaired)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.MalformedJSON, "output is not valid JSON", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, apperr.New(apperr.MalformedJSON, fmt.Sprintf("output is %s, not an object", typeName(v)))
	}
	return obj, nil
}

func decodeValue(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

// StripFences removes a surrounding markdown code fence, with or without a
// language tag.
func StripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	} else {
		t = strings.TrimPrefix(t, "json")
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// build walks the decoded document and returns the first violation found.
func build(doc map[string]any) (*types.GenerationResult, error) {
	res := &types.GenerationResult{}

	kp, err := array(doc, "key_points", "key_points")
	if err != nil {
		return nil, err
	}
	res.KeyPoints = make([]string, 0, len(kp))
	for i, v := range kp {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("key_points[%d]: expected string, got %s", i, typeName(v))
		}
		res.KeyPoints = append(res.KeyPoints, s)
	}

	mmv, ok := doc["mindmap"]
	if !ok {
		return nil, errors.New("mindmap: missing")
	}
	mm, ok := mmv.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("mindmap: expected object, got %s", typeName(mmv))
	}

	nodes, err := array(mm, "nodes", "mindmap.nodes")
	if err != nil {
		return nil, err
	}
	res.MindMap.Nodes = make([]types.Node, 0, len(nodes))
	seen := make(map[string]struct{}, len(nodes))
	for i, v := range nodes {
		path := fmt.Sprintf("mindmap.nodes[%d]", i)
		n, err := node(v, path)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("%s.id: duplicate id %q", path, n.ID)
		}
		seen[n.ID] = struct{}{}
		res.MindMap.Nodes = append(res.MindMap.Nodes, n)
	}

	edges, err := array(mm, "edges", "mindmap.edges")
	if err != nil {
		return nil, err
	}
	res.MindMap.Edges = make([]types.Edge, 0, len(edges))
	edgeIDs := make(map[string]struct{}, len(edges))
	for i, v := range edges {
		path := fmt.Sprintf("mindmap.edges[%d]", i)
		e, err := edge(v, path)
		if err != nil {
			return nil, err
		}
		if _, dup := edgeIDs[e.ID]; dup {
			return nil, fmt.Errorf("%s.id: duplicate id %q", path, e.ID)
		}
		edgeIDs[e.ID] = struct{}{}
		if _, ok := seen[e.Source]; !ok {
			return nil, fmt.Errorf("%s.source: unknown node %q", path, e.Source)
		}
		if _, ok := seen[e.Target]; !ok {
			return nil, fmt.Errorf("%s.target: unknown node %q", path, e.Target)
		}
		res.MindMap.Edges = append(res.MindMap.Edges, e)
	}
	return res, nil
}

func node(v any, path string) (types.Node, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return types.Node{}, fmt.Errorf("%s: expected object, got %s", path, typeName(v))
	}
	id, err := str(obj, "id", path+".id", true)
	if err != nil {
		return types.Node{}, err
	}
	dv, ok := obj["data"].(map[string]any)
	if !ok {
		return types.Node{}, fmt.Errorf("%s.data: expected object, got %s", path, typeName(obj["data"]))
	}
	label, err := str(dv, "label", path+".data.label", false)
	if err != nil {
		return types.Node{}, err
	}
	pv, ok := obj["position"].(map[string]any)
	if !ok {
		return types.Node{}, fmt.Errorf("%s.position: expected object, got %s", path, typeName(obj["position"]))
	}
	x, err := num(pv, "x", path+".position.x")
	if err != nil {
		return types.Node{}, err
	}
	y, err := num(pv, "y", path+".position.y")
	if err != nil {
		return types.Node{}, err
	}
	return types.Node{ID: id, Data: types.NodeData{Label: label}, Position: types.Position{X: x, Y: y}}, nil
}

func edge(v any, path string) (types.Edge, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return types.Edge{}, fmt.Errorf("%s: expected object, got %s", path, typeName(v))
	}
	var e types.Edge
	var err error
	if e.ID, err = str(obj, "id", path+".id", true); err != nil {
		return types.Edge{}, err
	}
	if e.Source, err = str(obj, "source", path+".source", true); err != nil {
		return types.Edge{}, err
	}
	if e.Target, err = str(obj, "target", path+".target", true); err != nil {
		return types.Edge{}, err
	}
	return e, nil
}

func array(obj map[string]any, key, path string) ([]any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("%s: missing", path)
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected array, got %s", path, typeName(v))
	}
	return arr, nil
}

func str(obj map[string]any, key, path string, nonEmpty bool) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("%s: missing", path)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %s", path, typeName(v))
	}
	if nonEmpty && strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s: empty", path)
	}
	return s, nil
}

func num(obj map[string]any, key, path string) (float64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("%s: missing", path)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%s: expected number, got %s", path, typeName(v))
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Preview returns at most n bytes of raw for logging, trimmed to a rune boundary.
func Preview(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	cut := raw[:n]
	for len(cut) > 0 && !isRuneStart(raw[len(cut)]) {
		cut = cut[:len(cut)-1]
	}
	return string(bytes.TrimSpace(cut)) + "..."
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
