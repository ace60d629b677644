// Package jsonld renders a graph as a JSON-LD document.
//
// Each node becomes an entry of @graph typed by its kind. Node fields are
// plain properties and every outgoing edge becomes a property named by the
// edge label that references the target's @id. A label that collides
// with a field name is written as a full IRI under EdgeVocab instead.
// Terms resolve against an inline @vocab so expansion never needs a remote
// context.
package jsonld

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/piprate/json-gold/ld"

	"evalgo.org/lixiv/internal/graph"
)

// Vocab is the vocabulary IRI kind names, fields and labels resolve against.
const Vocab = "https://lixiv.evalgo.org/vocab#"

// EdgeVocab prefixes an edge label whose name is already taken by a field
// of the source node.
const EdgeVocab = "https://lixiv.evalgo.org/vocab/edge#"

// nodeNamespace seeds the name-based node identifiers.
var nodeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(Vocab))

// NodeID returns the stable identifier of a node with the given display
// name.
func NodeID(name string) string {
	return "urn:uuid:" + uuid.NewSHA1(nodeNamespace, []byte(name)).String()
}

// Document builds the JSON-LD document for g. The document @id is fresh on
// every call; node identifiers depend only on display names.
func Document(g *graph.Graph) map[string]interface{} {
	ids := make(map[graph.NodeHandle]string, g.NodeCount())
	entries := make(map[graph.NodeHandle]map[string]interface{}, g.NodeCount())
	order := g.Nodes()

	for _, h := range order {
		node, _ := g.Node(h)

		id := fmt.Sprintf("urn:lixiv:node:%d", h)
		if node.HasName() {
			id = NodeID(node.Name())
		}
		ids[h] = id

		entry := node.Data()
		entry["@id"] = id
		entry["@type"] = node.Kind
		entries[h] = entry
	}

	refs := make(map[graph.NodeHandle]map[string][]interface{})
	for _, h := range g.Edges() {
		src, dst, _ := g.Endpoints(h)
		label, _ := g.Label(h)

		byLabel, ok := refs[src]
		if !ok {
			byLabel = make(map[string][]interface{})
			refs[src] = byLabel
		}
		byLabel[label] = append(byLabel[label], map[string]interface{}{"@id": ids[dst]})
	}

	for src, byLabel := range refs {
		entry := entries[src]
		for label, targets := range byLabel {
			key := label
			if _, taken := entry[key]; taken {
				key = EdgeVocab + label
			}
			if len(targets) == 1 {
				entry[key] = targets[0]
			} else {
				entry[key] = targets
			}
		}
	}

	items := make([]interface{}, 0, len(order))
	for _, h := range order {
		items = append(items, entries[h])
	}

	return map[string]interface{}{
		"@context": map[string]interface{}{"@vocab": Vocab},
		"@id":      "urn:uuid:" + uuid.New().String(),
		"@graph":   items,
	}
}

// Expand runs JSON-LD expansion on doc. Go values in doc are normalized
// through encoding/json first so numbers reach the processor as float64.
func Expand(doc interface{}) ([]interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	proc := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")

	expanded, err := proc.Expand(normalized, options)
	if err != nil {
		return nil, fmt.Errorf("failed to expand JSON-LD: %w", err)
	}
	return expanded, nil
}
