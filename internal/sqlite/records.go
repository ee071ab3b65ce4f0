package sqlite

// JSONL file names in the data directory.
const (
	nodesJSONL  = "nodes.jsonl"
	valuesJSONL = "values.jsonl"
	indexDB     = "modelgraph.db"
)

// nodeRecord is one line of nodes.jsonl.
type nodeRecord struct {
	NodeID string `json:"node_id"`
	Type   string `json:"type"`
}

// valueRecord is one line of values.jsonl. Attribute values are in Value;
// association values are node identifiers in Refs.
type valueRecord struct {
	NodeID   string   `json:"node_id"`
	Property string   `json:"property"`
	Value    any      `json:"value"`
	Refs     []string `json:"refs,omitempty"`
}

func (r valueRecord) isReference() bool { return r.Refs != nil }
