package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/modelgraph/internal/jsonl"
)

// readRecords reads nodes.jsonl and values.jsonl from dataDir. Malformed
// lines are skipped.
func readRecords(dataDir string) ([]nodeRecord, []valueRecord, error) {
	nodes, err := jsonl.Decode[nodeRecord](filepath.Join(dataDir, nodesJSONL))
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", nodesJSONL, err)
	}
	values, err := jsonl.Decode[valueRecord](filepath.Join(dataDir, valuesJSONL))
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", valuesJSONL, err)
	}
	return nodes, values, nil
}

// rebuildIndex replaces the contents of the index with the given records.
// It runs in one transaction: all rows are written or none.
func rebuildIndex(db *sql.DB, nodes []nodeRecord, values []valueRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning index transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"node_references", "attribute_values", "nodes"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	insertNode, err := tx.Prepare("INSERT OR IGNORE INTO nodes (node_id, type) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing node insert: %w", err)
	}
	defer insertNode.Close()
	insertAttr, err := tx.Prepare("INSERT OR REPLACE INTO attribute_values (node_id, property, value) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing attribute insert: %w", err)
	}
	defer insertAttr.Close()
	insertRef, err := tx.Prepare("INSERT OR IGNORE INTO node_references (node_id, property, target_id, ordinal) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing reference insert: %w", err)
	}
	defer insertRef.Close()

	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.NodeID == "" || n.Type == "" {
			continue
		}
		if _, err := insertNode.Exec(n.NodeID, n.Type); err != nil {
			return fmt.Errorf("indexing node %s: %w", n.NodeID, err)
		}
		known[n.NodeID] = true
	}

	for _, v := range values {
		if !known[v.NodeID] {
			continue
		}
		if v.isReference() {
			for i, target := range v.Refs {
				if _, err := insertRef.Exec(v.NodeID, v.Property, target, i); err != nil {
					return fmt.Errorf("indexing %s.%s: %w", v.NodeID, v.Property, err)
				}
			}
			continue
		}
		if _, err := insertAttr.Exec(v.NodeID, v.Property, indexText(v.Value)); err != nil {
			return fmt.Errorf("indexing %s.%s: %w", v.NodeID, v.Property, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index transaction: %w", err)
	}
	return nil
}

// indexText renders an attribute value for the index. Scalars are stored as
// their string form, composite values as JSON.
func indexText(v any) any {
	if v == nil {
		return nil
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}
