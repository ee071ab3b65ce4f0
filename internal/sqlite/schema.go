package sqlite

// Index DDL. The index is rebuilt from the JSONL files on every Attach and
// Save, so there is no migration.
const (
	createNodes = `CREATE TABLE nodes (
    node_id TEXT PRIMARY KEY,
    type TEXT NOT NULL
);`

	createAttributes = `CREATE TABLE attribute_values (
    node_id TEXT NOT NULL,
    property TEXT NOT NULL,
    value TEXT,
    PRIMARY KEY (node_id, property),
    FOREIGN KEY (node_id) REFERENCES nodes(node_id) ON DELETE CASCADE
);`

	createReferences = `CREATE TABLE node_references (
    node_id TEXT NOT NULL,
    property TEXT NOT NULL,
    target_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    PRIMARY KEY (node_id, property, target_id),
    FOREIGN KEY (node_id) REFERENCES nodes(node_id) ON DELETE CASCADE
);`
)

const (
	idxNodesType        = `CREATE INDEX idx_nodes_type ON nodes(type);`
	idxReferencesTarget = `CREATE INDEX idx_references_target ON node_references(target_id);`
	idxAttributesProp   = `CREATE INDEX idx_attribute_values_property ON attribute_values(property);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createNodes,
	createAttributes,
	createReferences,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxNodesType,
	idxReferencesTarget,
	idxAttributesProp,
}
