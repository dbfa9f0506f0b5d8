package registry

// Schema DDL for the registry database. The database file is rebuilt
// from the JSONL files on every Open; the JSONL files are the source
// of truth.
const (
	createRecords = `CREATE TABLE records (
    component_id TEXT PRIMARY KEY,
    correlation_id TEXT NOT NULL,
    installed_at TEXT NOT NULL,
    backup_ref TEXT,
    status TEXT NOT NULL
);`

	createMeta = `CREATE TABLE meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`
)

// schemaDDL lists the statements executed at Open.
var schemaDDL = []string{createRecords, createMeta}

// Well-known meta keys.
const (
	metaCorrelationID = "correlation_id"
	metaSchemaVersion = "schema_version"
)

// schemaVersion is written into meta on first open.
const schemaVersion = "1"
