package store

// Schema versions. The version table lets future schema changes migrate
// in place instead of recreating the database.
const schemaVersionV1 = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    testcase_name  TEXT NOT NULL,
    test_status    TEXT NOT NULL,
    failure_reason TEXT NOT NULL DEFAULT '',
    build_tag      TEXT NOT NULL,
    created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_name  ON results(testcase_name);
CREATE INDEX IF NOT EXISTS idx_results_build ON results(build_tag);
`
