// Package migrations bootstraps the database schemas. The SQL files ship
// inside the binary so the daemon can apply them itself at startup; each
// file is idempotent (CREATE ... IF NOT EXISTS) and they run in lexical
// order.
package migrations

import "embed"

// PostgresFS holds the record-store schema (action records, rug
// detections, state transitions).
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the stream-sample schema (observations, anomalies).
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
