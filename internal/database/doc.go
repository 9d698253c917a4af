// Package database opens the TimescaleDB connection pool used by the
// price writer. The target hypertable is created out of band; see the
// writer package for its schema.
package database
