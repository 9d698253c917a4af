// Package writer implements the batch writer for price records.
//
// A batch is written as one multi-row INSERT inside one transaction, so either
// every record in the call is committed or none is. Writes are append-only.
//
// Expected table (TimescaleDB hypertable on "time"):
//
//	CREATE TABLE crypto_ws_table (
//	    time       TIMESTAMPTZ      NOT NULL,
//	    symbol     TEXT             NOT NULL,
//	    price      DOUBLE PRECISION NOT NULL,
//	    day_volume DOUBLE PRECISION
//	);
//	SELECT create_hypertable('crypto_ws_table', 'time');
package writer
