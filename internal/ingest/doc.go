// Package ingest implements the ingestion loop.
//
// Inbound feed frames are handled one at a time, in arrival order:
//
//	feed -> Classify -> PriceTick -> Accumulator -> (full) -> Sink.Write
//	                 -> Heartbeat / Unrecognized -> log only
//
// A flush happens the instant the batch reaches its size and blocks the
// loop until the write commits or fails. Failed batches are not retried.
// Independently, a ticker sends a heartbeat to the feed; a failed heartbeat
// ends the run.
package ingest
