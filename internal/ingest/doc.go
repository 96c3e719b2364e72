// Package ingest implements the ingestion orchestrator.
//
// The orchestrator drives a single-worker loop over the state store's
// schedulable assets: fetch the next window from CoinGecko, commit it
// transactionally, advance the checkpoint, repeat. Rate-limit signals
// suspend the whole pipeline with exponential backoff; transient failures
// are charged against a per-asset retry budget; protocol failures are
// terminal for the asset but never abort the run. Every durable mutation
// commits before the next network call, so the process can be killed at any
// point and resume exactly where it left off.
package ingest
