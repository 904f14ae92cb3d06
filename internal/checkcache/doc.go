// Package checkcache persists check results and engine lifecycle events in
// SQLite.
//
// Store satisfies client.Cache: a repeated check with identical text and
// settings is answered from the check_cache table without reaching the
// engine. Entries expire after the configured TTL and expired rows are
// removed by Prune. EventLog appends to engine_events so that restarts can
// be inspected after the fact.
//
// Both expect the schema from the migrations package to be applied.
package checkcache
