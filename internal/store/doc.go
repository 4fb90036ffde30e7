// Package store provides a SQLite-backed session fact store.
//
// It stands in for a multiworld server when playing locally: facts are
// granted from the command line and the checks the engine reports are kept
// until the next run.
//
// # Tables
//
//   - received_facts: one row per delivery, ordered by seq
//   - confirmed_checks: one row per accepted check, UNIQUE(check_id)
//
// All ordering uses the seq column, never wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
