// Package engine implements the poll loop that reconciles a running game
// with a multiworld session.
//
// ARCHITECTURE:
//
// Single-Writer Tick Loop:
// One goroutine calls Tick (directly or through Run). Each tick runs to
// completion before the next one starts; a slow tick delays the next one
// and skipped ticks are not queued.
//
// Tick Phases:
// 1. Snapshot the fact store (received facts, confirmed checks)
// 2. Propagate newly received facts through the unlock graph
// 3. Poll every detector for newly revealed checks
// 4. Report revealed checks the session still considers missing
// 5. Apply every state mirror
// 6. Tick the in-game message display
//
// Connections:
// Detectors, mirrors, the unlock graph and the display belong to a
// connection. A connection is built from fresh save-data reads and thrown
// away whole on the first memory failure; the next tick builds a new one.
// Rebuilding is the only recovery strategy, so no component state outlives
// its connection.
package engine
