// Package catalog holds the static tables the engine reconciles against:
// chapter save records and their prerequisites, shop layouts, bonus doors,
// fact identifiers and the fixed addresses of the game's globals.
//
// The tables live in an embedded CUE document (catalog.cue) that carries both
// the schema definitions and the data. Load compiles and validates it with
// the CUE Go API and derives check ids deterministically, so two loads of the
// same document produce identical catalogs.
//
// A Catalog is immutable after Load and may be shared freely.
package catalog
