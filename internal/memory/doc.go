// Package memory defines the byte-addressed interface to the attached game
// process.
//
// The engine never talks to a process directly. Everything it knows about the
// game comes through Interface: raw reads and writes at absolute addresses
// plus a byte-pattern search over the whole image. Typed accessors
// (ReadUint8, ReadUint32, WriteFloat32, ...) are thin little-endian wrappers
// over ReadBytes and WriteBytes.
//
// # Failure model
//
// Any failing call is reported as a *ConnectionLostError. Callers must not
// retry inside the same tick; the orchestrator tears the connection down and
// re-derives all state on the next successful connection.
//
// Image is a sparse, page-backed implementation used by tests, the scenario
// harness and the snapshot-driven CLI.
package memory
