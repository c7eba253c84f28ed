// Package core defines the shared contracts of the assistant pipeline: the
// state Record threaded through stages, the Stage and Graph abstractions,
// lifecycle Events streamed to clients, and the error taxonomy. Higher level
// packages (engine, stage, server) depend on core; core depends on nothing
// but the standard library and uuid.
package core
