// Package report collects job and fuzz outcomes while a run is in flight and
// renders the final summary.
//
// The Aggregator is the single serialization point for results: workers for
// different toolchains call it concurrently. Live progress goes to the
// injected zerolog logger; the captured output of failing jobs goes, in full,
// to the injected writer. Output of passing jobs is never printed.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors, std lib
//   - MUST NOT import: internal/engine, internal/cli, internal/workspace
package report
