// Package workspace provides isolated per-toolchain copies of the project
// under test.
//
// A workspace is a temporary directory holding a copy of the project tree
// (without build output or VCS metadata), with the lock file removed and,
// when the toolchain requires it, dependencies pinned to exact versions.
// The DefaultManager bounds the number of live workspaces with a weighted
// semaphore and guarantees every acquired workspace is removed again.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors, std lib
//   - MUST NOT import: internal/engine, internal/cli, internal/report
package workspace
