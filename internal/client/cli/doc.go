// Package cli implements the interactive PhotoVault command loop.
//
// The REPL (see runREPL) reads one command per line and dispatches to
// the App methods, which drive the ingestion service and render results
// with per-item progress. Commands never abort the loop; every handler
// reports its own errors to the user.
package cli
