// Package engine provides the asynchronous run execution engine.
// It builds workflows from their specs, bounds how many runs solve at once,
// enforces timeouts via context deadlines, and records per-iteration progress
// in the store and on the progress broker as runs advance.
package engine
