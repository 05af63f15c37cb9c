// Package moves ranks single-variable flips of an assignment by the energy
// change they cause and selects variables for local search.
//
// # Incremental flip gains
//
// For a model E(x) = offset + Σ h_v x_v + Σ_{u<v} J_uv x_u x_v, the energy
// change of flipping only v is
//
//	ΔE_v = (h_v + Σ_u J_uv x_u) · (x'_v − x_v)
//
// where x'_v − x_v is 1−2x_v for BINARY and −2x_v for SPIN. The bracket is
// the partial derivative of E with respect to x_v, holding the neighbours
// fixed. The model stores each coupling once per direction at its full
// value, so no halving is involved and the offset cancels.
//
// Evaluating ΔE_v for every variable this way touches each variable and
// each edge a constant number of times, O(n+m) in total. Recomputing the
// whole energy per candidate flip costs O(n·(n+m)); FlipEnergyGainsNaive
// keeps that formulation as a reference for tests and benchmarks.
package moves
