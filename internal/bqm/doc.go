// Package bqm provides the binary quadratic model consumed by the solver
// workflow: a set of integer-labelled variables with linear biases, a
// symmetric adjacency of quadratic biases, a scalar offset and a vartype
// (BINARY {0,1} or SPIN {-1,+1}).
//
// A Model is not safe for concurrent mutation. Workflows share a Model
// read-only across racing branches; any fixing or reduction works on a Copy.
package bqm
