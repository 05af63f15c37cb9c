// Package solver provides the built-in decomposers, samplers and composers
// and a registry that builds them by name from string-keyed parameters.
package solver
