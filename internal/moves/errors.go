package moves

import "errors"

// ErrOutOfRange indicates a requested subgraph size outside [0, variable count].
var ErrOutOfRange = errors.New("moves: requested size out of range")
