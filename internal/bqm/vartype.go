package bqm

import (
	"fmt"
	"strings"
)

// Vartype is the value domain of every variable in a model.
type Vartype int

const (
	// Binary variables take values in {0, 1}.
	Binary Vartype = iota + 1
	// Spin variables take values in {-1, +1}.
	Spin
)

// String returns the canonical upper-case name of the vartype.
func (vt Vartype) String() string {
	switch vt {
	case Binary:
		return "BINARY"
	case Spin:
		return "SPIN"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether vt is one of the supported domains.
func (vt Vartype) Valid() bool {
	return vt == Binary || vt == Spin
}

// Values returns the domain values in ascending order.
func (vt Vartype) Values() []int {
	switch vt {
	case Binary:
		return []int{0, 1}
	case Spin:
		return []int{-1, 1}
	default:
		return nil
	}
}

// Min returns the smallest domain value.
func (vt Vartype) Min() int {
	if vt == Spin {
		return -1
	}
	return 0
}

// Max returns the largest domain value.
func (vt Vartype) Max() int {
	return 1
}

// Contains reports whether value belongs to the domain.
func (vt Vartype) Contains(value int) bool {
	switch vt {
	case Binary:
		return value == 0 || value == 1
	case Spin:
		return value == -1 || value == 1
	default:
		return false
	}
}

// Flip returns the other value of the domain.
func (vt Vartype) Flip(value int) int {
	if vt == Spin {
		return -value
	}
	return 1 - value
}

// FlipDelta returns the change in a variable's value when it is flipped:
// 1-2v for BINARY (0→1 is +1, 1→0 is -1) and -2v for SPIN. Values outside
// the domain fail with ErrInvalidDomain.
func (vt Vartype) FlipDelta(value int) (int, error) {
	if vt.Valid() && !vt.Contains(value) {
		return 0, fmt.Errorf("%w: value %d for %s", ErrInvalidDomain, value, vt)
	}
	switch vt {
	case Binary:
		return 1 - 2*value, nil
	case Spin:
		return -2 * value, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidDomain, int(vt))
	}
}

// ParseVartype parses "BINARY"/"SPIN" case-insensitively.
func ParseVartype(s string) (Vartype, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BINARY":
		return Binary, nil
	case "SPIN":
		return Spin, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDomain, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (vt Vartype) MarshalText() ([]byte, error) {
	if !vt.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDomain, int(vt))
	}
	return []byte(vt.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (vt *Vartype) UnmarshalText(text []byte) error {
	parsed, err := ParseVartype(string(text))
	if err != nil {
		return err
	}
	*vt = parsed
	return nil
}
