package solver

import (
	"fmt"
	"math"
)

// Params holds strategy parameters decoded from JSON or YAML. Numbers may
// arrive as int or float64 depending on the decoder.
type Params map[string]any

// Int returns the integer parameter key, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s=%v is not an integer", ErrInvalidParam, key, v)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %s=%v (%T)", ErrInvalidParam, key, v, v)
	}
}

// Float returns the real parameter key, or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %s=%v (%T)", ErrInvalidParam, key, v, v)
	}
}

// positive reads an integer parameter that must be at least 1.
func (p Params) positive(key string, def int) (int, error) {
	n, err := p.Int(key, def)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidParam, key, n)
	}
	return n, nil
}

// Seed returns the "seed" parameter when present.
func (p Params) Seed() (uint64, bool, error) {
	if _, ok := p["seed"]; !ok {
		return 0, false, nil
	}
	n, err := p.Int("seed", 0)
	if err != nil {
		return 0, false, err
	}
	return uint64(n), true, nil
}
