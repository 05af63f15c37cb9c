package bqm

import (
	"encoding/json"
	"fmt"
)

// wireModel is the JSON representation of a Model.
type wireModel struct {
	Vartype   Vartype         `json:"vartype"`
	Linear    map[int]float64 `json:"linear"`
	Quadratic []Interaction   `json:"quadratic"`
	Offset    float64         `json:"offset"`
}

// MarshalJSON implements json.Marshaler.
func (m *Model) MarshalJSON() ([]byte, error) {
	w := wireModel{
		Vartype:   m.vartype,
		Linear:    make(map[int]float64, len(m.linear)),
		Quadratic: m.Interactions(),
		Offset:    m.offset,
	}
	for v, b := range m.All() {
		w.Linear[v] = b
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Model) UnmarshalJSON(data []byte) error {
	var w wireModel
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	parsed, err := NewFromTerms(w.Vartype, w.Linear, w.Quadratic, w.Offset)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}
