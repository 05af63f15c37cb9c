// Package workflow builds flow runnables from declarative YAML or JSON
// documents.
//
// A document names a workflow and holds a tree of nodes:
//
//	name: refine
//	workflow:
//	  type: loop
//	  max_iter: 50
//	  convergence: 5
//	  children:
//	    - type: best
//	      children:
//	        - type: sequence
//	          children:
//	            - {type: decomposer, name: energy-impact, params: {size: 20}}
//	            - {type: sampler, name: exact}
//	            - {type: composer, name: splat}
//	        - {type: sampler, name: steepest-descent}
package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Node types.
const (
	TypeIdentity   = "identity"
	TypeSequence   = "sequence"
	TypeRace       = "race"
	TypeBest       = "best"
	TypeFold       = "fold"
	TypeLoop       = "loop"
	TypeDecomposer = "decomposer"
	TypeSampler    = "sampler"
	TypeComposer   = "composer"
)

// ErrInvalidSpec is returned for documents that fail validation or cannot be built.
var ErrInvalidSpec = errors.New("workflow: invalid spec")

// Spec is a named workflow document.
type Spec struct {
	Name     string `json:"name" yaml:"name" validate:"required,max=128"`
	Workflow Node   `json:"workflow" yaml:"workflow"`
}

// Node is one element of a workflow tree.
type Node struct {
	Type string `json:"type" yaml:"type" validate:"required,oneof=identity sequence race best fold loop decomposer sampler composer"`
	// Name selects the strategy of a decomposer, sampler or composer node.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Policy is "first" or "all" for race nodes.
	Policy string `json:"policy,omitempty" yaml:"policy,omitempty" validate:"omitempty,oneof=first all"`
	// Key is the fold key; only "energy" is supported.
	Key         string         `json:"key,omitempty" yaml:"key,omitempty" validate:"omitempty,oneof=energy"`
	MaxIter     int            `json:"max_iter,omitempty" yaml:"max_iter,omitempty" validate:"gte=0"`
	Convergence int            `json:"convergence,omitempty" yaml:"convergence,omitempty" validate:"gte=0"`
	Timeout     string         `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"omitempty,duration"`
	Params      map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Children    []Node         `json:"children,omitempty" yaml:"children,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("duration", validateDuration)
}

// validateDuration accepts non-negative time.ParseDuration strings.
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d >= 0
}

// Validate checks field constraints on the whole tree. Structural rules
// (child counts, strategy names) are checked by Build.
func (s *Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	return nil
}

// ParseYAML decodes and validates a YAML document. Unknown fields are rejected.
func ParseYAML(data []byte) (*Spec, error) {
	var s Spec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %w", ErrInvalidSpec, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseJSON decodes and validates a JSON document. Unknown fields are rejected.
func ParseJSON(data []byte) (*Spec, error) {
	var s Spec
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: decode json: %w", ErrInvalidSpec, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Parse accepts either format. JSON is tried first when the document starts
// with '{'.
func Parse(data []byte) (*Spec, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}
