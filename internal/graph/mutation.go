package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Mutation is the structured intent a model emits to grow the user's graph.
// It is never executed directly: stores compile it into parameterized merges.
type Mutation struct {
	Relations []Relation `json:"relations" validate:"max=16,dive"`
}

// Relation links From (the user when nil) to To.
type Relation struct {
	From       *Node      `json:"from,omitempty" validate:"omitempty"`
	Type       string     `json:"type" validate:"required,identifier"`
	To         Node       `json:"to"`
	Properties Properties `json:"properties,omitempty" validate:"max=16,dive,keys,identifier,endkeys,max=500"`
}

// Node is identified by its label and name within one user's graph.
type Node struct {
	Label      string     `json:"label" validate:"required,identifier,ne=User"`
	Name       string     `json:"name" validate:"required,max=200"`
	Properties Properties `json:"properties,omitempty" validate:"max=16,dive,keys,identifier,endkeys,max=500"`
}

// Properties accepts scalar JSON values and keeps them as strings.
type Properties map[string]string

func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Properties, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		case nil:
		default:
			return fmt.Errorf("property %q must be a scalar", k)
		}
	}

	*p = out
	return nil
}

// reserved keys carry node identity and cannot be set from an intent
var reservedKeys = map[string]bool{"id": true, "name": true, "owner": true}

func (p Properties) settable() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		if !reservedKeys[k] {
			out[k] = v
		}
	}
	return out
}

var (
	ErrInvalidMutation = errors.New("invalid graph mutation")

	identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)
	validate          = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	return v
}

// ParseMutation extracts and validates a mutation from raw model output. Code
// fences and surrounding prose are tolerated.
func ParseMutation(raw string) (*Mutation, error) {
	body := strings.TrimSpace(raw)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no json object in response", ErrInvalidMutation)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body[start : end+1])))
	dec.DisallowUnknownFields()

	var m Mutation
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMutation, err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *Mutation) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMutation, err)
	}
	return nil
}
