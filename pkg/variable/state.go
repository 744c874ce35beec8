package variable

import (
	"math"
	"strconv"
)

// State is a named value of a finite-states or discretized variable.
type State struct {
	Name string `json:"name" yaml:"name"`
}

// String returns the state name.
func (s State) String() string { return s.Name }

// States builds a state slice from names.
func States(names ...string) []State {
	states := make([]State, len(names))
	for i, name := range names {
		states[i] = State{Name: name}
	}
	return states
}

// StringWithProperties is a label with free-form metadata, used for agents and
// decision criteria.
type StringWithProperties struct {
	Name       string            `json:"name" yaml:"name"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// NewStringWithProperties creates a label without properties.
func NewStringWithProperties(name string) *StringWithProperties {
	return &StringWithProperties{Name: name}
}

// Copy returns a deep copy.
func (s *StringWithProperties) Copy() *StringWithProperties {
	if s == nil {
		return nil
	}
	c := &StringWithProperties{Name: s.Name}
	if s.Properties != nil {
		c.Properties = make(map[string]string, len(s.Properties))
		for k, v := range s.Properties {
			c.Properties[k] = v
		}
	}
	return c
}

// String returns the label.
func (s *StringWithProperties) String() string {
	if s == nil {
		return ""
	}
	return s.Name
}

// FormatValue renders a number as a state name. Every conversion between
// numeric values and state names goes through this function.
func FormatValue(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseValue is the inverse of FormatValue.
func ParseValue(s string) (float64, error) {
	switch s {
	case "+Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}
