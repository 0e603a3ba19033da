package inventory

import (
	"fmt"
	"regexp"
)

// Qualifier selects how a Predicate compares its values against a field.
type Qualifier string

const (
	QualifierEQ   Qualifier = "EQ"   // exact string equality
	QualifierLike Qualifier = "LIKE" // value is a regexp, matched anywhere in the field
)

// Candidate is one raw device descriptor from the discovery API.
type Candidate map[string]any

// Predicate is one declarative filter over a Candidate attribute.
type Predicate struct {
	Field     string    `yaml:"field" json:"field" validate:"required"`
	Qualifier Qualifier `yaml:"qualifier" json:"qualifier" validate:"required,oneof=EQ LIKE"`
	Values    []string  `yaml:"values" json:"values" validate:"required,min=1"`
	Inverted  bool      `yaml:"inverted" json:"inverted"`
	MatchAll  bool      `yaml:"match_all" json:"match_all"`
}

// Match reports whether the candidate satisfies the predicate.
// A field not present on the candidate never satisfies, inverted or not
// the predicate still combines through the ANY/ALL policy first.
func (p Predicate) Match(c Candidate) (bool, error) {
	raw, ok := c[p.Field]
	if !ok {
		return false, nil
	}
	field := fmt.Sprint(raw)
	matches := 0
	for _, v := range p.Values {
		switch p.Qualifier {
		case QualifierEQ:
			if field == v {
				matches++
			}
		case QualifierLike:
			re, err := regexp.Compile(v)
			if err != nil {
				return false, fmt.Errorf("filter %q: bad pattern %q: %w", p.Field, v, err)
			}
			if re.MatchString(field) {
				matches++
			}
		default:
			return false, fmt.Errorf("filter %q: unknown qualifier %q", p.Field, p.Qualifier)
		}
	}
	satisfied := matches > 0
	if p.MatchAll {
		satisfied = matches == len(p.Values)
	}
	return satisfied != p.Inverted, nil
}

// FilterSet is an ordered list of predicates, all of which must pass.
type FilterSet []Predicate

// Match reports whether the candidate passes every predicate.
func (fs FilterSet) Match(c Candidate) (bool, error) {
	for _, p := range fs {
		ok, err := p.Match(c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// DefaultFilterSet excludes OS classes that are discoverable but not
// driveable over a network CLI. Callers may replace it entirely.
func DefaultFilterSet() FilterSet {
	return FilterSet{{
		Field:     "os",
		Qualifier: QualifierLike,
		Values: []string{
			`windows`, `linux`, `proxmox`, `vmware`, `esxi`,
			`apc`, `drac`, `ping`, `pdu`, `exagrid`, `\s`, `^$`,
		},
		Inverted: true,
		MatchAll: false,
	}}
}
