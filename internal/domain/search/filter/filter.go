// Package filter describes tag and numeric pre-filters applied inside the index.
package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a structured filter with must/must_not boolean semantics.
type Expression struct {
	must    []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, mustNot: mustNot}, nil
}

// Published restricts results to published videos.
func Published() Expression {
	return Expression{must: []Condition{{key: "published", values: []string{"true"}}}}
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 && len(e.mustNot) == 0 }

// And returns a copy of e with c appended to the must group.
func (e Expression) And(c Condition) Expression {
	must := make([]Condition, 0, len(e.must)+1)
	must = append(must, e.must...)
	return Expression{must: append(must, c), mustNot: e.mustNot}
}

// Condition is a single clause: the tag field matches any of values, or a numeric
// field lies within [min, max].
type Condition struct {
	key    string
	values []string
	min    *float64
	max    *float64
}

// NewAnyOf creates a tag condition that matches when the field holds any of values.
func NewAnyOf(key string, values ...string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	clean := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	return Condition{key: key, values: clean}, nil
}

// NewBetween creates an inclusive numeric range condition. Nil bounds are open.
func NewBetween(key string, minVal, maxVal *float64) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if minVal == nil && maxVal == nil {
		return Condition{}, fmt.Errorf("at least one bound is required for key %q", key)
	}
	if minVal != nil && maxVal != nil && *minVal > *maxVal {
		return Condition{}, fmt.Errorf("min greater than max for key %q", key)
	}
	return Condition{key: key, min: minVal, max: maxVal}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Values returns the tag values.
func (c Condition) Values() []string { return c.values }

// Bounds returns the numeric bounds (nil = open).
func (c Condition) Bounds() (minVal, maxVal *float64) { return c.min, c.max }

// IsTag reports whether this is a tag condition.
func (c Condition) IsTag() bool { return len(c.values) > 0 }
