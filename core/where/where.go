// Package where translates GraphQL where arguments into a predicate tree
// that document stores evaluate or render into their own query language.
package where

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Op is a comparison operator.
type Op string

const (
	OpEquals           Op = "equals"
	OpNotEquals        Op = "not_equals"
	OpIn               Op = "in"
	OpNotIn            Op = "not_in"
	OpContains         Op = "contains"
	OpStartsWith       Op = "starts_with"
	OpEndsWith         Op = "ends_with"
	OpLike             Op = "like"
	OpGreaterThan      Op = "greater_than"
	OpGreaterThanEqual Op = "greater_than_equal"
	OpLessThan         Op = "less_than"
	OpLessThanEqual    Op = "less_than_equal"
	OpExists           Op = "exists"
)

// Ops lists every recognized operator.
var Ops = []Op{
	OpEquals, OpNotEquals, OpIn, OpNotIn,
	OpContains, OpStartsWith, OpEndsWith, OpLike,
	OpGreaterThan, OpGreaterThanEqual, OpLessThan, OpLessThanEqual,
	OpExists,
}

var recognized = func() map[Op]bool {
	m := make(map[Op]bool, len(Ops))
	for _, op := range Ops {
		m[op] = true
	}
	return m
}()

// IsOp reports whether name is a recognized operator.
func IsOp(name string) bool {
	return recognized[Op(name)]
}

// Condition maps operators to operands for one field.
type Condition map[Op]any

// Predicate is a conjunction of field conditions plus nested AND/OR groups.
type Predicate struct {
	Fields map[string]Condition
	And    []*Predicate
	Or     []*Predicate
}

// Translate converts a where argument into a predicate.
// Nil or empty input yields nil, meaning no filter.
func Translate(input map[string]any) *Predicate {
	if len(input) == 0 {
		return nil
	}

	p := &Predicate{}
	for key, value := range input {
		switch key {
		case "AND", "OR":
			list, ok := value.([]any)
			if !ok {
				continue
			}
			for _, item := range list {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				child := Translate(m)
				if child == nil {
					continue
				}
				if key == "AND" {
					p.And = append(p.And, child)
				} else {
					p.Or = append(p.Or, child)
				}
			}
		default:
			cond := condition(value)
			if len(cond) == 0 {
				continue
			}
			if p.Fields == nil {
				p.Fields = make(map[string]Condition)
			}
			p.Fields[key] = cond
		}
	}

	if p.IsEmpty() {
		return nil
	}
	return p
}

func condition(value any) Condition {
	ops, ok := value.(map[string]any)
	if !ok {
		if value == nil {
			return nil
		}
		return Condition{OpEquals: value}
	}
	cond := make(Condition, len(ops))
	for name, operand := range ops {
		if IsOp(name) {
			cond[Op(name)] = operand
		}
	}
	return cond
}

// IsEmpty reports whether the predicate matches everything.
func (p *Predicate) IsEmpty() bool {
	return p == nil || (len(p.Fields) == 0 && len(p.And) == 0 && len(p.Or) == 0)
}

// FieldNames returns the condition fields in sorted order.
func (p *Predicate) FieldNames() []string {
	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedOps returns the condition's operators in sorted order.
func (c Condition) SortedOps() []Op {
	ops := make([]Op, 0, len(c))
	for op := range c {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Map renders the canonical map form. Field conditions sit at the top
// level and groups nest their children directly:
//
//	{title: {equals: "A"}, and: [{price: {greater_than: 10}}], or: [...]}
func (p *Predicate) Map() map[string]any {
	if p.IsEmpty() {
		return nil
	}

	out := make(map[string]any, len(p.Fields)+2)
	for name, cond := range p.Fields {
		ops := make(map[string]any, len(cond))
		for op, v := range cond {
			ops[string(op)] = v
		}
		out[name] = ops
	}
	if len(p.And) > 0 {
		out["and"] = children(p.And)
	}
	if len(p.Or) > 0 {
		out["or"] = children(p.Or)
	}
	return out
}

func children(ps []*Predicate) []any {
	out := make([]any, len(ps))
	for i, child := range ps {
		out[i] = child.Map()
	}
	return out
}

// Getter returns a field's value and whether it is present.
type Getter func(field string) (any, bool)

// Match evaluates the predicate. Field conditions and AND children must all
// hold; when OR children exist at least one must hold.
func (p *Predicate) Match(get Getter) bool {
	if p.IsEmpty() {
		return true
	}
	for name, cond := range p.Fields {
		v, ok := get(name)
		if !cond.Match(v, ok) {
			return false
		}
	}
	for _, child := range p.And {
		if !child.Match(get) {
			return false
		}
	}
	if len(p.Or) == 0 {
		return true
	}
	for _, child := range p.Or {
		if child.Match(get) {
			return true
		}
	}
	return false
}

// Match evaluates every operator of the condition against one value.
func (c Condition) Match(value any, present bool) bool {
	if value == nil {
		present = false
	}
	for op, operand := range c {
		if !matchOp(op, operand, value, present) {
			return false
		}
	}
	return true
}

func matchOp(op Op, operand, value any, present bool) bool {
	if op == OpExists {
		want, _ := operand.(bool)
		return present == want
	}
	if !present {
		// Negative operators hold for missing values.
		return op == OpNotEquals || op == OpNotIn
	}

	switch op {
	case OpEquals:
		return equal(value, operand)
	case OpNotEquals:
		return !equal(value, operand)
	case OpIn:
		return inList(value, operand)
	case OpNotIn:
		return !inList(value, operand)
	case OpContains:
		if list, ok := value.([]any); ok {
			for _, item := range list {
				if equal(item, operand) {
					return true
				}
			}
			return false
		}
		return strings.Contains(toString(value), toString(operand))
	case OpStartsWith:
		return strings.HasPrefix(toString(value), toString(operand))
	case OpEndsWith:
		return strings.HasSuffix(toString(value), toString(operand))
	case OpLike:
		return Like(toString(value), toString(operand))
	case OpGreaterThan, OpGreaterThanEqual, OpLessThan, OpLessThanEqual:
		cmp, ok := compare(value, operand)
		if !ok {
			return false
		}
		switch op {
		case OpGreaterThan:
			return cmp > 0
		case OpGreaterThanEqual:
			return cmp >= 0
		case OpLessThan:
			return cmp < 0
		default:
			return cmp <= 0
		}
	}
	return false
}

// Like matches s against a SQL LIKE pattern: % is any run, _ is one rune.
// Matching is case-sensitive.
func Like(s, pattern string) bool {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile("(?s)" + b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func equal(a, b any) bool {
	if fa, ok := toNumber(a); ok {
		if fb, ok := toNumber(b); ok {
			return fa == fb
		}
	}
	return toString(a) == toString(b)
}

func inList(value, operand any) bool {
	list, ok := operand.([]any)
	if !ok {
		return equal(value, operand)
	}
	for _, item := range list {
		if equal(value, item) {
			return true
		}
	}
	return false
}

// compare orders numbers numerically and everything else as strings.
func compare(a, b any) (int, bool) {
	if fa, ok := toNumber(a); ok {
		fb, ok := toNumber(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	return strings.Compare(toString(a), toString(b)), true
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}
