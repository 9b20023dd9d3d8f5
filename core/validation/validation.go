// Package validation evaluates declarative field rule chains.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/domain/document"
)

// Rule names understood by Chain.Validate.
const (
	RuleRequired  = "required"
	RuleMin       = "min"
	RuleMax       = "max"
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RulePattern   = "pattern"
	RuleOneOf     = "one_of"
)

// Chain is an instantiated rule chain for one field.
type Chain struct {
	rules    []schema.Rule
	required bool
}

// Evaluate instantiates a rule chain. Unknown rule names are kept but never
// fail validation.
func Evaluate(rules []schema.Rule) *Chain {
	c := &Chain{rules: rules}
	for _, r := range rules {
		if r.Rule == RuleRequired && r.When == "" {
			c.required = true
		}
	}
	return c
}

// IsRequired reports whether the chain carries an unconditional required rule.
func (c *Chain) IsRequired() bool {
	return c != nil && c.required
}

// Validate checks value against every unconditional rule in the chain.
// An absent value only fails the required rule.
func (c *Chain) Validate(field string, value any) []document.Issue {
	if c == nil {
		return nil
	}

	var issues []document.Issue
	add := func(r schema.Rule, def string) {
		msg := r.Message
		if msg == "" {
			msg = def
		}
		issues = append(issues, document.Issue{Field: field, Rule: r.Rule, Message: msg})
	}

	empty := isEmpty(value)
	for _, r := range c.rules {
		if r.When != "" {
			continue
		}
		if r.Rule == RuleRequired {
			if empty {
				add(r, "is required")
			}
			continue
		}
		if empty {
			continue
		}

		switch r.Rule {
		case RuleMin:
			limit, lok := toFloat64(r.Value)
			val, vok := toFloat64(value)
			if lok && vok && val < limit {
				add(r, fmt.Sprintf("must be at least %v", limit))
			}
		case RuleMax:
			limit, lok := toFloat64(r.Value)
			val, vok := toFloat64(value)
			if lok && vok && val > limit {
				add(r, fmt.Sprintf("must be at most %v", limit))
			}
		case RuleMinLength:
			limit, lok := toInt(r.Value)
			n, vok := length(value)
			if lok && vok && n < limit {
				add(r, fmt.Sprintf("must have at least %d characters or items", limit))
			}
		case RuleMaxLength:
			limit, lok := toInt(r.Value)
			n, vok := length(value)
			if lok && vok && n > limit {
				add(r, fmt.Sprintf("must have at most %d characters or items", limit))
			}
		case RulePattern:
			pattern, pok := r.Value.(string)
			str, sok := value.(string)
			if !pok || !sok {
				continue
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				continue
			}
			if !re.MatchString(str) {
				add(r, "does not match required pattern")
			}
		case RuleOneOf:
			allowed, ok := toList(r.Value)
			if !ok {
				continue
			}
			if !contains(allowed, value) {
				opts := make([]string, len(allowed))
				for i, v := range allowed {
					opts[i] = fmt.Sprintf("%v", v)
				}
				add(r, "must be one of: "+strings.Join(opts, ", "))
			}
		}
	}
	return issues
}

// ValidateDocument checks data against the declared fields of st.
// With partial set, fields missing from data are not checked, which is what
// an update with a sparse payload needs.
func ValidateDocument(st schema.SchemaType, data map[string]any, partial bool) error {
	issues := validateFields("", st.Fields, data, partial)
	if len(issues) == 0 {
		return nil
	}
	return &document.ValidationError{Type: st.Name, Issues: issues}
}

func validateFields(prefix string, fields []schema.Field, data map[string]any, partial bool) []document.Issue {
	var issues []document.Issue

	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
		path := prefix + f.Name

		value, present := data[f.Name]
		if partial && !present {
			continue
		}

		if present && value != nil {
			if msg := checkType(f, value); msg != "" {
				issues = append(issues, document.Issue{Field: path, Rule: "type", Message: msg})
				continue
			}
		}

		issues = append(issues, Evaluate(f.Validation).Validate(path, value)...)

		if f.Type == schema.FieldTypeObject {
			if nested, ok := value.(map[string]any); ok {
				issues = append(issues, validateFields(path+".", f.Fields, nested, partial)...)
			}
		}
	}

	for key := range data {
		// Underscore keys are system tags (_type, _key).
		if !known[key] && !strings.HasPrefix(key, "_") {
			issues = append(issues, document.Issue{Field: prefix + key, Rule: "unknown", Message: "is not a declared field"})
		}
	}

	sortIssues(issues)
	return issues
}

func checkType(f schema.Field, value any) string {
	switch {
	case f.Type.IsStringLike():
		if _, ok := value.(string); !ok {
			return "must be a string"
		}
	case f.Type == schema.FieldTypeNumber:
		if _, ok := value.(string); ok {
			return "must be a number"
		}
		if _, ok := toFloat64(value); !ok {
			return "must be a number"
		}
	case f.Type == schema.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return "must be a boolean"
		}
	case f.Type == schema.FieldTypeReference:
		if _, ok := value.(string); !ok {
			return "must be a document id"
		}
	case f.Type == schema.FieldTypeArray:
		if _, ok := value.([]any); !ok {
			return "must be a list"
		}
	case f.Type == schema.FieldTypeObject:
		if _, ok := value.(map[string]any); !ok {
			return "must be an object"
		}
	}
	return ""
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	}
	return false
}

func length(v any) (int, bool) {
	switch val := v.(type) {
	case string:
		return len([]rune(val)), true
	case []any:
		return len(val), true
	}
	return 0, false
}

func contains(allowed []any, value any) bool {
	s := fmt.Sprintf("%v", value)
	for _, a := range allowed {
		if fmt.Sprintf("%v", a) == s {
			return true
		}
	}
	return false
}

func toList(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func toFloat64(v any) (float64, bool) {
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
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

func sortIssues(issues []document.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Field < issues[j].Field
	})
}
