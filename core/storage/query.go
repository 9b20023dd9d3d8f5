package storage

import (
	"fmt"
	"strings"

	"github.com/artpar/contentgate/core/where"
	"github.com/artpar/contentgate/domain/document"
)

// envelopeColumns maps envelope fields onto columns.
var envelopeColumns = map[string]string{
	document.FieldID:          "id",
	document.FieldType:        "type",
	document.FieldStatus:      "status",
	document.FieldCreatedAt:   "created_at",
	document.FieldUpdatedAt:   "updated_at",
	document.FieldPublishedAt: "published_at",
}

// dataColumn returns the payload column of a perspective.
func dataColumn(p document.Perspective) string {
	if p == document.PerspectiveDraft {
		return "draft_data"
	}
	return "published_data"
}

// jsonPath quotes a field name as a JSON path member.
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// query accumulates SQL text and its bound arguments.
type query struct {
	perspective document.Perspective
	args        []any
}

// field returns the SQL expression of a field and whether it is a payload
// field. The path is bound as an argument, so the expression must appear
// exactly once in the rendered condition.
func (q *query) field(name string) (string, bool) {
	if col, ok := envelopeColumns[name]; ok {
		if name == document.FieldStatus && q.perspective != document.PerspectiveDraft {
			return "'published'", false
		}
		return col, false
	}
	q.args = append(q.args, jsonPath(name))
	return fmt.Sprintf("json_extract(%s, ?)", dataColumn(q.perspective)), true
}

// BuildWhere renders a predicate as a SQL boolean expression over the
// documents table. A nil predicate renders as "1".
func BuildWhere(p *where.Predicate, perspective document.Perspective) (string, []any) {
	q := &query{perspective: perspective}
	return q.predicate(p), q.args
}

func (q *query) predicate(p *where.Predicate) string {
	if p.IsEmpty() {
		return "1"
	}

	var parts []string
	for _, name := range p.FieldNames() {
		cond := p.Fields[name]
		for _, op := range cond.SortedOps() {
			parts = append(parts, q.condition(name, op, cond[op]))
		}
	}
	for _, child := range p.And {
		parts = append(parts, q.predicate(child))
	}
	if len(p.Or) > 0 {
		ors := make([]string, len(p.Or))
		for i, child := range p.Or {
			ors[i] = q.predicate(child)
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

func (q *query) condition(name string, op where.Op, operand any) string {
	if op == where.OpContains {
		return q.contains(name, operand)
	}

	expr, _ := q.field(name)
	switch op {
	case where.OpEquals:
		if operand == nil {
			return expr + " IS NULL"
		}
		q.args = append(q.args, sqlValue(operand))
		return expr + " = ?"
	case where.OpNotEquals:
		if operand == nil {
			return expr + " IS NOT NULL"
		}
		q.args = append(q.args, sqlValue(operand))
		return expr + " IS NOT ?"
	case where.OpIn, where.OpNotIn:
		list := toList(operand)
		if len(list) == 0 {
			if op == where.OpIn {
				return "0"
			}
			return "1"
		}
		marks := make([]string, len(list))
		for i, v := range list {
			marks[i] = "?"
			q.args = append(q.args, sqlValue(v))
		}
		in := strings.Join(marks, ", ")
		if op == where.OpIn {
			return fmt.Sprintf("%s IN (%s)", expr, in)
		}
		return fmt.Sprintf("IFNULL(%s NOT IN (%s), 1)", expr, in)
	case where.OpStartsWith:
		s := fmt.Sprint(operand)
		q.args = append(q.args, s, s)
		return fmt.Sprintf("substr(%s, 1, length(?)) = ?", expr)
	case where.OpEndsWith:
		s := fmt.Sprint(operand)
		if s == "" {
			return expr + " IS NOT NULL"
		}
		q.args = append(q.args, s, s)
		return fmt.Sprintf("substr(%s, -length(?)) = ?", expr)
	case where.OpLike:
		q.args = append(q.args, fmt.Sprint(operand))
		return expr + " LIKE ?"
	case where.OpGreaterThan:
		q.args = append(q.args, sqlValue(operand))
		return expr + " > ?"
	case where.OpGreaterThanEqual:
		q.args = append(q.args, sqlValue(operand))
		return expr + " >= ?"
	case where.OpLessThan:
		q.args = append(q.args, sqlValue(operand))
		return expr + " < ?"
	case where.OpLessThanEqual:
		q.args = append(q.args, sqlValue(operand))
		return expr + " <= ?"
	case where.OpExists:
		if want, _ := operand.(bool); want {
			return expr + " IS NOT NULL"
		}
		return expr + " IS NULL"
	}
	return "1"
}

// contains matches list members for JSON arrays and substrings otherwise.
func (q *query) contains(name string, operand any) string {
	if _, ok := envelopeColumns[name]; ok {
		expr, _ := q.field(name)
		q.args = append(q.args, fmt.Sprint(operand))
		return fmt.Sprintf("instr(%s, ?) > 0", expr)
	}

	col := dataColumn(q.perspective)
	path := jsonPath(name)
	q.args = append(q.args, path, path, sqlValue(operand), path, fmt.Sprint(operand))
	return fmt.Sprintf(
		"(CASE json_type(%[1]s, ?) WHEN 'array' THEN EXISTS (SELECT 1 FROM json_each(%[1]s, ?) WHERE value = ?) ELSE instr(json_extract(%[1]s, ?), ?) > 0 END)",
		col,
	)
}

// BuildOrderBy renders a sort argument. Missing values sort last and ties
// break by id.
func BuildOrderBy(sort string, perspective document.Perspective) (string, []any) {
	field, desc := document.ParseSort(sort)
	q := &query{perspective: perspective}
	expr, _ := q.field(field)

	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	// The expression appears twice, so its path argument does too.
	args := append(append([]any{}, q.args...), q.args...)
	return fmt.Sprintf("(%s IS NULL), %s %s, id ASC", expr, expr, dir), args
}

// sqlValue converts an operand to the value json_extract yields for it.
func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

func toList(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case nil:
		return nil
	}
	return []any{v}
}
