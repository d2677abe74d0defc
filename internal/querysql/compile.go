package querysql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoOrder is returned for a Select without ORDER BY. Every query must
// return rows in a deterministic order.
var ErrNoOrder = errors.New("query has no ORDER BY")

// Compiler turns Select values into parameterized SQL for one dialect.
//
// Values are never interpolated; every value becomes a placeholder.
type Compiler struct {
	Dialect Dialect
}

// NewCompiler creates a Compiler for the given dialect.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{Dialect: d}
}

// Compile converts q to SQL and its positional parameters.
func (c *Compiler) Compile(q Select) (string, []any, error) {
	if q.From == "" {
		return "", nil, fmt.Errorf("compile: empty FROM")
	}
	if len(q.OrderBy) == 0 {
		return "", nil, fmt.Errorf("compile %s: %w", q.From, ErrNoOrder)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(q.Columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(q.From)

	var params []any
	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = whereParams
	}

	b.WriteString(" ORDER BY ")
	for i, o := range q.OrderBy {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(o.Column)
		if o.Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}

	return Rebind(c.Dialect, b.String()), params, nil
}

func (c *Compiler) compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		return pred.Field + " = ?", []any{pred.Value}, nil
	case NotEquals:
		return pred.Field + " <> ?", []any{pred.Value}, nil
	case And:
		return c.compileAnd(pred)
	case RowLess:
		return compileRow(pred.Fields, pred.Values, "<")
	case RowGreater:
		return compileRow(pred.Fields, pred.Values, ">")
	case nil:
		return "1 = 1", nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *Compiler) compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, p := range and.Predicates {
		sql, ps, err := c.compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		if _, nested := p.(And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func compileRow(fields []string, values []any, op string) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("row comparison needs at least one field")
	}
	if len(fields) != len(values) {
		return "", nil, fmt.Errorf("row comparison has %d fields but %d values", len(fields), len(values))
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ")
	sql := fmt.Sprintf("(%s) %s (%s)", strings.Join(fields, ", "), op, marks)

	params := make([]any, len(values))
	copy(params, values)
	return sql, params, nil
}

// Rebind rewrites ? placeholders for the dialect. SQLite queries are returned
// unchanged; Postgres placeholders become $1, $2, ... Question marks inside
// single-quoted literals are left alone.
func Rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			quoted = !quoted
			b.WriteByte(ch)
		case ch == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
