package query

import (
	"fmt"
	"reflect"
	"strings"
)

// SortField is one ORDER BY term. Field is a view name resolved through the
// projection.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields parses "field,-field" into sort terms; a leading "-" sorts
// descending. Empty input yields nil.
func ParseSortFields(s string) []SortField {
	if s == "" {
		return nil
	}

	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// Builder assembles SELECT statements over one projection. Each condition
// takes its placeholder numbers ($1, $2, ...) when added, a form both pgx
// and sqlite accept.
type Builder struct {
	projection  *ProjectionMap
	where       []string
	args        []any
	sort        []SortField
	defaultSort []SortField
}

// NewBuilder returns a Builder for projection, ordered by defaultSort unless
// OrderByFields overrides it.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, defaultSort: defaultSort}
}

// Build returns the ordered SELECT of every matching row.
func (b *Builder) Build() (string, []any) {
	sql := fmt.Sprintf("SELECT %s FROM %s%s%s",
		b.projection.Columns(), b.projection.From(), b.whereClause(), b.orderClause())
	return sql, b.args
}

// BuildCount returns the COUNT(*) of matching rows.
func (b *Builder) BuildCount() (string, []any) {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.From(), b.whereClause()), b.args
}

// BuildPage returns Build limited to one page. Pages start at 1.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	sql, args := b.Build()
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, pageSize, (page-1)*pageSize), args
}

// BuildSingle returns the SELECT of the row whose idField equals id. Other
// conditions are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(), b.projection.From(), b.projection.Column(idField))
	return sql, []any{id}
}

// OrderByFields replaces the default order. Fields the projection does not
// map are dropped.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = b.sort[:0]
	for _, f := range fields {
		if _, ok := b.projection.Lookup(f.Field); ok {
			b.sort = append(b.sort, f)
		}
	}
	return b
}

// WhereEquals adds field = value. Nil values add nothing.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.where = append(b.where, fmt.Sprintf("%s = %s", b.projection.Column(field), b.bind(value)))
	return b
}

// WhereAtLeast adds field >= value. Nil values add nothing.
func (b *Builder) WhereAtLeast(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.where = append(b.where, fmt.Sprintf("%s >= %s", b.projection.Column(field), b.bind(value)))
	return b
}

// WhereSearch matches search as a case-insensitive substring of any of
// fields. An empty search adds nothing.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := "%" + *search + "%"
	terms := make([]string, len(fields))
	for i, field := range fields {
		terms[i] = fmt.Sprintf("LOWER(%s) LIKE LOWER(%s)", b.projection.Column(field), b.bind(pattern))
	}
	b.where = append(b.where, "("+strings.Join(terms, " OR ")+")")
	return b
}

func (b *Builder) bind(value any) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *Builder) whereClause() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func (b *Builder) orderClause() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.defaultSort
	}
	if len(fields) == 0 {
		return ""
	}

	terms := make([]string, len(fields))
	for i, f := range fields {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		terms[i] = b.projection.Column(f.Field) + " " + dir
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
