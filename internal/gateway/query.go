package gateway

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Row is one record as returned by the row API, keyed by column name.
type Row map[string]any

// String returns the column as a string, or "" when absent or not a string.
func (r Row) String(column string) string {
	if v, ok := r[column].(string); ok {
		return v
	}
	return ""
}

// Decode copies the row into dst, which should be a pointer to a struct with json tags.
func (r Row) Decode(dst any) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("gateway: encode row: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("gateway: decode row: %w", err)
	}
	return nil
}

// DecodeRows decodes every row into a new slice of T.
func DecodeRows[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var item T
		if err := row.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Operator is a filter comparison.
type Operator string

const (
	OpEq     Operator = "eq"
	OpNeq    Operator = "neq"
	OpGt     Operator = "gt"
	OpGte    Operator = "gte"
	OpLt     Operator = "lt"
	OpLte    Operator = "lte"
	OpIn     Operator = "in"
	OpILike  Operator = "ilike"
	OpIsNull Operator = "is_null"
)

// Filter is a single column predicate.
type Filter struct {
	Column string
	Op     Operator
	Value  any
}

// FilterSet is a conjunction of filters.
type FilterSet []Filter

func Eq(column string, value any) Filter  { return Filter{Column: column, Op: OpEq, Value: value} }
func Neq(column string, value any) Filter { return Filter{Column: column, Op: OpNeq, Value: value} }
func Gte(column string, value any) Filter { return Filter{Column: column, Op: OpGte, Value: value} }
func Lte(column string, value any) Filter { return Filter{Column: column, Op: OpLte, Value: value} }
func ILike(column, pattern string) Filter {
	return Filter{Column: column, Op: OpILike, Value: pattern}
}
func IsNull(column string) Filter { return Filter{Column: column, Op: OpIsNull} }

// In matches any of values.
func In(column string, values ...string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// Where builds a FilterSet.
func Where(filters ...Filter) FilterSet { return FilterSet(filters) }

// Sort is a single ordering term.
type Sort struct {
	Column     string
	Descending bool
}

// Ordering lists sort terms in priority order.
type Ordering []Sort

func Asc(column string) Ordering  { return Ordering{{Column: column}} }
func Desc(column string) Ordering { return Ordering{{Column: column, Descending: true}} }

// ThenAsc appends a lower priority ascending term.
func (o Ordering) ThenAsc(column string) Ordering {
	return append(o, Sort{Column: column})
}

// ThenDesc appends a lower priority descending term.
func (o Ordering) ThenDesc(column string) Ordering {
	return append(o, Sort{Column: column, Descending: true})
}

const rowAlias = "t"

func quoteTable(table string) string { return pgx.Identifier{table}.Sanitize() }

func quoteColumn(column string) string { return pgx.Identifier{rowAlias, column}.Sanitize() }

type sqlBuilder struct {
	table string
	args  []any
	sb    strings.Builder
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) where(filters FilterSet) error {
	for i, f := range filters {
		if err := checkColumn(b.table, f.Column); err != nil {
			return err
		}
		if i == 0 {
			b.sb.WriteString(" WHERE ")
		} else {
			b.sb.WriteString(" AND ")
		}
		col := quoteColumn(f.Column)
		switch f.Op {
		case OpEq, "":
			b.sb.WriteString(col + " = " + b.bind(f.Value))
		case OpNeq:
			b.sb.WriteString(col + " <> " + b.bind(f.Value))
		case OpGt:
			b.sb.WriteString(col + " > " + b.bind(f.Value))
		case OpGte:
			b.sb.WriteString(col + " >= " + b.bind(f.Value))
		case OpLt:
			b.sb.WriteString(col + " < " + b.bind(f.Value))
		case OpLte:
			b.sb.WriteString(col + " <= " + b.bind(f.Value))
		case OpIn:
			b.sb.WriteString(col + "::text = ANY(" + b.bind(f.Value) + ")")
		case OpILike:
			b.sb.WriteString(col + " ILIKE " + b.bind(f.Value))
		case OpIsNull:
			b.sb.WriteString(col + " IS NULL")
		default:
			return &QueryError{Code: "PGRST100", Message: "unsupported operator " + string(f.Op), Table: b.table}
		}
	}
	return nil
}

func (b *sqlBuilder) orderBy(order Ordering) error {
	for i, s := range order {
		if err := checkColumn(b.table, s.Column); err != nil {
			return err
		}
		if i == 0 {
			b.sb.WriteString(" ORDER BY ")
		} else {
			b.sb.WriteString(", ")
		}
		b.sb.WriteString(quoteColumn(s.Column))
		if s.Descending {
			b.sb.WriteString(" DESC")
		} else {
			b.sb.WriteString(" ASC")
		}
	}
	return nil
}

func (b *sqlBuilder) limit(n int) {
	if n > 0 {
		b.sb.WriteString(fmt.Sprintf(" LIMIT %d", n))
	}
}

func buildSelect(table string, filters FilterSet, order Ordering, limit int) (string, []any, error) {
	if err := checkTable(table); err != nil {
		return "", nil, err
	}
	b := &sqlBuilder{table: table}
	b.sb.WriteString("SELECT to_jsonb(t) FROM " + quoteTable(table) + " AS t")
	if err := b.where(filters); err != nil {
		return "", nil, err
	}
	if err := b.orderBy(order); err != nil {
		return "", nil, err
	}
	b.limit(limit)
	return b.sb.String(), b.args, nil
}

func buildCount(table string, filters FilterSet) (string, []any, error) {
	if err := checkTable(table); err != nil {
		return "", nil, err
	}
	b := &sqlBuilder{table: table}
	b.sb.WriteString("SELECT COUNT(*) FROM " + quoteTable(table) + " AS t")
	if err := b.where(filters); err != nil {
		return "", nil, err
	}
	return b.sb.String(), b.args, nil
}

func buildSearch(table, column, term string, limit int) (string, []any, error) {
	if err := checkColumn(table, column); err != nil {
		return "", nil, err
	}
	b := &sqlBuilder{table: table}
	b.sb.WriteString("SELECT to_jsonb(t) FROM " + quoteTable(table) + " AS t WHERE to_tsvector('simple', coalesce(" +
		quoteColumn(column) + ", '')) @@ plainto_tsquery('simple', " + b.bind(term) + ")")
	b.limit(limit)
	return b.sb.String(), b.args, nil
}

// sortedColumns returns record keys in a stable order, validated against the table.
func sortedColumns(table string, record Row) ([]string, error) {
	keys := make([]string, 0, len(record))
	for k := range record {
		if err := checkColumn(table, k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func buildInsert(table string, record Row) (string, []any, error) {
	if err := checkTable(table); err != nil {
		return "", nil, err
	}
	keys, err := sortedColumns(table, record)
	if err != nil {
		return "", nil, err
	}
	if len(keys) == 0 {
		return "", nil, &QueryError{Code: "PGRST102", Message: "empty record", Table: table}
	}
	b := &sqlBuilder{table: table}
	cols := make([]string, len(keys))
	params := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = pgx.Identifier{k}.Sanitize()
		params[i] = b.bind(record[k])
	}
	b.sb.WriteString("INSERT INTO " + quoteTable(table) + " AS t (" + strings.Join(cols, ", ") +
		") VALUES (" + strings.Join(params, ", ") + ") RETURNING to_jsonb(t)")
	return b.sb.String(), b.args, nil
}

func buildUpdate(table, id string, patch Row) (string, []any, error) {
	if err := checkTable(table); err != nil {
		return "", nil, err
	}
	fields := make(Row, len(patch))
	for k, v := range patch {
		if k != "id" {
			fields[k] = v
		}
	}
	keys, err := sortedColumns(table, fields)
	if err != nil {
		return "", nil, err
	}
	if len(keys) == 0 {
		return "", nil, &QueryError{Code: "PGRST102", Message: "empty patch", Table: table}
	}
	b := &sqlBuilder{table: table}
	sets := make([]string, len(keys))
	for i, k := range keys {
		sets[i] = pgx.Identifier{k}.Sanitize() + " = " + b.bind(fields[k])
	}
	b.sb.WriteString("UPDATE " + quoteTable(table) + " AS t SET " + strings.Join(sets, ", ") +
		" WHERE " + quoteColumn("id") + " = " + b.bind(id) + " RETURNING to_jsonb(t)")
	return b.sb.String(), b.args, nil
}
