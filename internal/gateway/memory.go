package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MemoryStore is an in-process RowStore for development and tests. Writes
// are announced on the optional hub like the Postgres trigger does.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]Row
	hub    *Hub
	now    func() time.Time
	fail   map[string]error
}

// NewMemoryStore creates an empty store. hub may be nil.
func NewMemoryStore(hub *Hub) *MemoryStore {
	return &MemoryStore{tables: make(map[string][]Row), hub: hub, now: time.Now, fail: make(map[string]error)}
}

// Seed appends rows to table as-is (after JSON normalisation).
func (m *MemoryStore) Seed(table string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.tables[table] = append(m.tables[table], normalize(r))
	}
}

// FailNext makes the next call of op ("select", "count", "insert", ...) on table return err.
func (m *MemoryStore) FailNext(table, op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[table+"/"+op] = err
}

func (m *MemoryStore) takeFailure(table, op string) error {
	key := table + "/" + op
	if err, ok := m.fail[key]; ok {
		delete(m.fail, key)
		return err
	}
	return nil
}

// Rows returns a copy of every row in table.
func (m *MemoryStore) Rows(table string) []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Row, 0, len(m.tables[table]))
	for _, r := range m.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

func (m *MemoryStore) Query(_ context.Context, table string, filters FilterSet, order Ordering, limit int) ([]Row, error) {
	if _, _, err := buildSelect(table, filters, order, limit); err != nil {
		return nil, err
	}
	m.mu.Lock()
	err := m.takeFailure(table, "select")
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Row
	for _, r := range m.tables[table] {
		if matchAll(r, filters) {
			out = append(out, copyRow(r))
		}
	}
	sortRows(out, order)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context, table string, filters FilterSet) (int64, error) {
	if _, _, err := buildCount(table, filters); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(table, "count"); err != nil {
		return 0, err
	}
	var n int64
	for _, r := range m.tables[table] {
		if matchAll(r, filters) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Search(_ context.Context, table, column, term string, limit int) ([]Row, error) {
	if _, _, err := buildSearch(table, column, term, limit); err != nil {
		return nil, err
	}
	words := strings.Fields(strings.ToLower(term))
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Row
	for _, r := range m.tables[table] {
		text := strings.ToLower(fmt.Sprint(r[column]))
		hit := len(words) > 0
		for _, w := range words {
			if !strings.Contains(text, w) {
				hit = false
				break
			}
		}
		if hit {
			out = append(out, copyRow(r))
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Insert(_ context.Context, table string, record Row) (Row, error) {
	if _, _, err := buildInsert(table, record); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if err := m.takeFailure(table, "insert"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	row := normalize(record)
	if id, _ := row["id"].(string); id == "" {
		row["id"] = uuid.NewString()
	} else {
		for _, existing := range m.tables[table] {
			if existing["id"] == id {
				m.mu.Unlock()
				return nil, &QueryError{Code: CodeUniqueViolation, Message: "duplicate key value violates unique constraint", Table: table, Op: "insert"}
			}
		}
	}
	if _, ok := schema[table]["created_at"]; ok {
		if _, set := row["created_at"]; !set {
			row["created_at"] = m.now().UTC().Format(time.RFC3339Nano)
		}
	}
	m.tables[table] = append(m.tables[table], row)
	out := copyRow(row)
	m.mu.Unlock()

	m.announce(table, ChangeInsert, out.String("id"))
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, table, id string, patch Row) (Row, error) {
	if _, _, err := buildUpdate(table, id, patch); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if err := m.takeFailure(table, "update"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	rows := m.tables[table]
	for i, r := range rows {
		if r.String("id") != id {
			continue
		}
		for k, v := range normalize(patch) {
			if k != "id" {
				r[k] = v
			}
		}
		rows[i] = r
		out := copyRow(r)
		m.mu.Unlock()
		m.announce(table, ChangeUpdate, id)
		return out, nil
	}
	m.mu.Unlock()
	return nil, wrapError("update", table, pgx.ErrNoRows)
}

func (m *MemoryStore) announce(table string, t ChangeType, id string) {
	if m.hub != nil {
		m.hub.Publish(ChangeEvent{Table: table, Type: t, ID: id})
	}
}

func normalize(r Row) Row {
	raw, err := json.Marshal(r)
	if err != nil {
		return copyRow(r)
	}
	var out Row
	if err := json.Unmarshal(raw, &out); err != nil {
		return copyRow(r)
	}
	if out == nil {
		out = Row{}
	}
	return out
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func matchAll(r Row, filters FilterSet) bool {
	for _, f := range filters {
		if !match(r[f.Column], f) {
			return false
		}
	}
	return true
}

func match(v any, f Filter) bool {
	switch f.Op {
	case OpEq, "":
		return v != nil && compare(v, f.Value) == 0
	case OpNeq:
		return v != nil && compare(v, f.Value) != 0
	case OpGt:
		return v != nil && compare(v, f.Value) > 0
	case OpGte:
		return v != nil && compare(v, f.Value) >= 0
	case OpLt:
		return v != nil && compare(v, f.Value) < 0
	case OpLte:
		return v != nil && compare(v, f.Value) <= 0
	case OpIn:
		values, _ := f.Value.([]string)
		for _, candidate := range values {
			if v != nil && fmt.Sprint(v) == candidate {
				return true
			}
		}
		return false
	case OpILike:
		pattern, _ := f.Value.(string)
		return v != nil && likeRegexp(pattern).MatchString(fmt.Sprint(v))
	case OpIsNull:
		return v == nil
	}
	return false
}

func toFloat(v any) (float64, bool) {
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func compare(a, b any) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if t, ok := b.(time.Time); ok {
		b = t.UTC().Format(time.RFC3339Nano)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func likeRegexp(pattern string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}

func sortRows(rows []Row, order Ordering) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, s := range order {
			a, b := rows[i][s.Column], rows[j][s.Column]
			var c int
			switch {
			case a == nil && b == nil:
				c = 0
			case a == nil:
				c = 1
			case b == nil:
				c = -1
			default:
				c = compare(a, b)
			}
			if c == 0 {
				continue
			}
			if s.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
