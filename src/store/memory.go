package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

// Op describes one remote-equivalent call made against a Memory store.
type Op struct {
	Kind string // get, query, add, set, update, delete, commit
	Path string
}

// Memory is an in-process document store with Firestore-like semantics:
// documents ordered by id, arrays stored as []any, transforms applied on
// write and Update failing on missing documents. It records every call and
// can be told to fail selected calls.
type Memory struct {
	mu     sync.Mutex
	docs   map[string]map[string]any
	ops    []Op
	seq    int
	now    func() time.Time
	failFn func(Op) error
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]any), now: time.Now}
}

// SetClock replaces the clock used for ServerTimestamp.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// FailWith installs a hook consulted before every call. Batch commits consult
// it once for the commit and once per staged write; any failure aborts the
// whole batch.
func (m *Memory) FailWith(fn func(Op) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFn = fn
}

// Calls is the number of calls made so far.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ops)
}

// Ops returns a copy of the recorded calls.
func (m *Memory) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Op(nil), m.ops...)
}

// Put writes a document directly, bypassing call recording and fault hooks.
func (m *Memory) Put(path string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = normalizeMap(data)
}

// Data reads a document directly, bypassing call recording and fault hooks.
func (m *Memory) Data(path string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[path]
	if !ok {
		return nil, false
	}
	return copyMap(data), true
}

func (m *Memory) Collection(name string) Collection {
	return &memCollection{memQuery: memQuery{m: m, coll: name}}
}

func (m *Memory) Batch() Batch {
	return &memBatch{m: m}
}

// record must be called with m.mu held.
func (m *Memory) record(kind, path string) error {
	op := Op{Kind: kind, Path: path}
	m.ops = append(m.ops, op)
	if m.failFn != nil {
		return m.failFn(op)
	}
	return nil
}

type memFilter struct {
	field  string
	values []any
}

type memQuery struct {
	m       *Memory
	coll    string
	filters []memFilter
	order   string
	limit   int
}

func (q memQuery) with(f memFilter) memQuery {
	q.filters = append(append([]memFilter(nil), q.filters...), f)
	return q
}

func (q memQuery) WhereEqualTo(field string, value any) Query {
	return q.with(memFilter{field: field, values: []any{value}})
}

func (q memQuery) WhereIn(field string, values []any) Query {
	return q.with(memFilter{field: field, values: append([]any(nil), values...)})
}

func (q memQuery) OrderBy(field string) Query {
	q.order = field
	return q
}

func (q memQuery) Limit(n int) Query {
	q.limit = n
	return q
}

func (q memQuery) Get(ctx context.Context) (*QuerySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, f := range q.filters {
		if len(f.values) > MaxInValues {
			return nil, fmt.Errorf("store: %q filter carries %d values, limit is %d", f.field, len(f.values), MaxInValues)
		}
	}

	q.m.mu.Lock()
	defer q.m.mu.Unlock()
	if err := q.m.record("query", q.coll); err != nil {
		return nil, err
	}

	var matched []*DocumentSnapshot
	for path, data := range q.m.docs {
		if parentPath(path) != q.coll || !q.matches(data) {
			continue
		}
		if q.order != "" {
			if _, ok := data[q.order]; !ok {
				continue
			}
		}
		id := path[len(q.coll)+1:]
		matched = append(matched, &DocumentSnapshot{
			Ref:    &memDocument{m: q.m, coll: q.coll, id: id},
			ID:     id,
			Exists: true,
			Data:   copyMap(data),
		})
	}

	sort.Slice(matched, func(i, j int) bool {
		if q.order != "" {
			a, b := matched[i].Data[q.order], matched[j].Data[q.order]
			if !reflect.DeepEqual(a, b) {
				return lessValue(a, b)
			}
		}
		return matched[i].ID < matched[j].ID
	})
	if q.limit > 0 && len(matched) > q.limit {
		matched = matched[:q.limit]
	}
	return &QuerySnapshot{Documents: matched}, nil
}

func (q memQuery) matches(data map[string]any) bool {
	for _, f := range q.filters {
		value, ok := data[f.field]
		if !ok {
			return false
		}
		found := false
		for _, want := range f.values {
			if reflect.DeepEqual(normalize(want), value) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type memCollection struct {
	memQuery
}

func (c *memCollection) Document(id string) Document {
	return &memDocument{m: c.m, coll: c.coll, id: id}
}

func (c *memCollection) Add(ctx context.Context, data map[string]any) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.seq++
	doc := &memDocument{m: c.m, coll: c.coll, id: fmt.Sprintf("auto%06d", c.m.seq)}
	if err := c.m.record("add", doc.Path()); err != nil {
		return nil, err
	}
	c.m.docs[doc.Path()] = c.m.applySet(data)
	return doc, nil
}

type memDocument struct {
	m    *Memory
	coll string
	id   string
}

func (d *memDocument) ID() string   { return d.id }
func (d *memDocument) Path() string { return d.coll + "/" + d.id }

func (d *memDocument) Get(ctx context.Context) (*DocumentSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	if err := d.m.record("get", d.Path()); err != nil {
		return nil, err
	}
	data, ok := d.m.docs[d.Path()]
	if !ok {
		return &DocumentSnapshot{Ref: d, ID: d.id}, nil
	}
	return &DocumentSnapshot{Ref: d, ID: d.id, Exists: true, Data: copyMap(data)}, nil
}

func (d *memDocument) Set(ctx context.Context, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	if err := d.m.record("set", d.Path()); err != nil {
		return err
	}
	d.m.docs[d.Path()] = d.m.applySet(data)
	return nil
}

func (d *memDocument) Update(ctx context.Context, fields ...Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	if err := d.m.record("update", d.Path()); err != nil {
		return err
	}
	return d.m.applyUpdate(d.Path(), fields)
}

func (d *memDocument) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	if err := d.m.record("delete", d.Path()); err != nil {
		return err
	}
	delete(d.m.docs, d.Path())
	return nil
}

func (d *memDocument) Collection(name string) Collection {
	return &memCollection{memQuery: memQuery{m: d.m, coll: d.Path() + "/" + name}}
}

type memWrite struct {
	kind   string
	path   string
	data   map[string]any
	fields []Update
}

type memBatch struct {
	m      *Memory
	writes []memWrite
}

func (b *memBatch) Set(doc Document, data map[string]any) Batch {
	b.writes = append(b.writes, memWrite{kind: "set", path: doc.Path(), data: data})
	return b
}

func (b *memBatch) Update(doc Document, fields ...Update) Batch {
	b.writes = append(b.writes, memWrite{kind: "update", path: doc.Path(), fields: fields})
	return b
}

func (b *memBatch) Delete(doc Document) Batch {
	b.writes = append(b.writes, memWrite{kind: "delete", path: doc.Path()})
	return b
}

func (b *memBatch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := b.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("commit", ""); err != nil {
		return err
	}
	for _, w := range b.writes {
		if m.failFn != nil {
			if err := m.failFn(Op{Kind: w.kind, Path: w.path}); err != nil {
				return err
			}
		}
		if w.kind == "update" {
			if _, ok := m.docs[w.path]; !ok {
				return fmt.Errorf("%w: %s", ErrNotFound, w.path)
			}
		}
	}

	for _, w := range b.writes {
		switch w.kind {
		case "set":
			m.docs[w.path] = m.applySet(w.data)
		case "update":
			if err := m.applyUpdate(w.path, w.fields); err != nil {
				return err
			}
		case "delete":
			delete(m.docs, w.path)
		}
	}
	return nil
}

// applySet must be called with m.mu held.
func (m *Memory) applySet(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = m.transform(nil, value)
	}
	return out
}

// applyUpdate must be called with m.mu held.
func (m *Memory) applyUpdate(path string, fields []Update) error {
	current, ok := m.docs[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	next := copyMap(current)
	for _, field := range fields {
		next[field.Field] = m.transform(next[field.Field], field.Value)
	}
	m.docs[path] = next
	return nil
}

func (m *Memory) transform(existing, value any) any {
	switch v := value.(type) {
	case serverTimestamp:
		return m.now().UTC()
	case arrayUnion:
		out := toArray(existing)
		for _, candidate := range v.values {
			candidate = normalize(candidate)
			if !containsValue(out, candidate) {
				out = append(out, candidate)
			}
		}
		return out
	case arrayRemove:
		out := make([]any, 0)
		for _, element := range toArray(existing) {
			drop := false
			for _, candidate := range v.values {
				if reflect.DeepEqual(normalize(candidate), element) {
					drop = true
					break
				}
			}
			if !drop {
				out = append(out, element)
			}
		}
		return out
	}
	return normalize(value)
}

func toArray(value any) []any {
	arr, ok := value.([]any)
	if !ok {
		return make([]any, 0)
	}
	return append([]any(nil), arr...)
}

func containsValue(values []any, value any) bool {
	for _, v := range values {
		if reflect.DeepEqual(v, value) {
			return true
		}
	}
	return false
}

func parentPath(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// normalize converts values into the shapes Firestore hands back: int64,
// float64, []any and map[string]any.
func normalize(value any) any {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, element := range v {
			out[i] = normalize(element)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, element := range v {
			out[i] = normalizeMap(element)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, s := range v {
			out[key] = s
		}
		return out
	case map[string]any:
		return normalizeMap(v)
	}
	return value
}

func normalizeMap(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = normalize(value)
	}
	return out
}

func copyMap(data map[string]any) map[string]any {
	return normalizeMap(data)
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return !av && bv
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
