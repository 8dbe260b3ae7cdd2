package viewquery

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// DefaultPageSize is used when a query carries no page size.
const DefaultPageSize = 10

// Accessor reads one field from an entity.
type Accessor[T any] func(T) Value

// Schema describes the searchable and sortable fields of an entity type.
type Schema[T any] struct {
	Fields     map[string]Accessor[T]
	Searchable []string
	// DefaultOrder applies when no sort is selected. Nil keeps the loaded order.
	DefaultOrder func(a, b T) int
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort selects a field and direction.
type Sort struct {
	Key       string
	Direction Direction
}

// Mode says where pagination happens.
type Mode int

const (
	// ClientPaging slices the full in-memory collection.
	ClientPaging Mode = iota
	// ServerPaging leaves the loaded page intact; the server owns the totals.
	ServerPaging
)

func (m Mode) String() string {
	if m == ServerPaging {
		return "server"
	}
	return "client"
}

// Query is the transient UI query applied to loaded entities.
type Query struct {
	Search   string
	Sort     *Sort
	Page     int
	PageSize int
	Mode     Mode
}

// Result is the derived page of rows.
type Result[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// HasPrev reports whether a previous page exists.
func (r Result[T]) HasPrev() bool { return r.Page > 1 }

// HasNext reports whether a following page exists.
func (r Result[T]) HasNext() bool { return r.Page < r.TotalPages }

// Apply filters, orders and paginates items. The input slice is never modified.
func Apply[T any](schema Schema[T], items []T, q Query) Result[T] {
	rows := Filter(schema, items, q.Search)
	rows = Order(schema, rows, q.Sort)

	if q.Mode == ServerPaging {
		return Result[T]{
			Items:      rows,
			Page:       max(q.Page, 1),
			PageSize:   q.PageSize,
			TotalItems: len(rows),
			TotalPages: 1,
		}
	}
	return Paginate(rows, q.Page, q.PageSize)
}

// Filter keeps entities where any searchable field contains search, ignoring case.
// Blank search returns a copy of items.
func Filter[T any](schema Schema[T], items []T, search string) []T {
	search = strings.TrimSpace(search)
	if search == "" {
		return slices.Clone(items)
	}
	fold := cases.Fold()
	needle := fold.String(search)

	accessors := make([]Accessor[T], 0, len(schema.Searchable))
	for _, key := range schema.Searchable {
		if acc, ok := schema.Fields[key]; ok {
			accessors = append(accessors, acc)
		}
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		for _, acc := range accessors {
			v := acc(item)
			if !v.Defined() {
				continue
			}
			if strings.Contains(fold.String(v.Text()), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Order stably sorts a copy of items. Undefined values go last in both directions.
// An unknown key or direction leaves the order unchanged; a nil sort applies the schema default.
func Order[T any](schema Schema[T], items []T, sort *Sort) []T {
	out := slices.Clone(items)
	if sort == nil {
		if schema.DefaultOrder != nil {
			slices.SortStableFunc(out, schema.DefaultOrder)
		}
		return out
	}
	if sort.Direction != Asc && sort.Direction != Desc {
		return out
	}
	acc, ok := schema.Fields[sort.Key]
	if !ok {
		return out
	}
	slices.SortStableFunc(out, func(a, b T) int {
		av, bv := acc(a), acc(b)
		switch {
		case !av.Defined() && !bv.Defined():
			return 0
		case !av.Defined():
			return 1
		case !bv.Defined():
			return -1
		}
		c, ok := compareValues(av, bv)
		if !ok {
			return 0
		}
		if sort.Direction == Desc {
			return -c
		}
		return c
	})
	return out
}

// Paginate slices items to the requested page. Out-of-range pages clamp to the nearest page.
func Paginate[T any](items []T, page, pageSize int) Result[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(items)
	totalPages := max(1, (total+pageSize-1)/pageSize)
	page = min(max(page, 1), totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	rows := []T{}
	if start < end {
		rows = slices.Clone(items[start:end])
	}
	return Result[T]{
		Items:      rows,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

// Recency orders by created time descending, falling back to updated time.
// Entities with neither timestamp go last.
func Recency[T any](created, updated func(T) time.Time) func(a, b T) int {
	key := func(item T) time.Time {
		if t := created(item); !t.IsZero() {
			return t
		}
		if updated == nil {
			return time.Time{}
		}
		return updated(item)
	}
	return func(a, b T) int {
		at, bt := key(a), key(b)
		switch {
		case at.IsZero() && bt.IsZero():
			return 0
		case at.IsZero():
			return 1
		case bt.IsZero():
			return -1
		}
		return bt.Compare(at)
	}
}
