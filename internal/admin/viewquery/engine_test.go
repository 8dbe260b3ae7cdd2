package viewquery_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

type row struct {
	Name      string
	City      string
	Amount    *float64
	Start     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func amount(v float64) *float64 { return &v }

var rowSchema = viewquery.Schema[row]{
	Fields: map[string]viewquery.Accessor[row]{
		"name": func(r row) viewquery.Value { return viewquery.OptionalString(r.Name) },
		"city": func(r row) viewquery.Value { return viewquery.OptionalString(r.City) },
		"amount": func(r row) viewquery.Value {
			if r.Amount == nil {
				return viewquery.Undefined()
			}
			return viewquery.Number(*r.Amount)
		},
		"start": func(r row) viewquery.Value {
			t, ok := collection.ParseTime(r.Start)
			if !ok {
				return viewquery.Undefined()
			}
			return viewquery.Time(t)
		},
	},
	Searchable: []string{"name", "city", "amount"},
}

func names(rows []row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func TestFilterIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	items := []row{{Name: "Alice"}, {Name: "bob"}}
	got := viewquery.Filter(rowSchema, items, "ALI")
	require.Equal(t, []row{{Name: "Alice"}}, got)

	got = viewquery.Filter(rowSchema, items, "  B ")
	require.Equal(t, []string{"bob"}, names(got))
}

func TestFilterSkipsUndefinedAndMatchesNumbers(t *testing.T) {
	t.Parallel()

	items := []row{
		{Name: "Kyoto tour", Amount: amount(1250)},
		{Name: "Osaka"},
		{City: "Straße"},
	}
	require.Equal(t, []string{"Kyoto tour"}, names(viewquery.Filter(rowSchema, items, "125")))
	require.Empty(t, viewquery.Filter(rowSchema, items, "undefined"))
	require.Len(t, viewquery.Filter(rowSchema, items, "STRASSE"), 1)
	require.Len(t, viewquery.Filter(rowSchema, items, "   "), 3)
}

func TestOrderPutsUndefinedLast(t *testing.T) {
	t.Parallel()

	items := []row{{Name: "five", Amount: amount(5)}, {Name: "none"}, {Name: "one", Amount: amount(1)}}

	asc := viewquery.Order(rowSchema, items, &viewquery.Sort{Key: "amount", Direction: viewquery.Asc})
	require.Equal(t, []string{"one", "five", "none"}, names(asc))

	desc := viewquery.Order(rowSchema, items, &viewquery.Sort{Key: "amount", Direction: viewquery.Desc})
	require.Equal(t, []string{"five", "one", "none"}, names(desc))

	require.Equal(t, []string{"five", "none", "one"}, names(items), "input untouched")
}

func TestOrderIsStableAndIgnoresUnknownKeys(t *testing.T) {
	t.Parallel()

	items := []row{{Name: "b", City: "x"}, {Name: "a", City: "x"}, {Name: "c", City: "w"}}

	byCity := viewquery.Order(rowSchema, items, &viewquery.Sort{Key: "city", Direction: viewquery.Asc})
	require.Equal(t, []string{"c", "b", "a"}, names(byCity))

	unknown := viewquery.Order(rowSchema, items, &viewquery.Sort{Key: "missing", Direction: viewquery.Asc})
	require.Equal(t, names(items), names(unknown))

	badDirection := viewquery.Order(rowSchema, items, &viewquery.Sort{Key: "name", Direction: "sideways"})
	require.Equal(t, names(items), names(badDirection))
}

func TestOrderDates(t *testing.T) {
	t.Parallel()

	plain := []row{
		{Name: "later", Start: "2024-11-02"},
		{Name: "garbage", Start: "soon"},
		{Name: "earlier", Start: "2024-02-10"},
	}
	got := viewquery.Order(rowSchema, plain, &viewquery.Sort{Key: "start", Direction: viewquery.Asc})
	require.Equal(t, []string{"earlier", "later", "garbage"}, names(got))

	stamped := []row{
		{Name: "tokyo-evening", Start: "2024-12-24T18:30:00+09:00"},
		{Name: "utc-morning", Start: "2024-12-24T10:00:00Z"},
		{Name: "january", Start: "2024-01-05T09:00:00Z"},
	}
	got = viewquery.Order(rowSchema, stamped, &viewquery.Sort{Key: "start", Direction: viewquery.Asc})
	require.Equal(t, []string{"january", "tokyo-evening", "utc-morning"}, names(got))
	require.Less(t, indexOf(got, "january"), indexOf(got, "utc-morning"))

	mixed := []row{
		{Name: "march", Start: "2024-03-01"},
		{Name: "january", Start: "2024-01-15T10:00:00Z"},
		{Name: "february", Start: "2024-02-01"},
		{Name: "december", Start: "2023-12-20T08:00:00Z"},
	}
	got = viewquery.Order(rowSchema, mixed, &viewquery.Sort{Key: "start", Direction: viewquery.Asc})
	require.Equal(t, []string{"december", "january", "february", "march"}, names(got))
	got = viewquery.Order(rowSchema, mixed, &viewquery.Sort{Key: "start", Direction: viewquery.Desc})
	require.Equal(t, []string{"march", "february", "january", "december"}, names(got))
}

func indexOf(rows []row, name string) int {
	for i, r := range rows {
		if r.Name == name {
			return i
		}
	}
	return -1
}

func TestDefaultRecencyOrder(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	schema := rowSchema
	schema.DefaultOrder = viewquery.Recency(
		func(r row) time.Time { return r.CreatedAt },
		func(r row) time.Time { return r.UpdatedAt },
	)
	items := []row{
		{Name: "none"},
		{Name: "old", CreatedAt: base},
		{Name: "updated-only", UpdatedAt: base.Add(48 * time.Hour)},
		{Name: "new", CreatedAt: base.Add(24 * time.Hour)},
	}
	got := viewquery.Apply(schema, items, viewquery.Query{Page: 1, PageSize: 10})
	require.Equal(t, []string{"updated-only", "new", "old", "none"}, names(got.Items))

	withoutDefault := viewquery.Apply(rowSchema, items, viewquery.Query{Page: 1, PageSize: 10})
	require.Equal(t, names(items), names(withoutDefault.Items))
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	first := viewquery.Paginate(items, 1, 10)
	require.Equal(t, 10, len(first.Items))
	require.Equal(t, 3, first.TotalPages)
	require.Equal(t, 23, first.TotalItems)
	require.False(t, first.HasPrev())
	require.True(t, first.HasNext())

	last := viewquery.Paginate(items, 3, 10)
	require.Equal(t, []int{20, 21, 22}, last.Items)
	require.False(t, last.HasNext())

	clamped := viewquery.Paginate(items, 9, 10)
	require.Equal(t, 3, clamped.Page)

	empty := viewquery.Paginate([]int{}, 1, 10)
	require.Equal(t, 1, empty.TotalPages)
	require.Empty(t, empty.Items)
}

func TestServerPagingKeepsLoadedPage(t *testing.T) {
	t.Parallel()

	items := []row{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	got := viewquery.Apply(rowSchema, items, viewquery.Query{Page: 4, PageSize: 2, Mode: viewquery.ServerPaging})
	require.Len(t, got.Items, 3)
	require.Equal(t, 4, got.Page)
}

func TestSearchChangeResetsPage(t *testing.T) {
	t.Parallel()

	items := make([]row, 0, 40)
	for i := 0; i < 40; i++ {
		name := "guest"
		if i%4 == 0 {
			name = "vip guest"
		}
		items = append(items, row{Name: name})
	}

	state := viewquery.NewState(10)
	state.SetPage(3)
	require.Equal(t, 3, viewquery.Apply(rowSchema, items, state.Query(viewquery.ClientPaging)).Page)

	state.SetSearch("vip")
	require.Equal(t, 1, state.Page)
	result := viewquery.Apply(rowSchema, items, state.Query(viewquery.ClientPaging))
	require.Equal(t, 1, result.Page)
	require.Equal(t, 10, result.TotalItems)
	require.Equal(t, 1, result.TotalPages)
}
